// Package wallet manages the project credential: an address plus encrypted
// signing key material. The decrypted private key exists only as a
// short-lived value used to sign a single transaction.
package wallet

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Credential is the persisted form of a signing account. Re-encryption
// creates a new record; an existing one is never mutated.
type Credential struct {
	Address      common.Address  `json:"address"`
	EncryptedKey json.RawMessage `json:"encrypted_key"`
	Scheme       Scheme          `json:"scheme"`
	Network      string          `json:"network"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SignTx signs the transaction with the credential's key. The key is
// decrypted for the duration of this call only and wiped before returning.
func (c *Credential) SignTx(passphrase string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	key, err := Decrypt(c.EncryptedKey, passphrase)
	if err != nil {
		return nil, err
	}
	defer zeroKey(key)
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
}

const credentialFile = "wallet.json"

// Store persists at most one active credential per project directory.
type Store struct {
	path string
}

// NewStore opens the credential store under the workspace directory.
func NewStore(workspace string) *Store {
	return &Store{path: filepath.Join(workspace, credentialFile)}
}

// Save writes the credential. The file is owner-readable only.
func (s *Store) Save(cred *Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

// Load reads the active credential. A missing file is reported as an error
// naming the import commands.
func (s *Store) Load() (*Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no credential found at %s, run 'wallet create' or 'wallet import' first", s.path)
		}
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}
	return &cred, nil
}

// Delete removes the active credential.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no credential to delete at %s", s.path)
		}
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

// Exists reports whether a credential file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
