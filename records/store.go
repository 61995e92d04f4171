// Package records persists one deployment record per (contract, network)
// pair to a project-local directory. Records are written only for
// transactions whose receipt reported success and are never mutated, only
// superseded by a new record under the same key.
package records

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DeploymentRecord is the durable note of a successfully deployed artifact.
type DeploymentRecord struct {
	ContractName    string            `json:"contract_name"`
	Address         string            `json:"address"`
	TransactionHash string            `json:"transaction_hash"`
	BlockNumber     uint64            `json:"block_number"`
	GasUsed         uint64            `json:"gas_used"`
	Cost            string            `json:"cost"`
	Network         string            `json:"network"`
	DeployerAddress string            `json:"deployer_address"`
	DeployedAt      time.Time         `json:"deployed_at"`
	ConstructorArgs []ConstructorArg  `json:"constructor_args"`
	ABI             json.RawMessage   `json:"abi"`
	Bytecode        string            `json:"bytecode"`
}

// ConstructorArg records one resolved constructor argument and where its
// value came from.
type ConstructorArg struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

const recordsDir = "deployments"

// Store keeps deployment records as JSON files under
// <workspace>/deployments/{contract}-{network}.json.
type Store struct {
	dir string
}

// NewStore opens the record store under the workspace directory.
func NewStore(workspace string) *Store {
	return &Store{dir: filepath.Join(workspace, recordsDir)}
}

func (s *Store) path(contractName, network string) string {
	name := fmt.Sprintf("%s-%s.json", strings.ToLower(contractName), strings.ToLower(network))
	return filepath.Join(s.dir, name)
}

// Save persists the record, overwriting any prior record with the same
// (contract, network) key. The write goes through a temp file and rename
// so a crash never leaves a partially-written record.
func (s *Store) Save(record *DeploymentRecord) error {
	if record.ContractName == "" || record.Network == "" {
		return fmt.Errorf("deployment record requires contract name and network")
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal deployment record: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create records directory: %w", err)
	}

	target := s.path(record.ContractName, record.Network)
	tmp, err := os.CreateTemp(s.dir, ".record-*")
	if err != nil {
		return fmt.Errorf("failed to create temp record: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close record: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("failed to finalize record: %w", err)
	}
	return nil
}

// Load reads the record for a (contract, network) key.
func (s *Store) Load(contractName, network string) (*DeploymentRecord, error) {
	data, err := os.ReadFile(s.path(contractName, network))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no deployment record for %s on %s", contractName, network)
		}
		return nil, fmt.Errorf("failed to read deployment record: %w", err)
	}
	var record DeploymentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse deployment record: %w", err)
	}
	return &record, nil
}

// Exists reports whether a record is present for the key.
func (s *Store) Exists(contractName, network string) bool {
	_, err := os.Stat(s.path(contractName, network))
	return err == nil
}

// List returns all stored deployment records, sorted by file name.
func (s *Store) List() ([]*DeploymentRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read records directory: %w", err)
	}

	var out []*DeploymentRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		var record DeploymentRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
		out = append(out, &record)
	}
	return out, nil
}
