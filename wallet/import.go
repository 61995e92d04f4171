package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

// derivationPath is the fixed path for seed-phrase imports: m/44'/60'/0'/0/0.
var derivationPath = []uint32{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart + 0,
	0,
	0,
}

// Generate creates a fresh signing key and seals it into a Credential.
func Generate(passphrase string, scheme Scheme, network string) (*Credential, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	defer zeroKey(key)
	return newCredential(key, passphrase, scheme, network)
}

// ImportPrivateKey builds a Credential from a raw hex-encoded private key.
func ImportPrivateKey(hexKey, passphrase string, scheme Scheme, network string) (*Credential, error) {
	key, err := parsePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	defer zeroKey(key)
	return newCredential(key, passphrase, scheme, network)
}

// ImportMnemonic builds a Credential from a BIP-39 seed phrase, deriving
// the key at m/44'/60'/0'/0/0. Both import surfaces normalize to the same
// Credential shape.
func ImportMnemonic(mnemonic, passphrase string, scheme Scheme, network string) (*Credential, error) {
	seed, err := bip39.NewSeedWithErrorChecking(strings.TrimSpace(mnemonic), "")
	if err != nil {
		return nil, fmt.Errorf("invalid seed phrase: %w", err)
	}

	node, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}
	for _, index := range derivationPath {
		node, err = node.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("failed to derive key at index %d: %w", index, err)
		}
	}

	btcKey, err := node.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}
	key := btcKey.ToECDSA()
	defer zeroKey(key)

	return newCredential(key, passphrase, scheme, network)
}

func newCredential(key *ecdsa.PrivateKey, passphrase string, scheme Scheme, network string) (*Credential, error) {
	blob, tag, err := Encrypt(key, passphrase, scheme)
	if err != nil {
		return nil, err
	}
	return &Credential{
		Address:      crypto.PubkeyToAddress(key.PublicKey),
		EncryptedKey: blob,
		Scheme:       tag,
		Network:      network,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")

	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid hex format: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("invalid private key length: got %d bytes, want 32 bytes (secp256k1)", len(raw))
	}

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}
