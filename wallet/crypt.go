package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"
)

// Scheme tags the encryption format of a credential blob. Two formats are
// in circulation: geth keystore v3 files and the aes-gcm envelope written
// by earlier import paths. Both stay supported.
type Scheme string

const (
	SchemeKeystore Scheme = "keystore"
	SchemeAESGCM   Scheme = "aesgcm"
)

// ErrUnreadable covers wrong passphrases and corrupted blobs. It carries no
// detail on purpose: partial key material must never surface in logs or
// error messages.
var ErrUnreadable = errors.New("credential unreadable: wrong passphrase or corrupted key material")

// aesgcmBlob is the scheme B envelope: an AES-256-GCM ciphertext under a
// scrypt-derived key.
type aesgcmBlob struct {
	KDF        string `json:"kdf"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// DetectScheme identifies the encryption format from structural markers in
// the blob itself. The stored scheme tag is advisory only; records written
// by different code paths may carry either format under either tag.
func DetectScheme(blob []byte) (Scheme, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(blob, &probe); err != nil {
		return "", ErrUnreadable
	}
	if _, ok := probe["crypto"]; ok {
		if _, ok := probe["version"]; ok {
			return SchemeKeystore, nil
		}
	}
	if _, ok := probe["cipherText"]; ok {
		if _, ok := probe["nonce"]; ok {
			return SchemeAESGCM, nil
		}
	}
	return "", ErrUnreadable
}

// Decrypt recovers the signing key from an encrypted blob. The scheme is
// detected structurally and routed to the matching decode routine.
func Decrypt(blob []byte, passphrase string) (*ecdsa.PrivateKey, error) {
	scheme, err := DetectScheme(blob)
	if err != nil {
		return nil, err
	}
	switch scheme {
	case SchemeKeystore:
		return decryptKeystore(blob, passphrase)
	case SchemeAESGCM:
		return decryptAESGCM(blob, passphrase)
	default:
		return nil, ErrUnreadable
	}
}

// Encrypt seals the signing key under the given scheme and returns the
// blob together with the scheme tag to store alongside it.
func Encrypt(key *ecdsa.PrivateKey, passphrase string, scheme Scheme) (json.RawMessage, Scheme, error) {
	switch scheme {
	case SchemeKeystore:
		blob, err := encryptKeystore(key, passphrase)
		return blob, SchemeKeystore, err
	case SchemeAESGCM:
		blob, err := encryptAESGCM(key, passphrase)
		return blob, SchemeAESGCM, err
	default:
		return nil, "", fmt.Errorf("unsupported encryption scheme %q", scheme)
	}
}

func encryptKeystore(key *ecdsa.PrivateKey, passphrase string) (json.RawMessage, error) {
	ksKey := &keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: key,
	}
	blob, err := keystore.EncryptKey(ksKey, passphrase, keystore.StandardScryptN, keystore.StandardScryptP)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt key: %w", err)
	}
	return blob, nil
}

func decryptKeystore(blob []byte, passphrase string) (*ecdsa.PrivateKey, error) {
	ksKey, err := keystore.DecryptKey(blob, passphrase)
	if err != nil {
		return nil, ErrUnreadable
	}
	return ksKey.PrivateKey, nil
}

func encryptAESGCM(key *ecdsa.PrivateKey, passphrase string) (json.RawMessage, error) {
	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, crypto.FromECDSA(key), nil)

	blob, err := json.Marshal(aesgcmBlob{
		KDF:        "scrypt",
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce),
		CipherText: hex.EncodeToString(sealed),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blob: %w", err)
	}
	return blob, nil
}

func decryptAESGCM(blob []byte, passphrase string) (*ecdsa.PrivateKey, error) {
	var envelope aesgcmBlob
	if err := json.Unmarshal(blob, &envelope); err != nil {
		return nil, ErrUnreadable
	}

	salt, err := hex.DecodeString(envelope.Salt)
	if err != nil {
		return nil, ErrUnreadable
	}
	nonce, err := hex.DecodeString(envelope.Nonce)
	if err != nil {
		return nil, ErrUnreadable
	}
	sealed, err := hex.DecodeString(envelope.CipherText)
	if err != nil {
		return nil, ErrUnreadable
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, ErrUnreadable
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, ErrUnreadable
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrUnreadable
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrUnreadable
	}

	raw, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrUnreadable
	}

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, ErrUnreadable
	}
	return key, nil
}

// zeroKey wipes the private scalar in place.
func zeroKey(key *ecdsa.PrivateKey) {
	if key == nil || key.D == nil {
		return
	}
	bits := key.D.Bits()
	for i := range bits {
		bits[i] = 0
	}
}
