package wallet

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	assert.False(t, store.Exists())

	_, err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet create")

	cred, err := Generate("pw", SchemeAESGCM, "localhost")
	require.NoError(t, err)
	require.NoError(t, store.Save(cred))
	assert.True(t, store.Exists())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, cred.Address, loaded.Address)
	assert.Equal(t, cred.Scheme, loaded.Scheme)
	assert.JSONEq(t, string(cred.EncryptedKey), string(loaded.EncryptedKey))

	require.NoError(t, store.Delete())
	assert.False(t, store.Exists())
	require.Error(t, store.Delete())
}

func TestSignTx(t *testing.T) {
	chainID := big.NewInt(31337)
	cred, err := Generate("pw", SchemeAESGCM, "localhost")
	require.NoError(t, err)

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     0,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(100),
		Gas:       21000,
		Value:     big.NewInt(1),
	})

	signed, err := cred.SignTx("pw", tx, chainID)
	require.NoError(t, err)

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	assert.Equal(t, cred.Address, sender)
}

func TestSignTxWrongPassphrase(t *testing.T) {
	chainID := big.NewInt(31337)
	cred, err := Generate("pw", SchemeAESGCM, "localhost")
	require.NoError(t, err)

	tx := types.NewTx(&types.LegacyTx{Nonce: 0, GasPrice: big.NewInt(1), Gas: 21000})
	_, err = cred.SignTx("wrong", tx, chainID)
	assert.ErrorIs(t, err, ErrUnreadable)
}

// A credential round-trips through storage regardless of which scheme
// sealed it; the reader sniffs the format from the blob itself.
func TestStoredCredentialReadableAcrossSchemes(t *testing.T) {
	for _, scheme := range []Scheme{SchemeKeystore, SchemeAESGCM} {
		t.Run(string(scheme), func(t *testing.T) {
			store := NewStore(t.TempDir())
			cred, err := Generate("pw", scheme, "localhost")
			require.NoError(t, err)
			require.NoError(t, store.Save(cred))

			loaded, err := store.Load()
			require.NoError(t, err)

			detected, err := DetectScheme(loaded.EncryptedKey)
			require.NoError(t, err)
			assert.Equal(t, scheme, detected)

			key, err := Decrypt(loaded.EncryptedKey, "pw")
			require.NoError(t, err)
			require.NotNil(t, key)
		})
	}
}
