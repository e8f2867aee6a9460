package chain

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeypair(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	assert.True(t, ValidAddress(kp.Address))
	assert.Len(t, kp.PrivateKey, ed25519.PrivateKeySize)

	// Address is the base58 public key.
	pub := kp.PrivateKey.Public().(ed25519.PublicKey)
	assert.Equal(t, base58.Encode(pub), kp.Address)
}

func TestImportKeypair_Base58RoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	imported, err := ImportKeypair(kp.ExportBase58())
	require.NoError(t, err)
	assert.Equal(t, kp.Address, imported.Address)
	assert.Equal(t, kp.PrivateKey, imported.PrivateKey)
}

func TestImportKeypair_Hex(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	imported, err := ImportKeypair(hex.EncodeToString(kp.PrivateKey))
	require.NoError(t, err)
	assert.Equal(t, kp.Address, imported.Address)
}

func TestImportKeypair_Seed(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	seed := kp.PrivateKey.Seed()
	imported, err := ImportKeypair(base58.Encode(seed))
	require.NoError(t, err)
	assert.Equal(t, kp.Address, imported.Address)
}

func TestImportKeypair_Invalid(t *testing.T) {
	_, err := ImportKeypair("not-a-key")
	assert.Error(t, err)

	_, err = ImportKeypair(hex.EncodeToString([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestKeypairFromPrivateKey(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	rebuilt, err := KeypairFromPrivateKey(kp.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, kp.Address, rebuilt.Address)

	_, err = KeypairFromPrivateKey([]byte("short"))
	assert.Error(t, err)
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress(SystemProgramID))
	assert.True(t, ValidAddress(TokenProgramID))
	assert.False(t, ValidAddress("0xdeadbeef"))
	assert.False(t, ValidAddress(""))
	assert.False(t, ValidAddress(base58.Encode([]byte{1, 2, 3})))
}
