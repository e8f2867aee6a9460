package service

import (
	"encoding/hex"
	"strings"
	"testing"

	"custodial-wallet-engine/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeyVaultConfig() config.KeyVaultConfig {
	return config.KeyVaultConfig{
		MasterSecret: strings.Repeat("ab", 32),
		ArgonTime:    1,
		ArgonMemory:  8 * 1024,
		ArgonThreads: 1,
	}
}

func newTestCipher(t *testing.T) *KeyVaultCipherService {
	t.Helper()
	svc, err := NewKeyVaultCipherService(testKeyVaultConfig())
	require.NoError(t, err)
	return svc
}

func TestNewKeyVaultCipherService_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.KeyVaultConfig)
	}{
		{"not hex", func(c *config.KeyVaultConfig) { c.MasterSecret = "zz" }},
		{"too short", func(c *config.KeyVaultConfig) { c.MasterSecret = "abcd" }},
		{"zero time", func(c *config.KeyVaultConfig) { c.ArgonTime = 0 }},
		{"zero memory", func(c *config.KeyVaultConfig) { c.ArgonMemory = 0 }},
		{"zero threads", func(c *config.KeyVaultConfig) { c.ArgonThreads = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testKeyVaultConfig()
			tt.mutate(&cfg)
			_, err := NewKeyVaultCipherService(cfg)
			assert.Error(t, err)
		})
	}
}

func TestCipherService_IdentityRoundTrip(t *testing.T) {
	svc := newTestCipher(t)
	secret := []byte("ed25519 private key bytes go here")

	ct, err := svc.EncryptForIdentity(42, secret)
	require.NoError(t, err)
	assert.NotContains(t, ct, hex.EncodeToString(secret))

	pt, err := svc.DecryptForIdentity(42, ct)
	require.NoError(t, err)
	assert.Equal(t, secret, pt)
}

func TestCipherService_HandleRoundTrip(t *testing.T) {
	svc := newTestCipher(t)
	secret := []byte("pending wallet key")

	ct, err := svc.EncryptForHandle("@Alice", secret)
	require.NoError(t, err)

	// Handle salts normalize, so any casing of the handle decrypts.
	pt, err := svc.DecryptForHandle("alice", ct)
	require.NoError(t, err)
	assert.Equal(t, secret, pt)
}

func TestCipherService_WrongIdentityFailsAuth(t *testing.T) {
	svc := newTestCipher(t)

	ct, err := svc.EncryptForIdentity(1, []byte("secret"))
	require.NoError(t, err)

	_, err = svc.DecryptForIdentity(2, ct)
	assert.Error(t, err)
}

func TestCipherService_IdentityAndHandleSaltsDisjoint(t *testing.T) {
	svc := newTestCipher(t)

	// An identity id that collides textually with a handle must still
	// produce an incompatible key.
	ct, err := svc.EncryptForIdentity(7, []byte("secret"))
	require.NoError(t, err)

	_, err = svc.DecryptForHandle("7", ct)
	assert.Error(t, err)
}

func TestCipherService_NonDeterministicCiphertext(t *testing.T) {
	svc := newTestCipher(t)

	a, err := svc.EncryptForIdentity(1, []byte("secret"))
	require.NoError(t, err)
	b, err := svc.EncryptForIdentity(1, []byte("secret"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "fresh nonce per encryption")
}

func TestCipherService_TamperedCiphertext(t *testing.T) {
	svc := newTestCipher(t)

	ct, err := svc.EncryptForIdentity(1, []byte("secret"))
	require.NoError(t, err)

	raw, err := hex.DecodeString(ct)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	_, err = svc.DecryptForIdentity(1, hex.EncodeToString(raw))
	assert.Error(t, err)

	_, err = svc.DecryptForIdentity(1, "not-hex")
	assert.Error(t, err)

	_, err = svc.DecryptForIdentity(1, "abcd")
	assert.Error(t, err)
}
