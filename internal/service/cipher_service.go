package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"custodial-wallet-engine/config"
	"custodial-wallet-engine/internal/core/domain"

	"golang.org/x/crypto/argon2"
)

const cipherKeyLen = 32 // AES-256

// KeyVaultCipherService implements ports.CipherService. Each call stretches
// the master secret with argon2id under a deterministic per-identity or
// per-handle salt, builds an AES-256-GCM cipher, uses it, and lets the key
// go out of scope. Nothing derived is ever cached, persisted, or logged.
type KeyVaultCipherService struct {
	masterSecret []byte
	time         uint32
	memory       uint32
	threads      uint8
}

// NewKeyVaultCipherService creates the cipher service from key-vault config.
// MasterSecret must be hex, at least 32 bytes decoded.
func NewKeyVaultCipherService(cfg config.KeyVaultConfig) (*KeyVaultCipherService, error) {
	secret, err := hex.DecodeString(cfg.MasterSecret)
	if err != nil {
		return nil, fmt.Errorf("decoding master secret: %w", err)
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("master secret must be at least 32 bytes, got %d", len(secret))
	}
	if cfg.ArgonTime == 0 || cfg.ArgonMemory == 0 || cfg.ArgonThreads == 0 {
		return nil, fmt.Errorf("argon2 parameters must be nonzero")
	}
	return &KeyVaultCipherService{
		masterSecret: secret,
		time:         cfg.ArgonTime,
		memory:       cfg.ArgonMemory,
		threads:      cfg.ArgonThreads,
	}, nil
}

// saltForIdentity derives the fixed-width salt for an identity id.
func saltForIdentity(identityID int64) [32]byte {
	return sha256.Sum256([]byte(strconv.FormatInt(identityID, 10)))
}

// saltForHandle derives the fixed-width salt for a normalized handle. The
// prefix keeps the handle salt space disjoint from the identity salt space.
func saltForHandle(handle string) [32]byte {
	return sha256.Sum256([]byte("handle:" + domain.NormalizeHandle(handle)))
}

func (s *KeyVaultCipherService) deriveKey(salt [32]byte) []byte {
	return argon2.IDKey(s.masterSecret, salt[:], s.time, s.memory, s.threads, cipherKeyLen)
}

// EncryptForIdentity encrypts under the identity-derived key.
func (s *KeyVaultCipherService) EncryptForIdentity(identityID int64, plaintext []byte) (string, error) {
	return s.encrypt(saltForIdentity(identityID), plaintext)
}

// DecryptForIdentity decrypts ciphertext produced by EncryptForIdentity.
func (s *KeyVaultCipherService) DecryptForIdentity(identityID int64, ciphertext string) ([]byte, error) {
	return s.decrypt(saltForIdentity(identityID), ciphertext)
}

// EncryptForHandle encrypts under the handle-derived key.
func (s *KeyVaultCipherService) EncryptForHandle(handle string, plaintext []byte) (string, error) {
	return s.encrypt(saltForHandle(handle), plaintext)
}

// DecryptForHandle decrypts ciphertext produced by EncryptForHandle.
func (s *KeyVaultCipherService) DecryptForHandle(handle string, ciphertext string) ([]byte, error) {
	return s.decrypt(saltForHandle(handle), ciphertext)
}

// encrypt seals plaintext with AES-256-GCM under the derived key.
// Returns hex-encoded nonce + ciphertext.
func (s *KeyVaultCipherService) encrypt(salt [32]byte, plaintext []byte) (string, error) {
	block, err := aes.NewCipher(s.deriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM: %w", err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, plaintext, nil)
	return hex.EncodeToString(ciphertext), nil
}

// decrypt opens a hex-encoded nonce + ciphertext under the derived key.
// A wrong salt input fails GCM authentication.
func (s *KeyVaultCipherService) decrypt(salt [32]byte, ciphertextHex string) ([]byte, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}

	block, err := aes.NewCipher(s.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return plaintext, nil
}
