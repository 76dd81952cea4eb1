package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/searchlens/searchlens/app/models"
	"github.com/searchlens/searchlens/internal/pkg/env"
)

var (
	// ErrDecryptionFailed means an encrypted secret is present but could not
	// be decrypted: wrong key, truncated ciphertext or corrupted row.
	ErrDecryptionFailed = errors.New("secretbox: decryption failed")
	// ErrNoRefreshSecret means the credential has neither an encrypted nor a
	// legacy plaintext refresh secret and can never be refreshed again.
	ErrNoRefreshSecret = errors.New("secretbox: credential has no refresh secret")
)

// SecretKind tags the source of a refresh secret.
type SecretKind int

const (
	SecretAbsent SecretKind = iota
	SecretEncrypted
	SecretPlaintext
)

// SecretRef is the resolved refresh secret source of a credential. Modeling
// the two storage columns as a tagged variant makes the encrypted-wins rule
// explicit instead of an ordering convention in the caller.
type SecretRef struct {
	Kind  SecretKind
	Value string
}

// RefFor resolves the refresh secret source of a credential. The encrypted
// column always wins when both columns are populated, so a stale plaintext
// copy is never trusted over the authoritative encrypted one.
func RefFor(cred *models.Credential) SecretRef {
	if cred.RefreshTokenEnc != "" {
		return SecretRef{Kind: SecretEncrypted, Value: cred.RefreshTokenEnc}
	}
	if cred.RefreshTokenPlain != "" {
		return SecretRef{Kind: SecretPlaintext, Value: cred.RefreshTokenPlain}
	}
	return SecretRef{Kind: SecretAbsent}
}

// Codec encrypts and decrypts refresh secrets with a process-wide
// AES-256-GCM key.
type Codec struct {
	key []byte
}

// NewCodec creates a codec from a raw 32-byte key
func NewCodec(key []byte) (*Codec, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("secretbox: key must be 32 bytes, got %d", len(key))
	}
	return &Codec{key: key}, nil
}

// NewCodecFromEnv derives the codec key from CREDENTIAL_KEY and
// CREDENTIAL_KEY_SALT via Argon2id.
func NewCodecFromEnv() (*Codec, error) {
	passphrase := env.GetEnv("CREDENTIAL_KEY", "")
	if passphrase == "" {
		return nil, errors.New("secretbox: CREDENTIAL_KEY is not configured")
	}
	salt := env.GetEnv("CREDENTIAL_KEY_SALT", "searchlens-credentials")
	return NewCodec(DeriveKey([]byte(passphrase), []byte(salt)))
}

// DeriveKey stretches a passphrase into a 32-byte AES key
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// Encrypt seals a refresh secret and returns base64(nonce || ciphertext)
func (c *Codec) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aesgcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt
func (c *Codec) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(sealed) < aesgcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}
	nonce, ciphertext := sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// Recover returns the refresh secret of a credential. Encrypted secrets are
// decrypted, legacy plaintext rows are passed through until a data migration
// removes them, and rows without any secret yield ErrNoRefreshSecret.
func (c *Codec) Recover(cred *models.Credential) (string, error) {
	ref := RefFor(cred)
	switch ref.Kind {
	case SecretEncrypted:
		return c.Decrypt(ref.Value)
	case SecretPlaintext:
		return ref.Value, nil
	default:
		return "", ErrNoRefreshSecret
	}
}
