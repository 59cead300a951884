package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidSealedValue = errors.New("crypto: invalid sealed value")
	ErrUnsupportedVersion = errors.New("crypto: unsupported sealed value version")
	ErrEmptyPassphrase    = errors.New("crypto: passphrase is required")
)

const sealedVersion = "v1"

// KeyParams configures the argon2id derivation of the sealing key.
type KeyParams struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
}

// DefaultKeyParams favours start-up latency over hashing cost; the sealed
// value is a short-lived bearer token, not a password.
var DefaultKeyParams = KeyParams{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
}

// Sealer encrypts and decrypts short strings with a passphrase-derived key.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// PassphraseSealer seals values with XChaCha20-Poly1305. Each value carries its
// own salt and nonce: v1$<salt>$<nonce||ciphertext>, base64 raw std encoded.
type PassphraseSealer struct {
	passphrase []byte
	params     KeyParams

	mu      sync.Mutex
	salt    string
	derived []byte
}

// NewPassphraseSealer returns a sealer bound to passphrase.
func NewPassphraseSealer(passphrase string, params KeyParams) (*PassphraseSealer, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, ErrEmptyPassphrase
	}
	if params.SaltLength == 0 {
		params = DefaultKeyParams
	}
	return &PassphraseSealer{passphrase: []byte(passphrase), params: params}, nil
}

// Seal encrypts plaintext under a fresh salt and nonce.
func (s *PassphraseSealer) Seal(plaintext string) (string, error) {
	salt := make([]byte, s.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("crypto: read salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return "", fmt.Errorf("crypto: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("crypto: read nonce: %w", err)
	}
	blob := aead.Seal(nonce, nonce, []byte(plaintext), []byte(sealedVersion))

	return strings.Join([]string{
		sealedVersion,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(blob),
	}, "$"), nil
}

// Open reverses Seal. Tampered values and wrong passphrases both yield ErrInvalidSealedValue.
func (s *PassphraseSealer) Open(sealed string) (string, error) {
	parts := strings.Split(sealed, "$")
	if len(parts) != 3 {
		return "", ErrInvalidSealedValue
	}
	if parts[0] != sealedVersion {
		return "", ErrUnsupportedVersion
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return "", ErrInvalidSealedValue
	}
	blob, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrInvalidSealedValue
	}

	aead, err := chacha20poly1305.NewX(s.key(salt))
	if err != nil {
		return "", fmt.Errorf("crypto: %w", err)
	}
	if len(blob) < aead.NonceSize() {
		return "", ErrInvalidSealedValue
	}

	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(sealedVersion))
	if err != nil {
		return "", ErrInvalidSealedValue
	}
	return string(plaintext), nil
}

// key derives the AEAD key for salt, reusing the last derivation when the salt repeats.
func (s *PassphraseSealer) key(salt []byte) []byte {
	encoded := string(salt)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.derived != nil && s.salt == encoded {
		return s.derived
	}
	s.derived = argon2.IDKey(s.passphrase, salt, s.params.Iterations, s.params.Memory, s.params.Parallelism, chacha20poly1305.KeySize)
	s.salt = encoded
	return s.derived
}

// NoopSealer stores values unchanged. Used when no passphrase is configured.
type NoopSealer struct{}

func (NoopSealer) Seal(plaintext string) (string, error) { return plaintext, nil }
func (NoopSealer) Open(sealed string) (string, error)    { return sealed, nil }
