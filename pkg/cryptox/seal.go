package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// MinSecretLen is the minimum length of a sealing secret. Anything shorter
// does not carry enough entropy to protect session contents.
const MinSecretLen = 32

const (
	keyLen        = 32 // AES-256
	kdfIterations = 64_000
)

// kdfSalt is a fixed application salt for deriving the sealing key from the
// configured secret. The secret itself is the high-entropy input here; the
// salt only namespaces the derivation.
var kdfSalt = []byte("quidfin.web.session.v1")

// ErrSecretTooShort is returned by NewSealer when the secret is under MinSecretLen bytes.
var ErrSecretTooShort = fmt.Errorf("cryptox: secret must be at least %d bytes", MinSecretLen)

// ErrSealOpen is returned when sealed data cannot be authenticated or decrypted.
var ErrSealOpen = errors.New("cryptox: cannot open sealed data")

// Sealer provides authenticated encryption of small payloads (cookie values)
// using AES-256-GCM. The output format is [12-byte nonce][ciphertext][16-byte tag].
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives an AES-256 key from secret via PBKDF2-SHA256 and returns
// a ready Sealer. The secret must be at least MinSecretLen bytes.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrSecretTooShort
	}

	key := pbkdf2.Key(secret, kdfSalt, kdfIterations, keyLen, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: create GCM: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Seal encrypts and authenticates plaintext with a fresh random nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("cryptox: generate nonce: %w", err)
	}

	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal, verifying the authentication tag.
// Any tampering, truncation or wrong key yields ErrSealOpen.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, ErrSealOpen
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrSealOpen
	}

	return plaintext, nil
}
