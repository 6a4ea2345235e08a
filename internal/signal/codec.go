package signal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters. Both ends must agree on these, so they are
// fixed rather than configurable.
const (
	kdfIterations = 4096
	kdfKeyLen     = 32 // AES-256
)

// kdfSalt is the application-wide PBKDF2 salt. The passphrase is the only
// secret input; the salt just domain-separates derived keys.
var kdfSalt = []byte("peercam.signal.v1")

var (
	// ErrMissingPassphrase is returned by NewCodec when no passphrase is
	// configured. There is deliberately no built-in default.
	ErrMissingPassphrase = errors.New("signal: missing passphrase")

	// ErrCiphertextTooShort is returned by Decode when the input is too
	// short to contain an IV.
	ErrCiphertextTooShort = errors.New("signal: ciphertext too short")
)

// Config holds the codec configuration. The passphrase is required — both
// ends of a session must derive the same key or Decode fails.
type Config struct {
	Passphrase string
}

// Codec encrypts and decrypts negotiation payloads of type T.
//
// Encode output is base64(IV ‖ AES-256-CFB(json(payload))). The scheme is
// confidentiality-only: there is no authentication tag, so a tampered blob
// is detected only if the mangled plaintext fails to parse as JSON.
type Codec[T any] struct {
	block cipher.Block
}

// NewCodec derives an AES-256 key from cfg.Passphrase via PBKDF2-SHA256 and
// returns a ready codec. It fails if the passphrase is empty.
func NewCodec[T any](cfg Config) (*Codec[T], error) {
	if cfg.Passphrase == "" {
		return nil, ErrMissingPassphrase
	}

	key := pbkdf2.Key([]byte(cfg.Passphrase), kdfSalt, kdfIterations, kdfKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("signal: init cipher: %w", err)
	}

	return &Codec[T]{block: block}, nil
}

// Encode serializes v to JSON, encrypts it with a fresh random IV, and
// returns the result as a base64 string safe for any text transport.
func (c *Codec[T]) Encode(v T) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("signal: marshal payload: %w", err)
	}

	buf := make([]byte, aes.BlockSize+len(plaintext))
	iv := buf[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("signal: generate IV: %w", err)
	}

	stream := cipher.NewCFBEncrypter(c.block, iv)
	stream.XORKeyStream(buf[aes.BlockSize:], plaintext)

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decode reverses Encode. It fails when the blob is not valid base64, is too
// short to contain an IV, or when the decrypted bytes are not valid JSON —
// which is also how a wrong-key decrypt usually surfaces.
func (c *Codec[T]) Decode(blob string) (T, error) {
	var v T

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return v, fmt.Errorf("signal: decode base64: %w", err)
	}
	if len(raw) < aes.BlockSize {
		return v, ErrCiphertextTooShort
	}

	iv := raw[:aes.BlockSize]
	ciphertext := raw[aes.BlockSize:]

	plaintext := make([]byte, len(ciphertext))
	stream := cipher.NewCFBDecrypter(c.block, iv)
	stream.XORKeyStream(plaintext, ciphertext)

	if err := json.Unmarshal(plaintext, &v); err != nil {
		return v, fmt.Errorf("signal: unmarshal payload: %w", err)
	}
	return v, nil
}
