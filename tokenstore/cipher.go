package tokenstore

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	clienterrors "github.com/jrsteele09/go-blog-client/internal/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const cipherInfo = "blogctl session v1"

// Cipher seals the session file with XChaCha20-Poly1305 using a key derived
// from a passphrase.
type Cipher struct {
	aead cipher.AEAD
}

func NewCipher(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, clienterrors.ErrInvalidKey
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(passphrase), nil, []byte(cipherInfo)), key); err != nil {
		return nil, fmt.Errorf("[NewCipher] derive key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("[NewCipher] chacha20poly1305.NewX: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Seal returns nonce || ciphertext.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("[Cipher.Seal] rand.Read: %w", err)
	}
	return c.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (c *Cipher) Open(sealed []byte) ([]byte, error) {
	if len(sealed) < c.aead.NonceSize() {
		return nil, clienterrors.ErrInvalidKey
	}
	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, clienterrors.Wrapf(clienterrors.ErrInvalidKey, "[Cipher.Open] %v", err)
	}
	return plaintext, nil
}
