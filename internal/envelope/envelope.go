// Package envelope provides the AEAD-sealed message layer used on top of
// the framed transport (package protocol) once a PAKE session key has been
// derived. It mirrors the sealed-box shape of the teacher's crypto package
// but uses the key-stretching and cipher the wire protocol mandates:
// PBKDF2-HMAC-SHA256 (100 iterations) feeding AES-256-GCM.
package envelope

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

const (
	// SaltSize is the size, in bytes, of the salt sent in clear as the
	// first message on a freshly opened AEAD channel.
	SaltSize = 8

	// NonceSize is the GCM nonce size.
	NonceSize = 12

	// KeySize is the derived AES-256 key size.
	KeySize = 32

	// pbkdf2Iterations is fixed by the wire protocol; both sides must
	// agree on it without negotiation.
	pbkdf2Iterations = 100
)

// ErrAuthentication is returned when a ciphertext fails GCM tag
// verification — a forged or corrupted message, or a key/nonce mismatch.
var ErrAuthentication = errors.New("envelope: authentication failed")

// ErrShortCiphertext is returned when a blob is too short to contain a
// nonce and tag.
var ErrShortCiphertext = errors.New("envelope: ciphertext shorter than nonce+tag")

// Envelope seals and opens messages under a key derived from a PAKE
// session key and an 8-byte salt.
type Envelope struct {
	aead cipher.AEAD
	salt [SaltSize]byte
}

// New derives an AES-256-GCM cipher from sessionKey and salt via
// PBKDF2-HMAC-SHA256 with 100 iterations. If salt is nil, 8 random bytes
// are generated — the caller (always the sender of a channel, per spec
// §3/§4.1) is responsible for transmitting it in clear as the first framed
// message so the peer can construct a matching Envelope.
func New(sessionKey, salt []byte) (*Envelope, error) {
	e := &Envelope{}
	if salt == nil {
		if _, err := io.ReadFull(rand.Reader, e.salt[:]); err != nil {
			return nil, fmt.Errorf("envelope: generate salt: %w", err)
		}
	} else if len(salt) != SaltSize {
		return nil, fmt.Errorf("envelope: salt must be %d bytes, got %d", SaltSize, len(salt))
	} else {
		copy(e.salt[:], salt)
	}

	derived := pbkdf2.Key(sessionKey, e.salt[:], pbkdf2Iterations, KeySize, sha256.New)

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("envelope: create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("envelope: create GCM: %w", err)
	}
	e.aead = aead

	return e, nil
}

// Salt returns the 8-byte salt used to derive this envelope's key.
func (e *Envelope) Salt() [SaltSize]byte {
	return e.salt
}

// Encrypt returns nonce(12) || ciphertext || tag(16) for plaintext.
func (e *Envelope) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("envelope: generate nonce: %w", err)
	}
	return e.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt splits blob into nonce and ciphertext+tag and returns the
// authenticated plaintext, or ErrAuthentication on tag mismatch.
func (e *Envelope) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < NonceSize+e.aead.Overhead() {
		return nil, ErrShortCiphertext
	}
	nonce, ciphertext := blob[:NonceSize], blob[NonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
