// Package token mints and verifies the opaque user tokens clients hold
// instead of sessions. A token is AES-128-GCM over a small JSON payload,
// wrapped in a base64 envelope the client never inspects.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mwl-dev/lemongate/internal/apperr"
)

const (
	keySize = 16 // the scheme is fixed to a 128-bit key
	tagSize = 16
)

// Sentinel failures. Malformed means the envelope itself does not parse;
// Invalid means authentication failed. The two are distinguishable to
// callers, but Invalid is a single failure path that does not reveal
// which of ciphertext/tag/nonce mismatched.
var (
	ErrMalformedToken = apperr.Authentication(400, "malformed token")
	ErrInvalidToken   = apperr.Authentication(403, "invalid token")
)

// Payload is what a token carries. It exists only inside the envelope.
type Payload struct {
	UserID   string `json:"user_id"`
	IssuedAt int64  `json:"issued_at"`
}

// envelope is the wire form, field order fixed by the struct.
type envelope struct {
	Ciphertext []byte `json:"ciphertext"`
	Tag        []byte `json:"tag"`
	Nonce      []byte `json:"nonce"`
}

// Mint encrypts {userID, issuedAt} under secret and returns the opaque
// token. The nonce is fresh per call, so two mints of the same payload
// never collide.
func Mint(userID string, issuedAt int64, secret string) (string, error) {
	aead, err := newAEAD(secret)
	if err != nil {
		return "", err
	}

	plaintext, err := json.Marshal(Payload{UserID: userID, IssuedAt: issuedAt})
	if err != nil {
		return "", fmt.Errorf("failed to serialize token payload: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)

	// GCM appends the tag to the ciphertext; carry it separately so the
	// envelope keeps its {ciphertext, tag, nonce} shape on the wire.
	split := len(sealed) - tagSize
	env, err := json.Marshal(envelope{
		Ciphertext: sealed[:split],
		Tag:        sealed[split:],
		Nonce:      nonce,
	})
	if err != nil {
		return "", fmt.Errorf("failed to serialize token envelope: %w", err)
	}

	// URL-safe alphabet: tokens travel in query strings.
	return base64.URLEncoding.EncodeToString(env), nil
}

// Verify decrypts and authenticates a token. It is pure: safe to call
// any number of times with the same input.
func Verify(tok string, secret string) (*Payload, error) {
	aead, err := newAEAD(secret)
	if err != nil {
		return nil, err
	}

	raw, err := base64.URLEncoding.DecodeString(tok)
	if err != nil {
		return nil, ErrMalformedToken
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformedToken
	}
	if len(env.Nonce) != aead.NonceSize() || len(env.Tag) != tagSize {
		return nil, ErrMalformedToken
	}

	sealed := append(append([]byte{}, env.Ciphertext...), env.Tag...)
	plaintext, err := aead.Open(nil, env.Nonce, sealed, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var payload Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return nil, ErrMalformedToken
	}
	if payload.UserID == "" {
		return nil, ErrMalformedToken
	}
	return &payload, nil
}

func newAEAD(secret string) (cipher.AEAD, error) {
	if len(secret) != keySize {
		return nil, apperr.Configuration("token secret must be a 16 character string")
	}
	block, err := aes.NewCipher([]byte(secret))
	if err != nil {
		return nil, apperr.Configuration("failed to initialize token cipher")
	}
	return cipher.NewGCM(block)
}
