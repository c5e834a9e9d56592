// Package crypto holds the primitives the engine builds its cookies and
// tokens from. Every function is keyed by a caller-supplied secret; nothing
// here keeps state.
package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the length of keys returned by DeriveKey, sized for A256GCM.
const KeySize = 32

var ErrEmptySecret = errors.New("crypto: empty secret")

// DeriveKey stretches secret into a KeySize key bound to salt. Different
// salts give unrelated keys, so one secret can safely protect several cookie
// kinds.
func DeriveKey(secret, salt string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	info := fmt.Sprintf("authcore derived encryption key (%s)", salt)
	r := hkdf.New(sha256.New, []byte(secret), []byte(salt), []byte(info))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}
