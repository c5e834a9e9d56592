package crypto

import (
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

// EncryptAndSign seals payload into a compact JWE using direct key agreement
// and A256GCM. The GCM tag authenticates the whole token.
func EncryptAndSign(payload, key []byte) (string, error) {
	enc, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: key},
		(&jose.EncrypterOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("creating encrypter: %w", err)
	}
	obj, err := enc.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("encrypting: %w", err)
	}
	return obj.CompactSerialize()
}

// VerifyAndDecrypt opens a token produced by EncryptAndSign. Any failure
// (malformed input, wrong key, tampering) reports false and no payload.
func VerifyAndDecrypt(token string, key []byte) ([]byte, bool) {
	obj, err := jose.ParseEncrypted(token,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return nil, false
	}
	plaintext, err := obj.Decrypt(key)
	if err != nil {
		return nil, false
	}
	return plaintext, true
}
