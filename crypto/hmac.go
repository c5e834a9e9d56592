package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the hex HMAC-SHA256 of data under key.
func Sign(data, key string) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether sig is Sign(data, key), in constant time.
func Verify(data, sig, key string) bool {
	expected := Sign(data, key)
	return hmac.Equal([]byte(expected), []byte(sig))
}
