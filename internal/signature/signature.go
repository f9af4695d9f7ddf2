// Package signature provides deterministic HMAC signing of
// JSON-serializable payloads for integrity, not confidentiality.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Sign computes the HMAC-SHA256 signature of payload under secret and
// returns it as a lowercase hex string.
//
// The payload is canonicalized before signing: encoding/json sorts map
// keys recursively, preserves array order, and renders numbers in their
// shortest round-tripping form (integral floats serialize without a
// decimal point, so 1.0 and 1 sign identically). Two maps with the same
// content therefore always produce the same signature regardless of
// insertion order.
func Sign(payload map[string]interface{}, secret string) (string, error) {
	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature and compares in constant time.
func Verify(payload map[string]interface{}, sig, secret string) bool {
	expected, err := Sign(payload, secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(sig))
}
