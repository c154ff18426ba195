// Package idgen generates random identifiers for requests and assessments.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
)

// randomHex returns n random bytes hex encoded. IDs end up in audit records,
// so they must be unpredictable; crypto/rand failing is unrecoverable.
func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("idgen: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// New returns a 32-character hex request ID.
func New() string {
	return randomHex(16)
}

// WithPrefix returns prefix plus 24 hex characters, e.g. "risk_3f2a...".
func WithPrefix(prefix string) string {
	return prefix + randomHex(12)
}
