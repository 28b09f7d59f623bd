// Package crypto provides the hashing and signing primitives for the
// software key path: SHA-256 content hashing, ECDSA P-256 sign/verify,
// and PKCS#10 CSR construction.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the SHA-256 digest of content as lowercase hex.
// This is the canonical document hash format used everywhere: dedup,
// signing, and verification.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashBytes returns the raw SHA-256 digest of content.
func HashBytes(content []byte) []byte {
	sum := sha256.Sum256(content)
	return sum[:]
}
