package claim

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// Normalize canonicalizes an answer before hashing: surrounding whitespace is
// removed and the answer is lowercased. "Blue", " blue " and "BLUE" all
// normalize to the same string.
func Normalize(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// Hash returns the canonical digest of a normalized answer: the
// base64-encoded SHA-256 of its UTF-8 bytes.
//
// The digest is deliberately unsalted and stable across processes and
// restarts, because it is compared byte-for-byte against digests stored by
// earlier deployments. Callers must pass the answer through [Normalize]
// first when hashing user input.
func Hash(normalizedAnswer string) string {
	sum := sha256.Sum256([]byte(normalizedAnswer))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Verify reports whether a candidate answer matches a stored digest. The
// candidate is normalized and hashed before a constant-time comparison.
func Verify(candidateAnswer, storedDigest string) bool {
	computed := Hash(Normalize(candidateAnswer))
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}
