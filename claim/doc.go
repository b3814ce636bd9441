// Package claim implements the stored-claim value format for challenge
// question answers.
//
// # Stored format
//
// Each answered question set is stored as a single claim value:
//
//	<question text><separator><answer digest>
//
// where the digest is the base64-encoded SHA-256 of the normalized (trimmed,
// lowercased) answer. A second claim holds the index of answered question-set
// identifiers joined by the same separator. The separator is configurable and
// must never occur inside a question text or a digest.
//
// # Architecture boundaries
//
// This package owns encoding, decoding and answer hashing only. Which claims
// are read or written, and against which user, is decided by the Manager.
//
// # What this package must NOT do
//
//   - Perform I/O or talk to any attribute store.
//   - Import any other challengeq package.
//   - Persist or log plaintext answers.
package claim
