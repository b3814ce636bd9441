// Package challengeq provides a persistence and verification engine for
// security challenge questions: a tenant-scoped question catalog with
// pluggable backends, claim-encoded storage of each user's hashed answers,
// and answer verification for account-recovery flows.
//
// The package is designed for concurrent server workloads: Manager methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// challengeq is the public surface. It exposes [Manager], [Builder],
// [Config], the model types, and the [CatalogStore], [UserAttributeStore]
// and [EventSink] capability interfaces. Backend implementations live in the
// catalog and attrstore sub-packages; the claim sub-package owns the stored
// value format.
//
// # What this package must NOT do
//
//   - Persist a plaintext answer anywhere, under any configuration.
//   - Import the catalog or attrstore sub-packages (collaborators are
//     injected through the Builder; no import cycles).
//   - Cache catalog or attribute reads in process. Every call re-reads its
//     backends.
package challengeq
