// Package store provides file-based persistence for thinkgw.
//
// It contains concrete implementations of the domain storage interfaces:
//   - SecretsFileStore keeps shared tokens, per-role device tokens and device
//     identities, one directory per gateway instance, each secret sealed
//     with scrypt + ChaCha20-Poly1305 under the user passphrase.
//   - MemorySecretsStore is the in-process equivalent, used by tests and
//     by short-lived operator sessions.
//   - InstanceFileStore keeps gateway instance records and the active
//     selection as JSON. It never holds tokens.
//
// All methods are concurrency-safe. Files are written via temp file and
// rename. Failures are wrapped with domain.ErrStorage.
package store
