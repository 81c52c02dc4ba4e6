// Package crypto exposes the minimal primitives used by thinkgw.
//
// Contents
//
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519, VerifyBase64URL)
//   - DeviceIdentity, the per-instance signing key pair with its derived
//     device id and base64url public key
//   - Device fingerprints (lowercase hex SHA-256 of the raw public key)
//   - Unpadded base64url helpers (B64URL, DecodeB64URL)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// DeviceIdentity keeps its private key unexported. The only way to get the
// seed out is Seed, which the secrets store uses before sealing it on disk.
package crypto
