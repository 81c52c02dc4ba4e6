// Package deviceauth builds and signs the canonical device-auth payload sent
// in the connect request.
//
// # Format
//
// Version "v2" joins these fields with "|", in this order:
//
//	v2|deviceId|clientId|clientMode|role|scope1,scope2|signedAtMs|token|nonce
//
// Absent token or nonce become empty strings. The gateway rebuilds the same
// string from the connect params, so any deviation invalidates the signature.
//
// # Signature
//
// Ed25519 over the UTF-8 bytes of the canonical string, encoded as unpadded
// base64url.
package deviceauth
