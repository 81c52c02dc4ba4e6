package crypto

import (
	"crypto/ed25519"
	"encoding/json"
	"io"
)

// DeviceIdentity is the long-lived signing key pair of one gateway instance.
//
// The private half never leaves the value: JSON encoding emits only the
// public fields, and stores must call Seed explicitly to persist it.
type DeviceIdentity struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	id   string
}

// NewDeviceIdentity generates a fresh identity. A nil rnd uses crypto/rand.
func NewDeviceIdentity(rnd io.Reader) (*DeviceIdentity, error) {
	priv, pub, err := GenerateEd25519(rnd)
	if err != nil {
		return nil, err
	}
	return &DeviceIdentity{priv: priv, pub: pub, id: Fingerprint(pub)}, nil
}

// DeviceIdentityFromSeed rebuilds an identity from a persisted 32-byte seed.
func DeviceIdentityFromSeed(seed []byte) (*DeviceIdentity, error) {
	if len(seed) != SeedSize {
		return nil, ErrInvalidSeed
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &DeviceIdentity{priv: priv, pub: pub, id: Fingerprint(pub)}, nil
}

// DeviceID is the lowercase hex SHA-256 of the raw public key.
func (d *DeviceIdentity) DeviceID() string { return d.id }

// PublicKey returns a copy of the raw 32-byte public key.
func (d *DeviceIdentity) PublicKey() []byte { return append([]byte(nil), d.pub...) }

// PublicKeyBase64URL returns the raw public key as unpadded base64url.
func (d *DeviceIdentity) PublicKeyBase64URL() string { return B64URL(d.pub) }

// Seed returns a copy of the private seed for persistence.
// Callers should Wipe it once stored.
func (d *DeviceIdentity) Seed() []byte { return append([]byte(nil), d.priv.Seed()...) }

// Sign returns the detached signature over msg as unpadded base64url.
func (d *DeviceIdentity) Sign(msg []byte) (string, error) {
	if d == nil {
		return "", ErrInvalidSeed
	}
	sig, err := SignEd25519(d.priv, msg)
	if err != nil {
		return "", err
	}
	return B64URL(sig), nil
}

// MarshalJSON emits the public view only.
func (d *DeviceIdentity) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DeviceID  string `json:"deviceId"`
		PublicKey string `json:"publicKey"`
	}{d.id, d.PublicKeyBase64URL()})
}

// VerifyBase64URL checks a base64url signature against a base64url public key.
func VerifyBase64URL(publicKey string, msg []byte, signature string) (bool, error) {
	pub, err := DecodeB64URL(publicKey)
	if err != nil {
		return false, err
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, ErrInvalidPublicKey
	}
	sig, err := DecodeB64URL(signature)
	if err != nil {
		return false, err
	}
	return VerifyEd25519(pub, msg, sig), nil
}
