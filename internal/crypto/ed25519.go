package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"io"
)

// SeedSize is the length of an Ed25519 private key seed.
const SeedSize = ed25519.SeedSize

var (
	// ErrInvalidSeed is returned when a stored seed has the wrong length.
	ErrInvalidSeed = errors.New("invalid ed25519 seed")
	// ErrInvalidPublicKey is returned when a public key has the wrong length.
	ErrInvalidPublicKey = errors.New("invalid ed25519 public key")
)

// GenerateEd25519 returns a new Ed25519 signing key pair read from rnd.
// A nil rnd uses crypto/rand.
func GenerateEd25519(rnd io.Reader) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	pub, priv, err := ed25519.GenerateKey(rnd)
	if err != nil {
		return nil, nil, err
	}
	return priv, pub, nil
}

// SignEd25519 signs msg with priv and returns the signature.
func SignEd25519(priv ed25519.PrivateKey, msg []byte) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ErrInvalidSeed
	}
	return ed25519.Sign(priv, msg), nil
}

// VerifyEd25519 verifies sig over msg with pub.
func VerifyEd25519(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}
