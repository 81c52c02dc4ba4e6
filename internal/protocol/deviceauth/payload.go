package deviceauth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"thinkgw/internal/crypto"
	"thinkgw/internal/protocol/frame"
)

// Version is the canonical payload format tag.
const Version = "v2"

// ErrBadSignature is returned when a signature does not verify.
var ErrBadSignature = errors.New("device signature does not verify")

// Payload holds the fields covered by the device signature.
type Payload struct {
	DeviceID   string
	ClientID   string
	ClientMode string
	Role       string
	Scopes     []string
	SignedAtMs int64
	Token      string
	Nonce      string
}

// Canonical returns the exact string that gets signed.
func (p Payload) Canonical() string {
	return strings.Join([]string{
		Version,
		p.DeviceID,
		p.ClientID,
		p.ClientMode,
		p.Role,
		strings.Join(p.Scopes, ","),
		strconv.FormatInt(p.SignedAtMs, 10),
		p.Token,
		p.Nonce,
	}, "|")
}

// Sign signs p with id and returns the device block for the connect params.
// p.DeviceID is overwritten with the identity's device id.
func Sign(id *crypto.DeviceIdentity, p Payload) (frame.DeviceAuth, error) {
	if id == nil {
		return frame.DeviceAuth{}, crypto.ErrInvalidSeed
	}
	p.DeviceID = id.DeviceID()
	sig, err := id.Sign([]byte(p.Canonical()))
	if err != nil {
		return frame.DeviceAuth{}, err
	}
	return frame.DeviceAuth{
		ID:        p.DeviceID,
		PublicKey: id.PublicKeyBase64URL(),
		Signature: sig,
		SignedAt:  p.SignedAtMs,
		Nonce:     p.Nonce,
	}, nil
}

// Verify checks a device block against the payload fields it should cover.
// DeviceID, SignedAtMs and Nonce are taken from device; the device id must
// match the fingerprint of its public key.
func Verify(device frame.DeviceAuth, p Payload) error {
	pub, err := crypto.DecodeB64URL(device.PublicKey)
	if err != nil {
		return fmt.Errorf("decode public key: %w", err)
	}
	if crypto.Fingerprint(pub) != device.ID {
		return fmt.Errorf("%w: device id does not match public key", ErrBadSignature)
	}
	p.DeviceID = device.ID
	p.SignedAtMs = device.SignedAt
	p.Nonce = device.Nonce
	ok, err := crypto.VerifyBase64URL(device.PublicKey, []byte(p.Canonical()), device.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if !ok {
		return ErrBadSignature
	}
	return nil
}
