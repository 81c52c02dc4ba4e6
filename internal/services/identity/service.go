package identity

import (
	"context"

	"thinkgw/internal/domain"
)

// Service reads device identities from a secrets store.
type Service struct {
	secrets domain.SecretsStore
}

// New returns an identity service backed by the given store.
func New(s domain.SecretsStore) *Service { return &Service{secrets: s} }

// FingerprintIdentity returns the device id (the SHA-256 fingerprint of the
// Ed25519 public key) and the base64url public key for instance, creating the
// identity if the instance has none yet.
func (s *Service) FingerprintIdentity(
	ctx context.Context,
	instance domain.InstanceID,
) (domain.Fingerprint, string, error) {
	id, err := s.secrets.LoadOrCreateDeviceIdentity(ctx, instance)
	if err != nil {
		return "", "", err
	}
	return domain.Fingerprint(id.DeviceID()), id.PublicKeyBase64URL(), nil
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
