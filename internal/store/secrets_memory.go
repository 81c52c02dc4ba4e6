package store

import (
	"context"
	"fmt"
	"io"
	"sync"

	"thinkgw/internal/crypto"
	"thinkgw/internal/domain"
)

type memorySecrets struct {
	shared   string
	devices  map[domain.Role]string
	identity *crypto.DeviceIdentity
}

// MemorySecretsStore keeps secrets in process memory only.
type MemorySecretsStore struct {
	mu        sync.Mutex
	instances map[domain.InstanceID]*memorySecrets
	random    io.Reader
}

// NewMemorySecretsStore returns an empty store.
func NewMemorySecretsStore() *MemorySecretsStore {
	return &MemorySecretsStore{instances: make(map[domain.InstanceID]*memorySecrets)}
}

// WithRandom sets the entropy source for new identities. Nil means crypto/rand.
func (s *MemorySecretsStore) WithRandom(r io.Reader) *MemorySecretsStore {
	s.random = r
	return s
}

var _ domain.SecretsStore = (*MemorySecretsStore)(nil)

func (s *MemorySecretsStore) entry(instance domain.InstanceID) *memorySecrets {
	e, ok := s.instances[instance]
	if !ok {
		e = &memorySecrets{devices: make(map[domain.Role]string)}
		s.instances[instance] = e
	}
	return e
}

// SharedToken returns the bootstrap token of instance.
func (s *MemorySecretsStore) SharedToken(ctx context.Context, instance domain.InstanceID) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.instances[instance]
	if !ok || e.shared == "" {
		return "", false, nil
	}
	return e.shared, true, nil
}

// SetSharedToken stores token, or clears it when token is empty.
func (s *MemorySecretsStore) SetSharedToken(ctx context.Context, instance domain.InstanceID, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entry(instance).shared = token
	return nil
}

// HasSharedToken reports whether a shared token is stored.
func (s *MemorySecretsStore) HasSharedToken(ctx context.Context, instance domain.InstanceID) (bool, error) {
	_, ok, err := s.SharedToken(ctx, instance)
	return ok, err
}

// DeviceToken returns the device token issued to (instance, role).
func (s *MemorySecretsStore) DeviceToken(
	ctx context.Context,
	instance domain.InstanceID,
	role domain.Role,
) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.instances[instance]
	if !ok {
		return "", false, nil
	}
	tok, ok := e.devices[role]
	return tok, ok, nil
}

// SetDeviceToken stores token for (instance, role), or clears it when empty.
func (s *MemorySecretsStore) SetDeviceToken(
	ctx context.Context,
	instance domain.InstanceID,
	role domain.Role,
	token string,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(instance)
	if token == "" {
		delete(e.devices, role)
		return nil
	}
	e.devices[role] = token
	return nil
}

// LoadOrCreateDeviceIdentity returns the instance identity, creating it once.
func (s *MemorySecretsStore) LoadOrCreateDeviceIdentity(
	ctx context.Context,
	instance domain.InstanceID,
) (*crypto.DeviceIdentity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(instance)
	if e.identity == nil {
		id, err := crypto.NewDeviceIdentity(s.random)
		if err != nil {
			return nil, fmt.Errorf("%w: generate device identity: %v", domain.ErrCrypto, err)
		}
		e.identity = id
	}
	return e.identity, nil
}

// DeleteSecrets forgets everything about instance.
func (s *MemorySecretsStore) DeleteSecrets(ctx context.Context, instance domain.InstanceID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instances, instance)
	return nil
}
