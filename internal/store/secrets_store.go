package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"thinkgw/internal/crypto"
	"thinkgw/internal/domain"
)

const (
	secretsDirname   = "secrets"
	identityFilename = "identity.enc"
	sharedFilename   = "shared_token.enc"
	devicePrefix     = "device_token."
	sealedSuffix     = ".enc"
)

var (
	// ErrPassphraseRequired is returned when a secret must be sealed or
	// opened but no passphrase was configured.
	ErrPassphraseRequired = errors.New("passphrase required to access gateway secrets")
	// ErrInvalidKey is returned for instance ids or roles that are not safe
	// path components.
	ErrInvalidKey = errors.New("invalid secrets key")

	safeComponent = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

// SecretsFileStore persists per-instance credentials under
// <dir>/secrets/<instanceID>/, one sealed file per secret.
type SecretsFileStore struct {
	dir        string
	passphrase string
	params     ScryptParams

	locks sync.Map // domain.InstanceID -> *sync.Mutex
}

// NewSecretsFileStore returns a store rooted at dir. The passphrase may be
// empty for read-only presence checks (HasSharedToken, DeleteSecrets).
func NewSecretsFileStore(dir, passphrase string) *SecretsFileStore {
	return &SecretsFileStore{dir: dir, passphrase: passphrase, params: DefaultScryptParams()}
}

// WithScryptParams overrides the key-derivation cost for new blobs.
func (s *SecretsFileStore) WithScryptParams(p ScryptParams) *SecretsFileStore {
	s.params = p
	return s
}

var _ domain.SecretsStore = (*SecretsFileStore)(nil)

// SharedToken returns the bootstrap token of instance.
func (s *SecretsFileStore) SharedToken(ctx context.Context, instance domain.InstanceID) (string, bool, error) {
	unlock, dir, err := s.lock(ctx, instance)
	if err != nil {
		return "", false, err
	}
	defer unlock()
	return s.readSecret(filepath.Join(dir, sharedFilename), sharedLabel(instance))
}

// SetSharedToken stores token, or clears it when token is empty.
func (s *SecretsFileStore) SetSharedToken(ctx context.Context, instance domain.InstanceID, token string) error {
	unlock, dir, err := s.lock(ctx, instance)
	if err != nil {
		return err
	}
	defer unlock()
	return s.writeSecret(filepath.Join(dir, sharedFilename), sharedLabel(instance), token)
}

// HasSharedToken reports whether a shared token is stored, without opening it.
func (s *SecretsFileStore) HasSharedToken(ctx context.Context, instance domain.InstanceID) (bool, error) {
	unlock, dir, err := s.lock(ctx, instance)
	if err != nil {
		return false, err
	}
	defer unlock()
	ok, err := fileExists(filepath.Join(dir, sharedFilename))
	if err != nil {
		return false, storageErr("stat shared token", err)
	}
	return ok, nil
}

// DeviceToken returns the device token issued to (instance, role).
func (s *SecretsFileStore) DeviceToken(
	ctx context.Context,
	instance domain.InstanceID,
	role domain.Role,
) (string, bool, error) {
	if !safeComponent.MatchString(role.String()) {
		return "", false, storageErr("device token", fmt.Errorf("%w: role %q", ErrInvalidKey, role))
	}
	unlock, dir, err := s.lock(ctx, instance)
	if err != nil {
		return "", false, err
	}
	defer unlock()
	return s.readSecret(filepath.Join(dir, devicePrefix+role.String()+sealedSuffix), deviceLabel(instance, role))
}

// SetDeviceToken stores token for (instance, role), or clears it when empty.
func (s *SecretsFileStore) SetDeviceToken(
	ctx context.Context,
	instance domain.InstanceID,
	role domain.Role,
	token string,
) error {
	if !safeComponent.MatchString(role.String()) {
		return storageErr("device token", fmt.Errorf("%w: role %q", ErrInvalidKey, role))
	}
	unlock, dir, err := s.lock(ctx, instance)
	if err != nil {
		return err
	}
	defer unlock()
	return s.writeSecret(filepath.Join(dir, devicePrefix+role.String()+sealedSuffix), deviceLabel(instance, role), token)
}

// LoadOrCreateDeviceIdentity opens the stored identity, generating and
// sealing a new one on first use.
func (s *SecretsFileStore) LoadOrCreateDeviceIdentity(
	ctx context.Context,
	instance domain.InstanceID,
) (*crypto.DeviceIdentity, error) {
	unlock, dir, err := s.lock(ctx, instance)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if s.passphrase == "" {
		return nil, storageErr("device identity", ErrPassphraseRequired)
	}

	path := filepath.Join(dir, identityFilename)
	label := identityLabel(instance)
	b, err := readFile(path)
	if err != nil {
		return nil, storageErr("read device identity", err)
	}
	if b != nil {
		seed, err := open(s.passphrase, label, b)
		if err != nil {
			return nil, storageErr("open device identity", err)
		}
		defer crypto.Wipe(seed)
		id, err := crypto.DeviceIdentityFromSeed(seed)
		if err != nil {
			return nil, storageErr("decode device identity", err)
		}
		return id, nil
	}

	if err := CheckPassphrase(s.passphrase); err != nil {
		return nil, storageErr("seal device identity", err)
	}
	id, err := crypto.NewDeviceIdentity(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: generate device identity: %v", domain.ErrCrypto, err)
	}
	seed := id.Seed()
	defer crypto.Wipe(seed)
	sealed, err := seal(s.passphrase, label, seed, s.params.N, s.params.R, s.params.P)
	if err != nil {
		return nil, storageErr("seal device identity", err)
	}
	if err := writeFile(path, sealed); err != nil {
		return nil, storageErr("write device identity", err)
	}
	return id, nil
}

// DeleteSecrets removes the whole instance directory.
func (s *SecretsFileStore) DeleteSecrets(ctx context.Context, instance domain.InstanceID) error {
	unlock, dir, err := s.lock(ctx, instance)
	if err != nil {
		return err
	}
	defer unlock()
	if err := os.RemoveAll(dir); err != nil {
		return storageErr("delete secrets", err)
	}
	return nil
}

// lock validates instance, takes its mutex and returns its directory.
func (s *SecretsFileStore) lock(ctx context.Context, instance domain.InstanceID) (func(), string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", storageErr("secrets", err)
	}
	if !safeComponent.MatchString(instance.String()) {
		return nil, "", storageErr("secrets", fmt.Errorf("%w: instance %q", ErrInvalidKey, instance))
	}
	m, _ := s.locks.LoadOrStore(instance, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock, filepath.Join(s.dir, secretsDirname, instance.String()), nil
}

func (s *SecretsFileStore) readSecret(path, label string) (string, bool, error) {
	b, err := readFile(path)
	if err != nil {
		return "", false, storageErr("read secret", err)
	}
	if b == nil {
		return "", false, nil
	}
	if s.passphrase == "" {
		return "", false, storageErr("open secret", ErrPassphraseRequired)
	}
	pt, err := open(s.passphrase, label, b)
	if err != nil {
		return "", false, storageErr("open secret", err)
	}
	return string(pt), true, nil
}

func (s *SecretsFileStore) writeSecret(path, label, value string) error {
	if value == "" {
		if err := removeFile(path); err != nil {
			return storageErr("clear secret", err)
		}
		return nil
	}
	if err := CheckPassphrase(s.passphrase); err != nil {
		return storageErr("seal secret", err)
	}
	sealed, err := seal(s.passphrase, label, []byte(value), s.params.N, s.params.R, s.params.P)
	if err != nil {
		return storageErr("seal secret", err)
	}
	if err := writeFile(path, sealed); err != nil {
		return storageErr("write secret", err)
	}
	return nil
}

func identityLabel(instance domain.InstanceID) string { return "identity:" + instance.String() }

func sharedLabel(instance domain.InstanceID) string { return "shared:" + instance.String() }

func deviceLabel(instance domain.InstanceID, role domain.Role) string {
	return "device:" + instance.String() + ":" + role.String()
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}
