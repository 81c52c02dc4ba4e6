package instance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"thinkgw/internal/domain"
	"thinkgw/internal/transport"
)

var (
	// ErrNameRequired is returned by UpsertInstance for a blank name.
	ErrNameRequired = errors.New("gateway name is required")
	// ErrNoActiveInstance is returned when no reference is given and none is active.
	ErrNoActiveInstance = errors.New("no active gateway instance")
)

// Service implements domain.InstanceService.
type Service struct {
	instances domain.InstanceStore
	secrets   domain.SecretsStore
	policy    transport.SecurityPolicy
	now       func() time.Time
}

// New returns an instance service. URLs are validated under policy.
func New(instances domain.InstanceStore, secrets domain.SecretsStore, policy transport.SecurityPolicy) *Service {
	return &Service{instances: instances, secrets: secrets, policy: policy, now: time.Now}
}

// ListInstances returns every instance with its active flag and whether a
// shared token is stored. Tokens themselves are never read.
func (s *Service) ListInstances(ctx context.Context) ([]domain.InstanceSummary, error) {
	all, err := s.instances.LoadInstances()
	if err != nil {
		return nil, err
	}
	active, _, err := s.instances.ActiveInstance()
	if err != nil {
		return nil, err
	}
	out := make([]domain.InstanceSummary, 0, len(all))
	for _, inst := range all {
		has, err := s.secrets.HasSharedToken(ctx, inst.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.InstanceSummary{
			Instance:       inst,
			Active:         inst.ID == active,
			HasSharedToken: has,
		})
	}
	return out, nil
}

// UpsertInstance creates the instance called name or updates its URL.
//
// A nil token leaves the stored shared token alone; an empty one clears it.
// The first instance created becomes the active one.
func (s *Service) UpsertInstance(
	ctx context.Context,
	name, url string,
	token *string,
) (domain.Instance, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Instance{}, ErrNameRequired
	}
	normalized, err := transport.NormalizeURL(url, s.policy)
	if err != nil {
		return domain.Instance{}, err
	}

	all, err := s.instances.LoadInstances()
	if err != nil {
		return domain.Instance{}, err
	}
	now := s.now().UTC()
	inst, found := findByName(all, name)
	if !found {
		inst = domain.Instance{
			ID:        domain.InstanceID(uuid.NewString()),
			Name:      name,
			CreatedAt: now,
		}
	}
	inst.URL = normalized
	inst.UpdatedAt = now

	// A failed token write must leave no record behind.
	if token != nil {
		if err := s.secrets.SetSharedToken(ctx, inst.ID, strings.TrimSpace(*token)); err != nil {
			return domain.Instance{}, err
		}
	}
	if err := s.instances.SaveInstance(inst); err != nil {
		if !found {
			_ = s.secrets.DeleteSecrets(ctx, inst.ID)
		}
		return domain.Instance{}, err
	}
	if _, ok, err := s.instances.ActiveInstance(); err != nil {
		return domain.Instance{}, err
	} else if !ok {
		if err := s.instances.SetActiveInstance(inst.ID); err != nil {
			return domain.Instance{}, err
		}
	}
	return inst, nil
}

// DeleteInstance removes the record and purges its secrets.
func (s *Service) DeleteInstance(ctx context.Context, ref string) (domain.Instance, error) {
	inst, err := s.ResolveInstance(ctx, ref)
	if err != nil {
		return domain.Instance{}, err
	}
	if _, err := s.instances.DeleteInstance(inst.ID); err != nil {
		return domain.Instance{}, err
	}
	if err := s.secrets.DeleteSecrets(ctx, inst.ID); err != nil {
		return domain.Instance{}, err
	}
	return inst, nil
}

// UseInstance makes ref the active instance.
func (s *Service) UseInstance(ctx context.Context, ref string) (domain.Instance, error) {
	inst, err := s.ResolveInstance(ctx, ref)
	if err != nil {
		return domain.Instance{}, err
	}
	if err := s.instances.SetActiveInstance(inst.ID); err != nil {
		return domain.Instance{}, err
	}
	return inst, nil
}

// ResolveInstance finds an instance by id, then by name. An empty ref
// resolves to the active instance.
func (s *Service) ResolveInstance(_ context.Context, ref string) (domain.Instance, error) {
	ref = strings.TrimSpace(ref)
	all, err := s.instances.LoadInstances()
	if err != nil {
		return domain.Instance{}, err
	}
	if ref == "" {
		active, ok, err := s.instances.ActiveInstance()
		if err != nil {
			return domain.Instance{}, err
		}
		if !ok {
			return domain.Instance{}, ErrNoActiveInstance
		}
		ref = active.String()
	}
	for _, inst := range all {
		if inst.ID.String() == ref {
			return inst, nil
		}
	}
	if inst, ok := findByName(all, ref); ok {
		return inst, nil
	}
	return domain.Instance{}, fmt.Errorf("%w: %q", domain.ErrInstanceNotFound, ref)
}

func findByName(all []domain.Instance, name string) (domain.Instance, bool) {
	for _, inst := range all {
		if inst.Name == name {
			return inst, true
		}
	}
	return domain.Instance{}, false
}

// Compile-time assertion that Service implements domain.InstanceService.
var _ domain.InstanceService = (*Service)(nil)
