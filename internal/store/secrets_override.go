package store

import (
	"context"

	"thinkgw/internal/domain"
)

// TokenOverride serves a fixed shared token for one instance and delegates
// everything else, including the device identity and device tokens, to the
// wrapped store.
type TokenOverride struct {
	domain.SecretsStore
	instance domain.InstanceID
	token    string
}

// NewTokenOverride wraps base so that instance reads token as its shared token.
func NewTokenOverride(base domain.SecretsStore, instance domain.InstanceID, token string) *TokenOverride {
	return &TokenOverride{SecretsStore: base, instance: instance, token: token}
}

var _ domain.SecretsStore = (*TokenOverride)(nil)

// SharedToken returns the override for the wrapped instance.
func (o *TokenOverride) SharedToken(ctx context.Context, instance domain.InstanceID) (string, bool, error) {
	if instance != o.instance {
		return o.SecretsStore.SharedToken(ctx, instance)
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return o.token, o.token != "", nil
}

// HasSharedToken reports whether the override is set for the wrapped instance.
func (o *TokenOverride) HasSharedToken(ctx context.Context, instance domain.InstanceID) (bool, error) {
	if instance != o.instance {
		return o.SecretsStore.HasSharedToken(ctx, instance)
	}
	return o.token != "", nil
}
