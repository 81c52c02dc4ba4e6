package interfaces

import (
	"context"

	"thinkgw/internal/crypto"
	domaintypes "thinkgw/internal/domain/types"
)

// SecretsStore keeps credentials and device identities per gateway instance.
//
// Setting a token to the empty string clears it. Implementations must isolate
// instances from each other; no cross-instance locking is required.
type SecretsStore interface {
	SharedToken(ctx context.Context, instance domaintypes.InstanceID) (string, bool, error)
	SetSharedToken(ctx context.Context, instance domaintypes.InstanceID, token string) error
	HasSharedToken(ctx context.Context, instance domaintypes.InstanceID) (bool, error)

	DeviceToken(
		ctx context.Context,
		instance domaintypes.InstanceID,
		role domaintypes.Role,
	) (string, bool, error)
	SetDeviceToken(
		ctx context.Context,
		instance domaintypes.InstanceID,
		role domaintypes.Role,
		token string,
	) error

	// LoadOrCreateDeviceIdentity returns the same identity for repeated calls
	// on one instance, creating and persisting it on first use.
	LoadOrCreateDeviceIdentity(
		ctx context.Context,
		instance domaintypes.InstanceID,
	) (*crypto.DeviceIdentity, error)

	// DeleteSecrets clears the shared token, every device token and the
	// identity of instance.
	DeleteSecrets(ctx context.Context, instance domaintypes.InstanceID) error
}

// InstanceStore persists gateway instance records and the active selection.
type InstanceStore interface {
	SaveInstance(instance domaintypes.Instance) error
	LoadInstances() ([]domaintypes.Instance, error)
	DeleteInstance(id domaintypes.InstanceID) (bool, error)
	SetActiveInstance(id domaintypes.InstanceID) error
	ActiveInstance() (domaintypes.InstanceID, bool, error)
}
