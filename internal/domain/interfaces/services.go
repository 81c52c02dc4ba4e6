package interfaces

import (
	"context"
	"encoding/json"

	domaintypes "thinkgw/internal/domain/types"
	"thinkgw/internal/protocol/frame"
)

// Session is an open gateway connection that multiplexes RPC calls.
type Session interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	CallOK(ctx context.Context, method string, params any) error
	Events() <-chan frame.Event
	Done() <-chan struct{}
	Close() error
}

// ConnectResult pairs the handshake outcome with the session it ran on.
// Session is nil when no transport could be opened; otherwise the caller owns
// it and must Close it.
type ConnectResult struct {
	Status  domaintypes.ConnectionStatus
	Session Session
}

// Close closes the session if one was opened.
func (r ConnectResult) Close() error {
	if r.Session == nil {
		return nil
	}
	return r.Session.Close()
}

// HandshakeService runs device-authenticated connects.
type HandshakeService interface {
	Connect(ctx context.Context, req domaintypes.ConnectRequest) ConnectResult
}

// InstanceService manages configured gateway instances.
type InstanceService interface {
	ListInstances(ctx context.Context) ([]domaintypes.InstanceSummary, error)
	UpsertInstance(
		ctx context.Context,
		name, url string,
		token *string,
	) (domaintypes.Instance, error)
	DeleteInstance(ctx context.Context, ref string) (domaintypes.Instance, error)
	UseInstance(ctx context.Context, ref string) (domaintypes.Instance, error)
	ResolveInstance(ctx context.Context, ref string) (domaintypes.Instance, error)
}

// PairingService approves pending device pairing requests.
type PairingService interface {
	ApprovePairing(ctx context.Context, session Session, requestID string) error
}

// IdentityService exposes the device identity of an instance.
type IdentityService interface {
	FingerprintIdentity(
		ctx context.Context,
		instance domaintypes.InstanceID,
	) (domaintypes.Fingerprint, string, error)
}
