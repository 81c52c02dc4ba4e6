package app

import (
	"context"

	"github.com/rs/zerolog"

	"thinkgw/internal/bridge"
	"thinkgw/internal/domain"
	handshakesvc "thinkgw/internal/services/handshake"
	identitysvc "thinkgw/internal/services/identity"
	instancesvc "thinkgw/internal/services/instance"
	pairingsvc "thinkgw/internal/services/pairing"
	"thinkgw/internal/store"
	"thinkgw/internal/transport"
)

// operatorInstance keys the throwaway secrets of an ad-hoc operator session.
const operatorInstance domain.InstanceID = "operator"

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config    Config
	Log       zerolog.Logger
	Secrets   domain.SecretsStore
	Dialer    domain.Dialer
	Instances domain.InstanceService
	Identity  domain.IdentityService
	Handshake domain.HandshakeService
	Pairing   *pairingsvc.Service
}

// NewWire constructs the dependency graph from cfg. cfg.Home must be resolved.
func NewWire(cfg Config, log zerolog.Logger) (*Wire, error) {
	// File-based stores
	secrets := store.NewSecretsFileStore(cfg.Home, cfg.Passphrase)
	instances := store.NewInstanceFileStore(cfg.Home)

	dialer := transport.NewWebSocketDialer(log)
	hs := newHandshake(cfg, secrets, dialer, log)

	return &Wire{
		Config:    cfg,
		Log:       log,
		Secrets:   secrets,
		Dialer:    dialer,
		Instances: instancesvc.New(instances, secrets, policy(cfg)),
		Identity:  identitysvc.New(secrets),
		Handshake: hs,
		Pairing:   pairingsvc.New(hs, log),
	}, nil
}

// OperatorPairing returns a pairing service whose sessions authenticate to
// url with token, and the instance id those sessions use.
//
// When a configured instance points at url and a passphrase is set, its
// device identity (and any device token it holds) is reused, so a gateway
// that requires paired operator devices accepts the session. Otherwise a
// fresh identity is kept in memory only.
func (w *Wire) OperatorPairing(ctx context.Context, url, token string) (*pairingsvc.Service, domain.InstanceID, error) {
	normalized, err := transport.NormalizeURL(url, policy(w.Config))
	if err != nil {
		return nil, "", err
	}

	var secrets domain.SecretsStore
	id := operatorInstance
	if w.Config.Passphrase != "" {
		list, err := w.Instances.ListInstances(ctx)
		if err != nil {
			return nil, "", err
		}
		for _, inst := range list {
			if inst.URL == normalized {
				id = inst.ID
				secrets = store.NewTokenOverride(w.Secrets, inst.ID, token)
				w.Log.Info().Str("instance", inst.Name).Msg("approving with the instance device identity")
				break
			}
		}
	}
	if secrets == nil {
		mem := store.NewMemorySecretsStore()
		if err := mem.SetSharedToken(ctx, id, token); err != nil {
			return nil, "", err
		}
		secrets = mem
	}

	hs := newHandshake(w.Config, secrets, w.Dialer, w.Log)
	return pairingsvc.New(hs, w.Log), id, nil
}

// DialMQTT connects the event bridge publisher configured in w.Config.
func (w *Wire) DialMQTT(ctx context.Context) (*bridge.MQTTPublisher, error) {
	return bridge.DialMQTT(ctx, bridge.MQTTOptions{
		Broker:   w.Config.MQTTBroker,
		Username: w.Config.MQTTUsername,
		Password: w.Config.MQTTPassword,
	}, w.Log)
}

func newHandshake(
	cfg Config,
	secrets domain.SecretsStore,
	dialer domain.Dialer,
	log zerolog.Logger,
) *handshakesvc.Service {
	return handshakesvc.New(secrets, dialer, log, handshakesvc.Options{
		Role:    cfg.Role,
		Scopes:  cfg.Scopes,
		Version: Version,
		Policy:  policy(cfg),
		Timeout: cfg.Timeout,
	})
}

func policy(cfg Config) transport.SecurityPolicy {
	return transport.SecurityPolicy{AllowInsecure: cfg.AllowInsecure}
}

// Version is reported to gateways in the connect client block. Overridden at
// build time with -ldflags "-X thinkgw/internal/app.Version=...".
var Version = "dev"
