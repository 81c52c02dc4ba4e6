package handshake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"thinkgw/internal/crypto"
	"thinkgw/internal/domain"
	"thinkgw/internal/gateway"
	"thinkgw/internal/protocol/deviceauth"
	"thinkgw/internal/protocol/frame"
	"thinkgw/internal/transport"
)

const (
	// ClientID and ClientMode identify this client in connect params and in
	// the signed payload.
	ClientID   = "cli"
	ClientMode = "cli"

	DefaultTimeout                 = 10 * time.Second
	DefaultRole        domain.Role = "operator"
	defaultDisplayName             = "thinkgw"
	defaultRejection               = "connect rejected"
)

// DefaultScopes are requested when Options.Scopes is empty.
var DefaultScopes = []string{"operator.admin", "operator.approvals", "operator.pairing"}

// Options configure every attempt made by a Service.
type Options struct {
	Role        domain.Role
	Scopes      []string
	DisplayName string
	Version     string
	Policy      transport.SecurityPolicy
	Timeout     time.Duration
}

// Service performs handshakes. It is safe for concurrent use.
type Service struct {
	secrets domain.SecretsStore
	dialer  domain.Dialer
	log     zerolog.Logger
	opts    Options
	now     func() time.Time
}

// New returns a Service. Zero fields in opts take package defaults.
func New(secrets domain.SecretsStore, dialer domain.Dialer, log zerolog.Logger, opts Options) *Service {
	if opts.Role == "" {
		opts.Role = DefaultRole
	}
	if len(opts.Scopes) == 0 {
		opts.Scopes = append([]string(nil), DefaultScopes...)
	}
	if opts.DisplayName == "" {
		opts.DisplayName = defaultDisplayName
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Service{secrets: secrets, dialer: dialer, log: log, opts: opts, now: time.Now}
}

// WithClock replaces the clock used for signedAt.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Role is the role this service authenticates as.
func (s *Service) Role() domain.Role { return s.opts.Role }

type credentials struct {
	identity    *crypto.DeviceIdentity
	deviceToken string
	sharedToken string
}

// token prefers the device token over the bootstrap token.
func (c credentials) token() string {
	if c.deviceToken != "" {
		return c.deviceToken
	}
	return c.sharedToken
}

// Connect runs one handshake attempt.
func (s *Service) Connect(ctx context.Context, req domain.ConnectRequest) domain.ConnectResult {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.opts.Timeout
	}
	log := s.log.With().Str("instance", req.InstanceID.String()).Logger()
	log.Debug().Stringer("state", domain.StateConnecting).Str("url", req.URL).Msg("connect")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var sess *gateway.Session
	status, err := s.connect(ctx, req, log, &sess)
	if err != nil {
		status = domain.Failed(err.Error())
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				status = domain.Failed(fmt.Sprintf("connect timed out after %s", timeout))
			} else {
				status = domain.Failed("connect cancelled")
			}
			if sess != nil {
				_ = sess.Close()
				sess = nil
			}
		}
		log.Debug().Err(err).Msg("handshake failed")
	}

	ev := log.Info()
	if status.State == domain.StateFailed {
		ev = log.Warn()
	}
	ev.Stringer("state", status.State).
		Str("request_id", status.RequestID).
		Str("reason", status.Message).
		Msg("handshake finished")

	res := domain.ConnectResult{Status: status}
	if sess != nil {
		res.Session = sess
	}
	return res
}

func (s *Service) connect(
	ctx context.Context,
	req domain.ConnectRequest,
	log zerolog.Logger,
	out **gateway.Session,
) (domain.ConnectionStatus, error) {
	creds, err := s.loadCredentials(ctx, req.InstanceID)
	if err != nil {
		return domain.ConnectionStatus{}, err
	}
	url, err := transport.NormalizeURL(req.URL, s.opts.Policy)
	if err != nil {
		return domain.ConnectionStatus{}, err
	}
	tr, err := s.dialer.Dial(ctx, url)
	if err != nil {
		return domain.ConnectionStatus{}, err
	}
	sess := gateway.NewSession(tr, log)
	*out = sess

	challenge, err := awaitChallenge(ctx, sess, log)
	if err != nil {
		return domain.ConnectionStatus{}, err
	}

	params, err := s.connectParams(req.InstanceID, creds, challenge)
	if err != nil {
		return domain.ConnectionStatus{}, err
	}
	payload, err := sess.Call(ctx, frame.MethodConnect, params)
	if err != nil {
		if re, ok := gateway.AsRemoteError(err); ok {
			return classifyRejection(re), nil
		}
		return domain.ConnectionStatus{}, err
	}

	var hello frame.HelloOK
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &hello); err != nil {
			return domain.ConnectionStatus{}, fmt.Errorf("%w: connect response: %v", domain.ErrProtocol, err)
		}
	}
	if hello.Auth != nil && hello.Auth.DeviceToken != "" {
		role := domain.Role(hello.Auth.Role)
		if role == "" {
			role = s.opts.Role
		}
		if err := s.secrets.SetDeviceToken(ctx, req.InstanceID, role, hello.Auth.DeviceToken); err != nil {
			return domain.ConnectionStatus{}, err
		}
		log.Info().Str("role", role.String()).Msg("stored device token")
	}
	return domain.Connected(), nil
}

func (s *Service) loadCredentials(ctx context.Context, instance domain.InstanceID) (credentials, error) {
	var c credentials
	var err error
	if c.identity, err = s.secrets.LoadOrCreateDeviceIdentity(ctx, instance); err != nil {
		return c, err
	}
	if c.deviceToken, _, err = s.secrets.DeviceToken(ctx, instance, s.opts.Role); err != nil {
		return c, err
	}
	if c.sharedToken, _, err = s.secrets.SharedToken(ctx, instance); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Service) connectParams(
	instance domain.InstanceID,
	creds credentials,
	challenge frame.Challenge,
) (frame.ConnectParams, error) {
	token := creds.token()
	device, err := deviceauth.Sign(creds.identity, deviceauth.Payload{
		ClientID:   ClientID,
		ClientMode: ClientMode,
		Role:       s.opts.Role.String(),
		Scopes:     s.opts.Scopes,
		SignedAtMs: s.now().UnixMilli(),
		Token:      token,
		Nonce:      challenge.Nonce,
	})
	if err != nil {
		return frame.ConnectParams{}, fmt.Errorf("%w: sign connect payload: %v", domain.ErrCrypto, err)
	}

	params := frame.ConnectParams{
		MinProtocol: frame.ProtocolVersion,
		MaxProtocol: frame.ProtocolVersion,
		Client: frame.ClientInfo{
			ID:          ClientID,
			DisplayName: s.opts.DisplayName,
			Version:     s.opts.Version,
			Platform:    runtime.GOOS,
			Mode:        ClientMode,
			InstanceID:  instance.String(),
		},
		Role:   s.opts.Role.String(),
		Scopes: s.opts.Scopes,
		Device: &device,
	}
	if token != "" {
		params.Auth = &frame.ConnectAuth{Token: token}
	}
	return params, nil
}

// awaitChallenge reads events until the connect challenge arrives.
func awaitChallenge(ctx context.Context, sess *gateway.Session, log zerolog.Logger) (frame.Challenge, error) {
	for {
		select {
		case ev, ok := <-sess.Events():
			if !ok {
				<-sess.Done()
				return frame.Challenge{}, fmt.Errorf("%w: connection closed before challenge: %v", domain.ErrTransport, sess.Err())
			}
			if ev.Name != frame.EventConnectChallenge {
				log.Debug().Str("event", ev.Name).Msg("ignoring event before challenge")
				continue
			}
			c, err := frame.DecodeChallenge(ev.Payload)
			if err != nil {
				return frame.Challenge{}, fmt.Errorf("%w: %v", domain.ErrProtocol, err)
			}
			return c, nil
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return frame.Challenge{}, fmt.Errorf("%w: waiting for connect challenge: %w", domain.ErrTimeout, ctx.Err())
			}
			return frame.Challenge{}, ctx.Err()
		}
	}
}

func classifyRejection(re *gateway.RemoteError) domain.ConnectionStatus {
	if id, pairing := re.Shape.PairingRequestID(); pairing && id != "" {
		return domain.PairingRequired(id)
	}
	if re.Shape != nil && re.Shape.Message != "" {
		return domain.Failed(re.Shape.Message)
	}
	return domain.Failed(defaultRejection)
}
