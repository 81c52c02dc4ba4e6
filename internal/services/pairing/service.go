package pairing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"thinkgw/internal/domain"
	"thinkgw/internal/protocol/frame"
)

// ErrRequestIDRequired is returned for a blank pairing request id.
var ErrRequestIDRequired = errors.New("pairing request id is required")

// Service implements domain.PairingService.
type Service struct {
	connector domain.HandshakeService
	log       zerolog.Logger
}

// New returns a pairing service. connector opens operator sessions for
// ConnectAndApprove and may be nil when only ApprovePairing is used.
func New(connector domain.HandshakeService, log zerolog.Logger) *Service {
	return &Service{connector: connector, log: log}
}

// ApprovePairing sends device.pair.approve on an open operator session.
func (s *Service) ApprovePairing(ctx context.Context, session domain.Session, requestID string) error {
	id := strings.TrimSpace(requestID)
	if id == "" {
		return ErrRequestIDRequired
	}
	if err := session.CallOK(ctx, frame.MethodPairApprove, frame.PairApproveParams{RequestID: id}); err != nil {
		return fmt.Errorf("approve pairing %s: %w", id, err)
	}
	s.log.Info().Str("request_id", id).Msg("pairing approved")
	return nil
}

// ConnectAndApprove opens an operator session with req, approves requestID
// and closes the session. The session must reach the connected state.
func (s *Service) ConnectAndApprove(ctx context.Context, req domain.ConnectRequest, requestID string) error {
	if strings.TrimSpace(requestID) == "" {
		return ErrRequestIDRequired
	}
	if s.connector == nil {
		return errors.New("pairing: no connector configured")
	}
	res := s.connector.Connect(ctx, req)
	defer func() { _ = res.Close() }()
	if res.Status.State != domain.StateConnected {
		return fmt.Errorf("%w: operator session %s", domain.ErrHandshakeRejected, res.Status)
	}
	return s.ApprovePairing(ctx, res.Session, requestID)
}

// Compile-time assertion that Service implements domain.PairingService.
var _ domain.PairingService = (*Service)(nil)
