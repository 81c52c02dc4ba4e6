package pairing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"thinkgw/internal/domain"
	"thinkgw/internal/gateway"
	"thinkgw/internal/protocol/frame"
	"thinkgw/internal/services/pairing"
	"thinkgw/internal/transport/transporttest"
)

func TestApprovePairing_SendsRequestID(t *testing.T) {
	pair := transporttest.NewPair()
	sess := gateway.NewSession(pair.Client, zerolog.Nop())
	defer sess.Close()
	svc := pairing.New(nil, zerolog.Nop())

	errc := make(chan error, 1)
	go func() { errc <- svc.ApprovePairing(context.Background(), sess, " abc123 ") }()

	req := transporttest.ExpectRequest(t, pair.Server, 2*time.Second)
	if req.Method != frame.MethodPairApprove || string(req.Params) != `{"requestId":"abc123"}` {
		t.Fatalf("unexpected request %+v", req)
	}
	transporttest.SendResult(t, pair.Server, req.ID, map[string]bool{"approved": true})

	if err := <-errc; err != nil {
		t.Fatalf("ApprovePairing: %v", err)
	}
}

func TestApprovePairing_SurfacesRejection(t *testing.T) {
	pair := transporttest.NewPair()
	sess := gateway.NewSession(pair.Client, zerolog.Nop())
	defer sess.Close()
	svc := pairing.New(nil, zerolog.Nop())

	errc := make(chan error, 1)
	go func() { errc <- svc.ApprovePairing(context.Background(), sess, "abc123") }()

	req := transporttest.ExpectRequest(t, pair.Server, 2*time.Second)
	transporttest.SendError(t, pair.Server, req.ID, &frame.ErrorShape{Code: "NOT_FOUND", Message: "unknown request"})

	err := <-errc
	re, ok := gateway.AsRemoteError(err)
	if !ok || re.Message != "unknown request" {
		t.Fatalf("err = %v", err)
	}
}

func TestApprovePairing_BlankID(t *testing.T) {
	svc := pairing.New(nil, zerolog.Nop())
	if err := svc.ApprovePairing(context.Background(), nil, "  "); !errors.Is(err, pairing.ErrRequestIDRequired) {
		t.Fatalf("err = %v", err)
	}
}

type stubConnector struct{ res domain.ConnectResult }

func (s stubConnector) Connect(context.Context, domain.ConnectRequest) domain.ConnectResult {
	return s.res
}

func TestConnectAndApprove_RequiresConnectedSession(t *testing.T) {
	svc := pairing.New(stubConnector{domain.ConnectResult{Status: domain.PairingRequired("other")}}, zerolog.Nop())
	err := svc.ConnectAndApprove(context.Background(), domain.ConnectRequest{}, "abc123")
	if !errors.Is(err, domain.ErrHandshakeRejected) {
		t.Fatalf("err = %v", err)
	}
}

func TestConnectAndApprove_ClosesSession(t *testing.T) {
	pair := transporttest.NewPair()
	sess := gateway.NewSession(pair.Client, zerolog.Nop())
	svc := pairing.New(stubConnector{domain.ConnectResult{Status: domain.Connected(), Session: sess}}, zerolog.Nop())

	errc := make(chan error, 1)
	go func() { errc <- svc.ConnectAndApprove(context.Background(), domain.ConnectRequest{}, "abc123") }()

	req := transporttest.ExpectRequest(t, pair.Server, 2*time.Second)
	transporttest.SendResult(t, pair.Server, req.ID, map[string]bool{"approved": true})
	if err := <-errc; err != nil {
		t.Fatalf("ConnectAndApprove: %v", err)
	}
	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		t.Fatal("session left open")
	}
}
