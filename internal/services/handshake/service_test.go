package handshake_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"thinkgw/internal/domain"
	"thinkgw/internal/protocol/deviceauth"
	"thinkgw/internal/protocol/frame"
	"thinkgw/internal/services/handshake"
	"thinkgw/internal/store"
	"thinkgw/internal/transport/transporttest"
)

const inst domain.InstanceID = "home"

var fixedNow = time.UnixMilli(1_700_000_000_000)

type harness struct {
	secrets domain.SecretsStore
	pair    *transporttest.Pair
	dialer  *transporttest.Dialer
	svc     *handshake.Service
}

func newHarness(t *testing.T, secrets domain.SecretsStore, timeout time.Duration) *harness {
	t.Helper()
	pair := transporttest.NewPair()
	dialer := &transporttest.Dialer{Conn: pair.Client}
	svc := handshake.New(secrets, dialer, zerolog.Nop(), handshake.Options{Timeout: timeout}).
		WithClock(func() time.Time { return fixedNow })
	return &harness{secrets: secrets, pair: pair, dialer: dialer, svc: svc}
}

func (h *harness) connectAsync(url string) <-chan domain.ConnectResult {
	out := make(chan domain.ConnectResult, 1)
	go func() {
		out <- h.svc.Connect(context.Background(), domain.ConnectRequest{InstanceID: inst, URL: url})
	}()
	return out
}

func waitResult(t *testing.T, ch <-chan domain.ConnectResult) domain.ConnectResult {
	t.Helper()
	select {
	case r := <-ch:
		t.Cleanup(func() { _ = r.Close() })
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("connect did not finish")
		return domain.ConnectResult{}
	}
}

func expectConnect(t *testing.T, h *harness) (frame.Request, frame.ConnectParams) {
	t.Helper()
	req := transporttest.ExpectRequest(t, h.pair.Server, 2*time.Second)
	if req.Method != frame.MethodConnect {
		t.Fatalf("method = %q", req.Method)
	}
	var params frame.ConnectParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		t.Fatalf("decode connect params: %v", err)
	}
	return req, params
}

func sendChallenge(t *testing.T, h *harness, nonce string) {
	t.Helper()
	transporttest.SendEvent(t, h.pair.Server, frame.EventConnectChallenge, frame.Challenge{Nonce: nonce, TS: 1})
}

func TestConnect_SignsChallengeAndStoresDeviceToken(t *testing.T) {
	secrets := store.NewMemorySecretsStore()
	ctx := context.Background()
	if err := secrets.SetSharedToken(ctx, inst, "bootstrap"); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, secrets, 0)
	done := h.connectAsync("gw.example.com")

	sendChallenge(t, h, "n-1")
	req, params := expectConnect(t, h)

	if params.MinProtocol != 3 || params.MaxProtocol != 3 {
		t.Fatalf("protocol range %d..%d", params.MinProtocol, params.MaxProtocol)
	}
	if params.Auth == nil || params.Auth.Token != "bootstrap" {
		t.Fatalf("auth = %+v", params.Auth)
	}
	if params.Device == nil {
		t.Fatal("missing device block")
	}
	if params.Device.Nonce != "n-1" || params.Device.SignedAt != fixedNow.UnixMilli() {
		t.Fatalf("device block = %+v", params.Device)
	}
	identity, err := secrets.LoadOrCreateDeviceIdentity(ctx, inst)
	if err != nil {
		t.Fatal(err)
	}
	if params.Device.ID != identity.DeviceID() {
		t.Fatalf("device id %q, want %q", params.Device.ID, identity.DeviceID())
	}
	err = deviceauth.Verify(*params.Device, deviceauth.Payload{
		ClientID:   handshake.ClientID,
		ClientMode: handshake.ClientMode,
		Role:       "operator",
		Scopes:     handshake.DefaultScopes,
		Token:      "bootstrap",
	})
	if err != nil {
		t.Fatalf("signature: %v", err)
	}

	transporttest.SendResult(t, h.pair.Server, req.ID, frame.HelloOK{
		Type:     "hello-ok",
		Protocol: 3,
		Auth:     &frame.HelloAuth{DeviceToken: "dev-tok", Role: "operator"},
	})

	res := waitResult(t, done)
	if res.Status.State != domain.StateConnected {
		t.Fatalf("status = %v", res.Status)
	}
	if res.Session == nil {
		t.Fatal("connected without a session")
	}
	if len(h.dialer.URLs) != 1 || h.dialer.URLs[0] != "wss://gw.example.com" {
		t.Fatalf("dialed %v", h.dialer.URLs)
	}
	tok, ok, err := secrets.DeviceToken(ctx, inst, "operator")
	if err != nil || !ok || tok != "dev-tok" {
		t.Fatalf("device token = %q %v %v", tok, ok, err)
	}
}

func TestConnect_DeviceTokenReplacesSharedToken(t *testing.T) {
	secrets := store.NewMemorySecretsStore()
	ctx := context.Background()
	if err := secrets.SetSharedToken(ctx, inst, "bootstrap"); err != nil {
		t.Fatal(err)
	}
	if err := secrets.SetDeviceToken(ctx, inst, "operator", "dev-tok"); err != nil {
		t.Fatal(err)
	}
	if err := secrets.SetSharedToken(ctx, inst, ""); err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, secrets, 0)
	done := h.connectAsync("wss://gw.example.com")

	sendChallenge(t, h, "n-2")
	req, params := expectConnect(t, h)
	if params.Auth == nil || params.Auth.Token != "dev-tok" {
		t.Fatalf("auth = %+v", params.Auth)
	}
	transporttest.SendResult(t, h.pair.Server, req.ID, map[string]any{"type": "hello-ok", "protocol": 3})

	if res := waitResult(t, done); res.Status.State != domain.StateConnected {
		t.Fatalf("status = %v", res.Status)
	}
}

func TestConnect_NoTokenOmitsAuth(t *testing.T) {
	h := newHarness(t, store.NewMemorySecretsStore(), 0)
	done := h.connectAsync("wss://gw.example.com")

	sendChallenge(t, h, "n-3")
	req, params := expectConnect(t, h)
	if params.Auth != nil {
		t.Fatalf("auth = %+v, want omitted", params.Auth)
	}
	if err := deviceauth.Verify(*params.Device, deviceauth.Payload{
		ClientID:   handshake.ClientID,
		ClientMode: handshake.ClientMode,
		Role:       "operator",
		Scopes:     handshake.DefaultScopes,
	}); err != nil {
		t.Fatalf("signature: %v", err)
	}
	transporttest.SendResult(t, h.pair.Server, req.ID, map[string]any{})

	if res := waitResult(t, done); res.Status.State != domain.StateConnected {
		t.Fatalf("status = %v", res.Status)
	}
}

func TestConnect_PairingRequired(t *testing.T) {
	cases := []struct {
		name  string
		shape *frame.ErrorShape
	}{
		{"details", &frame.ErrorShape{
			Code:    frame.CodeNotPaired,
			Message: "device not paired",
			Details: json.RawMessage(`{"requestId":"abc123"}`),
		}},
		{"top-level", &frame.ErrorShape{Code: frame.CodePairingRequired, RequestID: "abc123"}},
		{"message", &frame.ErrorShape{
			Code:    "UNAUTHORIZED",
			Message: "Pairing required for this device",
			Details: json.RawMessage(`{"requestId":"abc123"}`),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			secrets := store.NewMemorySecretsStore()
			h := newHarness(t, secrets, 0)
			done := h.connectAsync("wss://gw.example.com")

			sendChallenge(t, h, "n")
			req, _ := expectConnect(t, h)
			transporttest.SendError(t, h.pair.Server, req.ID, tc.shape)

			res := waitResult(t, done)
			if res.Status.State != domain.StatePairingRequired || res.Status.RequestID != "abc123" {
				t.Fatalf("status = %v", res.Status)
			}
			if res.Status.String() != "pairing required: abc123" {
				t.Fatalf("String() = %q", res.Status.String())
			}
			if _, ok, _ := secrets.DeviceToken(context.Background(), inst, "operator"); ok {
				t.Fatal("device token stored on pairing outcome")
			}
		})
	}
}

func TestConnect_Rejected(t *testing.T) {
	cases := []struct {
		name  string
		shape *frame.ErrorShape
		want  string
	}{
		{"message", &frame.ErrorShape{Code: "UNAUTHORIZED", Message: "bad token"}, "bad token"},
		{"no message", &frame.ErrorShape{Code: "UNAUTHORIZED"}, "connect rejected"},
		{"no error", nil, "connect rejected"},
		{"pairing without id", &frame.ErrorShape{Code: frame.CodeNotPaired, Message: "not paired"}, "not paired"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, store.NewMemorySecretsStore(), 0)
			done := h.connectAsync("wss://gw.example.com")

			sendChallenge(t, h, "n")
			req, _ := expectConnect(t, h)
			transporttest.SendError(t, h.pair.Server, req.ID, tc.shape)

			res := waitResult(t, done)
			if res.Status.State != domain.StateFailed || res.Status.Message != tc.want {
				t.Fatalf("status = %v, want failed: %s", res.Status, tc.want)
			}
		})
	}
}

func TestConnect_IgnoresEventsBeforeChallenge(t *testing.T) {
	h := newHarness(t, store.NewMemorySecretsStore(), 0)
	done := h.connectAsync("wss://gw.example.com")

	transporttest.SendEvent(t, h.pair.Server, "presence", map[string]int{"n": 1})
	transporttest.SendEvent(t, h.pair.Server, "tick", nil)
	sendChallenge(t, h, "late")
	req, params := expectConnect(t, h)
	if params.Device.Nonce != "late" {
		t.Fatalf("nonce = %q", params.Device.Nonce)
	}
	transporttest.SendEvent(t, h.pair.Server, "tick", nil)
	transporttest.SendResult(t, h.pair.Server, req.ID, map[string]any{})

	if res := waitResult(t, done); res.Status.State != domain.StateConnected {
		t.Fatalf("status = %v", res.Status)
	}
}

func TestConnect_MalformedChallengeFails(t *testing.T) {
	h := newHarness(t, store.NewMemorySecretsStore(), 0)
	done := h.connectAsync("wss://gw.example.com")

	transporttest.SendEvent(t, h.pair.Server, frame.EventConnectChallenge, map[string]int{"ts": 1})

	res := waitResult(t, done)
	if res.Status.State != domain.StateFailed {
		t.Fatalf("status = %v", res.Status)
	}
}

func TestConnect_TimesOutWithoutChallenge(t *testing.T) {
	h := newHarness(t, store.NewMemorySecretsStore(), 100*time.Millisecond)
	done := h.connectAsync("wss://gw.example.com")

	res := waitResult(t, done)
	if res.Status.State != domain.StateFailed {
		t.Fatalf("status = %v", res.Status)
	}
	if res.Status.Message != "connect timed out after 100ms" {
		t.Fatalf("message = %q", res.Status.Message)
	}
	if res.Session != nil {
		t.Fatal("timed out attempt returned a session")
	}
	select {
	case <-h.pair.Server.Closed():
	case <-time.After(time.Second):
		t.Fatal("transport left open after timeout")
	}
}

func TestConnect_PeerCloseBeforeChallenge(t *testing.T) {
	h := newHarness(t, store.NewMemorySecretsStore(), 0)
	done := h.connectAsync("wss://gw.example.com")
	_ = h.pair.Server.Close()

	res := waitResult(t, done)
	if res.Status.State != domain.StateFailed {
		t.Fatalf("status = %v", res.Status)
	}
}

func TestConnect_InvalidOrInsecureURL(t *testing.T) {
	for _, url := range []string{"ws://gw.example.com", "ftp://gw.example.com", "bad url"} {
		h := newHarness(t, store.NewMemorySecretsStore(), 0)
		res := waitResult(t, h.connectAsync(url))
		if res.Status.State != domain.StateFailed {
			t.Fatalf("%q: status = %v", url, res.Status)
		}
		if len(h.dialer.URLs) != 0 {
			t.Fatalf("%q: dialed %v", url, h.dialer.URLs)
		}
	}
}

func TestConnect_DialError(t *testing.T) {
	h := newHarness(t, store.NewMemorySecretsStore(), 0)
	h.dialer.Err = fmt.Errorf("%w: connection refused", domain.ErrTransport)

	res := waitResult(t, h.connectAsync("wss://gw.example.com"))
	if res.Status.State != domain.StateFailed || !strings.Contains(res.Status.Message, "connection refused") {
		t.Fatalf("status = %v", res.Status)
	}
	if res.Session != nil {
		t.Fatal("session returned after dial error")
	}
}

type failingSecrets struct {
	*store.MemorySecretsStore
	err error
}

func (f failingSecrets) SetDeviceToken(context.Context, domain.InstanceID, domain.Role, string) error {
	return f.err
}

func TestConnect_StorageFailureIsFailed(t *testing.T) {
	storageErr := fmt.Errorf("%w: disk full", domain.ErrStorage)
	h := newHarness(t, failingSecrets{store.NewMemorySecretsStore(), storageErr}, 0)
	done := h.connectAsync("wss://gw.example.com")

	sendChallenge(t, h, "n")
	req, _ := expectConnect(t, h)
	transporttest.SendResult(t, h.pair.Server, req.ID, frame.HelloOK{
		Auth: &frame.HelloAuth{DeviceToken: "dev-tok"},
	})

	res := waitResult(t, done)
	if res.Status.State != domain.StateFailed || !strings.Contains(res.Status.Message, "disk full") {
		t.Fatalf("status = %v", res.Status)
	}
}
