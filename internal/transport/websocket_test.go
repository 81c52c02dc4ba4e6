package transport_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"thinkgw/internal/domain"
	"thinkgw/internal/transport"
)

// echoServer upgrades and echoes every text frame back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(kind, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) domain.Transport {
	t.Helper()
	url, err := transport.NormalizeURL(srv.URL, transport.SecurityPolicy{AllowInsecure: true})
	if err != nil {
		t.Fatalf("NormalizeURL: %v", err)
	}
	if !strings.HasPrefix(url, "ws://") {
		t.Fatalf("unexpected url %q", url)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tr, err := transport.NewWebSocketDialer(zerolog.Nop()).Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return tr
}

func TestWebSocket_SendReceive(t *testing.T) {
	tr := dial(t, echoServer(t))
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Send(ctx, `{"type":"event","event":"x"}`); err != nil {
		t.Fatalf("Send: %v", err)
	}
	got, err := tr.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if got != `{"type":"event","event":"x"}` {
		t.Fatalf("echo mismatch: %q", got)
	}
}

func TestWebSocket_CloseUnblocksReceive(t *testing.T) {
	tr := dial(t, echoServer(t))

	errCh := make(chan error, 1)
	go func() {
		_, err := tr.Receive(context.Background())
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, domain.ErrTransport) {
			t.Fatalf("want transport error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Receive still blocked after Close")
	}

	if err := tr.Send(context.Background(), "x"); !errors.Is(err, transport.ErrTransportClosed) {
		t.Fatalf("Send after Close: want ErrTransportClosed, got %v", err)
	}
}

func TestWebSocket_SendHonoursExpiredDeadline(t *testing.T) {
	tr := dial(t, echoServer(t))
	defer tr.Close()

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	if err := tr.Send(ctx, "late"); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("want transport error for an expired write deadline, got %v", err)
	}
}

func TestWebSocket_ReceiveHonoursContext(t *testing.T) {
	tr := dial(t, echoServer(t))
	defer tr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := tr.Receive(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}

func TestWebSocketDialer_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	if _, err := transport.NewWebSocketDialer(zerolog.Nop()).Dial(ctx, url); !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("want transport error, got %v", err)
	}
}
