package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"thinkgw/internal/domain"
)

// ErrTransportClosed is returned by Send and Receive after Close.
var ErrTransportClosed = fmt.Errorf("%w: connection closed", domain.ErrTransport)

// WebSocketDialer opens gorilla/websocket connections.
type WebSocketDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
	Log    zerolog.Logger
	// WriteTimeout bounds a single Send when the context has no deadline.
	WriteTimeout time.Duration
}

// NewWebSocketDialer returns a dialer with sane handshake and write timeouts.
func NewWebSocketDialer(log zerolog.Logger) *WebSocketDialer {
	return &WebSocketDialer{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		Log:          log,
		WriteTimeout: 10 * time.Second,
	}
}

var _ domain.Dialer = (*WebSocketDialer)(nil)

// Dial connects to url, which should already be normalized.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (domain.Transport, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: dial %s: %v (%s)", domain.ErrTransport, url, err, resp.Status)
		}
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrTransport, url, err)
	}
	d.Log.Debug().Str("url", url).Msg("websocket connected")
	return &WebSocket{conn: conn, writeTimeout: d.WriteTimeout, closed: make(chan struct{})}, nil
}

// WebSocket adapts a gorilla connection to domain.Transport.
//
// Gorilla allows one concurrent writer, so Send is serialized with a mutex.
type WebSocket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

var _ domain.Transport = (*WebSocket)(nil)

// Send writes one text frame.
func (w *WebSocket) Send(ctx context.Context, text string) error {
	select {
	case <-w.closed:
		return ErrTransportClosed
	default:
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok && w.writeTimeout > 0 {
		deadline = time.Now().Add(w.writeTimeout)
	}
	if err := w.conn.SetWriteDeadline(deadline); err != nil {
		return w.wrap(err)
	}
	if err := w.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return w.wrap(err)
	}
	return nil
}

// Receive blocks for the next text frame. Cancelling ctx closes the
// connection, since a gorilla read cannot be interrupted otherwise.
func (w *WebSocket) Receive(ctx context.Context) (string, error) {
	stop := context.AfterFunc(ctx, func() { _ = w.Close() })
	defer stop()

	for {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", w.wrap(err)
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return string(data), nil
		}
	}
}

// Close sends a close frame on a best-effort basis and tears the socket down.
func (w *WebSocket) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		w.writeMu.Lock()
		_ = w.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		w.writeMu.Unlock()
		err = w.conn.Close()
	})
	return err
}

func (w *WebSocket) wrap(err error) error {
	select {
	case <-w.closed:
		return ErrTransportClosed
	default:
	}
	if errors.Is(err, net.ErrClosed) || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrTransport, err)
}
