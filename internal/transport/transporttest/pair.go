// Package transporttest provides an in-memory domain.Transport for tests,
// in the spirit of net/http/httptest.
//
// NewPair returns two connected ends. Code under test gets Client (usually
// through a Dialer); the test drives Server to play the gateway.
package transporttest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"thinkgw/internal/domain"
	"thinkgw/internal/protocol/frame"
	"thinkgw/internal/transport"
)

const bufferedFrames = 64

// Conn is one end of an in-memory pair.
type Conn struct {
	recv chan string
	peer *Conn
	done chan struct{}
	once *sync.Once
}

var _ domain.Transport = (*Conn)(nil)

// Pair holds both ends.
type Pair struct {
	Client *Conn
	Server *Conn
}

// NewPair returns a connected pair. Closing either end closes both.
func NewPair() *Pair {
	done := make(chan struct{})
	once := &sync.Once{}
	c := &Conn{recv: make(chan string, bufferedFrames), done: done, once: once}
	s := &Conn{recv: make(chan string, bufferedFrames), done: done, once: once}
	c.peer, s.peer = s, c
	return &Pair{Client: c, Server: s}
}

// Send delivers text to the peer.
func (c *Conn) Send(ctx context.Context, text string) error {
	select {
	case <-c.done:
		return transport.ErrTransportClosed
	default:
	}
	select {
	case c.peer.recv <- text:
		return nil
	case <-c.done:
		return transport.ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the next frame from the peer.
func (c *Conn) Receive(ctx context.Context) (string, error) {
	select {
	case text := <-c.recv:
		return text, nil
	case <-c.done:
		return "", transport.ErrTransportClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close closes both ends.
func (c *Conn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// Closed is closed once either end has been closed.
func (c *Conn) Closed() <-chan struct{} { return c.done }

// Dialer hands out a fixed transport and records the dialed URLs.
type Dialer struct {
	mu   sync.Mutex
	Conn domain.Transport
	Err  error
	URLs []string
}

var _ domain.Dialer = (*Dialer)(nil)

// Dial returns d.Conn or d.Err.
func (d *Dialer) Dial(_ context.Context, url string) (domain.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.URLs = append(d.URLs, url)
	if d.Err != nil {
		return nil, d.Err
	}
	return d.Conn, nil
}

// ExpectRequest reads frames from c until a request arrives, failing the
// test after timeout. Non-request frames fail the test.
func ExpectRequest(tb testing.TB, c *Conn, timeout time.Duration) frame.Request {
	tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	text, err := c.Receive(ctx)
	if err != nil {
		tb.Fatalf("waiting for request: %v", err)
	}
	f, err := frame.Decode([]byte(text))
	if err != nil {
		tb.Fatalf("decode request %q: %v", text, err)
	}
	if f.Request == nil {
		tb.Fatalf("expected request frame, got %s", text)
	}
	return *f.Request
}

// SendEvent writes an event frame from c.
func SendEvent(tb testing.TB, c *Conn, name string, payload any) {
	tb.Helper()
	b, err := frame.EncodeEvent(name, payload)
	if err != nil {
		tb.Fatalf("encode event: %v", err)
	}
	sendRaw(tb, c, string(b))
}

// SendResult writes a successful response with payload.
func SendResult(tb testing.TB, c *Conn, id string, payload any) {
	tb.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		tb.Fatalf("encode payload: %v", err)
	}
	b, err := frame.EncodeResponse(frame.Response{ID: id, OK: true, Payload: raw})
	if err != nil {
		tb.Fatalf("encode response: %v", err)
	}
	sendRaw(tb, c, string(b))
}

// SendError writes a failed response.
func SendError(tb testing.TB, c *Conn, id string, shape *frame.ErrorShape) {
	tb.Helper()
	b, err := frame.EncodeResponse(frame.Response{ID: id, OK: false, Error: shape})
	if err != nil {
		tb.Fatalf("encode response: %v", err)
	}
	sendRaw(tb, c, string(b))
}

// SendRaw writes text as-is, for malformed-frame tests.
func SendRaw(tb testing.TB, c *Conn, text string) {
	tb.Helper()
	sendRaw(tb, c, text)
}

func sendRaw(tb testing.TB, c *Conn, text string) {
	tb.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Send(ctx, text); err != nil {
		tb.Fatalf("send %q: %v", text, err)
	}
}
