package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"thinkgw/internal/domain"
	"thinkgw/internal/protocol/frame"
)

// eventBuffer is how many events may queue before new ones are dropped.
const eventBuffer = 64

type callResult struct {
	res *frame.Response
	err error
}

type pendingCall struct {
	id     string
	method string
	reply  chan callResult
}

// Session multiplexes RPC calls and events over one transport.
type Session struct {
	transport domain.Transport
	log       zerolog.Logger
	newID     func() string

	register chan pendingCall
	forget   chan string
	inbound  chan frame.Frame
	events   chan frame.Event
	closing  chan struct{}
	done     chan struct{}

	cancelRead context.CancelFunc
	closeOnce  sync.Once
	err        error // written by the owner before done is closed
}

var _ domain.Session = (*Session)(nil)

// NewSession takes ownership of t and starts reading from it immediately.
// Events that arrive before the caller looks at Events are buffered.
func NewSession(t domain.Transport, log zerolog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		transport:  t,
		log:        log,
		newID:      uuid.NewString,
		register:   make(chan pendingCall),
		forget:     make(chan string),
		inbound:    make(chan frame.Frame),
		events:     make(chan frame.Event, eventBuffer),
		closing:    make(chan struct{}),
		done:       make(chan struct{}),
		cancelRead: cancel,
	}
	readErr := make(chan error, 1)
	go s.read(ctx, readErr)
	go s.run(readErr)
	return s
}

// Call sends a request and waits for the response with the same id.
// An ok:false response is returned as a *RemoteError.
func (s *Session) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := s.newID()
	data, err := frame.EncodeRequest(id, method, params)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s params: %v", domain.ErrProtocol, method, err)
	}

	p := pendingCall{id: id, method: method, reply: make(chan callResult, 1)}
	select {
	case s.register <- p:
	case <-s.done:
		return nil, s.closedErr()
	case <-ctx.Done():
		return nil, ctxErr(ctx, method)
	}

	if err := s.transport.Send(ctx, string(data)); err != nil {
		s.abandon(id)
		if ctx.Err() != nil {
			return nil, ctxErr(ctx, method)
		}
		return nil, err
	}
	s.log.Debug().Str("id", id).Str("method", method).Msg("request sent")

	select {
	case r := <-p.reply:
		if r.err != nil {
			return nil, r.err
		}
		if !r.res.OK {
			return nil, newRemoteError(method, r.res.Error)
		}
		return r.res.Payload, nil
	case <-ctx.Done():
		s.abandon(id)
		return nil, ctxErr(ctx, method)
	}
}

// ctxErr tags an expired deadline with domain.ErrTimeout, keeping the
// context error in the chain.
func ctxErr(ctx context.Context, method string) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", domain.ErrTimeout, method, err)
	}
	return err
}

// CallOK is Call for methods whose payload the caller does not need.
func (s *Session) CallOK(ctx context.Context, method string, params any) error {
	_, err := s.Call(ctx, method, params)
	return err
}

// Events delivers event frames in arrival order. It is closed when the
// session ends.
func (s *Session) Events() <-chan frame.Event { return s.events }

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err reports why the session ended, or nil while it is open.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Close ends the session and closes the transport. It waits for the owner
// goroutine to fail pending calls.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.closing) })
	<-s.done
	return nil
}

func (s *Session) abandon(id string) {
	select {
	case s.forget <- id:
	case <-s.done:
	}
}

func (s *Session) closedErr() error {
	if s.err == nil || errors.Is(s.err, ErrSessionClosed) {
		return ErrSessionClosed
	}
	return fmt.Errorf("%w: %v", ErrSessionClosed, s.err)
}

// read is the only goroutine that calls Receive.
func (s *Session) read(ctx context.Context, errc chan<- error) {
	for {
		text, err := s.transport.Receive(ctx)
		if err != nil {
			errc <- err
			return
		}
		f, err := frame.Decode([]byte(text))
		if err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		select {
		case s.inbound <- f:
		case <-ctx.Done():
			errc <- ctx.Err()
			return
		}
	}
}

// run owns the pending table; nothing else reads or writes it.
func (s *Session) run(readErr <-chan error) {
	pending := make(map[string]pendingCall)
	var cause error

loop:
	for {
		select {
		case p := <-s.register:
			pending[p.id] = p
		case id := <-s.forget:
			delete(pending, id)
		case f := <-s.inbound:
			s.dispatch(f, pending)
		case err := <-readErr:
			cause = err
			s.log.Debug().Err(err).Msg("transport reader stopped")
			break loop
		case <-s.closing:
			cause = ErrSessionClosed
			break loop
		}
	}

	s.cancelRead()
	if err := s.transport.Close(); err != nil {
		s.log.Debug().Err(err).Msg("closing transport")
	}
	s.err = cause
	closed := s.closedErr()
	for id, p := range pending {
		p.reply <- callResult{err: closed}
		delete(pending, id)
	}
	close(s.events)
	close(s.done)
}

func (s *Session) dispatch(f frame.Frame, pending map[string]pendingCall) {
	switch f.Type {
	case frame.TypeResponse:
		p, ok := pending[f.Response.ID]
		if !ok {
			s.log.Debug().Str("id", f.Response.ID).Msg("dropping unmatched response")
			return
		}
		delete(pending, f.Response.ID)
		p.reply <- callResult{res: f.Response}
	case frame.TypeEvent:
		select {
		case s.events <- *f.Event:
		default:
			s.log.Debug().Str("event", f.Event.Name).Msg("event buffer full, dropping event")
		}
	case frame.TypeRequest:
		s.log.Debug().Str("method", f.Request.Method).Msg("ignoring gateway-initiated request")
	}
}
