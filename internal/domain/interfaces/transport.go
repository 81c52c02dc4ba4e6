package interfaces

import "context"

// Transport is a duplex text-frame stream to a gateway.
//
// Exactly one goroutine may call Receive at a time. Close unblocks a pending
// Receive with an error.
type Transport interface {
	Send(ctx context.Context, text string) error
	Receive(ctx context.Context) (string, error)
	Close() error
}

// Dialer opens transports. Dialing is the start of the stream.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}
