package domain

import "errors"

// Error kinds. Callers wrap these with fmt.Errorf("%w: ...") and test with
// errors.Is. Pairing is not an error; it is a ConnectionStatus.
var (
	ErrTransport         = errors.New("transport error")
	ErrCrypto            = errors.New("crypto error")
	ErrProtocol          = errors.New("protocol error")
	ErrHandshakeRejected = errors.New("handshake rejected")
	ErrStorage           = errors.New("storage error")
	ErrTimeout           = errors.New("timed out")
	ErrInstanceNotFound  = errors.New("gateway instance not found")
)
