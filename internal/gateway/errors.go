package gateway

import (
	"errors"
	"fmt"

	"thinkgw/internal/domain"
	"thinkgw/internal/protocol/frame"
)

// ErrSessionClosed is returned by calls that cannot complete because the
// session ended.
var ErrSessionClosed = fmt.Errorf("%w: session closed", domain.ErrTransport)

// DefaultErrorMessage is used when a failed response carries no message.
const DefaultErrorMessage = "request failed"

// RemoteError is an ok:false response.
type RemoteError struct {
	Method  string
	Code    string
	Message string
	Shape   *frame.ErrorShape
}

func (e *RemoteError) Error() string { return e.Message }

func newRemoteError(method string, shape *frame.ErrorShape) *RemoteError {
	e := &RemoteError{Method: method, Message: DefaultErrorMessage, Shape: shape}
	if shape != nil {
		e.Code = shape.Code
		if shape.Message != "" {
			e.Message = shape.Message
		}
	}
	return e
}

// AsRemoteError unwraps err into a *RemoteError.
func AsRemoteError(err error) (*RemoteError, bool) {
	var re *RemoteError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
