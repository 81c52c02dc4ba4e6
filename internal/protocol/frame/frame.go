package frame

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type discriminates the frame kinds.
type Type string

const (
	TypeRequest  Type = "req"
	TypeResponse Type = "res"
	TypeEvent    Type = "event"
)

var (
	// ErrUnknownType is returned for a "type" value outside the closed set.
	ErrUnknownType = errors.New("unknown frame type")
	// ErrMalformed is returned for frames that are not valid JSON or miss
	// a field their type requires.
	ErrMalformed = errors.New("malformed frame")
)

// ErrorShape is the error object of a failed response.
type ErrorShape struct {
	Code      string          `json:"code,omitempty"`
	Message   string          `json:"message,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// Request is a "req" frame.
type Request struct {
	ID     string
	Method string
	Params json.RawMessage
}

// Response is a "res" frame. Payload is set when OK, Error otherwise
// (it may still be nil if the server sent no error object).
type Response struct {
	ID      string
	OK      bool
	Payload json.RawMessage
	Error   *ErrorShape
}

// Event is an "event" frame. Events are never correlated with requests.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Seq     *int64          `json:"seq,omitempty"`
}

// Frame is the decoded tagged union: exactly one of Request, Response or
// Event is non-nil, matching Type.
type Frame struct {
	Type     Type
	Request  *Request
	Response *Response
	Event    *Event
}

type wire struct {
	Type    Type            `json:"type"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	OK      *bool           `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorShape     `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Seq     *int64          `json:"seq,omitempty"`
}

// Decode parses one text frame.
func Decode(data []byte) (Frame, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch w.Type {
	case TypeRequest:
		if w.ID == "" || w.Method == "" {
			return Frame{}, fmt.Errorf("%w: req needs id and method", ErrMalformed)
		}
		return Frame{Type: w.Type, Request: &Request{ID: w.ID, Method: w.Method, Params: w.Params}}, nil
	case TypeResponse:
		if w.ID == "" || w.OK == nil {
			return Frame{}, fmt.Errorf("%w: res needs id and ok", ErrMalformed)
		}
		res := &Response{ID: w.ID, OK: *w.OK}
		if res.OK {
			res.Payload = w.Payload
		} else {
			res.Error = w.Error
		}
		return Frame{Type: w.Type, Response: res}, nil
	case TypeEvent:
		if w.Event == "" {
			return Frame{}, fmt.Errorf("%w: event needs a name", ErrMalformed)
		}
		return Frame{Type: w.Type, Event: &Event{Name: w.Event, Payload: w.Payload, Seq: w.Seq}}, nil
	case "":
		return Frame{}, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownType, w.Type)
	}
}

// EncodeRequest builds a "req" frame. Nil params encode as {}.
func EncodeRequest(id, method string, params any) ([]byte, error) {
	raw, err := marshalObject(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire{Type: TypeRequest, ID: id, Method: method, Params: raw})
}

// EncodeResponse builds a "res" frame. Used by gateway doubles in tests and
// by tooling that answers requests.
func EncodeResponse(res Response) ([]byte, error) {
	ok := res.OK
	w := wire{Type: TypeResponse, ID: res.ID, OK: &ok}
	if ok {
		w.Payload = res.Payload
	} else {
		w.Error = res.Error
	}
	return json.Marshal(w)
}

// EncodeEvent builds an "event" frame.
func EncodeEvent(name string, payload any) ([]byte, error) {
	raw, err := marshalObject(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire{Type: TypeEvent, Event: name, Payload: raw})
}

func marshalObject(v any) (json.RawMessage, error) {
	switch p := v.(type) {
	case nil:
		return json.RawMessage(`{}`), nil
	case json.RawMessage:
		if len(p) == 0 {
			return json.RawMessage(`{}`), nil
		}
		return p, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
