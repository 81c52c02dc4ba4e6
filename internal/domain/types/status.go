package types

import "fmt"

// ConnectionState is the closed set of handshake outcomes.
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateConnecting
	StateConnected
	StatePairingRequired
	StateFailed
)

// String returns the lowercase name used in logs.
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StatePairingRequired:
		return "pairing_required"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ConnectionStatus is the result of a handshake attempt.
// RequestID is set only for StatePairingRequired, Message only for StateFailed.
// The zero value is the idle status.
type ConnectionStatus struct {
	State     ConnectionState
	RequestID string
	Message   string
}

// Connected is the only status that permits RPC calls.
func Connected() ConnectionStatus { return ConnectionStatus{State: StateConnected} }

// PairingRequired carries the pairing request an operator must approve.
func PairingRequired(requestID string) ConnectionStatus {
	return ConnectionStatus{State: StatePairingRequired, RequestID: requestID}
}

// Failed carries a human-readable reason.
func Failed(message string) ConnectionStatus {
	return ConnectionStatus{State: StateFailed, Message: message}
}

// String renders the status the way the CLI prints it.
func (s ConnectionStatus) String() string {
	switch s.State {
	case StatePairingRequired:
		return "pairing required: " + s.RequestID
	case StateFailed:
		return "failed: " + s.Message
	default:
		return s.State.String()
	}
}
