package domain

import (
	interfaces "thinkgw/internal/domain/interfaces"
	types "thinkgw/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	InstanceID       = types.InstanceID
	Role             = types.Role
	Fingerprint      = types.Fingerprint
	Instance         = types.Instance
	InstanceSummary  = types.InstanceSummary
	ConnectRequest   = types.ConnectRequest
	ConnectionState  = types.ConnectionState
	ConnectionStatus = types.ConnectionStatus
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	SecretsStore     = interfaces.SecretsStore
	InstanceStore    = interfaces.InstanceStore
	Transport        = interfaces.Transport
	Dialer           = interfaces.Dialer
	Session          = interfaces.Session
	ConnectResult    = interfaces.ConnectResult
	HandshakeService = interfaces.HandshakeService
	InstanceService  = interfaces.InstanceService
	PairingService   = interfaces.PairingService
	IdentityService  = interfaces.IdentityService
)

// Connection states re-exported for callers that only import domain.
const (
	StateIdle            = types.StateIdle
	StateConnecting      = types.StateConnecting
	StateConnected       = types.StateConnected
	StatePairingRequired = types.StatePairingRequired
	StateFailed          = types.StateFailed
)

// Status constructors.
var (
	Connected       = types.Connected
	PairingRequired = types.PairingRequired
	Failed          = types.Failed
)
