package frame

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProtocolVersion is sent as both minProtocol and maxProtocol.
const ProtocolVersion = 3

// Method and event names used by the handshake and pairing flows.
const (
	MethodConnect         = "connect"
	MethodPairApprove     = "device.pair.approve"
	EventConnectChallenge = "connect.challenge"
)

// Error codes a gateway uses to ask for device pairing.
const (
	CodeNotPaired       = "NOT_PAIRED"
	CodePairingRequired = "PAIRING_REQUIRED"
)

// ClientInfo describes the connecting client.
type ClientInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version"`
	Platform    string `json:"platform"`
	Mode        string `json:"mode"`
	InstanceID  string `json:"instanceId,omitempty"`
}

// ConnectAuth is the auth block of a connect request. Bearer tokens are the
// only variant today.
type ConnectAuth struct {
	Token string `json:"token"`
}

// DeviceAuth proves possession of the device key for one challenge.
type DeviceAuth struct {
	ID        string `json:"id"`
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
	SignedAt  int64  `json:"signedAt"`
	Nonce     string `json:"nonce"`
}

// ConnectParams are the params of the "connect" request.
type ConnectParams struct {
	MinProtocol int          `json:"minProtocol"`
	MaxProtocol int          `json:"maxProtocol"`
	Client      ClientInfo   `json:"client"`
	Auth        *ConnectAuth `json:"auth,omitempty"`
	Role        string       `json:"role"`
	Scopes      []string     `json:"scopes"`
	Device      *DeviceAuth  `json:"device,omitempty"`
}

// Challenge is the payload of the connect.challenge event.
type Challenge struct {
	Nonce string `json:"nonce"`
	TS    int64  `json:"ts"`
}

// DecodeChallenge parses a challenge payload; the nonce is required.
func DecodeChallenge(payload json.RawMessage) (Challenge, error) {
	var c Challenge
	if err := json.Unmarshal(payload, &c); err != nil {
		return Challenge{}, fmt.Errorf("%w: challenge: %v", ErrMalformed, err)
	}
	if c.Nonce == "" {
		return Challenge{}, fmt.Errorf("%w: challenge without nonce", ErrMalformed)
	}
	return c, nil
}

// HelloAuth carries credentials issued by the gateway on connect.
type HelloAuth struct {
	DeviceToken string   `json:"deviceToken,omitempty"`
	Role        string   `json:"role,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
}

// HelloOK is the payload of a successful connect response. Only the fields
// the client acts on are decoded.
type HelloOK struct {
	Type     string     `json:"type,omitempty"`
	Protocol int        `json:"protocol,omitempty"`
	Auth     *HelloAuth `json:"auth,omitempty"`
}

// PairApproveParams are the params of device.pair.approve.
type PairApproveParams struct {
	RequestID string `json:"requestId"`
}

// PairingRequestID reports whether e asks for device pairing and, if so,
// which pairing request id it carries. The id is read from the top-level
// requestId or from details.requestId.
func (e *ErrorShape) PairingRequestID() (string, bool) {
	if e == nil {
		return "", false
	}
	pairing := e.Code == CodeNotPaired || e.Code == CodePairingRequired ||
		strings.Contains(strings.ToLower(e.Message), "pairing required")
	if !pairing {
		return "", false
	}
	if e.RequestID != "" {
		return e.RequestID, true
	}
	var details struct {
		RequestID string `json:"requestId"`
	}
	if len(e.Details) > 0 && json.Unmarshal(e.Details, &details) == nil {
		return details.RequestID, true
	}
	return "", true
}
