package types

import "time"

// Instance is a configured gateway endpoint.
//
// Tokens never live here; they are kept in the secrets store under ID.
type Instance struct {
	ID        InstanceID `json:"id"`
	Name      string     `json:"name"`
	URL       string     `json:"url"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// InstanceSummary is what listing commands show.
type InstanceSummary struct {
	Instance
	Active         bool `json:"active"`
	HasSharedToken bool `json:"has_shared_token"`
}

// ConnectRequest describes one handshake attempt.
type ConnectRequest struct {
	InstanceID InstanceID
	URL        string
	// Timeout bounds the whole attempt; zero means the client default.
	Timeout time.Duration
}
