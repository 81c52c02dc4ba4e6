package types

// InstanceID identifies a configured gateway instance.
type InstanceID string

// String returns the string form of the instance identifier.
func (id InstanceID) String() string { return string(id) }

// Role is the gateway role a connection authenticates as.
type Role string

// String returns the string form of the role.
func (r Role) String() string { return string(r) }

// Fingerprint is the hex device id derived from a device public key.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
