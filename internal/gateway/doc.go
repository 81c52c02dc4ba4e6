// Package gateway implements the RPC call layer on top of a domain.Transport.
//
// A Session owns one transport. A reader goroutine drains Receive and hands
// decoded frames to an owner goroutine, which is the only code that touches
// the table of pending calls:
//
//   - "res" frames are routed to the caller waiting on the same id; responses
//     nobody waits for are dropped.
//   - "event" frames go to the Events channel. If the subscriber falls behind
//     the buffer fills and further events are dropped (logged at debug level).
//   - malformed frames are logged and dropped.
//
// Call registers its id with the owner before sending, so a fast response
// can never overtake the registration. Closing the session, or the transport
// failing, fails every pending call with ErrSessionClosed and closes Events.
//
// There are no retries at this layer.
package gateway
