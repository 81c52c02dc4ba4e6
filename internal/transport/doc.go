// Package transport connects thinkgw to gateways over WebSocket.
//
// It provides:
//   - NormalizeURL, which turns user input into a ws:// or wss:// URL and
//     enforces the SecurityPolicy (plaintext only when explicitly allowed).
//   - WebSocketDialer and WebSocket, a gorilla/websocket implementation of
//     domain.Dialer and domain.Transport.
//
// Errors wrap domain.ErrTransport. Closing a WebSocket unblocks a pending
// Receive with ErrTransportClosed.
package transport
