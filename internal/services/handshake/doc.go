// Package handshake runs the device-authenticated connect against a gateway.
//
// # Flow
//
//  1. Load the instance's device identity and tokens from the secrets store.
//  2. Normalize the URL under the security policy and dial the transport.
//  3. Wrap the transport in a gateway.Session and wait for the
//     connect.challenge event; other events are ignored.
//  4. Sign the canonical v2 payload with the challenge nonce and send the
//     connect request (device token preferred over the shared token).
//  5. Classify the response: connected (persisting any issued device token),
//     pairing required (with the request id an operator must approve), or
//     failed with the gateway's message.
//
// The whole attempt is bounded by a timeout. When it expires the session is
// closed and the result is failed. For other outcomes the open session is
// handed to the caller, who must close it; on success it is ready for RPC.
//
// Nothing is retried here.
package handshake
