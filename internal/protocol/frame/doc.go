// Package frame implements the gateway wire codec.
//
// Every WebSocket text message carries one JSON object whose "type" field
// selects one of three frame kinds:
//
//	{"type":"req","id":"<uuid>","method":"<name>","params":{...}}
//	{"type":"res","id":"<uuid>","ok":true,"payload":{...}}
//	{"type":"res","id":"<uuid>","ok":false,"error":{"message":"..."}}
//	{"type":"event","event":"<name>","payload":{...}}
//
// Decode is strict: unknown types, requests or responses without an id,
// responses without "ok" and events without a name are rejected with
// ErrMalformed or ErrUnknownType so that callers can drop them.
//
// The connect handshake structures (ConnectParams, Challenge, HelloOK) live
// here too since they only ever travel inside frames.
package frame
