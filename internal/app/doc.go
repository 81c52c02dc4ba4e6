// Package app wires application dependencies for the CLI.
//
// LoadConfig reads .env files and THINKGW_* variables into Config. NewWire
// builds the concrete stores, the WebSocket dialer and the high-level services
// from it, exposing them via the Wire struct for commands to use.
package app
