// Package commands defines the thinkgw CLI and wires dependencies for subcommands.
//
// Commands
//
//   - gateway list      List configured gateways (tokens are never printed)
//   - gateway upsert    Create or update a gateway and its shared token
//   - gateway delete    Remove a gateway and purge its secrets
//   - gateway use       Select the active gateway
//   - gateway test      Run the device-authenticated handshake once
//   - gateway approve   Approve a pending pairing request as an operator
//   - gateway call      Send one RPC request on a connected session
//   - gateway watch     Stream gateway events, optionally to MQTT
//   - fingerprint       Print the device id and public key of a gateway
//
// # Implementation
//
// The root command loads configuration (.env files, THINKGW_* variables, then
// flags) and builds the dependency graph before any subcommand runs, so
// handlers share one app.Wire.
package commands
