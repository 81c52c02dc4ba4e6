// Package bridge forwards gateway events to an MQTT broker.
//
// Each event frame becomes one message on
// <prefix>/<instance>/<event name with dots as slashes>, carrying a JSON
// envelope with the event name, sequence number and raw payload. Delivery is
// best effort: a failed publish is logged and the next event is forwarded.
package bridge
