// Package pairing approves pending device pairing requests.
//
// A device that connects without being paired gets a pairing request id from
// the gateway. An operator approves it with device.pair.approve over a
// separate, already authorized session.
package pairing
