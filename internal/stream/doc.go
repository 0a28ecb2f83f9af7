// Package stream keeps one server-sent event subscription alive and feeds
// its records into a window.
//
// # Supervisor
//
// A [Supervisor] owns a single subscription. Its state machine:
//
//	connecting ──open──▶ open
//	connecting|open ──error──▶ errored ──after ReconnectDelay──▶ connecting
//	any ──Close──▶ closed
//
// Reconnection is unconditional and never gives up.
//
// Every connection attempt gets a generation number. Transport signals are
// tagged with the generation of the attempt that produced them and the
// supervisor drops any signal whose generation is not current, so a slow
// callback from a superseded connection can never touch the window.
//
// All state changes run on one goroutine per supervisor. Transport goroutines
// only post signals to it.
//
// # Hub
//
// A [Hub] owns the window and the sequence counter and swaps supervisors when
// the subscription target changes: the old supervisor is closed and waited
// for, the window is cleared, and only then is the new one started.
package stream
