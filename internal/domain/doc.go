// Package domain models records ingested from a server-sent event stream.
//
// # Wire Format
//
// The producer emits one JSON document per event on a text/event-stream
// response:
//
//	data: {"type":"weather","timestamp":1718000000,"temperature":31.4,"windspeed":12.6}
//
// Events are separated by a blank line. Each delivered line is handed to
// [ParseLine] independently; a single logical event split across several
// data: lines is not reassembled.
//
// # Payloads
//
// A line that decodes as JSON becomes a structured [Payload]. Anything else
// (plain text, truncated JSON, HTML error pages) becomes a raw payload holding
// the trimmed text. Decoding never fails: a malformed line is kept, never
// dropped.
//
// Structured payloads are treated as read-only once ingested. The window and
// projections share the decoded maps without copying them.
//
// # Event Kinds
//
// When present, the "type" field discriminates event kinds. The weather
// producer sends:
//
//	connected  initial handshake, carries lat/lon of the subscription
//	weather    telemetry sample: timestamp (epoch seconds), temperature (°C),
//	           windspeed (km/h), winddirection (degrees), weathercode (WMO)
//	error      upstream fetch failure: msg, detail
//
// Other producers (chat logs, campaign events) send arbitrary objects; the
// listener keeps them as-is and extracts status/source/audience/channel badges.
//
// # Sequence Numbers
//
// Records are numbered at ingestion by a [Sequence], never from the wire.
// Numbers keep increasing across subscription changes so a record from a new
// subscription can never share or precede a number from the previous one.
package domain
