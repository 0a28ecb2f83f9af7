package domain

import (
	"encoding/json"
	"strings"
)

// dataField is the server-sent event field carrying the message payload.
const dataField = "data:"

// ParseLine converts one wire line into a payload. It reports false when the
// line carries no event (empty or whitespace only, or a bare "data:" field).
//
// A leading "data:" field name and any whitespace after it are stripped before
// decoding. Lines that are not valid JSON are returned as raw payloads holding
// the trimmed text, so ParseLine never fails.
func ParseLine(raw string) (Payload, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Payload{}, false
	}
	if rest, ok := strings.CutPrefix(text, dataField); ok {
		text = strings.TrimSpace(rest)
		if text == "" {
			return Payload{}, false
		}
	}

	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return Payload{Kind: PayloadRaw, Value: text}, true
	}
	return Payload{Kind: PayloadStructured, Value: value}, true
}
