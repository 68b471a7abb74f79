package types

import (
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

// EventPrefix is prepended to every event type emitted by a contract
const EventPrefix = "wasm-"

// NewEvent builds an indexed event from alternating key/value pairs
func NewEvent(action string, kv ...string) abcitypes.Event {
	attrs := []abcitypes.EventAttribute{{Key: "action", Value: action, Index: true}}
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, abcitypes.EventAttribute{Key: kv[i], Value: kv[i+1], Index: true})
	}
	return abcitypes.Event{Type: EventPrefix + action, Attributes: attrs}
}

// Attribute returns the value of the first attribute named key
func Attribute(ev abcitypes.Event, key string) (string, bool) {
	for _, attr := range ev.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}
