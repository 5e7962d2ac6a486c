package types

// Event is the structured payload emitted by a state transition. Attribute
// values are pre-rendered strings so the payload can be journaled or served
// over the wire without further conversion.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
