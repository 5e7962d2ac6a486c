package events

// Event represents a structured state change emitted by the market core.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (journals, metrics,
// gateways). Implementations must not call back into the component that
// emitted the event.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default wired into engines so event emission is always optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// MultiEmitter fans a single event stream out to several downstream emitters
// in order. A nil entry is skipped.
type MultiEmitter []Emitter

// Emit implements the Emitter interface.
func (m MultiEmitter) Emit(evt Event) {
	for _, emitter := range m {
		if emitter == nil {
			continue
		}
		emitter.Emit(evt)
	}
}
