package events

// Event represents a structured state change emitted by the engine.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers,
// audit sinks). Events are append-only: the engine never rewrites or retracts
// a published record.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// RecordingEmitter retains every emitted event in order. Tests assert against
// the recorded sequence to verify the audit trail.
type RecordingEmitter struct {
	events []Event
}

// Emit implements the Emitter interface.
func (r *RecordingEmitter) Emit(evt Event) {
	if r == nil || evt == nil {
		return
	}
	r.events = append(r.events, evt)
}

// Events returns a copy of the recorded sequence.
func (r *RecordingEmitter) Events() []Event {
	if r == nil {
		return nil
	}
	return append([]Event{}, r.events...)
}

// Reset discards all recorded events.
func (r *RecordingEmitter) Reset() {
	if r == nil {
		return
	}
	r.events = nil
}
