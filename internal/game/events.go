package game

import "encoding/json"

// EventChannelCapacity bounds the global event channel between the game loop
// and the broadcast router.
const EventChannelCapacity = 250

// EventKind discriminates the global game events.
type EventKind string

const (
	EventGameStart    EventKind = "gamestart"
	EventPhaseChanged EventKind = "phasechanged"
	EventDataRequired EventKind = "datarequired"
)

// Event is a global occurrence emitted by the game loop and fanned out to
// every connected player.
type Event struct {
	Kind  EventKind
	Epoch int
	Phase int
}

// GameStartEvent marks the moment the required player count was reached.
func GameStartEvent() Event {
	return Event{Kind: EventGameStart}
}

// PhaseChangedEvent carries the counters as they stand after a phase advance.
func PhaseChangedEvent(epoch, phase int) Event {
	return Event{Kind: EventPhaseChanged, Epoch: epoch, Phase: phase}
}

// DataRequiredEvent asks connected players to submit data for the given
// phase. Nothing emits it automatically yet; the trigger policy is an open
// question inherited from the game design.
func DataRequiredEvent(epoch, phase int) Event {
	return Event{Kind: EventDataRequired, Epoch: epoch, Phase: phase}
}

type phaseTarget struct {
	Epoch int `json:"epoch"`
	Phase int `json:"phase"`
}

type taggedEvent struct {
	Type   EventKind    `json:"type"`
	Target *phaseTarget `json:"target,omitempty"`
}

// MarshalJSON renders the event in its tagged wire form, e.g.
// {"type":"phasechanged","target":{"epoch":2,"phase":1}}. GameStart carries
// no target.
func (e Event) MarshalJSON() ([]byte, error) {
	out := taggedEvent{Type: e.Kind}
	if e.Kind != EventGameStart {
		out.Target = &phaseTarget{Epoch: e.Epoch, Phase: e.Phase}
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores an event from its tagged wire form.
func (e *Event) UnmarshalJSON(data []byte) error {
	var in taggedEvent
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.Kind = in.Type
	e.Epoch = 0
	e.Phase = 0
	if in.Target != nil {
		e.Epoch = in.Target.Epoch
		e.Phase = in.Target.Phase
	}
	return nil
}

// Delivery is a per-player envelope around a global event. The player name is
// delivery bookkeeping only and never repeated on the wire.
type Delivery struct {
	Player string
	Event  Event
}

// Frame is the outbound wire frame sent to a player.
type Frame struct {
	Type   string `json:"type"`
	Target Event  `json:"target"`
}

// Frame wraps the delivered event in the outbound broadcast envelope.
func (d Delivery) Frame() Frame {
	return Frame{Type: "broadcast", Target: d.Event}
}
