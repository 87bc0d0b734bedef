package web

import (
	"github.com/solar3s/tivalink/tiva"
)

const (
	EventTelemetry = "telemetry"
	EventError     = "error"
	EventState     = "state"
)

// Event is what websocket subscribers receive.
type Event struct {
	Type      string
	Telemetry *tiva.Telemetry `json:",omitempty"`
	Message   string          `json:",omitempty"`
	State     tiva.State
	Port      string `json:",omitempty"`
}

func telemetryEvent(t tiva.Telemetry, st tiva.State, port string) Event {
	return Event{Type: EventTelemetry, Telemetry: &t, State: st, Port: port}
}

func errorEvent(message string, st tiva.State, port string) Event {
	return Event{Type: EventError, Message: message, State: st, Port: port}
}

func stateEvent(st tiva.State, port string) Event {
	return Event{Type: EventState, State: st, Port: port}
}
