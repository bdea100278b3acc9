// Package events delivers cycle phase changes to websocket clients and to
// the configured message sinks. Delivery is best-effort.
package events

import (
	"context"
	"encoding/json"
	"time"
)

const TypePhaseChanged = "cycle.phase_changed"

// PhaseChanged is published after a cycle has committed a new phase.
type PhaseChanged struct {
	Type          string    `json:"type"`
	CycleID       string    `json:"cycle_id"`
	ZoneID        string    `json:"zone_id"`
	Phase         string    `json:"phase"`
	PreviousPhase string    `json:"previous_phase"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (e PhaseChanged) Payload() ([]byte, error) {
	if e.Type == "" {
		e.Type = TypePhaseChanged
	}
	return json.Marshal(e)
}

// Publisher sends one event to one sink.
type Publisher interface {
	Publish(ctx context.Context, evt PhaseChanged) error
}

type PublisherFunc func(ctx context.Context, evt PhaseChanged) error

func (f PublisherFunc) Publish(ctx context.Context, evt PhaseChanged) error {
	return f(ctx, evt)
}
