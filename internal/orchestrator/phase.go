package orchestrator

import (
	"fmt"
	"strings"

	"github.com/mattdomit/dotted-sub000/internal/models"
)

var transitions = map[string][]string{
	models.PhaseSuggesting: {models.PhaseVoting, models.PhaseCancelled},
	models.PhaseVoting:     {models.PhaseBidding, models.PhaseCancelled},
	models.PhaseBidding:    {models.PhaseSourcing, models.PhaseCancelled},
	models.PhaseSourcing:   {models.PhaseOrdering, models.PhaseCancelled},
	models.PhaseOrdering:   {models.PhaseCompleted, models.PhaseCancelled},
}

var phases = []string{
	models.PhaseSuggesting,
	models.PhaseVoting,
	models.PhaseBidding,
	models.PhaseSourcing,
	models.PhaseOrdering,
	models.PhaseCompleted,
	models.PhaseCancelled,
}

// ParsePhase normalizes a phase name and rejects unknown ones.
func ParsePhase(s string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(s))
	for _, known := range phases {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}

func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func NextPhases(from string) []string {
	return append([]string(nil), transitions[from]...)
}

func IsTerminal(phase string) bool {
	return phase == models.PhaseCompleted || phase == models.PhaseCancelled
}
