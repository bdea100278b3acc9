package orchestrator

import (
	"errors"

	"github.com/mattdomit/dotted-sub000/internal/bidding"
	"github.com/mattdomit/dotted-sub000/internal/sourcing"
)

var (
	// ErrInvalidTransition is returned when the target phase is not reachable
	// from the cycle's current phase. Nothing has been changed.
	ErrInvalidTransition = errors.New("orchestrator: invalid phase transition")
	// ErrTransitionInProgress is returned when another transition of the same
	// cycle holds the lock, or won the race to commit.
	ErrTransitionInProgress = errors.New("orchestrator: transition already in progress")
	ErrCycleNotFound        = errors.New("orchestrator: cycle not found")
	ErrZoneNotFound         = errors.New("orchestrator: zone not found")
	ErrNoDishes             = errors.New("orchestrator: cycle has no dishes")
	ErrNoViableDishes       = errors.New("orchestrator: no suggested dish fits the zone")
	ErrSuggestionFailed     = errors.New("orchestrator: dish suggestion failed")
	ErrUnknownPhase         = errors.New("orchestrator: unknown phase")

	ErrNoPendingBids = bidding.ErrNoPendingBids
	ErrNoWinningDish = sourcing.ErrNoWinningDish
)

// IsPrecondition reports whether err means the cycle lacks the data a
// transition needs.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNoDishes) ||
		errors.Is(err, ErrNoViableDishes) ||
		errors.Is(err, ErrNoPendingBids) ||
		errors.Is(err, ErrNoWinningDish) ||
		errors.Is(err, sourcing.ErrAlreadySourced)
}

// IsNotFound reports whether err refers to a missing cycle or zone.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCycleNotFound) ||
		errors.Is(err, ErrZoneNotFound) ||
		errors.Is(err, bidding.ErrCycleNotFound) ||
		errors.Is(err, sourcing.ErrCycleNotFound)
}
