package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mattdomit/dotted-sub000/internal/orchestrator"
)

const (
	reasonUnknownPhase      = "unknown_phase"
	reasonNotFound          = "not_found"
	reasonInvalidTransition = "invalid_transition"
	reasonInProgress        = "transition_in_progress"
	reasonPrecondition      = "precondition_failed"
	reasonSuggestionFailed  = "suggestion_failed"
	reasonInternal          = "internal"
)

// classify maps orchestrator failures to an HTTP status and a reason tag.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, orchestrator.ErrUnknownPhase):
		return http.StatusBadRequest, reasonUnknownPhase
	case orchestrator.IsNotFound(err):
		return http.StatusNotFound, reasonNotFound
	case errors.Is(err, orchestrator.ErrInvalidTransition):
		return http.StatusConflict, reasonInvalidTransition
	case errors.Is(err, orchestrator.ErrTransitionInProgress):
		return http.StatusConflict, reasonInProgress
	case orchestrator.IsPrecondition(err):
		return http.StatusUnprocessableEntity, reasonPrecondition
	case errors.Is(err, orchestrator.ErrSuggestionFailed):
		return http.StatusBadGateway, reasonSuggestionFailed
	default:
		return http.StatusInternalServerError, reasonInternal
	}
}

func writeError(c *gin.Context, err error) {
	status, reason := classify(err)
	Fail(c, status, reason, err.Error(), nil)
}
