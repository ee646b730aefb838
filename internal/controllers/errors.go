package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/openarchive/reviewflow/internal/engine"
)

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
// Contention surfaces as 409 so clients re-fetch their task list instead
// of treating it as a failure.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var roleErr *engine.RoleResolutionError
	switch {
	case errors.Is(err, engine.ErrAlreadyClaimed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrNotEligible),
		errors.Is(err, engine.ErrUnauthorizedTransition):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, engine.ErrNoSuchPoolTask):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrUnknownStep),
		errors.Is(err, engine.ErrUnknownAction),
		errors.Is(err, engine.ErrUnknownOutcome):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &roleErr):
		slog.ErrorContext(r.Context(), "Role resolution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		slog.ErrorContext(r.Context(), "Workflow operation failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
