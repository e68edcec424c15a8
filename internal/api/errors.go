package api

import (
	"errors"
	"net/http"

	"github.com/peerlink/backend/internal/domain"
	"github.com/peerlink/backend/pkg/response"
	"go.uber.org/zap"
)

// writeError maps a service error onto the response taxonomy. Store failures
// are logged; caller mistakes are not.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, "record not found")
	case errors.Is(err, domain.ErrDuplicateRequest):
		response.DuplicateRequest(w, "a connection request already exists for this pair")
	case errors.Is(err, domain.ErrSelfRequest):
		response.BadRequest(w, "cannot connect with yourself")
	case errors.Is(err, domain.ErrInvalidInput):
		response.BadRequest(w, "invalid input")
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(w, "not allowed")
	case errors.Is(err, domain.ErrNotPending):
		response.Conflict(w, "connection request is no longer pending")
	case errors.Is(err, domain.ErrStoreUnavailable):
		logger.Error(op, zap.Error(err))
		response.Unavailable(w, "service temporarily unavailable, please retry")
	default:
		logger.Error(op, zap.Error(err))
		response.InternalError(w, "internal server error")
	}
}

func writeValidation(w http.ResponseWriter, errs error) {
	response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", errs.Error())
}
