package v1

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stacklok/cmdb-registry-server/internal/api/common"
	"github.com/stacklok/cmdb-registry-server/internal/lock"
	"github.com/stacklok/cmdb-registry-server/internal/model"
	"github.com/stacklok/cmdb-registry-server/internal/service"
	"github.com/stacklok/cmdb-registry-server/internal/validators"
)

// Error kinds reported for failures that are not validation errors
const (
	KindBadRequest   = "bad-request"
	KindMissingName  = "missing-name"
	KindDecode       = "decode"
	KindNameMismatch = "name-mismatch"
	KindLocked       = "locked"
	KindNotFound     = "not-found"
	KindTimeout      = "timeout"
	KindInternal     = "internal"
)

// RetryAfterSeconds is advertised to clients that hit a held lock
const RetryAfterSeconds = "1"

// writeServiceError maps a service error onto its HTTP response.
// schemaName names the resource the request was serialised on.
func writeServiceError(w http.ResponseWriter, r *http.Request, schemaName string, err error) {
	var (
		schemaErr *validators.SchemaError
		entityErr *validators.EntityError
		decodeErr *model.DecodeError
	)

	switch {
	case errors.Is(err, lock.ErrLockContention):
		w.Header().Set("Retry-After", RetryAfterSeconds)
		common.WriteKindErrorResponse(w, common.ErrorResponse{
			Error: fmt.Sprintf("schema %s is locked", schemaName),
			Kind:  KindLocked,
		}, http.StatusServiceUnavailable)

	case errors.Is(err, model.ErrMissingName):
		common.WriteKindErrorResponse(w, common.ErrorResponse{
			Error: err.Error(),
			Kind:  KindMissingName,
			Field: "name",
		}, http.StatusBadRequest)

	case errors.As(err, &decodeErr):
		common.WriteKindErrorResponse(w, common.ErrorResponse{
			Error: decodeErr.Error(),
			Kind:  KindDecode,
			Field: decodeErr.Path,
		}, http.StatusBadRequest)

	case errors.As(err, &schemaErr):
		common.WriteKindErrorResponse(w, common.ErrorResponse{
			Error: schemaErr.Message,
			Kind:  string(schemaErr.Kind),
			Field: schemaErr.Field,
		}, http.StatusBadRequest)

	case errors.As(err, &entityErr):
		common.WriteKindErrorResponse(w, common.ErrorResponse{
			Error: entityErr.Message,
			Kind:  string(entityErr.Kind),
			Field: entityErr.Field,
		}, http.StatusBadRequest)

	case errors.Is(err, service.ErrSchemaNotFound), errors.Is(err, service.ErrEntityNotFound):
		common.WriteKindErrorResponse(w, common.ErrorResponse{
			Error: err.Error(),
			Kind:  KindNotFound,
		}, http.StatusNotFound)

	case errors.Is(err, context.DeadlineExceeded):
		slog.WarnContext(r.Context(), "Request timed out",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		common.WriteKindErrorResponse(w, common.ErrorResponse{
			Error: "request timed out",
			Kind:  KindTimeout,
		}, http.StatusGatewayTimeout)

	default:
		// Store and lock backend failures are not shown to clients
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"schema", schemaName,
			"error", err)
		common.WriteKindErrorResponse(w, common.ErrorResponse{
			Error: "internal server error",
			Kind:  KindInternal,
		}, http.StatusInternalServerError)
	}
}

func writeBadRequest(w http.ResponseWriter, kind, message string) {
	common.WriteKindErrorResponse(w, common.ErrorResponse{Error: message, Kind: kind}, http.StatusBadRequest)
}
