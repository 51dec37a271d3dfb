package errors

import "net/http"

var (
	ErrServiceNotFound = New(
		"SERVICE_NOT_FOUND",
		"Service not found",
		http.StatusNotFound,
	)

	ErrScheduleNotFound = New(
		"SCHEDULE_NOT_FOUND",
		"Schedule entry not found",
		http.StatusNotFound,
	)

	ErrNotEligible = New(
		"NOT_ELIGIBLE",
		"Service is not a return trip",
		http.StatusUnprocessableEntity,
	)

	ErrStatusBlocked = New(
		"STATUS_BLOCKED",
		"Service status does not allow rerouting",
		http.StatusUnprocessableEntity,
	)

	ErrUpstreamError = New(
		"UPSTREAM_ERROR",
		"Routing or expedition service failed",
		http.StatusBadGateway,
	)

	ErrAlreadyExecuted = New(
		"ALREADY_EXECUTED",
		"Schedule entry already executed",
		http.StatusConflict,
	)

	ErrPersistenceFailure = New(
		"PERSISTENCE_FAILURE",
		"Failed to persist schedule entry",
		http.StatusInternalServerError,
	)

	ErrInvalidPolicy = New(
		"INVALID_POLICY",
		"Route policy is malformed",
		http.StatusInternalServerError,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Database operation failed",
		http.StatusInternalServerError,
	)

	ErrCacheError = New(
		"CACHE_ERROR",
		"Cache operation failed",
		http.StatusInternalServerError,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
