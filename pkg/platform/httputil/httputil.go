// Package httputil centralizes the JSON response envelope so every handler
// answers with the same shape: {success, message, data?, error?{code, details}}.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	domerrors "roamly/pkg/domain-errors"
)

// Response is the envelope shared by every endpoint.
type Response struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// ErrorBody carries the stable machine-readable code plus optional details.
type ErrorBody struct {
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

// Pagination describes list responses. Total is surfaced under a
// resource-specific key (totalUsers, totalPlans, ...) chosen by the handler.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	Total       int64 `json:"-"`
	Limit       int   `json:"limit"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination derives page metadata from a total row count.
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		Total:       total,
		Limit:       limit,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// WriteJSON writes a success envelope.
func WriteJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteError translates a domain error into the envelope. Operational errors
// surface code and message verbatim; anything else becomes a generic internal
// error so programming failures never leak details to callers.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := domerrors.CodeOf(err)
	message := "internal server error"
	var details map[string]string
	if domerrors.IsOperational(err) {
		if de, ok := err.(*domerrors.Error); ok {
			message = de.Message
			details = de.Details
		}
	} else if logger != nil {
		logger.Error("unhandled internal error", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(domerrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(Response{
		Success: false,
		Message: message,
		Error: &ErrorBody{
			Code:    string(code),
			Details: details,
		},
	})
}

// DecodeJSON decodes a request body, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domerrors.Wrap(err, domerrors.CodeValidation, "invalid request body")
	}
	return nil
}
