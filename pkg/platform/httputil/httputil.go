// Package httputil maps coded domain errors onto HTTP responses and
// provides the JSON response helpers shared by all handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "medledger/pkg/domain-errors"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// statusOf maps domain error codes onto HTTP statuses. Insufficient funds
// surfaces as 402 so ledger rejections are distinguishable from validation
// failures.
func statusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeInvariantViolation:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorToken renders the code as a stable wire token.
func errorToken(code dErrors.Code) string {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return "bad_request"
	case dErrors.CodeUnauthorized:
		return "unauthorized"
	case dErrors.CodeInsufficientFunds:
		return "insufficient_balance"
	case dErrors.CodeForbidden:
		return "forbidden"
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeConflict, dErrors.CodeInvariantViolation:
		return "conflict"
	default:
		return "internal_error"
	}
}

// WriteError renders a coded error as JSON. Internal errors omit the
// description so infrastructure details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: errorToken(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusOf(code))
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSON renders v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
