// Package httputil maps domain errors onto HTTP responses with a consistent
// JSON error envelope.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "trailguard/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes the request body into T. Malformed JSON is answered
// with a bad_request envelope; the second return reports whether decoding
// succeeded.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed JSON body"))
		return v, false
	}
	return v, true
}

// WriteError translates a domain error into an HTTP response. Internal and
// unavailable errors suppress the description so infrastructure detail never
// reaches clients; client errors echo their message as error_description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	body := map[string]string{"error": string(code)}
	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		body["error"] = "internal_error"
	default:
		if msg := dErrors.Message(err); msg != "" {
			body["error_description"] = msg
		}
	}

	WriteJSON(w, statusFor(code), body)
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
