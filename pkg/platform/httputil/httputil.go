// Package httputil holds the JSON read/write helpers shared by every HTTP
// handler.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "vendorhub/pkg/domain-errors"
	"vendorhub/pkg/platform/sentinel"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError maps err to an HTTP status and writes the uniform error body.
// Internal failures never leak their message to the client.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(normalize(err))
	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// normalize lifts store sentinels that escaped without a domain wrapper.
func normalize(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "resource not found")
	case errors.Is(err, sentinel.ErrAlreadyExists):
		return dErrors.Wrap(err, dErrors.CodeConflict, "resource already exists")
	default:
		return err
	}
}

// Decode reads a JSON request body into T with a size cap. A failure writes
// the bad-request response itself; callers just return on !ok.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var req T
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if err != io.EOF {
			logger.WarnContext(r.Context(), "request decode failed", "error", err)
			WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
			return req, false
		}
	}
	return req, true
}
