package handler

// RESPONSE HELPERS:
// Every handler ends in exactly one of these calls, so each request gets
// exactly one response write.
//
// RESPONSE SHAPES:
//   - request validation failure → 400 {"errors": [ValidationError...]}
//   - credential failure         → 400 {"error": "..."}
//   - storage/model failure      → apperror.Translate → {"message","type","data"}

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/chatapp/internal/apperror"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 100 << 10

// errorBody is the {"error": "..."} shape used for credential failures.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body; once Encode writes, the
// headers are gone.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeTranslated sends err through the Error Translator. Server-side
// failures are logged; their details still reach the client in "message",
// as the translator defines.
func writeTranslated(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, body := apperror.Translate(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("type", body.Type), slog.Any("error", err))
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a JSON body of at most maxBodyBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeMalformedBody(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, validationErrors{Errors: []ValidationError{{
		Type:     "body",
		Msg:      "Request body must be a JSON object",
		Location: "body",
	}}})
}
