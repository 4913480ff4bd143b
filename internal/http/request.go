package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-booking/internal/application"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst. On failure it answers 400 and
// returns false.
func (r responder) decodeJSON(w http.ResponseWriter, req *http.Request, logger *slog.Logger, dst any) bool {
	body := http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		logger.With("error_kind", "bad_request").ErrorContext(req.Context(), "failed to decode request body", "error", err)
		r.writeError(req.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	return true
}

// pathID returns the identifier withPathID stored on the context, or answers
// 400 with missing when it is absent or blank.
func (r responder) pathID(w http.ResponseWriter, req *http.Request, lookup func(context.Context) (string, bool), missing error) (string, bool) {
	id, ok := lookup(req.Context())
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		r.writeError(req.Context(), w, http.StatusBadRequest, missing)
		return "", false
	}
	return id, true
}

// fail logs a service error with its kind and writes the mapped response.
func (r responder) fail(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	logger.ErrorContext(ctx, msg, "error", err, "error_kind", application.ErrorKind(err))
	r.handleServiceError(ctx, w, err)
}

// unavailable guards handlers whose service was never wired.
func unavailable(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
