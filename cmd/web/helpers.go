package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/myrjola/liftlog/internal/errors"
	"github.com/myrjola/liftlog/internal/presets"
	"github.com/myrjola/liftlog/internal/session"
	"github.com/myrjola/liftlog/internal/workout"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

const dateLayout = "2006-01-02"

type errorBody struct {
	Error string `json:"error"`
}

func (app *application) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.logger.LogAttrs(r.Context(), slog.LevelError, "encode response", errors.SlogError(err))
	}
}

// readJSON decodes the request body into dst rejecting unknown fields. An empty body leaves dst untouched.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: decode body: %w", workout.ErrInvalidInput, err)
	}
	return nil
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.LogAttrs(r.Context(), slog.LevelError, "server error", errors.SlogError(err))
	app.writeJSON(w, r, http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)})
}

// fail maps domain errors to status codes. Unknown errors are logged and reported as 500.
func (app *application) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		app.serverError(w, r, err)
		return
	}
	app.logger.LogAttrs(r.Context(), slog.LevelDebug, "request rejected",
		slog.Int("status_code", status), slog.String("reason", err.Error()))
	app.writeJSON(w, r, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workout.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, workout.ErrNotFound),
		errors.Is(err, session.ErrNoSession),
		errors.Is(err, presets.ErrUnknownPreset):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionActive),
		errors.Is(err, session.ErrTimerNotCounting),
		errors.Is(err, session.ErrNotRunning),
		errors.Is(err, session.ErrPaused),
		errors.Is(err, session.ErrNotPaused),
		errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, session.ErrNoCurrentExercise):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, r, http.StatusNotFound, errorBody{Error: http.StatusText(http.StatusNotFound)})
}

// parseDate parses a calendar date in the server's location.
func parseDate(s string) (time.Time, error) {
	date, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", workout.ErrInvalidInput, s)
	}
	return date, nil
}

// parseIntParam parses the named path parameter.
func parseIntParam(r *http.Request, name string) (int, error) {
	n, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not a number", workout.ErrInvalidInput, name)
	}
	return n, nil
}
