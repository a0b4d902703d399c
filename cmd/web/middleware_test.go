package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/myrjola/liftlog/internal/presets"
	"github.com/myrjola/liftlog/internal/session"
	"github.com/myrjola/liftlog/internal/testhelpers"
	"github.com/myrjola/liftlog/internal/workout"
)

type timeoutResponseWriter struct {
	httptest.ResponseRecorder
}

func newTimeoutResponseWriter() *timeoutResponseWriter {
	return &timeoutResponseWriter{
		ResponseRecorder: *httptest.NewRecorder(),
	}
}

// SetWriteDeadline is needed to not get "feature not implemented" error.
func (w *timeoutResponseWriter) SetWriteDeadline(_ time.Time) error {
	return nil
}

func sleepHandler(sleep time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(sleep)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"sleptMs":%d}`, sleep.Milliseconds())
	})
}

func Test_application_timeout(t *testing.T) {
	tests := []struct {
		name     string
		sleepMS  int
		slow     bool
		timesOut bool
	}{
		{
			name:     "completes within timeout",
			sleepMS:  500,
			slow:     false,
			timesOut: false,
		},
		{
			name:     "times out",
			sleepMS:  3000,
			slow:     false,
			timesOut: true,
		},
		{
			name:     "export gets longer timeout",
			sleepMS:  28000,
			slow:     true,
			timesOut: false,
		},
		{
			name:     "export times out",
			sleepMS:  31000,
			slow:     true,
			timesOut: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				app := &application{ //nolint:exhaustruct // this is a test
					logger: testhelpers.NewLogger(testhelpers.NewWriter(t)),
				}
				sleep := time.Duration(tt.sleepMS) * time.Millisecond
				handler := app.timeout(sleepHandler(sleep))
				if tt.slow {
					handler = app.slowTimeout(sleepHandler(sleep))
				}

				req := httptest.NewRequest(http.MethodGet, "/api/export", nil)
				w := newTimeoutResponseWriter()

				handler.ServeHTTP(w, req)

				time.Sleep(sleep)

				if tt.timesOut {
					if w.Code != http.StatusServiceUnavailable {
						t.Errorf("Expected status 503 on timeout, got %d", w.Code)
					}
					if !strings.Contains(w.Body.String(), "timed out") {
						t.Errorf("Expected timeout message in response body, got: %s", w.Body.String())
					}
				} else if w.Code != http.StatusOK {
					t.Errorf("Expected status 200, got %d", w.Code)
				}
			})
		})
	}
}

func Test_recoverPanic(t *testing.T) {
	app := &application{ //nolint:exhaustruct // this is a test
		logger: testhelpers.NewLogger(testhelpers.NewWriter(t)),
	}
	handler := app.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/healthy", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	if got, want := w.Header().Get("Content-Type"), "application/json"; got != want {
		t.Errorf("Expected content type %q, got %q", want, got)
	}
}

func Test_statusFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid input", err: fmt.Errorf("wrap: %w", workout.ErrInvalidInput), want: http.StatusBadRequest},
		{name: "not found", err: fmt.Errorf("wrap: %w", presets.ErrUnknownPreset), want: http.StatusNotFound},
		{name: "conflict", err: fmt.Errorf("wrap: %w", session.ErrSessionActive), want: http.StatusConflict},
		{name: "unknown", err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}
