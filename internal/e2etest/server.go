package e2etest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/liftlog/internal/logging"
)

// LogAddrKey is the attribute the server logs its listen address under once it accepts connections.
const LogAddrKey = "addr"

// RunFunc matches the signature of the application's run function.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

// Server is a running application under test.
type Server struct {
	client *Client
	stop   context.CancelCauseFunc
	done   chan struct{}
}

// StartServer runs the application in a goroutine and returns once /api/healthy answers.
//
// Logs go to logSink, usually testhelpers.NewWriter(t). The listen address is picked up from the LogAddrKey log
// attribute so lookupEnv can ask for localhost:0. The server is shut down when the test finishes.
func StartServer(t *testing.T, logSink io.Writer, lookupEnv func(string) (string, bool), run RunFunc) (*Server, error) {
	ctx, stop := context.WithCancelCause(t.Context())
	srv := &Server{client: nil, stop: stop, done: make(chan struct{})}
	t.Cleanup(srv.Shutdown)

	addrs := make(chan string, 1)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == LogAddrKey {
				select {
				case addrs <- a.Value.String():
				default:
				}
			}
			return a
		},
	})))

	go func() {
		defer close(srv.done)
		if err := run(ctx, logger, lookupEnv); err != nil {
			stop(err)
		}
	}()

	var addr string
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("server exited before listening: %w", context.Cause(ctx))
	case addr = <-addrs:
	}

	srv.client = NewClient("http://" + addr)
	if err := srv.client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return nil, fmt.Errorf("wait for ready: %w", err)
	}
	return srv, nil
}

// Client returns a client pointed at the server.
func (s *Server) Client() *Client {
	return s.client
}

// Shutdown cancels the run context and waits for run to return. It is safe to call more than once.
func (s *Server) Shutdown() {
	s.stop(nil)
	<-s.done
}
