package monoprice

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/pior/monoprice/protocol"
)

// DefaultTimeout bounds a whole exchange, from writing the request to the last expected marker.
const DefaultTimeout = 2 * time.Second

// Session runs request/response exchanges over one serial port.
//
// Exchanges never overlap on the wire: concurrent callers are serialized by the
// session and each one gets the response to its own request.
type Session interface {
	// Exchange writes request and accumulates the response until the completion
	// rule is met or the session timeout expires.
	Exchange(ctx context.Context, request []byte, until protocol.Completion) (string, error)

	// ExchangeAll runs the requests in order without letting another caller's
	// exchange in between. It stops at the first failure and returns the
	// responses received so far with the error.
	ExchangeAll(ctx context.Context, requests [][]byte, until protocol.Completion) ([]string, error)

	// Close releases the port. Exchanges after Close return protocol.ErrSessionClosed.
	Close() error

	// Stats returns a snapshot of the session counters.
	Stats() SessionStats

	// Name identifies the port in logs and circuit breakers.
	Name() string
}

// Config holds the settings shared by sessions and clients.
// The zero value is usable.
type Config struct {
	// Timeout is the fixed budget of one exchange.
	// Zero means DefaultTimeout.
	Timeout time.Duration

	// Mode is the serial line setting.
	// If nil, DefaultMode is used.
	Mode *serial.Mode

	// PortFactory opens the port.
	// If nil, DefaultPortFactory is used.
	PortFactory PortFactory

	// NewCircuitBreaker creates a circuit breaker for a port.
	// Called once per client with the port name.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(port string) CircuitBreaker

	// Logger receives the exchange trace.
	// If nil, the global zerolog logger is used.
	Logger *zerolog.Logger
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c Config) mode() *serial.Mode {
	if c.Mode == nil {
		mode := DefaultMode
		return &mode
	}
	return c.Mode
}

func (c Config) portFactory() PortFactory {
	if c.PortFactory == nil {
		return DefaultPortFactory
	}
	return c.PortFactory
}

func (c Config) logger() zerolog.Logger {
	if c.Logger == nil {
		return log.Logger
	}
	return *c.Logger
}

// prepare clears stale input and writes the request.
func prepare(port Port, request []byte) error {
	if err := port.ResetInputBuffer(); err != nil {
		return &protocol.ConnectionError{Op: "reset", Err: err}
	}
	if _, err := port.Write(request); err != nil {
		return &protocol.ConnectionError{Op: "write", Err: err}
	}
	return nil
}

func isTimeout(err error) bool {
	return errors.Is(err, protocol.ErrTimeout)
}

func traceRequest(logger *zerolog.Logger, name string, request []byte) {
	logger.Debug().Str("port", name).Bytes("request", request).Msg("sent")
}

func traceResponse(logger *zerolog.Logger, name string, request []byte, response []byte, elapsed time.Duration) {
	logger.Debug().
		Str("port", name).
		Bytes("request", request).
		Bytes("response", response).
		Dur("elapsed", elapsed).
		Msg("received")
}

func traceTimeout(logger *zerolog.Logger, name string, err *protocol.TimeoutError) {
	logger.Error().
		Str("port", name).
		Bytes("request", err.Request).
		Bytes("received", err.Received).
		Stringer("want", err.Want).
		Msg("timeout waiting for response")
}
