package monoprice

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pior/monoprice/internal/syncutil"
	"github.com/pior/monoprice/protocol"
)

// BlockingSession runs exchanges with synchronous reads on the calling goroutine.
//
// A mutex is held for the whole exchange, so callers queue behind each other.
// A context deadline shortens the read timeout. Cancellation without a
// deadline is checked between reads.
type BlockingSession struct {
	name    string
	port    Port
	timeout time.Duration
	logger  zerolog.Logger
	stats   *sessionStatsCollector

	mu     syncutil.Mutex
	closed bool
}

var _ Session = (*BlockingSession)(nil)

// NewBlockingSession creates a session over an already opened port.
// name identifies the port in logs.
func NewBlockingSession(port Port, name string, cfg Config) *BlockingSession {
	s := &BlockingSession{
		name:    name,
		port:    port,
		timeout: cfg.timeout(),
		logger:  cfg.logger().With().Str("session", "blocking").Logger(),
		stats:   newSessionStatsCollector(),
	}
	s.stats.recordConnect()
	return s
}

// OpenBlocking opens the serial port at path and creates a BlockingSession over it.
func OpenBlocking(path string, cfg Config) (*BlockingSession, error) {
	port, err := cfg.portFactory()(path, cfg.mode())
	if err != nil {
		return nil, &protocol.ConnectionError{Op: "open", Err: err}
	}
	return NewBlockingSession(port, path, cfg), nil
}

// Exchange implements Session.
func (s *BlockingSession) Exchange(ctx context.Context, request []byte, until protocol.Completion) (string, error) {
	resps, err := s.ExchangeAll(ctx, [][]byte{request}, until)
	if err != nil {
		return "", err
	}
	return resps[0], nil
}

// ExchangeAll implements Session.
func (s *BlockingSession) ExchangeAll(ctx context.Context, requests [][]byte, until protocol.Completion) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, protocol.ErrSessionClosed
	}

	resps := make([]string, 0, len(requests))
	for _, request := range requests {
		if err := ctx.Err(); err != nil {
			return resps, err
		}

		start := time.Now()
		resp, err := s.exchange(ctx, request, until)
		s.stats.recordExchange(len(request), len(resp), time.Since(start), err)
		if err != nil {
			return resps, err
		}

		traceResponse(&s.logger, s.name, request, resp, time.Since(start))
		resps = append(resps, string(resp))
	}
	return resps, nil
}

// exchange must be called with the lock held.
func (s *BlockingSession) exchange(ctx context.Context, request []byte, until protocol.Completion) ([]byte, error) {
	if err := prepare(s.port, request); err != nil {
		return nil, err
	}
	traceRequest(&s.logger, s.name, request)

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var buf []byte
	var cur protocol.Cursor
	chunk := make([]byte, max(1, until.Size()))

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			if err := ctx.Err(); err != nil {
				return buf, err
			}
			return buf, s.timedOut(request, buf, until)
		}
		if err := s.port.SetReadTimeout(remaining); err != nil {
			return buf, &protocol.ConnectionError{Op: "read", Err: err}
		}

		// Marker completions read one byte at a time so nothing past the
		// last marker is consumed.
		want := 1
		if size := until.Size(); size > 0 {
			want = size - len(buf)
		}

		n, err := s.port.Read(chunk[:want])
		if err != nil {
			return buf, &protocol.ConnectionError{Op: "read", Err: err}
		}
		if n == 0 {
			if err := ctx.Err(); err != nil {
				return buf, err
			}
			return buf, s.timedOut(request, buf, until)
		}

		buf = append(buf, chunk[:n]...)

		var done bool
		if cur, done = until.Advance(buf, cur); done {
			return buf, nil
		}
		if err := ctx.Err(); err != nil {
			return buf, err
		}
	}
}

func (s *BlockingSession) timedOut(request, received []byte, until protocol.Completion) error {
	err := &protocol.TimeoutError{Request: request, Received: received, Want: until}
	traceTimeout(&s.logger, s.name, err)
	return err
}

// Close closes the port. It waits for an exchange in progress.
func (s *BlockingSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.stats.recordDisconnect()
	return s.port.Close()
}

// Stats returns a snapshot of the session counters.
func (s *BlockingSession) Stats() SessionStats {
	return s.stats.snapshot()
}

// Name returns the port name.
func (s *BlockingSession) Name() string {
	return s.name
}
