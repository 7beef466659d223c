package monoprice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/rs/zerolog"

	"github.com/pior/monoprice/protocol"
)

const (
	// pumpPollInterval is the read timeout of the pump, so it notices a stop request.
	pumpPollInterval = 100 * time.Millisecond

	inboundQueueSize = 16
	pumpChunkSize    = 64
)

// AsyncSession runs exchanges against a port that is opened in the background
// and read by a dedicated goroutine.
//
// The gate is a puddle pool holding at most one open port. Acquiring it is
// context aware, so callers are suspended while the port is opening and while
// another exchange is in flight, and give up when their context is done.
// An I/O failure destroys the port and the next exchange opens a new one.
type AsyncSession struct {
	name    string
	timeout time.Duration
	logger  zerolog.Logger
	stats   *sessionStatsCollector

	pool      *puddle.Pool[*link]
	connected chan struct{}
	once      sync.Once
	closed    atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ Session = (*AsyncSession)(nil)

// NewAsyncSession creates a session for the serial port at path and starts
// opening it in the background.
//
// Opening failures are not returned here: the next exchange retries and
// reports them as *protocol.ConnectionError.
func NewAsyncSession(path string, cfg Config) (*AsyncSession, error) {
	s := &AsyncSession{
		name:      path,
		timeout:   cfg.timeout(),
		logger:    cfg.logger().With().Str("session", "async").Logger(),
		stats:     newSessionStatsCollector(),
		connected: make(chan struct{}),
	}

	open := cfg.portFactory()
	mode := cfg.mode()

	pool, err := puddle.NewPool(&puddle.Config[*link]{
		Constructor: func(ctx context.Context) (*link, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			port, err := open(path, mode)
			if err != nil {
				s.logger.Warn().Err(err).Str("port", path).Msg("failed to open port")
				return nil, &protocol.ConnectionError{Op: "open", Err: err}
			}
			if err := port.SetReadTimeout(pumpPollInterval); err != nil {
				_ = port.Close()
				return nil, &protocol.ConnectionError{Op: "open", Err: err}
			}

			s.stats.recordConnect()
			s.once.Do(func() { close(s.connected) })
			s.logger.Info().Str("port", path).Msg("port opened")
			return newLink(port), nil
		},
		Destructor: func(l *link) {
			s.stats.recordDisconnect()
			l.close()
			s.logger.Debug().Str("port", path).Msg("port closed")
		},
		MaxSize: 1,
	})
	if err != nil {
		return nil, err
	}
	s.pool = pool

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// An exchange may already be opening the port, in which case the pool is full.
		if err := pool.CreateResource(ctx); err != nil && !errors.Is(err, puddle.ErrNotAvailable) {
			s.logger.Debug().Err(err).Str("port", path).Msg("background open failed")
		}
	}()

	return s, nil
}

// Connected is closed once the port has been opened for the first time.
func (s *AsyncSession) Connected() <-chan struct{} {
	return s.connected
}

// Exchange implements Session.
func (s *AsyncSession) Exchange(ctx context.Context, request []byte, until protocol.Completion) (string, error) {
	resps, err := s.ExchangeAll(ctx, [][]byte{request}, until)
	if err != nil {
		return "", err
	}
	return resps[0], nil
}

// ExchangeAll implements Session. The port is held for the whole sequence.
func (s *AsyncSession) ExchangeAll(ctx context.Context, requests [][]byte, until protocol.Completion) ([]string, error) {
	if s.closed.Load() {
		return nil, protocol.ErrSessionClosed
	}

	res, err := s.pool.Acquire(ctx)
	if err != nil {
		if errors.Is(err, puddle.ErrClosedPool) {
			return nil, protocol.ErrSessionClosed
		}
		if protocol.ShouldCloseConnection(err) {
			s.stats.recordFailure(err)
		}
		return nil, err
	}

	resps := make([]string, 0, len(requests))
	for _, request := range requests {
		var resp string
		resp, err = s.exchangeOne(ctx, res.Value(), request, until)
		if err != nil {
			break
		}
		resps = append(resps, resp)
	}

	if protocol.ShouldCloseConnection(err) {
		s.logger.Warn().Err(err).Str("port", s.name).Msg("dropping port")
		res.Destroy()
	} else {
		res.Release()
	}
	return resps, err
}

func (s *AsyncSession) exchangeOne(ctx context.Context, l *link, request []byte, until protocol.Completion) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := s.exchange(ctx, l, request, until)
	s.stats.recordExchange(len(request), len(resp), time.Since(start), err)
	if err != nil {
		return "", err
	}

	traceResponse(&s.logger, s.name, request, resp, time.Since(start))
	return string(resp), nil
}

func (s *AsyncSession) exchange(ctx context.Context, l *link, request []byte, until protocol.Completion) ([]byte, error) {
	l.drain()
	if err := prepare(l.port, request); err != nil {
		return nil, err
	}
	traceRequest(&s.logger, s.name, request)

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	var buf []byte
	var cur protocol.Cursor

	for {
		select {
		case chunk := <-l.inbound:
			buf = append(buf, chunk...)

			var done bool
			if cur, done = until.Advance(buf, cur); done {
				return buf, nil
			}

		case <-timer.C:
			err := &protocol.TimeoutError{Request: request, Received: buf, Want: until}
			traceTimeout(&s.logger, s.name, err)
			return buf, err

		case <-l.done:
			return buf, &protocol.ConnectionError{Op: "read", Err: l.err}

		case <-ctx.Done():
			return buf, ctx.Err()
		}
	}
}

// Close closes the port and rejects further exchanges.
// It waits for an exchange in progress.
func (s *AsyncSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.cancel()
	s.wg.Wait()
	s.pool.Close()
	return nil
}

// Stats returns a snapshot of the session counters.
func (s *AsyncSession) Stats() SessionStats {
	return s.stats.snapshot()
}

// PoolStats returns a snapshot of the gate.
func (s *AsyncSession) PoolStats() PoolStats {
	return poolStats(s.pool.Stat())
}

// Name returns the port name.
func (s *AsyncSession) Name() string {
	return s.name
}

// link is an open port and the goroutine pumping its input.
type link struct {
	port    Port
	inbound chan []byte
	stop    chan struct{}
	done    chan struct{}
	err     error // read error that stopped the pump, valid once done is closed
}

func newLink(port Port) *link {
	l := &link{
		port:    port,
		inbound: make(chan []byte, inboundQueueSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.pump()
	return l
}

func (l *link) pump() {
	defer close(l.done)

	buf := make([]byte, pumpChunkSize)
	for {
		n, err := l.port.Read(buf)
		if err != nil {
			l.err = err
			return
		}

		if n == 0 {
			select {
			case <-l.stop:
				l.err = protocol.ErrSessionClosed
				return
			default:
				continue
			}
		}

		chunk := make([]byte, n)
		copy(chunk, buf[:n])

		select {
		case l.inbound <- chunk:
		case <-l.stop:
			l.err = protocol.ErrSessionClosed
			return
		}
	}
}

// drain discards input that arrived between exchanges.
func (l *link) drain() {
	for {
		select {
		case <-l.inbound:
		default:
			return
		}
	}
}

func (l *link) close() {
	close(l.stop)
	_ = l.port.Close()
	<-l.done
}
