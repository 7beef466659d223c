package testutils

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// ErrPortClosed is returned by reads and writes on a closed AmplifierPort.
var ErrPortClosed = errors.New("testutils: port closed")

// AmplifierPort is a scripted serial port that emulates the amplifier.
//
// Responses are registered per request with Respond and consumed once each, in
// registration order. A request with no registered response is swallowed and
// the port stays silent, which is how timeouts are exercised.
//
// The port also records every complete request and counts overlaps: a request
// written while the response to the previous one has not been fully read.
type AmplifierPort struct {
	// MaxChunk limits the number of bytes returned by a single Read. Zero means no limit.
	MaxChunk int

	// Delay postpones the delivery of every response.
	Delay time.Duration

	// ByteInterval, when set, delivers responses one byte at a time with this
	// interval between bytes, starting after Delay.
	ByteInterval time.Duration

	// ReadError and WriteError are returned by Read and Write when set.
	ReadError  error
	WriteError error

	mu          sync.Mutex
	responses   map[string][]string
	pending     []byte // partial request being written
	readBuf     bytes.Buffer
	readTimeout time.Duration
	requests    []string
	unanswered  []string
	inFlight    int // response bytes queued or scheduled but not read yet
	overlaps    int
	resets      int
	closed      bool
	notify      chan struct{}
	done        chan struct{}
	timers      []*time.Timer
}

// NewAmplifierPort creates an AmplifierPort with no scripted responses.
func NewAmplifierPort() *AmplifierPort {
	return &AmplifierPort{
		responses: make(map[string][]string),
		notify:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Respond registers response as the answer to the next occurrence of request.
func (p *AmplifierPort) Respond(request, response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses[request] = append(p.responses[request], response)
}

// Inject makes data readable immediately, as if the amplifier sent it unprompted.
func (p *AmplifierPort) Inject(data string) {
	p.mu.Lock()
	p.readBuf.WriteString(data)
	p.mu.Unlock()
	p.signal()
}

// Remaining returns the number of registered responses not consumed yet.
func (p *AmplifierPort) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, r := range p.responses {
		n += len(r)
	}
	return n
}

// Requests returns every complete request received, in order.
func (p *AmplifierPort) Requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.requests...)
}

// Unanswered returns the requests that had no registered response.
func (p *AmplifierPort) Unanswered() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.unanswered...)
}

// Overlaps returns how many requests were written before the previous response was read.
func (p *AmplifierPort) Overlaps() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlaps
}

// Resets returns how many times the input buffer was reset.
func (p *AmplifierPort) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

// IsClosed returns true if the port has been closed.
func (p *AmplifierPort) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *AmplifierPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPortClosed
	}
	if p.WriteError != nil {
		return 0, p.WriteError
	}

	for _, c := range b {
		p.pending = append(p.pending, c)
		if c == '\r' {
			p.handleRequest(string(p.pending))
			p.pending = p.pending[:0]
		}
	}
	return len(b), nil
}

// handleRequest must be called with the lock held.
func (p *AmplifierPort) handleRequest(req string) {
	if p.inFlight > 0 {
		p.overlaps++
	}
	p.requests = append(p.requests, req)

	queue := p.responses[req]
	if len(queue) == 0 {
		p.unanswered = append(p.unanswered, req)
		return
	}

	resp := queue[0]
	if len(queue) == 1 {
		delete(p.responses, req)
	} else {
		p.responses[req] = queue[1:]
	}

	p.inFlight += len(resp)
	if p.Delay <= 0 && p.ByteInterval <= 0 {
		p.readBuf.WriteString(resp)
		p.signal()
		return
	}

	if p.ByteInterval <= 0 {
		p.deliverAfter(p.Delay, resp)
		return
	}
	for i := range len(resp) {
		p.deliverAfter(p.Delay+time.Duration(i)*p.ByteInterval, resp[i:i+1])
	}
}

// deliverAfter must be called with the lock held.
func (p *AmplifierPort) deliverAfter(d time.Duration, data string) {
	p.timers = append(p.timers, time.AfterFunc(d, func() {
		p.mu.Lock()
		if !p.closed {
			p.readBuf.WriteString(data)
		}
		p.mu.Unlock()
		p.signal()
	}))
}

func (p *AmplifierPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	timeout := p.readTimeout
	p.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return 0, ErrPortClosed
		}
		if p.ReadError != nil {
			err := p.ReadError
			p.mu.Unlock()
			return 0, err
		}
		if p.readBuf.Len() > 0 {
			limit := len(b)
			if p.MaxChunk > 0 {
				limit = min(limit, p.MaxChunk)
			}
			n, _ := p.readBuf.Read(b[:limit])
			p.inFlight = max(0, p.inFlight-n)
			p.mu.Unlock()
			return n, nil
		}
		p.mu.Unlock()

		// A serial port returns zero bytes and no error when the read timeout expires.
		select {
		case <-p.notify:
		case <-expired:
			return 0, nil
		case <-p.done:
			return 0, ErrPortClosed
		}
	}
}

// SetReadTimeout sets the timeout of subsequent reads. Zero or negative blocks until data arrives.
func (p *AmplifierPort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = t
	return nil
}

// ResetInputBuffer discards received but unread bytes.
func (p *AmplifierPort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = max(0, p.inFlight-p.readBuf.Len())
	p.readBuf.Reset()
	p.resets++
	return nil
}

// ResetOutputBuffer discards a partially written request.
func (p *AmplifierPort) ResetOutputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = p.pending[:0]
	return nil
}

func (p *AmplifierPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	for _, t := range p.timers {
		t.Stop()
	}
	close(p.done)
	return nil
}

func (p *AmplifierPort) signal() {
	select {
	case p.notify <- struct{}{}:
	default:
	}
}
