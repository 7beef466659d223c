package monoprice

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pior/monoprice/protocol"
)

// Querier is the amplifier control API.
type Querier interface {
	ZoneStatus(ctx context.Context, zone int) (protocol.ZoneStatus, bool, error)
	AllZoneStatus(ctx context.Context, unit int) ([]protocol.ZoneStatus, error)
	SetPower(ctx context.Context, zone int, on bool) error
	SetMute(ctx context.Context, zone int, on bool) error
	SetVolume(ctx context.Context, zone, volume int) error
	SetTreble(ctx context.Context, zone, treble int) error
	SetBass(ctx context.Context, zone, bass int) error
	SetBalance(ctx context.Context, zone, balance int) error
	SetSource(ctx context.Context, zone, source int) error
	RestoreZone(ctx context.Context, status protocol.ZoneStatus) error
}

// Client controls an amplifier through a Session.
//
// The client holds no lock of its own: every operation is serialized by the
// session, and RestoreZone holds the session for its whole sequence.
type Client struct {
	session        Session
	circuitBreaker CircuitBreaker // nil if not configured
	logger         zerolog.Logger
	stats          *clientStatsCollector
}

var _ Querier = (*Client)(nil)

// NewClient creates a client over an existing session.
func NewClient(session Session, cfg Config) *Client {
	c := &Client{
		session: session,
		logger:  cfg.logger(),
		stats:   newClientStatsCollector(),
	}
	if cfg.NewCircuitBreaker != nil {
		c.circuitBreaker = cfg.NewCircuitBreaker(session.Name())
	}
	return c
}

// Open opens the serial port at path and returns a client using a BlockingSession.
func Open(path string, cfg Config) (*Client, error) {
	session, err := OpenBlocking(path, cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(session, cfg), nil
}

// OpenAsync returns a client using an AsyncSession. The port is opened in the
// background and calls made before it is ready wait for it.
func OpenAsync(path string, cfg Config) (*Client, error) {
	session, err := NewAsyncSession(path, cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(session, cfg), nil
}

// Close closes the session.
func (c *Client) Close() error {
	return c.session.Close()
}

// Session returns the underlying session.
func (c *Client) Session() Session {
	return c.session
}

// exchange runs one exchange, through the circuit breaker if configured.
func (c *Client) exchange(ctx context.Context, request []byte, until protocol.Completion) (string, error) {
	if c.circuitBreaker == nil {
		return c.session.Exchange(ctx, request, until)
	}
	return c.circuitBreaker.Execute(func() (string, error) {
		return c.session.Exchange(ctx, request, until)
	})
}

// exchangeAll runs a sequence under one hold of the session gate. The circuit
// breaker sees the sequence as a single request.
func (c *Client) exchangeAll(ctx context.Context, requests [][]byte, until protocol.Completion) ([]string, error) {
	if c.circuitBreaker == nil {
		return c.session.ExchangeAll(ctx, requests, until)
	}

	var resps []string
	_, err := c.circuitBreaker.Execute(func() (string, error) {
		var err error
		resps, err = c.session.ExchangeAll(ctx, requests, until)
		return "", err
	})
	return resps, err
}

// Exchange sends a raw request and returns the raw response.
// Use protocol.UntilSize for fixed size reads.
func (c *Client) Exchange(ctx context.Context, request []byte, until protocol.Completion) (string, error) {
	resp, err := c.exchange(ctx, request, until)
	if err != nil {
		c.stats.recordError()
		return "", err
	}
	return resp, nil
}

// ZoneStatus returns the status of a zone (11..16, 21..26, 31..36).
// The boolean is false when the response held no decodable status.
func (c *Client) ZoneStatus(ctx context.Context, zone int) (protocol.ZoneStatus, bool, error) {
	resp, err := c.exchange(ctx, protocol.StatusRequest(zone), protocol.StatusCompletion)
	if err != nil {
		c.stats.recordError()
		return protocol.ZoneStatus{}, false, err
	}

	status, ok := protocol.ParseStatus(resp)
	if !ok {
		c.logger.Warn().Int("zone", zone).Str("response", resp).Msg("undecodable zone status")
	}
	c.stats.recordQuery(ok)
	return status, ok, nil
}

// AllZoneStatus returns the status of every zone of a unit (1..3), in response order.
//
// Zones whose payload does not decode are left out. An invalid unit returns an
// empty result without talking to the amplifier.
func (c *Client) AllZoneStatus(ctx context.Context, unit int) ([]protocol.ZoneStatus, error) {
	if !protocol.ValidUnit(unit) {
		return []protocol.ZoneStatus{}, nil
	}

	resp, err := c.exchange(ctx, protocol.UnitStatusRequest(unit), protocol.UnitStatusCompletion)
	if err != nil {
		c.stats.recordError()
		return nil, err
	}

	c.stats.recordUnitQuery()
	return protocol.ParseUnitStatus(resp), nil
}

func (c *Client) set(ctx context.Context, request []byte) error {
	if _, err := c.exchange(ctx, request, protocol.SetCompletion); err != nil {
		c.stats.recordError()
		return err
	}
	c.stats.recordSet()
	return nil
}

// SetPower turns a zone on or off.
func (c *Client) SetPower(ctx context.Context, zone int, on bool) error {
	return c.set(ctx, protocol.PowerRequest(zone, on))
}

// SetMute mutes or unmutes a zone.
func (c *Client) SetMute(ctx context.Context, zone int, on bool) error {
	return c.set(ctx, protocol.MuteRequest(zone, on))
}

// SetVolume sets the volume of a zone, clamped to 0..38.
func (c *Client) SetVolume(ctx context.Context, zone, volume int) error {
	return c.set(ctx, protocol.VolumeRequest(zone, volume))
}

// SetTreble sets the treble of a zone, clamped to 0..14.
func (c *Client) SetTreble(ctx context.Context, zone, treble int) error {
	return c.set(ctx, protocol.TrebleRequest(zone, treble))
}

// SetBass sets the bass of a zone, clamped to 0..14.
func (c *Client) SetBass(ctx context.Context, zone, bass int) error {
	return c.set(ctx, protocol.BassRequest(zone, bass))
}

// SetBalance sets the balance of a zone, clamped to 0..20.
func (c *Client) SetBalance(ctx context.Context, zone, balance int) error {
	return c.set(ctx, protocol.BalanceRequest(zone, balance))
}

// SetSource selects the input of a zone, clamped to 1..6.
func (c *Client) SetSource(ctx context.Context, zone, source int) error {
	return c.set(ctx, protocol.SourceRequest(zone, source))
}

// SetParam sets any parameter. Power and mute treat any nonzero value as on.
func (c *Client) SetParam(ctx context.Context, zone int, param protocol.Param, value int) error {
	if !param.Valid() {
		return fmt.Errorf("monoprice: unknown parameter %q", string(param))
	}
	return c.set(ctx, protocol.SetRequest(zone, param, value))
}

// RestoreZone replays status on its zone as seven set commands: power, mute,
// volume, treble, bass, balance, source.
//
// The session is held for the whole sequence, so other callers' commands run
// before or after it, never in between. It is not atomic: the first failing
// command aborts the rest and its error is returned, leaving the zone
// partially restored.
func (c *Client) RestoreZone(ctx context.Context, status protocol.ZoneStatus) error {
	resps, err := c.exchangeAll(ctx, protocol.RestoreRequests(status), protocol.SetCompletion)
	for range resps {
		c.stats.recordSet()
	}
	if err != nil {
		c.stats.recordError()
		return fmt.Errorf("restore zone %d %s: %w", status.Zone, protocol.Params[len(resps)], err)
	}

	c.stats.recordRestore()
	c.logger.Debug().Int("zone", status.Zone).Msg("zone restored")
	return nil
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// SessionStats returns a snapshot of the session statistics.
func (c *Client) SessionStats() SessionStats {
	return c.session.Stats()
}
