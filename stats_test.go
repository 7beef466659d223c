package monoprice

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pior/monoprice/protocol"
)

func TestSessionStatsCollector(t *testing.T) {
	c := newSessionStatsCollector()

	c.recordConnect()
	c.recordExchange(4, 29, time.Millisecond, nil)
	c.recordExchange(4, 3, 2*time.Millisecond, &protocol.TimeoutError{})
	c.recordExchange(8, 0, time.Millisecond, &protocol.ConnectionError{Op: "read", Err: errors.New("eof")})
	c.recordFailure(nil)
	c.recordDisconnect()

	assert.Equal(t, SessionStats{
		Exchanges:      3,
		Timeouts:       1,
		Errors:         1,
		BytesOut:       16,
		BytesIn:        32,
		Connects:       1,
		Disconnects:    1,
		ExchangeTimeNs: uint64((4 * time.Millisecond).Nanoseconds()),
	}, c.snapshot())
}

func TestClientStatsCollector(t *testing.T) {
	c := newClientStatsCollector()

	c.recordQuery(true)
	c.recordQuery(false)
	c.recordUnitQuery()
	c.recordSet()
	c.recordSet()
	c.recordRestore()
	c.recordError()

	assert.Equal(t, ClientStats{
		Queries:     2,
		UnitQueries: 1,
		Misses:      1,
		Sets:        2,
		Restores:    1,
		Errors:      1,
	}, c.snapshot())
}
