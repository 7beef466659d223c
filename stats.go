package monoprice

import (
	"sync/atomic"
	"time"

	"github.com/jackc/puddle/v2"
)

// SessionStats contains statistics about a session.
// All fields are safe for concurrent access.
type SessionStats struct {
	Exchanges      uint64 // Completed exchanges, successful or not
	Timeouts       uint64 // Exchanges abandoned on timeout
	Errors         uint64 // Exchanges failed with an I/O error
	BytesOut       uint64 // Request bytes written
	BytesIn        uint64 // Response bytes accumulated
	Connects       uint64 // Ports opened
	Disconnects    uint64 // Ports closed
	ExchangeTimeNs uint64 // Total nanoseconds spent in exchanges
}

// PoolStats describes the gate of an AsyncSession.
//
// The gate is a pool of exactly one port, so TotalConns is 0 or 1 and
// AcquireWaitCount counts the callers that were suspended.
type PoolStats struct {
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	AcquireErrors     uint64 // Canceled acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalConns  int32 // Ports open or opening
	IdleConns   int32 // Port open and not in use
	ActiveConns int32 // Port in use by an exchange
}

// ClientStats contains statistics about client operations.
// All fields are safe for concurrent access.
type ClientStats struct {
	Queries     uint64 // Single zone status queries
	UnitQueries uint64 // Whole unit status queries
	Misses      uint64 // Zone queries that returned no decodable status
	Sets        uint64 // Set commands
	Restores    uint64 // Completed zone restores
	Errors      uint64 // Total errors across all operations
}

type sessionStatsCollector struct {
	stats SessionStats
}

func newSessionStatsCollector() *sessionStatsCollector {
	return &sessionStatsCollector{}
}

func (c *sessionStatsCollector) recordExchange(out, in int, elapsed time.Duration, err error) {
	atomic.AddUint64(&c.stats.Exchanges, 1)
	atomic.AddUint64(&c.stats.BytesOut, uint64(out))
	atomic.AddUint64(&c.stats.BytesIn, uint64(in))
	atomic.AddUint64(&c.stats.ExchangeTimeNs, uint64(elapsed.Nanoseconds()))
	c.recordFailure(err)
}

func (c *sessionStatsCollector) recordFailure(err error) {
	if err == nil {
		return
	}
	if isTimeout(err) {
		atomic.AddUint64(&c.stats.Timeouts, 1)
		return
	}
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *sessionStatsCollector) recordConnect() {
	atomic.AddUint64(&c.stats.Connects, 1)
}

func (c *sessionStatsCollector) recordDisconnect() {
	atomic.AddUint64(&c.stats.Disconnects, 1)
}

func (c *sessionStatsCollector) snapshot() SessionStats {
	return SessionStats{
		Exchanges:      atomic.LoadUint64(&c.stats.Exchanges),
		Timeouts:       atomic.LoadUint64(&c.stats.Timeouts),
		Errors:         atomic.LoadUint64(&c.stats.Errors),
		BytesOut:       atomic.LoadUint64(&c.stats.BytesOut),
		BytesIn:        atomic.LoadUint64(&c.stats.BytesIn),
		Connects:       atomic.LoadUint64(&c.stats.Connects),
		Disconnects:    atomic.LoadUint64(&c.stats.Disconnects),
		ExchangeTimeNs: atomic.LoadUint64(&c.stats.ExchangeTimeNs),
	}
}

// poolStats maps puddle's stats to PoolStats.
func poolStats(s *puddle.Stat) PoolStats {
	return PoolStats{
		AcquireCount:      uint64(s.AcquireCount()),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()),
		AcquireErrors:     uint64(s.CanceledAcquireCount()),
		AcquireWaitTimeNs: uint64(s.EmptyAcquireWaitTime().Nanoseconds()),
		TotalConns:        s.TotalResources(),
		IdleConns:         s.IdleResources(),
		ActiveConns:       s.AcquiredResources(),
	}
}

type clientStatsCollector struct {
	stats ClientStats
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{}
}

func (c *clientStatsCollector) recordQuery(found bool) {
	atomic.AddUint64(&c.stats.Queries, 1)
	if !found {
		atomic.AddUint64(&c.stats.Misses, 1)
	}
}

func (c *clientStatsCollector) recordUnitQuery() {
	atomic.AddUint64(&c.stats.UnitQueries, 1)
}

func (c *clientStatsCollector) recordSet() {
	atomic.AddUint64(&c.stats.Sets, 1)
}

func (c *clientStatsCollector) recordRestore() {
	atomic.AddUint64(&c.stats.Restores, 1)
}

func (c *clientStatsCollector) recordError() {
	atomic.AddUint64(&c.stats.Errors, 1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Queries:     atomic.LoadUint64(&c.stats.Queries),
		UnitQueries: atomic.LoadUint64(&c.stats.UnitQueries),
		Misses:      atomic.LoadUint64(&c.stats.Misses),
		Sets:        atomic.LoadUint64(&c.stats.Sets),
		Restores:    atomic.LoadUint64(&c.stats.Restores),
		Errors:      atomic.LoadUint64(&c.stats.Errors),
	}
}
