package monoprice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/pior/monoprice/internal/syncutil"
	"github.com/pior/monoprice/protocol"
)

// DefaultWatchInterval is the poll interval of a Watcher.
const DefaultWatchInterval = 5 * time.Second

// UnitQuerier reads the status of every zone of a unit.
type UnitQuerier interface {
	AllZoneStatus(ctx context.Context, unit int) ([]protocol.ZoneStatus, error)
}

// ZoneChange reports a zone whose status differs from the previous poll.
// Previous is the zero value the first time a zone is seen.
type ZoneChange struct {
	Previous protocol.ZoneStatus
	Current  protocol.ZoneStatus
	First    bool
}

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Units to poll, 1..3. Invalid units are ignored.
	Units []int

	// Interval between polls.
	// Zero means DefaultWatchInterval.
	Interval time.Duration

	// Clock drives the poll ticker.
	// If nil, the real clock is used.
	Clock clockwork.Clock

	// Logger receives poll errors.
	// If nil, the global zerolog logger is used.
	Logger *zerolog.Logger
}

type watchedZone struct {
	status      protocol.ZoneStatus
	fingerprint uint64
}

// Watcher polls units and reports zones whose status changed.
//
// Changes are detected by fingerprinting the canonical status line, so a zone
// is reported only when at least one field differs.
type Watcher struct {
	querier  UnitQuerier
	units    []int
	interval time.Duration
	clock    clockwork.Clock
	logger   zerolog.Logger

	mu    syncutil.Mutex
	zones map[int]watchedZone
}

// NewWatcher creates a Watcher polling the units of cfg through querier.
func NewWatcher(querier UnitQuerier, cfg WatcherConfig) *Watcher {
	w := &Watcher{
		querier:  querier,
		interval: cfg.Interval,
		clock:    cfg.Clock,
		zones:    make(map[int]watchedZone),
	}

	for _, unit := range cfg.Units {
		if protocol.ValidUnit(unit) {
			w.units = append(w.units, unit)
		}
	}
	if w.interval <= 0 {
		w.interval = DefaultWatchInterval
	}
	if w.clock == nil {
		w.clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		w.logger = Config{}.logger()
	} else {
		w.logger = *cfg.Logger
	}

	return w
}

// Poll queries every unit once and returns the zones that changed since the last poll.
//
// A failing unit does not prevent the others from being polled. Its error is
// returned joined with the other failures, and its zones keep their last known status.
func (w *Watcher) Poll(ctx context.Context) ([]ZoneChange, error) {
	var changes []ZoneChange
	var errs []error

	for _, unit := range w.units {
		statuses, err := w.querier.AllZoneStatus(ctx, unit)
		if err != nil {
			errs = append(errs, fmt.Errorf("unit %d: %w", unit, err))
			continue
		}
		changes = append(changes, w.update(statuses)...)
	}

	return changes, errors.Join(errs...)
}

func (w *Watcher) update(statuses []protocol.ZoneStatus) []ZoneChange {
	w.mu.Lock()
	defer w.mu.Unlock()

	var changes []ZoneChange
	for _, status := range statuses {
		fingerprint := xxh3.HashString(status.Line())

		prev, seen := w.zones[status.Zone]
		if seen && prev.fingerprint == fingerprint {
			continue
		}

		w.zones[status.Zone] = watchedZone{status: status, fingerprint: fingerprint}
		changes = append(changes, ZoneChange{
			Previous: prev.status,
			Current:  status,
			First:    !seen,
		})
	}
	return changes
}

// Last returns the last known status of a zone.
func (w *Watcher) Last(zone int) (protocol.ZoneStatus, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	z, ok := w.zones[zone]
	return z.status, ok
}

// Run polls immediately and then on every interval, calling fn for each change,
// until ctx is done. Poll errors are logged and polling continues.
func (w *Watcher) Run(ctx context.Context, fn func(ZoneChange)) error {
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		changes, err := w.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn().Err(err).Msg("poll failed")
		}
		for _, change := range changes {
			fn(change)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
		}
	}
}
