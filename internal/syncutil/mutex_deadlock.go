//go:build deadlock

// Package syncutil holds the mutex used by the sessions and the watcher.
// Build with -tags=deadlock to swap in a lock-order and timeout checker.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

func init() {
	// A blocking exchange holds the gate for at most one response timeout.
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
}

// Mutex reports locks held longer than DeadlockTimeout and lock order inversions.
type Mutex = deadlock.Mutex
