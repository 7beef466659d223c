//go:build !deadlock

// Package syncutil holds the mutex used by the sessions and the watcher.
// Build with -tags=deadlock to swap in a lock-order and timeout checker.
package syncutil

import "sync"

// Mutex is sync.Mutex unless built with the deadlock tag.
type Mutex = sync.Mutex
