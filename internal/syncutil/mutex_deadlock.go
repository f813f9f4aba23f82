//go:build deadlock

// Package syncutil provides the mutex types used by the gateway's shared
// state. This file is compiled with -tags=deadlock and reports lock
// ordering problems and long waits on the connection registry.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex wraps deadlock.Mutex.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex wraps deadlock.RWMutex.
type RWMutex struct {
	deadlock.RWMutex
}
