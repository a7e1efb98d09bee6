// Copyright 2024 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package log

import (
	"time"

	"github.com/tracedb/tracedb/pkg/util/syncutil"
	"github.com/tracedb/tracedb/pkg/util/timeutil"
)

// EveryN provides a way to rate limit noisy log messages. It tracks how
// recently a call to ShouldLog has occurred.
type EveryN struct {
	// N is the minimum duration of time between log messages.
	N time.Duration

	syncutil.Mutex
	lastLog time.Time
}

// Every is a convenience constructor for an EveryN object that allows a log
// message every n duration.
func Every(n time.Duration) EveryN {
	return EveryN{N: n}
}

// ShouldLog returns whether it's been more than N time since the last event.
func (e *EveryN) ShouldLog() bool {
	return e.shouldLog(timeutil.Now())
}

func (e *EveryN) shouldLog(now time.Time) bool {
	e.Lock()
	defer e.Unlock()
	if now.Sub(e.lastLog) < e.N {
		return false
	}
	e.lastLog = now
	return true
}
