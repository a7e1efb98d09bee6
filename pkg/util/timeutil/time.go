// Copyright 2024 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package timeutil

import "time"

// Now returns the current local time.
//
// All code in this repository goes through timeutil rather than the time
// package directly so that time access stays greppable and mockable.
func Now() time.Time {
	return time.Now()
}

// Since returns the time elapsed since t.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
