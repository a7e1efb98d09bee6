// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package storage holds the in-memory columnar representation of one trace:
// tracks, slices, flow edges, arguments, interned strings, and the stats
// counters describing how ingestion went.
package storage

import "github.com/tracedb/tracedb/pkg/util/metric"

// Store owns the trace tables for a single trace. It is not goroutine-safe;
// the ingestion layer is strictly sequential and readers only attach after
// ingestion finishes.
type Store struct {
	strings *stringInterner
	tracks  TrackTable
	slices  SliceTable
	flows   FlowTable
	args    ArgTable

	stats    Stats
	registry *metric.Registry
}

// New returns an empty Store with its stats registered on a fresh registry.
func New() *Store {
	s := &Store{
		strings:  newStringInterner(),
		registry: metric.NewRegistry(),
	}
	s.stats = makeStats()
	s.registry.AddMetricStruct(s.stats)
	return s
}

// InternString returns the ID for s, interning it on first use.
func (s *Store) InternString(str string) StringID {
	return s.strings.intern(str)
}

// String resolves an interned string.
func (s *Store) String(id StringID) string {
	return s.strings.get(id)
}

// StringCount returns the number of distinct interned strings.
func (s *Store) StringCount() int {
	return s.strings.count()
}

// Tracks returns the track table.
func (s *Store) Tracks() *TrackTable {
	return &s.tracks
}

// Slices returns the slice table.
func (s *Store) Slices() *SliceTable {
	return &s.slices
}

// Flows returns the flow-edge table.
func (s *Store) Flows() *FlowTable {
	return &s.flows
}

// Args returns the argument table.
func (s *Store) Args() *ArgTable {
	return &s.args
}

// Stats returns the stats counters. The struct holds pointers, so the copy
// increments the same counters.
func (s *Store) Stats() Stats {
	return s.stats
}

// Registry returns the metric registry holding the store's stats.
func (s *Store) Registry() *metric.Registry {
	return s.registry
}

// ApproxBytes estimates the memory footprint of the columnar tables. The
// estimate covers column payloads only, not map or slice headers.
func (s *Store) ApproxBytes() int64 {
	var n int64
	n += int64(s.tracks.RowCount()) * 4
	n += int64(s.slices.RowCount()) * (4 + 8 + 8 + 4 + 4 + 4)
	n += int64(s.flows.RowCount()) * (4 + 4 + 4)
	n += int64(s.args.RowCount()) * (4 + 16)
	for _, str := range s.strings.strs {
		n += int64(len(str))
	}
	return n
}
