// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package slice tracks the stack of open slices on every track while a trace
// is ingested.
package slice

import "github.com/tracedb/tracedb/pkg/storage"

// Tracker maintains a per-track stack of open slices and writes slice rows
// to storage as they open and close. Like the rest of the ingestion layer it
// is single-goroutine only.
type Tracker struct {
	store *storage.Store
	// stacks holds the open slices per track, bottom of the stack first.
	stacks map[storage.TrackID][]storage.SliceID
}

// NewTracker returns a Tracker writing to store.
func NewTracker(store *storage.Store) *Tracker {
	return &Tracker{
		store:  store,
		stacks: make(map[storage.TrackID][]storage.SliceID),
	}
}

// Begin opens a slice named name at ts on track and returns its row ID. The
// slice nests under the track's current stack top.
func (t *Tracker) Begin(ts int64, track storage.TrackID, name storage.StringID) storage.SliceID {
	// Materialize track rows up to the referenced ID so that slice rows
	// never point past the track table.
	for int(track) >= t.store.Tracks().RowCount() {
		t.store.Tracks().Insert(0)
	}
	stack := t.stacks[track]
	id := t.store.Slices().Insert(storage.SliceRow{
		Track:   track,
		StartNS: ts,
		DurNS:   -1,
		Name:    name,
		Depth:   uint32(len(stack)),
	})
	t.stacks[track] = append(stack, id)
	t.store.Stats().IngestSlices.Inc(1)
	t.store.Stats().OpenSlices.Inc(1)
	return id
}

// End closes the topmost open slice on track at ts, finalizing its duration,
// and reports which slice closed. It reports ok=false if the track has no
// open slice; the anomaly is counted and ingestion continues.
func (t *Tracker) End(ts int64, track storage.TrackID) (_ storage.SliceID, ok bool) {
	stack := t.stacks[track]
	if len(stack) == 0 {
		t.store.Stats().SliceEndWithoutBegin.Inc(1)
		return 0, false
	}
	id := stack[len(stack)-1]
	t.stacks[track] = stack[:len(stack)-1]
	slices := t.store.Slices()
	slices.SetDurNS(id, ts-slices.StartNS(id))
	t.store.Stats().OpenSlices.Dec(1)
	return id, true
}

// TopmostOpenSlice returns the most recently opened slice on track that has
// not yet closed.
func (t *Tracker) TopmostOpenSlice(track storage.TrackID) (storage.SliceID, bool) {
	stack := t.stacks[track]
	if len(stack) == 0 {
		return 0, false
	}
	return stack[len(stack)-1], true
}

// OpenCount returns the number of open slices on track.
func (t *Tracker) OpenCount(track storage.TrackID) int {
	return len(t.stacks[track])
}
