// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package flow links causally related slices across tracks.
//
// A flow is a named identity that travels through a trace: it begins inside
// one slice, optionally steps through intermediate slices, and ends inside a
// final one. The tracker remembers, per active flow, the slice where the
// flow was last seen (its source endpoint). Each begin-to-step, step-to-step
// or step-to-end hop materializes exactly one edge row in the flow-edge
// table; a full chain is recoverable by joining edges on their shared
// slices.
//
// Flow ends may ask to bind the enclosing slice, or defer: a deferred end
// parks the flow on its track until the next slice there closes, and the
// edge then lands on that closed slice. Malformed sequences (no open slice,
// duplicate begins, steps or ends for unknown flows) increment stats
// counters and are otherwise dropped; ingestion never stops for them.
package flow

import (
	"github.com/tracedb/tracedb/pkg/ingest/args"
	"github.com/tracedb/tracedb/pkg/storage"
)

// SliceStack is the view of open slices the tracker needs from slice
// ingestion.
type SliceStack interface {
	// TopmostOpenSlice returns the most recently opened slice on track that
	// has not yet closed.
	TopmostOpenSlice(track storage.TrackID) (storage.SliceID, bool)
}

// LegacyKey is the identity triple carried by legacy flow events. Two legacy
// events denote the same flow iff all three fields match.
type LegacyKey struct {
	SourceID uint64
	Cat      storage.StringID
	Name     storage.StringID
}

// Tracker resolves flow events into flow-edge rows. It must only be used
// from the single ingestion goroutine; it performs no locking.
type Tracker struct {
	store  *storage.Store
	slices SliceStack
	args   *args.Tracker

	// flowToSlice maps each active flow to its current source endpoint.
	flowToSlice map[storage.FlowID]storage.SliceID
	// pending holds, per track and in arrival order, flows whose deferred
	// end waits for the next slice to close there. Flows are only admitted
	// while active, so every entry has a flowToSlice endpoint.
	pending map[storage.TrackID][]storage.FlowID

	// Legacy flows synthesize their FlowID through a bidirectional memo:
	// key to ID for reuse across events, ID back to key so that edges can
	// carry the category and name as arguments.
	legacyKeyToID map[LegacyKey]storage.FlowID
	idToLegacyKey map[storage.FlowID]LegacyKey
	nextLegacyID  storage.FlowID

	catKeyID  storage.StringID
	nameKeyID storage.StringID
}

// NewTracker returns a Tracker writing edges to store and resolving
// enclosing slices through slices. Argument writes go through argsTracker.
func NewTracker(store *storage.Store, slices SliceStack, argsTracker *args.Tracker) *Tracker {
	return &Tracker{
		store:         store,
		slices:        slices,
		args:          argsTracker,
		flowToSlice:   make(map[storage.FlowID]storage.SliceID),
		pending:       make(map[storage.TrackID][]storage.FlowID),
		legacyKeyToID: make(map[LegacyKey]storage.FlowID),
		idToLegacyKey: make(map[storage.FlowID]LegacyKey),
		catKeyID:      store.InternString("cat"),
		nameKeyID:     store.InternString("name"),
	}
}

// GetOrCreateLegacyFlowID returns the FlowID for a legacy identity triple,
// synthesizing a fresh one the first time the triple is seen. Synthesized
// IDs count up from zero, independently of the IDs modern events carry.
func (t *Tracker) GetOrCreateLegacyFlowID(
	sourceID uint64, cat, name storage.StringID,
) storage.FlowID {
	key := LegacyKey{SourceID: sourceID, Cat: cat, Name: name}
	if id, ok := t.legacyKeyToID[key]; ok {
		return id
	}
	id := t.nextLegacyID
	t.nextLegacyID++
	t.legacyKeyToID[key] = id
	t.idToLegacyKey[id] = key
	return id
}

// IsActive reports whether flowID currently has a source endpoint, i.e. a
// begin has been seen and no closing end has retired it yet.
func (t *Tracker) IsActive(flowID storage.FlowID) bool {
	_, ok := t.flowToSlice[flowID]
	return ok
}

// Begin records flowID as originating in the topmost open slice on track.
// If no slice is open there, or the flow is already active, the event is
// counted and dropped; an already-active flow keeps its original endpoint.
func (t *Tracker) Begin(track storage.TrackID, flowID storage.FlowID) {
	open, ok := t.slices.TopmostOpenSlice(track)
	if !ok {
		t.store.Stats().FlowNoEnclosingSlice.Inc(1)
		return
	}
	if _, dup := t.flowToSlice[flowID]; dup {
		t.store.Stats().FlowDuplicateID.Inc(1)
		return
	}
	t.flowToSlice[flowID] = open
}

// Step emits an edge from the flow's current endpoint to the topmost open
// slice on track and moves the endpoint there, extending the chain by one
// hop.
func (t *Tracker) Step(track storage.TrackID, flowID storage.FlowID) {
	open, ok := t.slices.TopmostOpenSlice(track)
	if !ok {
		t.store.Stats().FlowNoEnclosingSlice.Inc(1)
		return
	}
	src, ok := t.flowToSlice[flowID]
	if !ok {
		t.store.Stats().FlowStepWithoutStart.Inc(1)
		return
	}
	t.insertFlow(flowID, src, open)
	t.flowToSlice[flowID] = open
}

// End finishes a flow's chain on track.
//
// With bindEnclosingSlice unset, the flow is parked until the next slice on
// track closes; OnSliceClosed then emits the edge. closeFlow is ignored on
// this path and the flow's endpoint stays in place.
//
// With bindEnclosingSlice set, the edge is emitted immediately against the
// topmost open slice, and closeFlow additionally retires the flow so its
// identifier can be reused. The endpoint is never moved by End, so a
// non-closing End leaves further edges originating from the same source.
func (t *Tracker) End(
	track storage.TrackID, flowID storage.FlowID, bindEnclosingSlice, closeFlow bool,
) {
	if !bindEnclosingSlice {
		if _, ok := t.flowToSlice[flowID]; !ok {
			t.store.Stats().FlowEndWithoutStart.Inc(1)
			return
		}
		t.pending[track] = append(t.pending[track], flowID)
		return
	}
	open, ok := t.slices.TopmostOpenSlice(track)
	if !ok {
		t.store.Stats().FlowNoEnclosingSlice.Inc(1)
		return
	}
	src, ok := t.flowToSlice[flowID]
	if !ok {
		t.store.Stats().FlowEndWithoutStart.Inc(1)
		return
	}
	if closeFlow {
		delete(t.flowToSlice, flowID)
	}
	t.insertFlow(flowID, src, open)
}

// OnSliceClosed resolves the track's deferred flow ends against the slice
// that just closed there. Resolution is one-shot: the pending list is
// cleared, and endpoints are left untouched, so a later slice close on the
// same track emits nothing further for these flows.
func (t *Tracker) OnSliceClosed(track storage.TrackID, closed storage.SliceID) {
	ids, ok := t.pending[track]
	if !ok {
		return
	}
	for _, flowID := range ids {
		// Deferred ends are only admitted for active flows, so the endpoint
		// is present.
		src := t.flowToSlice[flowID]
		t.insertFlow(flowID, src, closed)
	}
	delete(t.pending, track)
}

// insertFlow appends one edge row. Edges of legacy flows additionally carry
// the identity's name and category as arguments.
func (t *Tracker) insertFlow(flowID storage.FlowID, out, in storage.SliceID) {
	edge := t.store.Flows().Insert(out, in)
	if key, ok := t.idToLegacyKey[flowID]; ok {
		t.args.AddArgsTo(edge).
			AddArg(t.nameKeyID, storage.StringValue(key.Name)).
			AddArg(t.catKeyID, storage.StringValue(key.Cat))
		t.args.Flush()
	}
	t.store.Stats().IngestFlowEdges.Inc(1)
}
