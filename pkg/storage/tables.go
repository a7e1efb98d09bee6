// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package storage

// The tables in this file are columnar: each logical column is a plain Go
// slice indexed by row ID, and row IDs are assigned densely in insertion
// order. Rows are never deleted.

// TrackTable stores one row per track.
type TrackTable struct {
	names []StringID
}

// Insert adds a track and returns its ID.
func (t *TrackTable) Insert(name StringID) TrackID {
	id := TrackID(len(t.names))
	t.names = append(t.names, name)
	return id
}

// Name returns the track's name.
func (t *TrackTable) Name(id TrackID) StringID {
	return t.names[id]
}

// RowCount returns the number of tracks.
func (t *TrackTable) RowCount() int {
	return len(t.names)
}

// SliceRow is the insertion payload for SliceTable.
type SliceRow struct {
	Track   TrackID
	StartNS int64
	// DurNS is -1 while the slice is open.
	DurNS int64
	Name  StringID
	Depth uint32
}

// SliceTable stores slices, the durated spans that nest on tracks.
type SliceTable struct {
	tracks    []TrackID
	startNS   []int64
	durNS     []int64
	names     []StringID
	depths    []uint32
	argSetIDs []ArgSetID
}

// Insert appends a slice row and returns its ID.
func (t *SliceTable) Insert(row SliceRow) SliceID {
	id := SliceID(len(t.tracks))
	t.tracks = append(t.tracks, row.Track)
	t.startNS = append(t.startNS, row.StartNS)
	t.durNS = append(t.durNS, row.DurNS)
	t.names = append(t.names, row.Name)
	t.depths = append(t.depths, row.Depth)
	t.argSetIDs = append(t.argSetIDs, InvalidArgSetID)
	return id
}

// RowCount returns the number of slices.
func (t *SliceTable) RowCount() int {
	return len(t.tracks)
}

// Track returns the track the slice lies on.
func (t *SliceTable) Track(id SliceID) TrackID {
	return t.tracks[id]
}

// StartNS returns the slice's start timestamp.
func (t *SliceTable) StartNS(id SliceID) int64 {
	return t.startNS[id]
}

// DurNS returns the slice's duration, or -1 if it is still open.
func (t *SliceTable) DurNS(id SliceID) int64 {
	return t.durNS[id]
}

// SetDurNS finalizes the slice's duration.
func (t *SliceTable) SetDurNS(id SliceID, dur int64) {
	t.durNS[id] = dur
}

// Name returns the slice's name.
func (t *SliceTable) Name(id SliceID) StringID {
	return t.names[id]
}

// Depth returns the slice's nesting depth on its track, starting at 0.
func (t *SliceTable) Depth(id SliceID) uint32 {
	return t.depths[id]
}

// ArgSetID returns the slice's argument set, or InvalidArgSetID.
func (t *SliceTable) ArgSetID(id SliceID) ArgSetID {
	return t.argSetIDs[id]
}

// SetArgSetID binds an argument set to the slice.
func (t *SliceTable) SetArgSetID(id SliceID, argSet ArgSetID) {
	t.argSetIDs[id] = argSet
}

// FlowTable stores flow edges, the resolved hops between slices. Rows are
// append-only; only the arg-set column may be bound after insertion.
type FlowTable struct {
	sliceOut  []SliceID
	sliceIn   []SliceID
	argSetIDs []ArgSetID
}

// Insert appends an edge from out to in with no arguments attached and
// returns its ID.
func (t *FlowTable) Insert(out, in SliceID) FlowEdgeID {
	id := FlowEdgeID(len(t.sliceOut))
	t.sliceOut = append(t.sliceOut, out)
	t.sliceIn = append(t.sliceIn, in)
	t.argSetIDs = append(t.argSetIDs, InvalidArgSetID)
	return id
}

// RowCount returns the number of edges.
func (t *FlowTable) RowCount() int {
	return len(t.sliceOut)
}

// SliceOut returns the edge's source slice.
func (t *FlowTable) SliceOut(id FlowEdgeID) SliceID {
	return t.sliceOut[id]
}

// SliceIn returns the edge's destination slice.
func (t *FlowTable) SliceIn(id FlowEdgeID) SliceID {
	return t.sliceIn[id]
}

// ArgSetID returns the edge's argument set, or InvalidArgSetID.
func (t *FlowTable) ArgSetID(id FlowEdgeID) ArgSetID {
	return t.argSetIDs[id]
}

// SetArgSetID binds an argument set to the edge.
func (t *FlowTable) SetArgSetID(id FlowEdgeID, argSet ArgSetID) {
	t.argSetIDs[id] = argSet
}
