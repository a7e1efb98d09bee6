// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package args batches argument writes against storage rows so that several
// values can be staged for a row before any of them materialize.
package args

import "github.com/tracedb/tracedb/pkg/storage"

// rowKind discriminates the tables an Inserter can target.
type rowKind uint8

const (
	rowFlowEdge rowKind = iota
	rowSlice
)

// Tracker stages arguments destined for flow-edge and slice rows. Staged
// arguments become visible only on Flush, which materializes one arg set per
// target row and binds it to the row's arg-set column.
type Tracker struct {
	store   *storage.Store
	pending []pendingArg
}

type pendingArg struct {
	kind rowKind
	row  uint32
	arg  storage.Arg
}

// NewTracker returns a Tracker writing to store.
func NewTracker(store *storage.Store) *Tracker {
	return &Tracker{store: store}
}

// Inserter stages arguments for one row. The zero value is invalid; obtain
// one from AddArgsTo or AddArgsToSlice.
type Inserter struct {
	t    *Tracker
	kind rowKind
	row  uint32
}

// AddArgsTo returns an Inserter staging arguments against the given flow
// edge. Arguments staged for one row must be contiguous within the batch, so
// interleaving inserters for different rows before a Flush is not supported.
func (t *Tracker) AddArgsTo(edge storage.FlowEdgeID) Inserter {
	return Inserter{t: t, kind: rowFlowEdge, row: uint32(edge)}
}

// AddArgsToSlice returns an Inserter staging arguments against the given
// slice.
func (t *Tracker) AddArgsToSlice(id storage.SliceID) Inserter {
	return Inserter{t: t, kind: rowSlice, row: uint32(id)}
}

// AddArg stages a single key/value argument and returns the Inserter for
// chaining.
func (i Inserter) AddArg(key storage.StringID, value storage.ArgValue) Inserter {
	i.t.pending = append(i.t.pending, pendingArg{
		kind: i.kind,
		row:  i.row,
		arg:  storage.Arg{Key: key, Value: value},
	})
	return i
}

// Flush materializes all staged arguments and empties the batch.
func (t *Tracker) Flush() {
	for i := 0; i < len(t.pending); {
		kind, row := t.pending[i].kind, t.pending[i].row
		j := i
		for ; j < len(t.pending) && t.pending[j].kind == kind && t.pending[j].row == row; j++ {
		}
		set := make([]storage.Arg, 0, j-i)
		for ; i < j; i++ {
			set = append(set, t.pending[i].arg)
		}
		id := t.store.Args().AddArgSet(set)
		switch kind {
		case rowFlowEdge:
			t.store.Flows().SetArgSetID(storage.FlowEdgeID(row), id)
		case rowSlice:
			t.store.Slices().SetArgSetID(storage.SliceID(row), id)
		}
	}
	t.pending = t.pending[:0]
}

// PendingCount returns the number of staged, unflushed arguments.
func (t *Tracker) PendingCount() int {
	return len(t.pending)
}
