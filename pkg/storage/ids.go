// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package storage

// TrackID identifies a timeline on which slices nest. Tracks are created by
// the ingestion layer; the storage layer never invents them.
type TrackID uint32

// SliceID identifies a row in the slice table.
type SliceID uint32

// FlowID is the identity of a flow, a causal link between slices. Modern
// trace encodings supply it directly as an opaque 64-bit value; legacy
// encodings have one synthesized for them.
type FlowID uint64

// FlowEdgeID identifies a row in the flow-edge table.
type FlowEdgeID uint32

// StringID is a handle to an interned string.
type StringID uint32

// ArgSetID groups the argument rows attached to a single table row.
type ArgSetID uint32

// InvalidArgSetID marks rows that have no arguments attached. Real arg sets
// start at 1.
const InvalidArgSetID ArgSetID = 0
