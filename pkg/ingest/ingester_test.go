// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package ingest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tracedb/tracedb/pkg/ingest"
	"github.com/tracedb/tracedb/pkg/storage"
	"github.com/tracedb/tracedb/pkg/util/leaktest"
)

func TestIngestSliceFlowChain(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	in := ingest.New(storage.New())

	require.NoError(t, in.IngestAll(ctx, []ingest.Event{
		ingest.SliceBegin(100, 1, "produce"),
		ingest.FlowBegin(101, 1, 42),
		ingest.SliceEnd(110, 1),
		ingest.SliceBegin(120, 2, "consume"),
		ingest.FlowEnd(121, 2, 42, true /* bindEnclosing */, true /* closeFlow */),
		ingest.SliceEnd(130, 2),
	}))

	st := in.Store()
	require.Equal(t, 2, st.Slices().RowCount())
	require.Equal(t, int64(10), st.Slices().DurNS(0))
	require.Equal(t, int64(10), st.Slices().DurNS(1))
	require.Equal(t, 1, st.Flows().RowCount())
	require.Equal(t, storage.SliceID(0), st.Flows().SliceOut(0))
	require.Equal(t, storage.SliceID(1), st.Flows().SliceIn(0))
	require.False(t, in.Flows().IsActive(42))
}

// Flows attached to an opening slice begin there when inactive and step there
// when active; terminating flows bind to the slice and retire.
func TestIngestAttachedFlows(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	in := ingest.New(storage.New())

	require.NoError(t, in.IngestAll(ctx, []ingest.Event{
		ingest.SliceBeginWithFlows(10, 1, "send", []storage.FlowID{7}, nil),
		ingest.SliceEnd(20, 1),
		ingest.SliceBeginWithFlows(30, 2, "route", []storage.FlowID{7}, nil),
		ingest.SliceEnd(40, 2),
		ingest.SliceBeginWithFlows(50, 3, "recv", nil, []storage.FlowID{7}),
		ingest.SliceEnd(60, 3),
	}))

	st := in.Store()
	require.Equal(t, 2, st.Flows().RowCount())
	require.Equal(t, storage.SliceID(0), st.Flows().SliceOut(0))
	require.Equal(t, storage.SliceID(1), st.Flows().SliceIn(0))
	require.Equal(t, storage.SliceID(1), st.Flows().SliceOut(1))
	require.Equal(t, storage.SliceID(2), st.Flows().SliceIn(1))
	require.False(t, in.Flows().IsActive(7))
}

func TestIngestLegacyFlow(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	in := ingest.New(storage.New())

	require.NoError(t, in.IngestAll(ctx, []ingest.Event{
		ingest.SliceBegin(5, 1, "enqueue"),
		ingest.LegacyFlowBegin(6, 1, 900, "sched", "wakeup"),
		ingest.SliceEnd(7, 1),
		ingest.SliceBegin(8, 2, "run"),
		ingest.LegacyFlowEnd(9, 2, 900, "sched", "wakeup", true /* bindEnclosing */),
		ingest.SliceEnd(10, 2),
	}))

	st := in.Store()
	require.Equal(t, 1, st.Flows().RowCount())
	set := st.Args().Set(st.Flows().ArgSetID(0))
	require.Len(t, set, 2)
	require.Equal(t, "name", st.String(set[0].Key))
	require.Equal(t, "wakeup", st.String(set[0].Value.Str))
	require.Equal(t, "cat", st.String(set[1].Key))
	require.Equal(t, "sched", st.String(set[1].Value.Str))
	// The synthesized identity was retired by the end.
	require.False(t, in.Flows().IsActive(0))
}

// A legacy end without a binding point defers to the next slice close on the
// track; the deferred path never retires the identity.
func TestIngestDeferredLegacyEnd(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	in := ingest.New(storage.New())

	require.NoError(t, in.IngestAll(ctx, []ingest.Event{
		ingest.SliceBegin(1, 1, "submit"),
		ingest.LegacyFlowBegin(2, 1, 33, "io", "read"),
		ingest.SliceBegin(3, 2, "complete"),
		ingest.LegacyFlowEnd(4, 2, 33, "io", "read", false /* bindEnclosing */),
		ingest.SliceEnd(5, 2),
	}))

	st := in.Store()
	require.Equal(t, 1, st.Flows().RowCount())
	require.Equal(t, storage.SliceID(0), st.Flows().SliceOut(0))
	require.Equal(t, storage.SliceID(1), st.Flows().SliceIn(0))
	require.True(t, in.Flows().IsActive(0))
}

func TestIngestSliceArgs(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	in := ingest.New(storage.New())

	require.NoError(t, in.IngestAll(ctx, []ingest.Event{
		ingest.SliceBeginWithArgs(10, 1, "query", []ingest.SliceArg{
			{Key: "table", Value: "users"},
			{Key: "plan", Value: "index-scan"},
		}),
		ingest.SliceBegin(12, 1, "scan"),
		ingest.SliceEnd(18, 1),
		ingest.SliceEnd(20, 1),
	}))

	st := in.Store()
	require.Equal(t, 2, st.Slices().RowCount())

	set := st.Args().Set(st.Slices().ArgSetID(0))
	require.Len(t, set, 2)
	require.Equal(t, "table", st.String(set[0].Key))
	require.Equal(t, "users", st.String(set[0].Value.Str))
	require.Equal(t, "plan", st.String(set[1].Key))
	require.Equal(t, "index-scan", st.String(set[1].Value.Str))

	// The nested slice carried no args.
	require.Equal(t, storage.InvalidArgSetID, st.Slices().ArgSetID(1))
}

func TestIngestUnbalancedSliceEnd(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	in := ingest.New(storage.New())

	require.NoError(t, in.Ingest(ctx, ingest.SliceEnd(5, 3)))
	require.Equal(t, int64(1), in.Store().Stats().SliceEndWithoutBegin.Count())
	require.Equal(t, 0, in.Store().Slices().RowCount())
}

func TestIngestUnknownKind(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	in := ingest.New(storage.New())

	err := in.Ingest(ctx, ingest.Event{Kind: ingest.KindUnknown})
	require.Error(t, err)

	err = in.IngestAll(ctx, []ingest.Event{
		ingest.SliceBegin(1, 1, "x"),
		{Kind: ingest.KindUnknown},
	})
	require.ErrorContains(t, err, "event 1")
}
