// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tracedb/tracedb/pkg/util/leaktest"
)

func TestInternString(t *testing.T) {
	defer leaktest.AfterTest(t)()
	s := New()

	// The empty string is pre-interned as ID 0.
	require.Equal(t, StringID(0), s.InternString(""))
	require.Equal(t, "", s.String(0))

	a := s.InternString("render")
	b := s.InternString("decode")
	require.NotEqual(t, a, b)
	require.Equal(t, a, s.InternString("render"))
	require.Equal(t, "render", s.String(a))
	require.Equal(t, "decode", s.String(b))
	require.Equal(t, 3, s.StringCount())
}

func TestSliceTable(t *testing.T) {
	defer leaktest.AfterTest(t)()
	s := New()
	name := s.InternString("work")

	id := s.Slices().Insert(SliceRow{Track: 3, StartNS: 100, DurNS: -1, Name: name, Depth: 2})
	require.Equal(t, SliceID(0), id)
	require.Equal(t, 1, s.Slices().RowCount())
	require.Equal(t, TrackID(3), s.Slices().Track(id))
	require.EqualValues(t, 100, s.Slices().StartNS(id))
	require.EqualValues(t, -1, s.Slices().DurNS(id))
	require.EqualValues(t, 2, s.Slices().Depth(id))

	s.Slices().SetDurNS(id, 50)
	require.EqualValues(t, 50, s.Slices().DurNS(id))
}

func TestFlowTable(t *testing.T) {
	defer leaktest.AfterTest(t)()
	s := New()

	e0 := s.Flows().Insert(1, 2)
	e1 := s.Flows().Insert(2, 5)
	require.Equal(t, FlowEdgeID(0), e0)
	require.Equal(t, FlowEdgeID(1), e1)
	require.Equal(t, SliceID(1), s.Flows().SliceOut(e0))
	require.Equal(t, SliceID(2), s.Flows().SliceIn(e0))

	// Edges start with no arguments.
	require.Equal(t, InvalidArgSetID, s.Flows().ArgSetID(e0))
	s.Flows().SetArgSetID(e0, 1)
	require.Equal(t, ArgSetID(1), s.Flows().ArgSetID(e0))
	require.Equal(t, InvalidArgSetID, s.Flows().ArgSetID(e1))
}

func TestArgTable(t *testing.T) {
	defer leaktest.AfterTest(t)()
	s := New()
	k1, k2 := s.InternString("name"), s.InternString("cat")
	v1, v2 := s.InternString("send"), s.InternString("net")

	set1 := s.Args().AddArgSet([]Arg{
		{Key: k1, Value: StringValue(v1)},
		{Key: k2, Value: StringValue(v2)},
	})
	set2 := s.Args().AddArgSet([]Arg{
		{Key: k1, Value: IntValue(7)},
	})
	require.Equal(t, ArgSetID(1), set1)
	require.Equal(t, ArgSetID(2), set2)
	require.Equal(t, 3, s.Args().RowCount())
	require.Equal(t, 2, s.Args().SetCount())

	args := s.Args().Set(set1)
	require.Len(t, args, 2)
	require.Equal(t, k1, args[0].Key)
	require.Equal(t, v1, args[0].Value.Str)
	require.Equal(t, k2, args[1].Key)

	args = s.Args().Set(set2)
	require.Len(t, args, 1)
	require.Equal(t, ArgInt64, args[0].Value.Kind)
	require.EqualValues(t, 7, args[0].Value.Int)

	require.Nil(t, s.Args().Set(InvalidArgSetID))
	require.Nil(t, s.Args().Set(99))
}

func TestStatsRegistered(t *testing.T) {
	defer leaktest.AfterTest(t)()
	s := New()
	s.Stats().FlowDuplicateID.Inc(1)

	names := map[string]int64{}
	gauges := map[string]int64{}
	s.Registry().Each(func(name string, v interface{}) {
		switch m := v.(type) {
		case interface{ Count() int64 }:
			names[name] = m.Count()
		case interface{ Value() int64 }:
			gauges[name] = m.Value()
		}
	})
	require.EqualValues(t, 1, names["flow.duplicate_id"])
	for _, name := range []string{
		"flow.no_enclosing_slice",
		"flow.step_without_start",
		"flow.end_without_start",
		"slice.end_without_begin",
		"ingest.events",
		"ingest.slices",
		"ingest.flow_edges",
	} {
		count, ok := names[name]
		require.True(t, ok, "missing stat %s", name)
		require.Zero(t, count)
	}
	_, ok := gauges["slice.open"]
	require.True(t, ok, "missing stat slice.open")
}
