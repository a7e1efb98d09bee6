// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package slice

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tracedb/tracedb/pkg/storage"
	"github.com/tracedb/tracedb/pkg/util/leaktest"
	"github.com/tracedb/tracedb/pkg/util/randutil"
)

func TestNesting(t *testing.T) {
	defer leaktest.AfterTest(t)()
	store := storage.New()
	tr := NewTracker(store)
	name := store.InternString("work")

	const track = storage.TrackID(1)
	outer := tr.Begin(100, track, name)
	inner := tr.Begin(150, track, name)

	require.EqualValues(t, 0, store.Slices().Depth(outer))
	require.EqualValues(t, 1, store.Slices().Depth(inner))
	require.Equal(t, 2, tr.OpenCount(track))

	top, ok := tr.TopmostOpenSlice(track)
	require.True(t, ok)
	require.Equal(t, inner, top)

	// Slices close in LIFO order and their durations finalize on close.
	closed, ok := tr.End(180, track)
	require.True(t, ok)
	require.Equal(t, inner, closed)
	require.EqualValues(t, 30, store.Slices().DurNS(inner))
	require.EqualValues(t, -1, store.Slices().DurNS(outer))

	closed, ok = tr.End(200, track)
	require.True(t, ok)
	require.Equal(t, outer, closed)
	require.EqualValues(t, 100, store.Slices().DurNS(outer))

	_, ok = tr.TopmostOpenSlice(track)
	require.False(t, ok)
}

func TestTracksAreIndependent(t *testing.T) {
	defer leaktest.AfterTest(t)()
	store := storage.New()
	tr := NewTracker(store)
	name := store.InternString("work")

	a := tr.Begin(10, 1, name)
	b := tr.Begin(20, 2, name)

	top, ok := tr.TopmostOpenSlice(1)
	require.True(t, ok)
	require.Equal(t, a, top)
	top, ok = tr.TopmostOpenSlice(2)
	require.True(t, ok)
	require.Equal(t, b, top)

	closed, ok := tr.End(30, 2)
	require.True(t, ok)
	require.Equal(t, b, closed)
	require.Equal(t, 1, tr.OpenCount(1))
}

// The tracker agrees with a straightforward per-track stack model under a
// random mix of begins and ends.
func TestRandomNesting(t *testing.T) {
	defer leaktest.AfterTest(t)()
	rng, seed := randutil.NewTestRand()
	t.Logf("seed: %d", seed)

	store := storage.New()
	tr := NewTracker(store)
	name := store.InternString("op")

	const tracks = 4
	model := make([][]storage.SliceID, tracks)
	ts := int64(0)
	for i := 0; i < 1000; i++ {
		ts += int64(randutil.RandIntInRange(rng, 1, 10))
		track := storage.TrackID(rng.Intn(tracks))
		if stack := model[track]; len(stack) == 0 || rng.Intn(2) == 0 {
			id := tr.Begin(ts, track, name)
			require.EqualValues(t, len(stack), store.Slices().Depth(id))
			model[track] = append(stack, id)
		} else {
			closed, ok := tr.End(ts, track)
			require.True(t, ok)
			require.Equal(t, stack[len(stack)-1], closed)
			model[track] = stack[:len(stack)-1]
		}
		for tk, stack := range model {
			require.Equal(t, len(stack), tr.OpenCount(storage.TrackID(tk)))
			top, ok := tr.TopmostOpenSlice(storage.TrackID(tk))
			require.Equal(t, len(stack) > 0, ok)
			if ok {
				require.Equal(t, stack[len(stack)-1], top)
			}
		}
	}
}

// Opening a slice materializes track rows up to the referenced ID.
func TestTracksMaterialized(t *testing.T) {
	defer leaktest.AfterTest(t)()
	store := storage.New()
	tr := NewTracker(store)
	require.Equal(t, 0, store.Tracks().RowCount())

	tr.Begin(10, 4, store.InternString("work"))
	require.Equal(t, 5, store.Tracks().RowCount())

	// Lower track IDs are already covered.
	tr.Begin(20, 2, store.InternString("work"))
	require.Equal(t, 5, store.Tracks().RowCount())
}

func TestEndWithoutBegin(t *testing.T) {
	defer leaktest.AfterTest(t)()
	store := storage.New()
	tr := NewTracker(store)

	_, ok := tr.End(10, 5)
	require.False(t, ok)
	require.EqualValues(t, 1, store.Stats().SliceEndWithoutBegin.Count())

	// The track still works afterwards.
	id := tr.Begin(20, 5, store.InternString("late"))
	closed, ok := tr.End(30, 5)
	require.True(t, ok)
	require.Equal(t, id, closed)
}
