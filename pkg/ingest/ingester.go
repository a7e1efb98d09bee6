// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package ingest turns a stream of decoded trace events into storage rows.
//
// The Ingester owns the per-trace trackers (slice stacks, flow linkage,
// argument staging) and dispatches events to them in trace order. It is
// strictly single-goroutine: callers feed one event at a time and the
// trackers keep no locks of their own.
package ingest

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tracedb/tracedb/pkg/ingest/args"
	"github.com/tracedb/tracedb/pkg/ingest/flow"
	"github.com/tracedb/tracedb/pkg/ingest/slice"
	"github.com/tracedb/tracedb/pkg/storage"
	"github.com/tracedb/tracedb/pkg/util/log"
)

// Ingester dispatches trace events to the slice and flow trackers and writes
// the results to a Store.
type Ingester struct {
	store  *storage.Store
	slices *slice.Tracker
	flows  *flow.Tracker
	args   *args.Tracker

	// unbalancedEvery throttles the log line for slice ends that have no
	// matching begin. The stats counter still sees every occurrence.
	unbalancedEvery log.EveryN
}

// New returns an Ingester writing to store.
func New(store *storage.Store) *Ingester {
	slices := slice.NewTracker(store)
	argsTracker := args.NewTracker(store)
	return &Ingester{
		store:           store,
		slices:          slices,
		flows:           flow.NewTracker(store, slices, argsTracker),
		args:            argsTracker,
		unbalancedEvery: log.Every(10 * time.Second),
	}
}

// Store returns the store the ingester writes to.
func (in *Ingester) Store() *storage.Store { return in.store }

// Flows returns the flow tracker, for inspecting linkage state between
// events.
func (in *Ingester) Flows() *flow.Tracker { return in.flows }

// Slices returns the slice tracker.
func (in *Ingester) Slices() *slice.Tracker { return in.slices }

// Ingest processes one event. Events must arrive in trace order and from a
// single goroutine. Malformed events (unbalanced ends, unknown flow IDs) are
// counted in the store's stats and dropped; only an event the ingester cannot
// dispatch at all yields an error.
func (in *Ingester) Ingest(ctx context.Context, ev Event) error {
	in.store.Stats().IngestEvents.Inc(1)
	log.VEventf(ctx, 3, "ingest %s ts=%d track=%d", ev.Kind, ev.TS, ev.Track)

	switch ev.Kind {
	case KindSliceBegin:
		in.sliceBegin(ev)

	case KindSliceEnd:
		closed, ok := in.slices.End(ev.TS, ev.Track)
		if !ok {
			if in.unbalancedEvery.ShouldLog() {
				log.Warningf(ctx, "dropping slice end on track %d at %d: no open slice",
					ev.Track, ev.TS)
			}
			return nil
		}
		in.flows.OnSliceClosed(ev.Track, closed)

	case KindFlowBegin:
		in.flows.Begin(ev.Track, ev.FlowID)

	case KindFlowStep:
		in.flows.Step(ev.Track, ev.FlowID)

	case KindFlowEnd:
		in.flows.End(ev.Track, ev.FlowID, ev.BindEnclosing, ev.CloseFlow)

	case KindLegacyFlowBegin:
		in.flows.Begin(ev.Track, in.legacyID(ev))

	case KindLegacyFlowStep:
		in.flows.Step(ev.Track, in.legacyID(ev))

	case KindLegacyFlowEnd:
		// Legacy ends always retire the flow identity; only the binding
		// point is event-controlled.
		in.flows.End(ev.Track, in.legacyID(ev), ev.BindEnclosing, true /* closeFlow */)

	default:
		return errors.Newf("unknown event kind %d", ev.Kind)
	}
	return nil
}

// IngestAll processes events in order, stopping at the first dispatch error.
func (in *Ingester) IngestAll(ctx context.Context, evs []Event) error {
	for i := range evs {
		if err := in.Ingest(ctx, evs[i]); err != nil {
			return errors.Wrapf(err, "event %d", i)
		}
	}
	return nil
}

// sliceBegin opens the slice, then resolves the flows the event attaches to
// it. An attached flow steps into the slice when already active and begins
// there otherwise; terminating flows bind to the slice and are retired.
func (in *Ingester) sliceBegin(ev Event) {
	sliceID := in.slices.Begin(ev.TS, ev.Track, in.store.InternString(ev.Name))
	if len(ev.Args) > 0 {
		ins := in.args.AddArgsToSlice(sliceID)
		for _, a := range ev.Args {
			ins = ins.AddArg(
				in.store.InternString(a.Key),
				storage.StringValue(in.store.InternString(a.Value)),
			)
		}
		in.args.Flush()
	}
	for _, id := range ev.FlowIDs {
		if in.flows.IsActive(id) {
			in.flows.Step(ev.Track, id)
		} else {
			in.flows.Begin(ev.Track, id)
		}
	}
	for _, id := range ev.TerminatingFlowIDs {
		in.flows.End(ev.Track, id, true /* bindEnclosingSlice */, true /* closeFlow */)
	}
}

// legacyID interns the event's category and name and resolves its identity
// triple to a FlowID.
func (in *Ingester) legacyID(ev Event) storage.FlowID {
	return in.flows.GetOrCreateLegacyFlowID(
		ev.LegacySourceID,
		in.store.InternString(ev.LegacyCat),
		in.store.InternString(ev.LegacyName),
	)
}
