// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package ingest

import "github.com/tracedb/tracedb/pkg/storage"

// Kind enumerates the decoded trace events the ingester understands.
type Kind uint8

const (
	// KindUnknown is the zero Kind; ingesting it is an error.
	KindUnknown Kind = iota
	// KindSliceBegin opens a slice, optionally attaching modern flows.
	KindSliceBegin
	// KindSliceEnd closes the topmost slice on a track.
	KindSliceEnd
	// KindFlowBegin starts a modern flow inside the topmost open slice.
	KindFlowBegin
	// KindFlowStep extends a modern flow into the topmost open slice.
	KindFlowStep
	// KindFlowEnd finishes a modern flow.
	KindFlowEnd
	// KindLegacyFlowBegin starts a flow identified by a legacy triple.
	KindLegacyFlowBegin
	// KindLegacyFlowStep extends a flow identified by a legacy triple.
	KindLegacyFlowStep
	// KindLegacyFlowEnd finishes a flow identified by a legacy triple.
	KindLegacyFlowEnd
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindSliceBegin:
		return "slice-begin"
	case KindSliceEnd:
		return "slice-end"
	case KindFlowBegin:
		return "flow-begin"
	case KindFlowStep:
		return "flow-step"
	case KindFlowEnd:
		return "flow-end"
	case KindLegacyFlowBegin:
		return "legacy-flow-begin"
	case KindLegacyFlowStep:
		return "legacy-flow-step"
	case KindLegacyFlowEnd:
		return "legacy-flow-end"
	default:
		return "unknown"
	}
}

// SliceArg is a key/value argument carried by a slice-begin event.
type SliceArg struct {
	Key   string
	Value string
}

// Event is one decoded trace event. Only the fields relevant to the Kind are
// consulted. Events must be presented to the ingester in trace order.
type Event struct {
	Kind  Kind
	TS    int64
	Track storage.TrackID

	// Name names the slice opened by KindSliceBegin.
	Name string
	// Args holds arguments attached to the slice opened by KindSliceBegin.
	Args []SliceArg
	// FlowIDs holds modern flows attached to an opening slice. Each either
	// begins here or steps here, depending on whether it is already active.
	FlowIDs []storage.FlowID
	// TerminatingFlowIDs holds modern flows that end inside an opening
	// slice, bound to it and closed.
	TerminatingFlowIDs []storage.FlowID

	// FlowID identifies the flow for the modern flow kinds.
	FlowID storage.FlowID
	// BindEnclosing binds a flow end to the enclosing slice instead of
	// deferring to the next slice close on the track.
	BindEnclosing bool
	// CloseFlow retires the flow identifier on a bound flow end.
	CloseFlow bool

	// LegacySourceID, LegacyCat and LegacyName identify a flow for the
	// legacy kinds.
	LegacySourceID uint64
	LegacyCat      string
	LegacyName     string
}

// SliceBegin returns a slice-open event.
func SliceBegin(ts int64, track storage.TrackID, name string) Event {
	return Event{Kind: KindSliceBegin, TS: ts, Track: track, Name: name}
}

// SliceBeginWithArgs returns a slice-open event carrying arguments.
func SliceBeginWithArgs(ts int64, track storage.TrackID, name string, args []SliceArg) Event {
	return Event{Kind: KindSliceBegin, TS: ts, Track: track, Name: name, Args: args}
}

// SliceBeginWithFlows returns a slice-open event with attached modern flows.
func SliceBeginWithFlows(
	ts int64, track storage.TrackID, name string, flowIDs, terminating []storage.FlowID,
) Event {
	return Event{
		Kind:               KindSliceBegin,
		TS:                 ts,
		Track:              track,
		Name:               name,
		FlowIDs:            flowIDs,
		TerminatingFlowIDs: terminating,
	}
}

// SliceEnd returns a slice-close event.
func SliceEnd(ts int64, track storage.TrackID) Event {
	return Event{Kind: KindSliceEnd, TS: ts, Track: track}
}

// FlowBegin returns a modern flow-begin event.
func FlowBegin(ts int64, track storage.TrackID, flowID storage.FlowID) Event {
	return Event{Kind: KindFlowBegin, TS: ts, Track: track, FlowID: flowID}
}

// FlowStep returns a modern flow-step event.
func FlowStep(ts int64, track storage.TrackID, flowID storage.FlowID) Event {
	return Event{Kind: KindFlowStep, TS: ts, Track: track, FlowID: flowID}
}

// FlowEnd returns a modern flow-end event.
func FlowEnd(
	ts int64, track storage.TrackID, flowID storage.FlowID, bindEnclosing, closeFlow bool,
) Event {
	return Event{
		Kind:          KindFlowEnd,
		TS:            ts,
		Track:         track,
		FlowID:        flowID,
		BindEnclosing: bindEnclosing,
		CloseFlow:     closeFlow,
	}
}

// LegacyFlowBegin returns a legacy flow-begin event.
func LegacyFlowBegin(ts int64, track storage.TrackID, source uint64, cat, name string) Event {
	return Event{
		Kind:           KindLegacyFlowBegin,
		TS:             ts,
		Track:          track,
		LegacySourceID: source,
		LegacyCat:      cat,
		LegacyName:     name,
	}
}

// LegacyFlowStep returns a legacy flow-step event.
func LegacyFlowStep(ts int64, track storage.TrackID, source uint64, cat, name string) Event {
	return Event{
		Kind:           KindLegacyFlowStep,
		TS:             ts,
		Track:          track,
		LegacySourceID: source,
		LegacyCat:      cat,
		LegacyName:     name,
	}
}

// LegacyFlowEnd returns a legacy flow-end event. Legacy ends always close
// the flow; bindEnclosing reflects the event's binding-point flag, with
// deferred binding the default.
func LegacyFlowEnd(
	ts int64, track storage.TrackID, source uint64, cat, name string, bindEnclosing bool,
) Event {
	return Event{
		Kind:           KindLegacyFlowEnd,
		TS:             ts,
		Track:          track,
		LegacySourceID: source,
		LegacyCat:      cat,
		LegacyName:     name,
		BindEnclosing:  bindEnclosing,
	}
}
