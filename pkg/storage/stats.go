// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package storage

import "github.com/tracedb/tracedb/pkg/util/metric"

var (
	metaFlowNoEnclosingSlice = metric.Metadata{
		Name:        "flow.no_enclosing_slice",
		Help:        "Flow events that arrived while no slice was open on their track",
		Measurement: "Flow Events",
		Unit:        metric.Unit_COUNT,
	}
	metaFlowDuplicateID = metric.Metadata{
		Name:        "flow.duplicate_id",
		Help:        "Flow begins naming an identifier that was already active",
		Measurement: "Flow Events",
		Unit:        metric.Unit_COUNT,
	}
	metaFlowStepWithoutStart = metric.Metadata{
		Name:        "flow.step_without_start",
		Help:        "Flow steps naming an identifier with no recorded begin",
		Measurement: "Flow Events",
		Unit:        metric.Unit_COUNT,
	}
	metaFlowEndWithoutStart = metric.Metadata{
		Name:        "flow.end_without_start",
		Help:        "Flow ends naming an identifier with no recorded begin",
		Measurement: "Flow Events",
		Unit:        metric.Unit_COUNT,
	}
	metaSliceEndWithoutBegin = metric.Metadata{
		Name:        "slice.end_without_begin",
		Help:        "Slice ends on tracks with no open slice",
		Measurement: "Slice Events",
		Unit:        metric.Unit_COUNT,
	}
	metaIngestEvents = metric.Metadata{
		Name:        "ingest.events",
		Help:        "Events accepted by the ingestion loop",
		Measurement: "Events",
		Unit:        metric.Unit_COUNT,
	}
	metaIngestSlices = metric.Metadata{
		Name:        "ingest.slices",
		Help:        "Slices opened during ingestion",
		Measurement: "Slices",
		Unit:        metric.Unit_COUNT,
	}
	metaIngestFlowEdges = metric.Metadata{
		Name:        "ingest.flow_edges",
		Help:        "Flow edges materialized in storage",
		Measurement: "Edges",
		Unit:        metric.Unit_COUNT,
	}
	metaSliceOpen = metric.Metadata{
		Name:        "slice.open",
		Help:        "Slices currently open across all tracks",
		Measurement: "Slices",
		Unit:        metric.Unit_COUNT,
	}
)

// Stats counts ingestion anomalies and progress. The importers only ever
// increment these; malformed inputs are recorded here and ingestion carries
// on. Nothing on the ingest path reads them back.
type Stats struct {
	FlowNoEnclosingSlice *metric.Counter
	FlowDuplicateID      *metric.Counter
	FlowStepWithoutStart *metric.Counter
	FlowEndWithoutStart  *metric.Counter
	SliceEndWithoutBegin *metric.Counter
	IngestEvents         *metric.Counter
	IngestSlices         *metric.Counter
	IngestFlowEdges      *metric.Counter
	OpenSlices           *metric.Gauge
}

func makeStats() Stats {
	return Stats{
		FlowNoEnclosingSlice: metric.NewCounter(metaFlowNoEnclosingSlice),
		FlowDuplicateID:      metric.NewCounter(metaFlowDuplicateID),
		FlowStepWithoutStart: metric.NewCounter(metaFlowStepWithoutStart),
		FlowEndWithoutStart:  metric.NewCounter(metaFlowEndWithoutStart),
		SliceEndWithoutBegin: metric.NewCounter(metaSliceEndWithoutBegin),
		IngestEvents:         metric.NewCounter(metaIngestEvents),
		IngestSlices:         metric.NewCounter(metaIngestSlices),
		IngestFlowEdges:      metric.NewCounter(metaIngestFlowEdges),
		OpenSlices:           metric.NewGauge(metaSliceOpen),
	}
}
