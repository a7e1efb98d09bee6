// Copyright 2024 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package metric

import (
	"bytes"
	"testing"

	prometheusgo "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"github.com/tracedb/tracedb/pkg/util/leaktest"
)

func TestCounter(t *testing.T) {
	defer leaktest.AfterTest(t)()
	c := NewCounter(Metadata{Name: "test.counter", Help: "a counter"})
	require.EqualValues(t, 0, c.Count())
	c.Inc(3)
	c.Inc(7)
	require.EqualValues(t, 10, c.Count())
	c.Clear()
	require.EqualValues(t, 0, c.Count())

	require.Equal(t, prometheusgo.MetricType_COUNTER, *c.GetType())
	m := c.ToPrometheusMetric()
	require.NotNil(t, m.Counter)
}

func TestGauge(t *testing.T) {
	defer leaktest.AfterTest(t)()
	g := NewGauge(Metadata{Name: "test.gauge", Help: "a gauge"})
	g.Update(42)
	require.EqualValues(t, 42, g.Value())
	g.Inc(8)
	g.Dec(20)
	require.EqualValues(t, 30, g.Value())
	require.Equal(t, prometheusgo.MetricType_GAUGE, *g.GetType())
}

type testMetrics struct {
	Accepted *Counter
	Rejected *Counter
	Depth    *Gauge
	ignored  int //nolint:unused
}

func TestAddMetricStruct(t *testing.T) {
	defer leaktest.AfterTest(t)()
	m := testMetrics{
		Accepted: NewCounter(Metadata{Name: "events.accepted", Help: "accepted"}),
		Rejected: NewCounter(Metadata{Name: "events.rejected", Help: "rejected"}),
		Depth:    NewGauge(Metadata{Name: "queue.depth", Help: "depth"}),
	}
	r := NewRegistry()
	r.AddMetricStruct(m)

	names := map[string]bool{}
	r.Each(func(name string, _ interface{}) {
		names[name] = true
	})
	require.Equal(t, map[string]bool{
		"events.accepted": true,
		"events.rejected": true,
		"queue.depth":     true,
	}, names)
}

func TestPrometheusExporter(t *testing.T) {
	defer leaktest.AfterTest(t)()
	r := NewRegistry()
	c := NewCounter(Metadata{Name: "flow.duplicate_id", Help: "dupes"})
	c.Inc(2)
	r.AddMetric(c)

	c.AddLabel("source", "ingest")

	pe := MakePrometheusExporter()
	pe.ScrapeRegistry(r)

	families, err := pe.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Equal(t, "flow_duplicate_id", families[0].GetName())
	require.Len(t, families[0].Metric, 1)
	require.EqualValues(t, 2, families[0].Metric[0].Counter.GetValue())

	var buf bytes.Buffer
	require.NoError(t, pe.PrintAsText(&buf))
	require.Contains(t, buf.String(), `flow_duplicate_id{source="ingest"} 2`)

	// PrintAsText clears the gathered metrics but keeps the families.
	families, err = pe.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Empty(t, families[0].Metric)
}
