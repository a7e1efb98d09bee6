// Copyright 2024 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package metric provides server metric primitives: counters and gauges with
// attached metadata, a registry to collect them, and an exporter speaking the
// Prometheus exposition format.
package metric

import (
	"sync/atomic"

	"github.com/gogo/protobuf/proto"
	prometheusgo "github.com/prometheus/client_model/go"
)

// Iterable provides a method for synchronized access to interior objects.
type Iterable interface {
	// GetName returns the fully-qualified name of the metric.
	GetName() string
	// GetHelp returns the help text for the metric.
	GetHelp() string
	// Inspect calls the given closure with each contained item.
	Inspect(func(interface{}))
}

// PrometheusExportable is implemented by individual metrics that can be
// rendered in the Prometheus exposition format.
type PrometheusExportable interface {
	GetName() string
	GetHelp() string
	GetType() *prometheusgo.MetricType
	GetLabels() []*prometheusgo.LabelPair
	// ToPrometheusMetric returns a filled-in prometheus metric of the right
	// type, without labels or timestamps.
	ToPrometheusMetric() *prometheusgo.Metric
}

// Unit describes how the metric's numeric value is to be interpreted.
type Unit int32

// Units, named after the enum values in the Prometheus data model so that
// call sites read uniformly.
const (
	Unit_COUNT Unit = iota
	Unit_NANOSECONDS
	Unit_BYTES
	Unit_PERCENT
	Unit_SECONDS
)

// Metadata holds the human-facing description of a metric. Every metric in
// the repository declares one.
type Metadata struct {
	Name        string
	Help        string
	Measurement string
	Unit        Unit
	MetricType  prometheusgo.MetricType
	Labels      []*prometheusgo.LabelPair
}

// GetName returns the metric's name.
func (m *Metadata) GetName() string {
	return m.Name
}

// GetHelp returns the metric's help text.
func (m *Metadata) GetHelp() string {
	return m.Help
}

// GetMeasurement returns the label for the metric's value.
func (m *Metadata) GetMeasurement() string {
	return m.Measurement
}

// GetUnit returns the metric's unit of measurement.
func (m *Metadata) GetUnit() Unit {
	return m.Unit
}

// GetType returns the Prometheus type enum for this metric.
func (m *Metadata) GetType() *prometheusgo.MetricType {
	return &m.MetricType
}

// GetLabels returns the metric's labels.
func (m *Metadata) GetLabels() []*prometheusgo.LabelPair {
	return m.Labels
}

// AddLabel adds a label/value pair for this metric.
func (m *Metadata) AddLabel(name, value string) {
	m.Labels = append(m.Labels,
		&prometheusgo.LabelPair{
			Name:  proto.String(exportedLabel(name)),
			Value: proto.String(value),
		})
}

// A Counter holds a single mutable atomic value.
type Counter struct {
	Metadata
	count atomic.Int64
}

var _ Iterable = (*Counter)(nil)
var _ PrometheusExportable = (*Counter)(nil)

// NewCounter creates a counter.
func NewCounter(metadata Metadata) *Counter {
	metadata.MetricType = prometheusgo.MetricType_COUNTER
	return &Counter{Metadata: metadata}
}

// Inc atomically increments the counter by i.
func (c *Counter) Inc(i int64) {
	c.count.Add(i)
}

// Count returns the current value of the counter.
func (c *Counter) Count() int64 {
	return c.count.Load()
}

// Clear resets the counter to zero.
func (c *Counter) Clear() {
	c.count.Store(0)
}

// Inspect calls the given closure with itself.
func (c *Counter) Inspect(f func(interface{})) {
	f(c)
}

// ToPrometheusMetric implements PrometheusExportable.
func (c *Counter) ToPrometheusMetric() *prometheusgo.Metric {
	return &prometheusgo.Metric{
		Counter: &prometheusgo.Counter{Value: proto.Float64(float64(c.Count()))},
	}
}

// A Gauge atomically stores a single integer value.
type Gauge struct {
	Metadata
	value atomic.Int64
}

var _ Iterable = (*Gauge)(nil)
var _ PrometheusExportable = (*Gauge)(nil)

// NewGauge creates a Gauge.
func NewGauge(metadata Metadata) *Gauge {
	metadata.MetricType = prometheusgo.MetricType_GAUGE
	return &Gauge{Metadata: metadata}
}

// Update replaces the gauge's value.
func (g *Gauge) Update(v int64) {
	g.value.Store(v)
}

// Value returns the gauge's current value.
func (g *Gauge) Value() int64 {
	return g.value.Load()
}

// Inc increments the gauge's value by i.
func (g *Gauge) Inc(i int64) {
	g.value.Add(i)
}

// Dec decrements the gauge's value by i.
func (g *Gauge) Dec(i int64) {
	g.value.Add(-i)
}

// Inspect calls the given closure with itself.
func (g *Gauge) Inspect(f func(interface{})) {
	f(g)
}

// ToPrometheusMetric implements PrometheusExportable.
func (g *Gauge) ToPrometheusMetric() *prometheusgo.Metric {
	return &prometheusgo.Metric{
		Gauge: &prometheusgo.Gauge{Value: proto.Float64(float64(g.Value()))},
	}
}
