// Copyright 2024 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package metric

import (
	"io"
	"strings"

	"github.com/gogo/protobuf/proto"
	"github.com/prometheus/client_golang/prometheus"
	prometheusgo "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/tracedb/tracedb/pkg/util/syncutil"
)

// PrometheusExporter contains a map of metric families (a metric with
// multiple labels). It initializes each metric family once and reuses it for
// each prometheus scrape. Only metrics in registries scraped through
// ScrapeRegistry are exported.
//
// The exporter can be handed to a prometheus HTTP handler or a push bridge
// as a prometheus.Gatherer.
type PrometheusExporter struct {
	muScrapeAndPrint syncutil.Mutex
	families         map[string]*prometheusgo.MetricFamily
}

var _ prometheus.Gatherer = (*PrometheusExporter)(nil)

// MakePrometheusExporter returns an initialized prometheus exporter.
func MakePrometheusExporter() PrometheusExporter {
	return PrometheusExporter{families: map[string]*prometheusgo.MetricFamily{}}
}

// exportedName transforms a metric name to the prometheus character set.
func exportedName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

// exportedLabel transforms a label name to the prometheus character set.
func exportedLabel(name string) string {
	return exportedName(name)
}

// findOrCreateFamily returns the family for the passed-in metric, creating
// and registering it if it does not exist yet.
func (pm *PrometheusExporter) findOrCreateFamily(
	prom PrometheusExportable,
) *prometheusgo.MetricFamily {
	name := exportedName(prom.GetName())
	if family, ok := pm.families[name]; ok {
		return family
	}
	family := &prometheusgo.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(prom.GetHelp()),
		Type: prom.GetType(),
	}
	pm.families[name] = family
	return family
}

// ScrapeRegistry scrapes all metrics contained in the registry to the metric
// family map, holding on only to the scraped data (which is no longer
// connected to the registry and metrics within) when returning from the call.
func (pm *PrometheusExporter) ScrapeRegistry(registry *Registry) {
	registry.Each(func(_ string, v interface{}) {
		prom, ok := v.(PrometheusExportable)
		if !ok {
			return
		}
		m := prom.ToPrometheusMetric()
		m.Label = prom.GetLabels()
		family := pm.findOrCreateFamily(prom)
		family.Metric = append(family.Metric, m)
	})
}

// Gather implements prometheus.Gatherer.
func (pm *PrometheusExporter) Gather() ([]*prometheusgo.MetricFamily, error) {
	v := make([]*prometheusgo.MetricFamily, 0, len(pm.families))
	for _, family := range pm.families {
		v = append(v, family)
	}
	return v, nil
}

// clearMetrics empties the metric families so that a subsequent scrape
// starts fresh. The families themselves are retained.
func (pm *PrometheusExporter) clearMetrics() {
	for _, family := range pm.families {
		family.Metric = nil
	}
}

// PrintAsText writes all metrics in the families map to the io.Writer in
// prometheus' text format. It removes individual metrics from the families
// as it goes, readying the families for another round of registry additions.
func (pm *PrometheusExporter) PrintAsText(w io.Writer) error {
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, family := range pm.families {
		if err := enc.Encode(family); err != nil {
			return err
		}
	}
	pm.clearMetrics()
	return nil
}

// ScrapeAndPrintAsText scrapes metrics first and then writes them, holding
// an internal lock so that concurrent calls do not interleave families.
func (pm *PrometheusExporter) ScrapeAndPrintAsText(w io.Writer, registry *Registry) error {
	pm.muScrapeAndPrint.Lock()
	defer pm.muScrapeAndPrint.Unlock()
	pm.ScrapeRegistry(registry)
	return pm.PrintAsText(w)
}
