// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tracedb/tracedb/pkg/ingest"
	"github.com/tracedb/tracedb/pkg/storage"
	"github.com/tracedb/tracedb/pkg/util/humanizeutil"
	"github.com/tracedb/tracedb/pkg/util/log"
	"github.com/tracedb/tracedb/pkg/util/metric"
	"github.com/tracedb/tracedb/pkg/util/timeutil"
	"github.com/tracedb/tracedb/pkg/workload/flows"
	"github.com/tracedb/tracedb/pkg/workload/histogram"
)

var benchFlags struct {
	mixFile    string
	events     int
	tracks     int
	seed       uint64
	batch      int
	histFile   string
	prometheus bool
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "measure ingestion throughput on a generated trace",
	Long: `
Generate a synthetic trace, ingest it while sampling per-batch latencies, and
print throughput and latency percentiles. The generated mix is configurable
through a YAML file; flags override individual knobs.
`,
	RunE: runBench,
}

func init() {
	defaults := flows.DefaultConfig()
	f := benchCmd.Flags()
	f.StringVar(&benchFlags.mixFile, "mix-file", "",
		"YAML file configuring the generated trace")
	f.IntVar(&benchFlags.events, "events", defaults.Events, "number of events to generate")
	f.IntVar(&benchFlags.tracks, "tracks", defaults.Tracks, "number of tracks to spread events over")
	f.Uint64Var(&benchFlags.seed, "seed", defaults.Seed, "seed for the trace generator")
	f.IntVar(&benchFlags.batch, "batch", 1024, "events per recorded latency sample")
	f.StringVar(&benchFlags.histFile, "histogram-file", "",
		"when set, write latency snapshots to this file as newline-delimited JSON")
	f.BoolVar(&benchFlags.prometheus, "prometheus", false,
		"print ingestion stats in prometheus text format after the run")
}

// overrideConfigFromFlags applies trace knobs on top of the mix file, but
// only for flags set explicitly on the command line.
func overrideConfigFromFlags(cfg *flows.Config, fl *pflag.FlagSet) {
	if fl.Changed("events") {
		cfg.Events = benchFlags.events
	}
	if fl.Changed("tracks") {
		cfg.Tracks = benchFlags.tracks
	}
	if fl.Changed("seed") {
		cfg.Seed = benchFlags.seed
	}
}

func runBench(cmd *cobra.Command, args []string) error {
	ctx := logtags.AddTag(context.Background(), "bench", nil)

	cfg := flows.DefaultConfig()
	if benchFlags.mixFile != "" {
		var err error
		if cfg, err = flows.LoadConfig(benchFlags.mixFile); err != nil {
			return err
		}
	}
	overrideConfigFromFlags(&cfg, cmd.Flags())

	gen, err := flows.NewGenerator(cfg)
	if err != nil {
		return err
	}

	var snapshots *json.Encoder
	if benchFlags.histFile != "" {
		f, err := os.Create(benchFlags.histFile)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		snapshots = json.NewEncoder(f)
	}

	reg := histogram.NewRegistry(time.Minute)
	hists := reg.GetHandle()
	in := ingest.New(storage.New())

	var total int
	start := timeutil.Now()
	for done := false; !done; {
		batchStart := timeutil.Now()
		n := 0
		for n < benchFlags.batch {
			ev, ok := gen.Next()
			if !ok {
				done = true
				break
			}
			if err := in.Ingest(ctx, ev); err != nil {
				return err
			}
			n++
		}
		if n > 0 {
			hists.Get("ingest").Record(timeutil.Since(batchStart))
			total += n
		}
	}
	elapsed := timeutil.Since(start)
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}

	st := in.Store()

	// A timed read pass over the materialized tables.
	scanStart := timeutil.Now()
	var busyNS int64
	slices := st.Slices()
	for i := 0; i < slices.RowCount(); i++ {
		if d := slices.DurNS(storage.SliceID(i)); d > 0 {
			busyNS += d
		}
	}
	hists.Get("scan").Record(timeutil.Since(scanStart))

	log.Infof(ctx,
		"ingested %s events in %s (%s events/sec): %s slices, %s flow edges, %s of tables, %s of slice time",
		humanizeutil.Count(uint64(total)),
		humanizeutil.Duration(elapsed),
		humanizeutil.Count(uint64(float64(total)/elapsed.Seconds())),
		humanizeutil.Count(uint64(st.Slices().RowCount())),
		humanizeutil.Count(uint64(st.Flows().RowCount())),
		humanizeutil.IBytes(st.ApproxBytes()),
		humanizeutil.Duration(time.Duration(busyNS)))

	var encErr error
	table := tablewriter.NewWriter(stdout)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"op", "samples", "p50", "p95", "p99", "max"})
	reg.Tick(func(t histogram.Tick) {
		if snapshots != nil {
			if err := snapshots.Encode(t.Snapshot()); err != nil && encErr == nil {
				encErr = err
			}
		}
		table.Append([]string{
			t.Name,
			fmt.Sprintf("%d", t.Hist.TotalCount()),
			string(humanizeutil.Duration(time.Duration(t.Hist.ValueAtQuantile(50)))),
			string(humanizeutil.Duration(time.Duration(t.Hist.ValueAtQuantile(95)))),
			string(humanizeutil.Duration(time.Duration(t.Hist.ValueAtQuantile(99)))),
			string(humanizeutil.Duration(time.Duration(t.Hist.Max()))),
		})
	})
	table.Render()
	if encErr != nil {
		return encErr
	}

	if benchFlags.prometheus {
		exporter := metric.MakePrometheusExporter()
		if err := exporter.ScrapeAndPrintAsText(stdout, st.Registry()); err != nil {
			return err
		}
	}
	return nil
}
