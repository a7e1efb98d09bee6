// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/tracedb/tracedb/pkg/ingest"
	"github.com/tracedb/tracedb/pkg/storage"
	"github.com/tracedb/tracedb/pkg/util/humanizeutil"
	"github.com/tracedb/tracedb/pkg/util/log"
	"github.com/tracedb/tracedb/pkg/util/metric"
	"github.com/tracedb/tracedb/pkg/workload/flows"
)

var demoFlags struct {
	events  int
	tracks  int
	seed    uint64
	maxRows int
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "ingest a generated trace and print the resulting tables",
	Long: `
Generate a small synthetic trace, run it through ingestion, and print the
slice table, the flow-edge table and the ingestion stats.
`,
	RunE: runDemo,
}

func init() {
	f := demoCmd.Flags()
	f.IntVar(&demoFlags.events, "events", 64, "number of events to generate")
	f.IntVar(&demoFlags.tracks, "tracks", 3, "number of tracks to spread events over")
	f.Uint64Var(&demoFlags.seed, "seed", 1, "seed for the trace generator")
	f.IntVar(&demoFlags.maxRows, "max-rows", 20, "maximum rows to print per table")
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := logtags.AddTag(context.Background(), "demo", nil)

	cfg := flows.DefaultConfig()
	cfg.Events = demoFlags.events
	cfg.Tracks = demoFlags.tracks
	cfg.Seed = demoFlags.seed

	gen, err := flows.NewGenerator(cfg)
	if err != nil {
		return err
	}
	in := ingest.New(storage.New())
	var n int
	for {
		ev, ok := gen.Next()
		if !ok {
			break
		}
		if err := in.Ingest(ctx, ev); err != nil {
			return err
		}
		n++
	}

	st := in.Store()
	log.Infof(ctx, "ingested %d events: %d slices, %d flow edges, %d interned strings",
		n, st.Slices().RowCount(), st.Flows().RowCount(), st.StringCount())

	fmt.Fprintln(stdout, "slices:")
	printSlices(stdout, st, demoFlags.maxRows)
	fmt.Fprintln(stdout, "flow edges:")
	printFlowEdges(stdout, st, demoFlags.maxRows)
	fmt.Fprintln(stdout, "stats:")
	printStats(stdout, st)
	return nil
}

func printSlices(w io.Writer, st *storage.Store, maxRows int) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"slice", "track", "name", "start", "dur", "depth", "args"})
	slices := st.Slices()
	total := slices.RowCount()
	for i := 0; i < total && i < maxRows; i++ {
		id := storage.SliceID(i)
		dur := "open"
		if d := slices.DurNS(id); d >= 0 {
			dur = string(humanizeutil.Duration(time.Duration(d)))
		}
		table.Append([]string{
			fmt.Sprintf("s%d", i),
			fmt.Sprintf("%d", slices.Track(id)),
			st.String(slices.Name(id)),
			fmt.Sprintf("%d", slices.StartNS(id)),
			dur,
			fmt.Sprintf("%d", slices.Depth(id)),
			formatArgs(st, slices.ArgSetID(id)),
		})
	}
	table.Render()
	if total > maxRows {
		fmt.Fprintf(w, "(%d more rows)\n", total-maxRows)
	}
}

func printFlowEdges(w io.Writer, st *storage.Store, maxRows int) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"edge", "out", "in", "args"})
	edges := st.Flows()
	total := edges.RowCount()
	for i := 0; i < total && i < maxRows; i++ {
		id := storage.FlowEdgeID(i)
		table.Append([]string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("s%d", edges.SliceOut(id)),
			fmt.Sprintf("s%d", edges.SliceIn(id)),
			formatArgs(st, edges.ArgSetID(id)),
		})
	}
	table.Render()
	if total > maxRows {
		fmt.Fprintf(w, "(%d more rows)\n", total-maxRows)
	}
}

func formatArgs(st *storage.Store, id storage.ArgSetID) string {
	var sb strings.Builder
	for i, arg := range st.Args().Set(id) {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(st.String(arg.Key))
		sb.WriteByte('=')
		if arg.Value.Kind == storage.ArgString {
			sb.WriteString(st.String(arg.Value.Str))
		} else {
			fmt.Fprintf(&sb, "%d", arg.Value.Int)
		}
	}
	return sb.String()
}

func printStats(w io.Writer, st *storage.Store) {
	type row struct {
		name  string
		count int64
	}
	var rows []row
	st.Registry().Each(func(name string, v interface{}) {
		if c, ok := v.(*metric.Counter); ok {
			rows = append(rows, row{name: name, count: c.Count()})
		}
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"stat", "count"})
	for _, r := range rows {
		table.Append([]string{r.name, fmt.Sprintf("%d", r.count)})
	}
	table.Render()
}
