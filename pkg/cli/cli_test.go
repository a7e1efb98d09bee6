// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tracedb/tracedb/pkg/util/leaktest"
	"github.com/tracedb/tracedb/pkg/workload/histogram"
)

// runCapture executes the root command with args and returns what it printed.
func runCapture(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	defer func() { stdout = prev }()
	require.NoError(t, Run(args))
	return buf.String()
}

func TestVersion(t *testing.T) {
	defer leaktest.AfterTest(t)()
	out := runCapture(t, "version")
	require.Contains(t, out, "Version:")
	require.Contains(t, out, "Go Version:")
}

func TestDemo(t *testing.T) {
	defer leaktest.AfterTest(t)()
	out := runCapture(t, "demo", "--events", "40", "--seed", "3")
	require.Contains(t, out, "slices:")
	require.Contains(t, out, "flow edges:")
	require.Contains(t, out, "ingest.events")
}

func TestBench(t *testing.T) {
	defer leaktest.AfterTest(t)()
	histFile := filepath.Join(t.TempDir(), "latencies.json")
	out := runCapture(t, "bench", "--events", "500", "--batch", "64",
		"--histogram-file", histFile, "--prometheus")
	require.Contains(t, out, "p99")
	require.Contains(t, out, "scan")
	// The prometheus dump renders counter names in its character set.
	require.Contains(t, out, "ingest_events")

	snaps, err := histogram.DecodeSnapshots(histFile)
	require.NoError(t, err)
	require.Contains(t, snaps, "ingest")
	require.Contains(t, snaps, "scan")
}
