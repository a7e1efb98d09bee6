// Copyright 2024 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package log

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/stretchr/testify/require"
	"github.com/tracedb/tracedb/pkg/util/leaktest"
)

func TestEntryFormat(t *testing.T) {
	defer leaktest.AfterTest(t)()
	var buf bytes.Buffer
	defer TestingSetOutput(&buf)()

	ctx := logtags.AddTag(context.Background(), "track", 7)
	Infof(ctx, "linked %d flows", 3)

	require.Regexp(t,
		`^I\d{6} \d{2}:\d{2}:\d{2}\.\d{6} \d+ log_test\.go:\d+ \[track=7\] linked 3 flows\n$`,
		buf.String())
}

func TestSeverityChars(t *testing.T) {
	defer leaktest.AfterTest(t)()
	var buf bytes.Buffer
	defer TestingSetOutput(&buf)()

	ctx := context.Background()
	Warningf(ctx, "watch out")
	Errorf(ctx, "broken")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, byte('W'), lines[0][0])
	require.Equal(t, byte('E'), lines[1][0])
}

func TestVerbosityGate(t *testing.T) {
	defer leaktest.AfterTest(t)()
	var buf bytes.Buffer
	defer TestingSetOutput(&buf)()
	defer SetVerbosity(SetVerbosity(0))

	VEventf(context.Background(), 1, "hidden")
	require.False(t, V(1))
	require.Empty(t, buf.String())

	SetVerbosity(2)
	require.True(t, V(1))
	VEventf(context.Background(), 1, "shown")
	require.Contains(t, buf.String(), "shown")
}

func TestEveryN(t *testing.T) {
	defer leaktest.AfterTest(t)()
	e := Every(time.Minute)
	base := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)

	require.True(t, e.shouldLog(base))
	require.False(t, e.shouldLog(base.Add(30*time.Second)))
	require.True(t, e.shouldLog(base.Add(time.Minute)))
}
