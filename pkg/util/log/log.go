// Copyright 2024 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package log provides the process-wide logging facilities. Entries are
// formatted with the tags carried by the context (see the logtags package)
// and written to stderr:
//
//	I240311 09:15:04.123456 18 ingester.go:87 [bench] ingested 1,000,000 events
//
// Formatting is redaction-aware: arguments flow through the redact package
// before rendering.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
	"github.com/petermattis/goid"
	"github.com/tracedb/tracedb/pkg/util/envutil"
	"github.com/tracedb/tracedb/pkg/util/syncutil"
	"github.com/tracedb/tracedb/pkg/util/timeutil"
)

// Severity identifies the sort of log entry.
type Severity int

const (
	// SeverityInfo is used for informational messages.
	SeverityInfo Severity = iota
	// SeverityWarning is used for situations which may require special
	// handling.
	SeverityWarning
	// SeverityError is used for situations that are unexpected but
	// recoverable.
	SeverityError
	// SeverityFatal is used for situations that cannot be recovered from.
	// Logging at this severity terminates the process.
	SeverityFatal
)

var severityChar = [...]byte{'I', 'W', 'E', 'F'}

type loggerT struct {
	mu struct {
		syncutil.Mutex
		out io.Writer
	}
}

var logging = func() *loggerT {
	l := &loggerT{}
	l.mu.out = os.Stderr
	return l
}()

// verbosity gates V and VEventf. Overridable at runtime with SetVerbosity,
// seeded from TRACEDB_VERBOSITY.
var verbosity atomic.Int32

func init() {
	verbosity.Store(int32(envutil.EnvOrDefaultInt("TRACEDB_VERBOSITY", 0)))
}

// V reports whether verbose logging is enabled at the requested level. Guard
// log sites that are expensive or hot with it:
//
//	if log.V(2) { log.Infof(ctx, "details: %+v", state) }
func V(level int32) bool {
	return verbosity.Load() >= level
}

// SetVerbosity adjusts the level up to which V-guarded events are emitted,
// returning the previous value.
func SetVerbosity(level int32) int32 {
	return verbosity.Swap(level)
}

// Infof logs an informational message, rendering the tags found in ctx.
func Infof(ctx context.Context, format string, args ...interface{}) {
	logfDepth(ctx, 1, SeverityInfo, format, args...)
}

// InfofDepth is like Infof, reporting the caller depth frames up the stack.
func InfofDepth(ctx context.Context, depth int, format string, args ...interface{}) {
	logfDepth(ctx, depth+1, SeverityInfo, format, args...)
}

// Warningf logs a warning message.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	logfDepth(ctx, 1, SeverityWarning, format, args...)
}

// Errorf logs an error message.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logfDepth(ctx, 1, SeverityError, format, args...)
}

// Fatalf logs a fatal message and terminates the process.
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	logfDepth(ctx, 1, SeverityFatal, format, args...)
}

// VEventf logs an informational message if verbosity is at least the given
// level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if V(level) {
		logfDepth(ctx, 1, SeverityInfo, format, args...)
	}
}

func logfDepth(ctx context.Context, depth int, sev Severity, format string, args ...interface{}) {
	file, line := callerInfo(depth + 1)
	msg := redact.Sprintf(format, args...)

	var buf strings.Builder
	buf.WriteByte(severityChar[sev])
	buf.WriteString(timeutil.Now().Format("060102 15:04:05.000000"))
	fmt.Fprintf(&buf, " %d %s:%d ", goid.Get(), file, line)
	if tags := logtags.FromContext(ctx); tags != nil {
		fmt.Fprintf(&buf, "[%s] ", tags)
	}
	buf.WriteString(msg.StripMarkers())
	buf.WriteByte('\n')

	logging.mu.Lock()
	io.WriteString(logging.mu.out, buf.String())
	logging.mu.Unlock()

	if sev == SeverityFatal {
		os.Exit(255)
	}
}

func callerInfo(depth int) (file string, line int) {
	var ok bool
	_, file, line, ok = runtime.Caller(depth + 1)
	if !ok {
		return "???", 1
	}
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		file = file[i+1:]
	}
	return file, line
}

// TestingSetOutput redirects the process log sink to w and returns a
// function restoring the previous sink. Only tests use this.
func TestingSetOutput(w io.Writer) func() {
	logging.mu.Lock()
	prev := logging.mu.out
	logging.mu.out = w
	logging.mu.Unlock()
	return func() {
		logging.mu.Lock()
		defer logging.mu.Unlock()
		logging.mu.out = prev
	}
}
