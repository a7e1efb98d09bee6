// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// This is the entry point for the tracedb binary.
package main

import "github.com/tracedb/tracedb/pkg/cli"

func main() {
	cli.Main()
}
