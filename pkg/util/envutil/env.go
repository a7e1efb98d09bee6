// Copyright 2024 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package envutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// All environment variables defined by this repository share this prefix.
const prefix = "TRACEDB_"

func checkVarName(name string) {
	if !strings.HasPrefix(name, prefix) {
		panic(fmt.Sprintf("environment variable %q does not start with %s", name, prefix))
	}
	for _, c := range name {
		if c != '_' && (c < '0' || c > '9') && (c < 'A' || c > 'Z') {
			panic(fmt.Sprintf("environment variable %q uses invalid characters", name))
		}
	}
}

// EnvString returns the value of the named environment variable and whether
// it was set at all.
func EnvString(name string) (string, bool) {
	checkVarName(name)
	return os.LookupEnv(name)
}

// EnvOrDefaultInt returns the integer value of the named environment
// variable, or def if the variable is unset.
func EnvOrDefaultInt(name string, def int) int {
	if v, ok := EnvString(name); ok {
		i, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			panic(fmt.Sprintf("error parsing %s: %v", name, err))
		}
		return int(i)
	}
	return def
}
