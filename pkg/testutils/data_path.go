// Copyright 2024 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package testutils

import (
	"path/filepath"
	"testing"
)

// TestDataPath returns a path to an asset in the testdata directory of the
// calling test's package. The path is absolute so that tests changing their
// working directory still resolve it.
func TestDataPath(t testing.TB, relative ...string) string {
	relative = append([]string{"testdata"}, relative...)
	path, err := filepath.Abs(filepath.Join(relative...))
	if err != nil {
		t.Fatal(err)
	}
	return path
}
