// Copyright 2024 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package humanizeutil

import (
	"fmt"

	"github.com/cockroachdb/redact"
	"github.com/dustin/go-humanize"
)

// IBytes is an int64 version of go-humanize's IBytes.
func IBytes(value int64) redact.SafeString {
	if value < 0 {
		return redact.SafeString(fmt.Sprintf("-%s", humanize.IBytes(uint64(-value))))
	}
	return redact.SafeString(humanize.IBytes(uint64(value)))
}

// Count formats a unitless integer value with thousands separators.
func Count(value uint64) redact.SafeString {
	return redact.SafeString(humanize.Comma(int64(value)))
}
