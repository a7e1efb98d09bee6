// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package storage

// ArgValueKind discriminates the variants of ArgValue.
type ArgValueKind uint8

const (
	// ArgString is an interned-string argument value.
	ArgString ArgValueKind = iota
	// ArgInt64 is an integer argument value.
	ArgInt64
)

// ArgValue is a typed argument value.
type ArgValue struct {
	Kind ArgValueKind
	Str  StringID
	Int  int64
}

// StringValue returns an ArgValue holding an interned string.
func StringValue(id StringID) ArgValue {
	return ArgValue{Kind: ArgString, Str: id}
}

// IntValue returns an ArgValue holding an integer.
func IntValue(v int64) ArgValue {
	return ArgValue{Kind: ArgInt64, Int: v}
}

// Arg is a single key/value argument.
type Arg struct {
	Key   StringID
	Value ArgValue
}

// ArgTable stores flattened argument rows. Rows belonging to one set are
// contiguous, and sets are identified by a dense ArgSetID starting at 1.
type ArgTable struct {
	keys   []StringID
	values []ArgValue
	// setStart[i] is the first row of set i+1; a set's rows end where the
	// next set begins (or at the end of the table for the newest set).
	setStart []int
}

// AddArgSet appends the given arguments as a new set and returns its ID.
// Empty sets are not representable; callers pass at least one argument.
func (t *ArgTable) AddArgSet(args []Arg) ArgSetID {
	t.setStart = append(t.setStart, len(t.keys))
	for _, a := range args {
		t.keys = append(t.keys, a.Key)
		t.values = append(t.values, a.Value)
	}
	return ArgSetID(len(t.setStart))
}

// Set returns the arguments in the given set, in insertion order.
func (t *ArgTable) Set(id ArgSetID) []Arg {
	if id == InvalidArgSetID || int(id) > len(t.setStart) {
		return nil
	}
	start := t.setStart[id-1]
	end := len(t.keys)
	if int(id) < len(t.setStart) {
		end = t.setStart[id]
	}
	args := make([]Arg, 0, end-start)
	for i := start; i < end; i++ {
		args = append(args, Arg{Key: t.keys[i], Value: t.values[i]})
	}
	return args
}

// RowCount returns the number of argument rows across all sets.
func (t *ArgTable) RowCount() int {
	return len(t.keys)
}

// SetCount returns the number of argument sets.
func (t *ArgTable) SetCount() int {
	return len(t.setStart)
}
