// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package storage

// stringInterner assigns dense StringIDs to distinct strings. Interning the
// same string twice returns the same ID, and IDs are assigned in first-seen
// order so that stores fed identical inputs intern identically.
type stringInterner struct {
	ids  map[string]StringID
	strs []string
}

func newStringInterner() *stringInterner {
	si := &stringInterner{ids: make(map[string]StringID)}
	// The empty string is pre-interned as ID 0.
	si.intern("")
	return si
}

func (si *stringInterner) intern(s string) StringID {
	if id, ok := si.ids[s]; ok {
		return id
	}
	id := StringID(len(si.strs))
	si.ids[s] = id
	si.strs = append(si.strs, s)
	return id
}

func (si *stringInterner) get(id StringID) string {
	return si.strs[id]
}

func (si *stringInterner) count() int {
	return len(si.strs)
}
