// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package histogram collects operation latencies for benchmark runs.
package histogram

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/tracedb/tracedb/pkg/util/syncutil"
	"github.com/tracedb/tracedb/pkg/util/timeutil"
)

const (
	sigFigs    = 1
	minLatency = 100 * time.Microsecond
)

// NamedHistogram records latencies for one named operation. It is safe for
// concurrent use but intended to be held by a single worker.
type NamedHistogram struct {
	name string
	mu   struct {
		syncutil.Mutex
		current *hdrhistogram.Histogram
	}
}

func newNamedHistogram(reg *Registry, name string) *NamedHistogram {
	h := &NamedHistogram{name: name}
	h.mu.current = reg.newHistogram()
	return h
}

// Record saves one datapoint. Values are clamped into the histogram's
// trackable range so nothing is ever dropped.
func (h *NamedHistogram) Record(elapsed time.Duration) {
	maxLatency := time.Duration(h.mu.current.HighestTrackableValue())
	if elapsed < minLatency {
		elapsed = minLatency
	} else if elapsed > maxLatency {
		elapsed = maxLatency
	}

	h.mu.Lock()
	err := h.mu.current.RecordValue(elapsed.Nanoseconds())
	h.mu.Unlock()

	if err != nil {
		// Recording only fails for out-of-range values, and the clamp above
		// keeps every value in range.
		panic(fmt.Sprintf("%s: recording value: %s", h.name, err))
	}
}

// tick swaps in a fresh histogram and hands the finished one to fn.
func (h *NamedHistogram) tick(
	newHistogram *hdrhistogram.Histogram, fn func(h *hdrhistogram.Histogram),
) {
	h.mu.Lock()
	old := h.mu.current
	h.mu.current = newHistogram
	h.mu.Unlock()
	fn(old)
}

// Registry holds the histograms of a run, grouped by operation name, and
// aggregates them periodically.
type Registry struct {
	mu struct {
		syncutil.Mutex
		registered map[string][]*NamedHistogram
	}

	start         time.Time
	cumulative    map[string]*hdrhistogram.Histogram
	prevTick      map[string]time.Time
	histogramPool *sync.Pool
}

// NewRegistry returns an initialized Registry. maxLat bounds the latencies
// the histograms can track.
func NewRegistry(maxLat time.Duration) *Registry {
	r := &Registry{
		start:      timeutil.Now(),
		cumulative: make(map[string]*hdrhistogram.Histogram),
		prevTick:   make(map[string]time.Time),
		histogramPool: &sync.Pool{
			New: func() interface{} {
				return hdrhistogram.New(minLatency.Nanoseconds(), maxLat.Nanoseconds(), sigFigs)
			},
		},
	}
	r.mu.registered = make(map[string][]*NamedHistogram)
	return r
}

func (r *Registry) newHistogram() *hdrhistogram.Histogram {
	return r.histogramPool.Get().(*hdrhistogram.Histogram)
}

// GetHandle returns a handle for creating and registering NamedHistograms,
// one handle per worker.
func (r *Registry) GetHandle() *Histograms {
	hists := &Histograms{reg: r}
	hists.mu.hists = make(map[string]*NamedHistogram)
	return hists
}

// Tick aggregates all registered histograms by name, invokes fn once per
// name in sorted order, and resets the per-tick state. Call it periodically
// from a single goroutine.
func (r *Registry) Tick(fn func(Tick)) {
	merged := make(map[string]*hdrhistogram.Histogram)
	var names []string

	r.mu.Lock()
	for name, registered := range r.mu.registered {
		m := r.newHistogram()
		for _, hist := range registered {
			hist.tick(r.newHistogram(), func(h *hdrhistogram.Histogram) {
				m.Merge(h)
				h.Reset()
				r.histogramPool.Put(h)
			})
		}
		merged[name] = m
		names = append(names, name)
	}
	r.mu.Unlock()

	now := timeutil.Now()
	sort.Strings(names)
	for _, name := range names {
		mergedHist := merged[name]
		if _, ok := r.cumulative[name]; !ok {
			r.cumulative[name] = r.newHistogram()
		}
		r.cumulative[name].Merge(mergedHist)

		prevTick, ok := r.prevTick[name]
		if !ok {
			prevTick = r.start
		}
		r.prevTick[name] = now
		fn(Tick{
			Name:       name,
			Hist:       mergedHist,
			Cumulative: r.cumulative[name],
			Elapsed:    now.Sub(prevTick),
			Now:        now,
		})
		mergedHist.Reset()
		r.histogramPool.Put(mergedHist)
	}
}

// Histograms is a worker-local handle for creating and registering
// NamedHistograms.
type Histograms struct {
	reg *Registry
	mu  struct {
		syncutil.RWMutex
		hists map[string]*NamedHistogram
	}
}

// Get returns the NamedHistogram for name, creating and registering it on
// first use.
func (h *Histograms) Get(name string) *NamedHistogram {
	h.mu.RLock()
	hist, ok := h.mu.hists[name]
	h.mu.RUnlock()
	if ok {
		return hist
	}

	h.mu.Lock()
	hist, ok = h.mu.hists[name]
	if !ok {
		hist = newNamedHistogram(h.reg, name)
		h.mu.hists[name] = hist
	}
	h.mu.Unlock()

	if !ok {
		h.reg.mu.Lock()
		h.reg.mu.registered[name] = append(h.reg.mu.registered[name], hist)
		h.reg.mu.Unlock()
	}
	return hist
}

// Tick is the aggregation of one name's histograms over one tick period.
type Tick struct {
	// Name is the operation the histograms belong to.
	Name string
	// Hist holds this tick's datapoints; Hist.TotalCount() is the number of
	// operations in the period.
	Hist *hdrhistogram.Histogram
	// Cumulative holds all datapoints since the registry was created.
	Cumulative *hdrhistogram.Histogram
	// Elapsed is the time since the previous tick.
	Elapsed time.Duration
	// Now is when the tick was gathered; it covers [Now-Elapsed, Now).
	Now time.Time
}

// Snapshot converts the tick into its serializable form.
func (t Tick) Snapshot() SnapshotTick {
	return SnapshotTick{
		Name:    t.Name,
		Elapsed: t.Elapsed,
		Now:     t.Now,
		Hist:    t.Hist.Export(),
	}
}

// SnapshotTick parallels Tick with the per-tick histogram exported for
// serialization. The cumulative histogram is omitted; it can be rebuilt by
// merging the per-tick ones.
type SnapshotTick struct {
	Name    string
	Hist    *hdrhistogram.Snapshot
	Elapsed time.Duration
	Now     time.Time
}

// DecodeSnapshots reads a file of newline-delimited JSON SnapshotTicks,
// grouped by name.
func DecodeSnapshots(path string) (map[string][]SnapshotTick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	dec := json.NewDecoder(f)
	ret := make(map[string][]SnapshotTick)
	for {
		var tick SnapshotTick
		if err := dec.Decode(&tick); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		ret[tick.Name] = append(ret[tick.Name], tick)
	}
	return ret, nil
}
