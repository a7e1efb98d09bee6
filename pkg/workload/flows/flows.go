// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package flows generates synthetic traces that exercise flow linkage.
//
// The generator emits a well-formed event stream: slices nest properly per
// track, every flow event lands inside an open slice, and flow identifiers
// are never reused. Runs are deterministic for a given configuration.
package flows

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/tracedb/tracedb/pkg/ingest"
	"github.com/tracedb/tracedb/pkg/storage"
	"golang.org/x/exp/rand"
	yaml "gopkg.in/yaml.v2"
)

// Config shapes the generated trace.
type Config struct {
	// Tracks is the number of tracks events are spread over.
	Tracks int `yaml:"tracks"`
	// Events is the number of events to generate before draining still-open
	// slices. The drain appends up to MaxDepth*Tracks closing events on top.
	Events int `yaml:"events"`
	// MaxDepth bounds slice nesting per track.
	MaxDepth int `yaml:"max_depth"`
	// FlowFraction is the probability that an opening slice carries attached
	// flows.
	FlowFraction float64 `yaml:"flow_fraction"`
	// ArgFraction is the probability that an opening slice carries arguments.
	ArgFraction float64 `yaml:"arg_fraction"`
	// LegacyFraction is the probability that a standalone flow event uses a
	// legacy identity triple instead of a plain identifier.
	LegacyFraction float64 `yaml:"legacy_fraction"`
	// DeferFraction is the probability that a flow end defers its binding to
	// the next slice close instead of naming the enclosing slice.
	DeferFraction float64 `yaml:"defer_fraction"`
	// Seed seeds the RNG; equal seeds yield equal traces.
	Seed uint64 `yaml:"seed"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Tracks:         8,
		Events:         10000,
		MaxDepth:       6,
		FlowFraction:   0.3,
		ArgFraction:    0.15,
		LegacyFraction: 0.25,
		DeferFraction:  0.2,
		Seed:           1,
	}
}

// Validate checks the configuration for impossible values.
func (c Config) Validate() error {
	if c.Tracks <= 0 {
		return errors.Newf("tracks must be positive: %d", c.Tracks)
	}
	if c.Events < 0 {
		return errors.Newf("events must be non-negative: %d", c.Events)
	}
	if c.MaxDepth <= 0 {
		return errors.Newf("max_depth must be positive: %d", c.MaxDepth)
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"flow_fraction", c.FlowFraction},
		{"arg_fraction", c.ArgFraction},
		{"legacy_fraction", c.LegacyFraction},
		{"defer_fraction", c.DeferFraction},
	} {
		if f.value < 0 || f.value > 1 {
			return errors.Newf("%s must be in [0, 1]: %f", f.name, f.value)
		}
	}
	return nil
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "validating %s", path)
	}
	return cfg, nil
}

var (
	sliceNames  = []string{"produce", "route", "consume", "handle", "flush", "compact", "rpc", "apply"}
	argShards   = []string{"0", "1", "2", "3"}
	legacyCats  = []string{"net", "disk", "sched", "ipc"}
	legacyNames = []string{"send", "recv", "submit", "complete"}
)

// legacyIdentity is an open legacy flow the generator may still step or end.
type legacyIdentity struct {
	source    uint64
	cat, name string
}

// Generator produces one event per Next call.
type Generator struct {
	cfg Config
	rng *rand.Rand
	ts  int64

	// remaining counts payload events still owed before the drain phase.
	remaining int
	// depths holds the open-slice count per track.
	depths []int

	// active holds modern flows that have begun and not yet ended. Modern
	// identifiers start high so that synthesized legacy identifiers, which
	// count up from zero, stay disjoint in mixed traces.
	active     []storage.FlowID
	nextFlowID storage.FlowID

	legacyOpen []legacyIdentity
	nextSource uint64
}

// NewGenerator returns a Generator for cfg.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(cfg.Seed)),
		remaining:  cfg.Events,
		depths:     make([]int, cfg.Tracks),
		nextFlowID: 1 << 32,
	}, nil
}

// Next returns the next event, or ok=false once the trace is complete. After
// the configured event count is reached, Next closes every slice still open
// so durations finalize and deferred flow ends resolve.
func (g *Generator) Next() (_ ingest.Event, ok bool) {
	if g.remaining > 0 {
		g.remaining--
		return g.payload(), true
	}
	for track := range g.depths {
		if g.depths[track] > 0 {
			g.depths[track]--
			return ingest.SliceEnd(g.tick(), storage.TrackID(track)), true
		}
	}
	return ingest.Event{}, false
}

// tick advances the trace clock by a small random amount.
func (g *Generator) tick() int64 {
	g.ts += int64(g.rng.Intn(90) + 10)
	return g.ts
}

func (g *Generator) payload() ingest.Event {
	track := storage.TrackID(g.rng.Intn(g.cfg.Tracks))
	depth := g.depths[track]
	r := g.rng.Float64()
	switch {
	case depth == 0 || (depth < g.cfg.MaxDepth && r < 0.35):
		return g.sliceBegin(track)
	case r < 0.65:
		g.depths[track]--
		return ingest.SliceEnd(g.tick(), track)
	default:
		// The track has an open slice here, so the flow event binds cleanly.
		return g.flowEvent(track)
	}
}

func (g *Generator) sliceBegin(track storage.TrackID) ingest.Event {
	g.depths[track]++
	name := sliceNames[g.rng.Intn(len(sliceNames))]
	ts := g.tick()
	args := g.sliceArgs()
	if g.rng.Float64() >= g.cfg.FlowFraction {
		ev := ingest.SliceBegin(ts, track, name)
		ev.Args = args
		return ev
	}
	// Attach a flow to the opening slice: finish or extend an active one
	// when available, otherwise start a new one.
	var flowIDs, terminating []storage.FlowID
	switch {
	case len(g.active) > 0 && g.rng.Float64() < 0.4:
		i := g.rng.Intn(len(g.active))
		terminating = append(terminating, g.active[i])
		g.active = append(g.active[:i], g.active[i+1:]...)
	case len(g.active) > 0 && g.rng.Float64() < 0.5:
		flowIDs = append(flowIDs, g.active[g.rng.Intn(len(g.active))])
	default:
		id := g.nextFlowID
		g.nextFlowID++
		g.active = append(g.active, id)
		flowIDs = append(flowIDs, id)
	}
	ev := ingest.SliceBeginWithFlows(ts, track, name, flowIDs, terminating)
	ev.Args = args
	return ev
}

// sliceArgs rolls for optional slice arguments. A shard tag is always present
// when the roll hits; half the time a subsystem tag rides along.
func (g *Generator) sliceArgs() []ingest.SliceArg {
	if g.rng.Float64() >= g.cfg.ArgFraction {
		return nil
	}
	args := []ingest.SliceArg{
		{Key: "shard", Value: argShards[g.rng.Intn(len(argShards))]},
	}
	if g.rng.Float64() < 0.5 {
		args = append(args, ingest.SliceArg{Key: "src", Value: legacyCats[g.rng.Intn(len(legacyCats))]})
	}
	return args
}

func (g *Generator) flowEvent(track storage.TrackID) ingest.Event {
	ts := g.tick()
	if g.rng.Float64() < g.cfg.LegacyFraction {
		return g.legacyEvent(ts, track)
	}
	switch {
	case len(g.active) == 0 || g.rng.Float64() < 0.4:
		id := g.nextFlowID
		g.nextFlowID++
		g.active = append(g.active, id)
		return ingest.FlowBegin(ts, track, id)
	case g.rng.Float64() < 0.6:
		return ingest.FlowStep(ts, track, g.active[g.rng.Intn(len(g.active))])
	default:
		i := g.rng.Intn(len(g.active))
		id := g.active[i]
		g.active = append(g.active[:i], g.active[i+1:]...)
		deferred := g.rng.Float64() < g.cfg.DeferFraction
		return ingest.FlowEnd(ts, track, id, !deferred /* bindEnclosing */, !deferred /* closeFlow */)
	}
}

func (g *Generator) legacyEvent(ts int64, track storage.TrackID) ingest.Event {
	switch {
	case len(g.legacyOpen) == 0 || g.rng.Float64() < 0.4:
		id := legacyIdentity{
			source: g.nextSource,
			cat:    legacyCats[g.rng.Intn(len(legacyCats))],
			name:   legacyNames[g.rng.Intn(len(legacyNames))],
		}
		g.nextSource++
		g.legacyOpen = append(g.legacyOpen, id)
		return ingest.LegacyFlowBegin(ts, track, id.source, id.cat, id.name)
	case g.rng.Float64() < 0.6:
		id := g.legacyOpen[g.rng.Intn(len(g.legacyOpen))]
		return ingest.LegacyFlowStep(ts, track, id.source, id.cat, id.name)
	default:
		i := g.rng.Intn(len(g.legacyOpen))
		id := g.legacyOpen[i]
		g.legacyOpen = append(g.legacyOpen[:i], g.legacyOpen[i+1:]...)
		deferred := g.rng.Float64() < g.cfg.DeferFraction
		return ingest.LegacyFlowEnd(ts, track, id.source, id.cat, id.name, !deferred /* bindEnclosing */)
	}
}
