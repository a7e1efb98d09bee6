// Copyright 2024 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package metric

import (
	"context"
	"reflect"

	"github.com/tracedb/tracedb/pkg/util/log"
	"github.com/tracedb/tracedb/pkg/util/syncutil"
)

// A Registry is a list of metrics. It provides a simple way of iterating over
// them and exporting them in one batch.
type Registry struct {
	syncutil.Mutex
	tracked map[string]Iterable
}

// NewRegistry creates a new Registry.
func NewRegistry() *Registry {
	return &Registry{
		tracked: map[string]Iterable{},
	}
}

// AddMetric adds the passed-in metric to the registry.
func (r *Registry) AddMetric(metric Iterable) {
	r.Lock()
	defer r.Unlock()
	r.tracked[metric.GetName()] = metric
	if log.V(2) {
		log.Infof(context.TODO(), "added metric: %s (%T)", metric.GetName(), metric)
	}
}

// AddMetricStruct examines all fields of metricStruct and adds all Iterable
// or Registry objects to the registry.
func (r *Registry) AddMetricStruct(metricStruct interface{}) {
	v := reflect.ValueOf(metricStruct)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		vfield, tfield := v.Field(i), t.Field(i)
		if !vfield.CanInterface() {
			if log.V(2) {
				log.Infof(context.TODO(), "skipping unexported field %s", tfield.Name)
			}
			continue
		}
		switch vfield.Kind() {
		case reflect.Array, reflect.Slice:
			for j := 0; j < vfield.Len(); j++ {
				r.addMetricValue(vfield.Index(j), tfield.Name)
			}
		default:
			r.addMetricValue(vfield, tfield.Name)
		}
	}
}

func (r *Registry) addMetricValue(val reflect.Value, name string) {
	if val.Kind() == reflect.Ptr && val.IsNil() {
		return
	}
	switch typ := val.Interface().(type) {
	case Iterable:
		r.AddMetric(typ)
	default:
		if log.V(2) {
			log.Infof(context.TODO(), "skipping non-metric field %s", name)
		}
	}
}

// Each calls the given closure for all metrics.
func (r *Registry) Each(f func(name string, val interface{})) {
	r.Lock()
	defer r.Unlock()
	for _, metric := range r.tracked {
		metric.Inspect(func(v interface{}) {
			f(metric.GetName(), v)
		})
	}
}
