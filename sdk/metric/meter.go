// Copyright Otelobs Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metric implements the process-wide instrument registry: a
// single meter that owns named Counter, UpDownCounter, Histogram, and
// ObservableGauge instruments and produces point-in-time cumulative
// snapshots for the export pipelines and the scrape translator.
package metric // import "github.com/otelobs/otel-orchestrator-go/sdk/metric"

import (
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

// ScopeName identifies this registry as the instrumentation scope of
// every exported batch.
const ScopeName = "otelobs/sdk/metric"

// DefaultBoundaries is the explicit histogram boundary set used when a
// Histogram is created without WithExplicitBoundaries.
var DefaultBoundaries = []float64{0, 5, 10, 25, 50, 100, 250, 500, 1000}

// MeterProvider is the instrument registry.  It is created once at
// orchestrator start and shared by every pipeline and by the scrape
// translator.  Instrument registration happens during setup;
// record/add operations and Collect run concurrently for the rest of
// the process lifetime.
type MeterProvider struct {
	resource *resource.Resource
	start    time.Time

	lock   sync.Mutex
	byName map[string]instrument
	order  []instrument
}

// instrument is implemented by each instrument kind.
type instrument interface {
	descriptor() data.Descriptor

	// collect appends the instrument's current cumulative state to
	// output.  It must not block concurrent add/record operations
	// beyond a brief per-instrument critical section.
	collect(seq data.Sequence, output *[]data.Instrument)
}

// NewMeterProvider returns an empty registry bound to res.
func NewMeterProvider(res *resource.Resource) *MeterProvider {
	return &MeterProvider{
		resource: res,
		start:    time.Now(),
		byName:   map[string]instrument{},
	}
}

// Resource returns the resource attached to every snapshot.
func (p *MeterProvider) Resource() *resource.Resource {
	return p.resource
}

// StartTime returns the registry initialization time, the start
// timestamp of every cumulative point.
func (p *MeterProvider) StartTime() time.Time {
	return p.start
}

// register installs inst under its name.  Re-registering an identical
// descriptor returns the existing instrument; a conflicting
// descriptor is an error.
func register[T instrument](p *MeterProvider, inst T) (T, error) {
	desc := inst.descriptor()

	p.lock.Lock()
	defer p.lock.Unlock()

	if prior, ok := p.byName[desc.Name]; ok {
		if prior.descriptor() != desc {
			var zero T
			return zero, fmt.Errorf("instrument %q: conflicts with existing registration %v", desc.Name, prior.descriptor())
		}
		existing, ok := prior.(T)
		if !ok {
			var zero T
			return zero, fmt.Errorf("instrument %q: conflicting instrument type", desc.Name)
		}
		return existing, nil
	}

	p.byName[desc.Name] = inst
	p.order = append(p.order, inst)
	return inst, nil
}

// Collect produces a cumulative snapshot of every registered
// instrument.  The snapshot is last-write-consistent: each
// instrument's value is independently consistent, the whole-registry
// view may mix slightly different timestamps.  Concurrent add/record
// operations are never blocked for the duration of the snapshot.
func (p *MeterProvider) Collect(now time.Time) data.Metrics {
	p.lock.Lock()
	insts := make([]instrument, len(p.order))
	copy(insts, p.order)
	p.lock.Unlock()

	seq := data.Sequence{
		Start: p.start,
		Last:  p.start,
		Now:   now,
	}

	m := data.Metrics{
		Resource: p.resource,
		Scope:    ScopeName,
	}
	for _, inst := range insts {
		inst.collect(seq, &m.Instruments)
	}
	return m
}

// InstrumentOption configures instrument metadata at creation.
type InstrumentOption func(*instrumentConfig)

type instrumentConfig struct {
	description string
	unit        string
	boundaries  []float64
}

// WithDescription sets the instrument description.
func WithDescription(desc string) InstrumentOption {
	return func(cfg *instrumentConfig) {
		cfg.description = desc
	}
}

// WithUnit sets the instrument unit.
func WithUnit(unit string) InstrumentOption {
	return func(cfg *instrumentConfig) {
		cfg.unit = unit
	}
}

// WithExplicitBoundaries sets ascending histogram bucket boundaries.
// Ignored by non-histogram instruments.
func WithExplicitBoundaries(boundaries []float64) InstrumentOption {
	return func(cfg *instrumentConfig) {
		cfg.boundaries = boundaries
	}
}

func newInstrumentConfig(opts []InstrumentOption) instrumentConfig {
	var cfg instrumentConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
