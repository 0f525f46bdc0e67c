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

package metric // import "github.com/otelobs/otel-orchestrator-go/sdk/metric"

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

// atomicFloat64 supports lock-free float64 accumulation via
// compare-and-swap on the bit pattern.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) Add(value float64) {
	for {
		old := a.bits.Load()
		upd := math.Float64bits(math.Float64frombits(old) + value)
		if a.bits.CompareAndSwap(old, upd) {
			return
		}
	}
}

func (a *atomicFloat64) Load() float64 {
	return math.Float64frombits(a.bits.Load())
}

// sumInst is the shared storage of Counter and UpDownCounter: one
// atomic accumulator per attribute set.  The map lock covers stream
// creation only; updates to an existing stream are lock-free.
type sumInst struct {
	desc data.Descriptor

	lock   sync.RWMutex
	states map[attribute.Distinct]*sumState
	order  []*sumState
}

type sumState struct {
	attrs attribute.Set
	value atomicFloat64
}

func newSumInst(desc data.Descriptor) *sumInst {
	return &sumInst{
		desc:   desc,
		states: map[attribute.Distinct]*sumState{},
	}
}

func (s *sumInst) descriptor() data.Descriptor {
	return s.desc
}

func (s *sumInst) add(value float64, attrs []attribute.KeyValue) {
	set := attribute.NewSet(attrs...)

	s.lock.RLock()
	state, ok := s.states[set.Equivalent()]
	s.lock.RUnlock()

	if !ok {
		s.lock.Lock()
		state, ok = s.states[set.Equivalent()]
		if !ok {
			state = &sumState{attrs: set}
			s.states[set.Equivalent()] = state
			s.order = append(s.order, state)
		}
		s.lock.Unlock()
	}
	state.value.Add(value)
}

func (s *sumInst) collect(seq data.Sequence, output *[]data.Instrument) {
	s.lock.RLock()
	states := make([]*sumState, len(s.order))
	copy(states, s.order)
	s.lock.RUnlock()

	if len(states) == 0 {
		return
	}

	inst := data.Instrument{Descriptor: s.desc}
	for _, state := range states {
		inst.Points = append(inst.Points, data.Point{
			Attributes:  state.attrs,
			Start:       seq.Start,
			End:         seq.Now,
			Temporality: data.CumulativeTemporality,
			Aggregation: data.Sum{
				Value:     state.value.Load(),
				Monotonic: s.desc.Kind.Monotonic(),
			},
		})
	}
	*output = append(*output, inst)
}

// Int64Counter is a monotonic accumulator.
type Int64Counter struct {
	inst *sumInst
}

// Add records an increment.  Negative increments are dropped.
func (c *Int64Counter) Add(_ context.Context, incr int64, attrs ...attribute.KeyValue) {
	if incr < 0 {
		return
	}
	c.inst.add(float64(incr), attrs)
}

// Float64Counter is a monotonic accumulator.
type Float64Counter struct {
	inst *sumInst
}

// Add records an increment.  Negative increments are dropped.
func (c *Float64Counter) Add(_ context.Context, incr float64, attrs ...attribute.KeyValue) {
	if incr < 0 {
		return
	}
	c.inst.add(incr, attrs)
}

// Int64UpDownCounter is a non-monotonic accumulator.
type Int64UpDownCounter struct {
	inst *sumInst
}

func (c *Int64UpDownCounter) Add(_ context.Context, incr int64, attrs ...attribute.KeyValue) {
	c.inst.add(float64(incr), attrs)
}

// Float64UpDownCounter is a non-monotonic accumulator.
type Float64UpDownCounter struct {
	inst *sumInst
}

func (c *Float64UpDownCounter) Add(_ context.Context, incr float64, attrs ...attribute.KeyValue) {
	c.inst.add(incr, attrs)
}

// Int64Counter registers a new monotonic counter instrument.
func (p *MeterProvider) Int64Counter(name string, opts ...InstrumentOption) (*Int64Counter, error) {
	inst, err := registerSum(p, name, data.CounterKind, opts)
	if err != nil {
		return nil, err
	}
	return &Int64Counter{inst: inst}, nil
}

// Float64Counter registers a new monotonic counter instrument.
func (p *MeterProvider) Float64Counter(name string, opts ...InstrumentOption) (*Float64Counter, error) {
	inst, err := registerSum(p, name, data.CounterKind, opts)
	if err != nil {
		return nil, err
	}
	return &Float64Counter{inst: inst}, nil
}

// Int64UpDownCounter registers a new non-monotonic counter instrument.
func (p *MeterProvider) Int64UpDownCounter(name string, opts ...InstrumentOption) (*Int64UpDownCounter, error) {
	inst, err := registerSum(p, name, data.UpDownCounterKind, opts)
	if err != nil {
		return nil, err
	}
	return &Int64UpDownCounter{inst: inst}, nil
}

// Float64UpDownCounter registers a new non-monotonic counter instrument.
func (p *MeterProvider) Float64UpDownCounter(name string, opts ...InstrumentOption) (*Float64UpDownCounter, error) {
	inst, err := registerSum(p, name, data.UpDownCounterKind, opts)
	if err != nil {
		return nil, err
	}
	return &Float64UpDownCounter{inst: inst}, nil
}

func registerSum(p *MeterProvider, name string, kind data.Kind, opts []InstrumentOption) (*sumInst, error) {
	cfg := newInstrumentConfig(opts)
	return register(p, newSumInst(data.Descriptor{
		Name:        name,
		Description: cfg.description,
		Unit:        cfg.unit,
		Kind:        kind,
	}))
}

// Float64Histogram is an explicit-boundary histogram.
type Float64Histogram struct {
	desc       data.Descriptor
	boundaries []float64

	lock   sync.RWMutex
	states map[attribute.Distinct]*histState
	order  []*histState
}

type histState struct {
	attrs attribute.Set

	lock   sync.Mutex
	sum    float64
	count  uint64
	counts []uint64
}

// Float64Histogram registers a new histogram instrument.  Boundaries
// default to DefaultBoundaries and must be in ascending order.
func (p *MeterProvider) Float64Histogram(name string, opts ...InstrumentOption) (*Float64Histogram, error) {
	cfg := newInstrumentConfig(opts)

	boundaries := cfg.boundaries
	if boundaries == nil {
		boundaries = DefaultBoundaries
	}
	if !sort.Float64sAreSorted(boundaries) {
		return nil, fmt.Errorf("instrument %q: histogram boundaries out of order: %v", name, boundaries)
	}

	return register(p, &Float64Histogram{
		desc: data.Descriptor{
			Name:        name,
			Description: cfg.description,
			Unit:        cfg.unit,
			Kind:        data.HistogramKind,
		},
		boundaries: boundaries,
		states:     map[attribute.Distinct]*histState{},
	})
}

func (h *Float64Histogram) descriptor() data.Descriptor {
	return h.desc
}

// Record adds one observation.  A value v belongs to the first bucket
// whose boundary satisfies v <= boundary; values above the last
// boundary land in the overflow bucket.
func (h *Float64Histogram) Record(_ context.Context, value float64, attrs ...attribute.KeyValue) {
	set := attribute.NewSet(attrs...)

	h.lock.RLock()
	state, ok := h.states[set.Equivalent()]
	h.lock.RUnlock()

	if !ok {
		h.lock.Lock()
		state, ok = h.states[set.Equivalent()]
		if !ok {
			state = &histState{
				attrs:  set,
				counts: make([]uint64, len(h.boundaries)+1),
			}
			h.states[set.Equivalent()] = state
			h.order = append(h.order, state)
		}
		h.lock.Unlock()
	}

	idx := sort.SearchFloat64s(h.boundaries, value)

	state.lock.Lock()
	state.sum += value
	state.count++
	state.counts[idx]++
	state.lock.Unlock()
}

func (h *Float64Histogram) collect(seq data.Sequence, output *[]data.Instrument) {
	h.lock.RLock()
	states := make([]*histState, len(h.order))
	copy(states, h.order)
	h.lock.RUnlock()

	if len(states) == 0 {
		return
	}

	inst := data.Instrument{Descriptor: h.desc}
	for _, state := range states {
		state.lock.Lock()
		agg := data.Histogram{
			Sum:          state.sum,
			Count:        state.count,
			Boundaries:   h.boundaries,
			BucketCounts: append([]uint64(nil), state.counts...),
		}
		state.lock.Unlock()

		inst.Points = append(inst.Points, data.Point{
			Attributes:  state.attrs,
			Start:       seq.Start,
			End:         seq.Now,
			Temporality: data.CumulativeTemporality,
			Aggregation: agg,
		})
	}
	*output = append(*output, inst)
}
