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

// Package data is the in-memory representation of a metrics
// collection, passed between the instrument registry and the
// exporters.  Registry snapshots are always cumulative; the pipeline
// layer converts to delta temporality for targets that request it.
package data // import "github.com/otelobs/otel-orchestrator-go/sdk/metric/data"

import (
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Temporality is the aggregation temporality applied when serializing
// an instrument for one export target.
type Temporality int

const (
	// UndefinedTemporality is the zero value; targets that do not
	// state a preference are treated as cumulative.
	UndefinedTemporality Temporality = iota

	// CumulativeTemporality reports the running total since the
	// registry was initialized.
	CumulativeTemporality

	// DeltaTemporality reports the change since the previous
	// collection for the same target.
	DeltaTemporality
)

func (t Temporality) String() string {
	switch t {
	case CumulativeTemporality:
		return "cumulative"
	case DeltaTemporality:
		return "delta"
	default:
		return "undefined"
	}
}

// ParseTemporality maps a configuration string onto a Temporality.
// The empty string selects cumulative, matching the configuration
// default.
func ParseTemporality(s string) (Temporality, error) {
	switch strings.ToLower(s) {
	case "", "cumulative":
		return CumulativeTemporality, nil
	case "delta":
		return DeltaTemporality, nil
	default:
		return UndefinedTemporality, fmt.Errorf("invalid temporality preference: %q", s)
	}
}

// Kind distinguishes the four instrument kinds of the registry.
type Kind int

const (
	CounterKind Kind = iota
	UpDownCounterKind
	HistogramKind
	ObservableGaugeKind
)

func (k Kind) String() string {
	switch k {
	case CounterKind:
		return "counter"
	case UpDownCounterKind:
		return "updowncounter"
	case HistogramKind:
		return "histogram"
	case ObservableGaugeKind:
		return "observablegauge"
	default:
		return "unknown"
	}
}

// Monotonic reports whether the instrument kind accumulates a
// non-decreasing total.
func (k Kind) Monotonic() bool {
	return k == CounterKind
}

// Descriptor identifies an instrument within the registry.  Name is
// unique per registry.
type Descriptor struct {
	Name        string
	Description string
	Unit        string
	Kind        Kind
}

// Sequence provides the relevant timestamps used during collection.
// Depending on aggregation temporality, either Start or Last is used
// as a point's start time.
type Sequence struct {
	// Start is the time when the registry was initialized.
	Start time.Time
	// Last is the time of the previous collection by the same
	// reader.  Equal to Start if there was none.
	Last time.Time
	// Now is the moment the current collection began.
	Now time.Time
}

// Aggregation is one collected value.  The concrete types are Sum,
// Gauge, and Histogram.
type Aggregation interface {
	aggregation()
}

// Sum is the aggregation of Counter and UpDownCounter instruments.
type Sum struct {
	Value     float64
	Monotonic bool
}

// Gauge is the aggregation of ObservableGauge instruments.
type Gauge struct {
	Value float64
}

// Histogram is the explicit-boundary aggregation of Histogram
// instruments.  BucketCounts has len(Boundaries)+1 entries; the final
// entry counts values above the last boundary.  A value v falls in
// the first bucket whose boundary satisfies v <= boundary.
type Histogram struct {
	Sum          float64
	Count        uint64
	Boundaries   []float64
	BucketCounts []uint64
}

func (Sum) aggregation()       {}
func (Gauge) aggregation()     {}
func (Histogram) aggregation() {}

// Point is a single attribute-set stream of an instrument.
type Point struct {
	Attributes  attribute.Set
	Start       time.Time
	End         time.Time
	Temporality Temporality
	Aggregation Aggregation
}

// Instrument is the collection output of a single instrument.
type Instrument struct {
	Descriptor Descriptor
	Points     []Point
}

// Metrics is one full registry snapshot.
type Metrics struct {
	Resource    *resource.Resource
	Scope       string
	Instruments []Instrument
}
