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

package pipelines // import "github.com/otelobs/otel-orchestrator-go/pipelines"

import (
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

// deltaState is the per-target cumulative-to-delta cache: the last
// exported cumulative value per instrument stream.  Each pipeline
// owns its own instance, so one target's failure never pollutes
// another target's baseline.  UpDownCounter and ObservableGauge
// streams are passed through unchanged; only Counter and Histogram
// follow the delta preference.
type deltaState struct {
	last  time.Time
	sums  map[streamKey]float64
	hists map[streamKey]histBaseline
}

type streamKey struct {
	name  string
	attrs attribute.Distinct
}

type histBaseline struct {
	sum    float64
	count  uint64
	counts []uint64
}

func newDeltaState(start time.Time) *deltaState {
	return &deltaState{
		last:  start,
		sums:  map[streamKey]float64{},
		hists: map[streamKey]histBaseline{},
	}
}

// convert rewrites a cumulative snapshot into deltas against the
// stored baseline and advances the baseline.  The conversion is
// unconditional: if the subsequent export fails, the skipped interval
// is not replayed.
func (d *deltaState) convert(m data.Metrics) data.Metrics {
	now := d.last
	out := m
	out.Instruments = make([]data.Instrument, 0, len(m.Instruments))

	for _, inst := range m.Instruments {
		switch inst.Descriptor.Kind {
		case data.CounterKind:
			out.Instruments = append(out.Instruments, d.convertSums(inst))
		case data.HistogramKind:
			out.Instruments = append(out.Instruments, d.convertHistograms(inst))
		default:
			out.Instruments = append(out.Instruments, inst)
		}
		for _, point := range inst.Points {
			if point.End.After(now) {
				now = point.End
			}
		}
	}

	d.last = now
	return out
}

func (d *deltaState) convertSums(inst data.Instrument) data.Instrument {
	out := inst
	out.Points = make([]data.Point, len(inst.Points))

	for i, point := range inst.Points {
		agg := point.Aggregation.(data.Sum)
		key := streamKey{name: inst.Descriptor.Name, attrs: point.Attributes.Equivalent()}

		prev := d.sums[key]
		d.sums[key] = agg.Value

		point.Start = d.last
		point.Temporality = data.DeltaTemporality
		point.Aggregation = data.Sum{
			Value:     agg.Value - prev,
			Monotonic: agg.Monotonic,
		}
		out.Points[i] = point
	}
	return out
}

func (d *deltaState) convertHistograms(inst data.Instrument) data.Instrument {
	out := inst
	out.Points = make([]data.Point, len(inst.Points))

	for i, point := range inst.Points {
		agg := point.Aggregation.(data.Histogram)
		key := streamKey{name: inst.Descriptor.Name, attrs: point.Attributes.Equivalent()}

		prev, ok := d.hists[key]
		if !ok {
			prev = histBaseline{counts: make([]uint64, len(agg.BucketCounts))}
		}
		d.hists[key] = histBaseline{
			sum:    agg.Sum,
			count:  agg.Count,
			counts: append([]uint64(nil), agg.BucketCounts...),
		}

		counts := make([]uint64, len(agg.BucketCounts))
		for j := range counts {
			counts[j] = agg.BucketCounts[j] - prev.counts[j]
		}

		point.Start = d.last
		point.Temporality = data.DeltaTemporality
		point.Aggregation = data.Histogram{
			Sum:          agg.Sum - prev.sum,
			Count:        agg.Count - prev.count,
			Boundaries:   agg.Boundaries,
			BucketCounts: counts,
		}
		out.Points[i] = point
	}
	return out
}
