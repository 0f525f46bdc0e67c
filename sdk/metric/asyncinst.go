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

	"go.opentelemetry.io/otel/attribute"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

// Float64Observer receives gauge observations during a collection.
type Float64Observer interface {
	Observe(value float64, attrs ...attribute.KeyValue)
}

// Float64Callback observes the current gauge value(s).  It is invoked
// once per collection, on the collector's goroutine.
type Float64Callback func(ctx context.Context, observer Float64Observer)

// Float64ObservableGauge samples a value at collection time through
// its registered callback.
type Float64ObservableGauge struct {
	desc     data.Descriptor
	callback Float64Callback
}

// Float64ObservableGauge registers a new observable gauge instrument.
func (p *MeterProvider) Float64ObservableGauge(name string, callback Float64Callback, opts ...InstrumentOption) (*Float64ObservableGauge, error) {
	cfg := newInstrumentConfig(opts)
	return register(p, &Float64ObservableGauge{
		desc: data.Descriptor{
			Name:        name,
			Description: cfg.description,
			Unit:        cfg.unit,
			Kind:        data.ObservableGaugeKind,
		},
		callback: callback,
	})
}

func (g *Float64ObservableGauge) descriptor() data.Descriptor {
	return g.desc
}

type gaugeObserver struct {
	seq    data.Sequence
	points []data.Point
}

func (o *gaugeObserver) Observe(value float64, attrs ...attribute.KeyValue) {
	o.points = append(o.points, data.Point{
		Attributes:  attribute.NewSet(attrs...),
		End:         o.seq.Now,
		Temporality: data.CumulativeTemporality,
		Aggregation: data.Gauge{Value: value},
	})
}

func (g *Float64ObservableGauge) collect(seq data.Sequence, output *[]data.Instrument) {
	observer := &gaugeObserver{seq: seq}
	g.callback(context.Background(), observer)

	if len(observer.points) == 0 {
		return
	}
	*output = append(*output, data.Instrument{
		Descriptor: g.desc,
		Points:     observer.points,
	})
}
