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

// Package stdoutmetrics mirrors metric snapshots to a writer as
// pretty-printed JSON, one document per tick with one object per
// instrument snapshot.  Debugging aid, not a wire format.
package stdoutmetrics // import "github.com/otelobs/otel-orchestrator-go/exporters/stdoutmetrics"

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric"
	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

// Exporter implements metric.PushExporter by writing JSON documents.
type Exporter struct {
	lock sync.Mutex
	w    io.Writer
}

var _ metric.PushExporter = (*Exporter)(nil)

// New returns an exporter writing to stdout.
func New() *Exporter {
	return NewWriter(os.Stdout)
}

// NewWriter returns an exporter writing to w.
func NewWriter(w io.Writer) *Exporter {
	return &Exporter{w: w}
}

type jsonDocument struct {
	Time        time.Time        `json:"time"`
	Resource    map[string]any   `json:"resource,omitempty"`
	Instruments []jsonInstrument `json:"instruments"`
}

type jsonInstrument struct {
	Name        string      `json:"name"`
	Kind        string      `json:"kind"`
	Description string      `json:"description,omitempty"`
	Unit        string      `json:"unit,omitempty"`
	Points      []jsonPoint `json:"points"`
}

type jsonPoint struct {
	Attributes   map[string]any `json:"attributes,omitempty"`
	Start        time.Time      `json:"start,omitempty"`
	End          time.Time      `json:"end"`
	Temporality  string         `json:"temporality,omitempty"`
	Value        *float64       `json:"value,omitempty"`
	Sum          *float64       `json:"sum,omitempty"`
	Count        *uint64        `json:"count,omitempty"`
	Boundaries   []float64      `json:"boundaries,omitempty"`
	BucketCounts []uint64       `json:"bucketCounts,omitempty"`
}

// ExportMetrics implements metric.PushExporter.
func (e *Exporter) ExportMetrics(_ context.Context, m data.Metrics) error {
	doc := jsonDocument{Time: time.Now()}

	if m.Resource != nil {
		doc.Resource = map[string]any{}
		for _, kv := range m.Resource.Attributes() {
			doc.Resource[string(kv.Key)] = kv.Value.AsInterface()
		}
	}

	for _, inst := range m.Instruments {
		ji := jsonInstrument{
			Name:        inst.Descriptor.Name,
			Kind:        inst.Descriptor.Kind.String(),
			Description: inst.Descriptor.Description,
			Unit:        inst.Descriptor.Unit,
		}
		for _, point := range inst.Points {
			jp := jsonPoint{
				Start:       point.Start,
				End:         point.End,
				Temporality: point.Temporality.String(),
			}
			if point.Attributes.Len() > 0 {
				jp.Attributes = map[string]any{}
				for iter := point.Attributes.Iter(); iter.Next(); {
					kv := iter.Attribute()
					jp.Attributes[string(kv.Key)] = kv.Value.AsInterface()
				}
			}
			switch agg := point.Aggregation.(type) {
			case data.Sum:
				value := agg.Value
				jp.Value = &value
			case data.Gauge:
				value := agg.Value
				jp.Value = &value
			case data.Histogram:
				sum, count := agg.Sum, agg.Count
				jp.Sum = &sum
				jp.Count = &count
				jp.Boundaries = agg.Boundaries
				jp.BucketCounts = agg.BucketCounts
			}
			ji.Points = append(ji.Points, jp)
		}
		doc.Instruments = append(doc.Instruments, ji)
	}

	e.lock.Lock()
	defer e.lock.Unlock()
	enc := json.NewEncoder(e.w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// ShutdownMetrics implements metric.PushExporter.
func (e *Exporter) ShutdownMetrics(context.Context) error {
	return nil
}
