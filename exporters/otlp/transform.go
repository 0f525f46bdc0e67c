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

package otlp // import "github.com/otelobs/otel-orchestrator-go/exporters/otlp"

import (
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	cpb "go.opentelemetry.io/proto/otlp/common/v1"
	lpb "go.opentelemetry.io/proto/otlp/logs/v1"
	mpb "go.opentelemetry.io/proto/otlp/metrics/v1"
	rpb "go.opentelemetry.io/proto/otlp/resource/v1"

	"github.com/otelobs/otel-orchestrator-go/logs"
	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

func toResourceMetrics(m data.Metrics) *mpb.ResourceMetrics {
	sm := &mpb.ScopeMetrics{
		Scope: &cpb.InstrumentationScope{Name: m.Scope},
	}
	for _, inst := range m.Instruments {
		sm.Metrics = append(sm.Metrics, toMetric(inst))
	}
	return &mpb.ResourceMetrics{
		Resource:     toResource(m.Resource),
		ScopeMetrics: []*mpb.ScopeMetrics{sm},
	}
}

func toMetric(inst data.Instrument) *mpb.Metric {
	m := &mpb.Metric{
		Name:        inst.Descriptor.Name,
		Description: inst.Descriptor.Description,
		Unit:        inst.Descriptor.Unit,
	}
	if len(inst.Points) == 0 {
		return m
	}

	switch inst.Points[0].Aggregation.(type) {
	case data.Sum:
		sum := &mpb.Sum{
			AggregationTemporality: toTemporality(inst.Points[0].Temporality),
		}
		for _, point := range inst.Points {
			agg := point.Aggregation.(data.Sum)
			sum.IsMonotonic = agg.Monotonic
			sum.DataPoints = append(sum.DataPoints, numberPoint(point, agg.Value))
		}
		m.Data = &mpb.Metric_Sum{Sum: sum}

	case data.Gauge:
		gauge := &mpb.Gauge{}
		for _, point := range inst.Points {
			agg := point.Aggregation.(data.Gauge)
			gauge.DataPoints = append(gauge.DataPoints, numberPoint(point, agg.Value))
		}
		m.Data = &mpb.Metric_Gauge{Gauge: gauge}

	case data.Histogram:
		hist := &mpb.Histogram{
			AggregationTemporality: toTemporality(inst.Points[0].Temporality),
		}
		for _, point := range inst.Points {
			agg := point.Aggregation.(data.Histogram)
			sum := agg.Sum
			hist.DataPoints = append(hist.DataPoints, &mpb.HistogramDataPoint{
				Attributes:        toAttributes(point.Attributes),
				StartTimeUnixNano: toNanos(point.Start),
				TimeUnixNano:      toNanos(point.End),
				Count:             agg.Count,
				Sum:               &sum,
				BucketCounts:      agg.BucketCounts,
				ExplicitBounds:    agg.Boundaries,
			})
		}
		m.Data = &mpb.Metric_Histogram{Histogram: hist}
	}
	return m
}

func numberPoint(point data.Point, value float64) *mpb.NumberDataPoint {
	return &mpb.NumberDataPoint{
		Attributes:        toAttributes(point.Attributes),
		StartTimeUnixNano: toNanos(point.Start),
		TimeUnixNano:      toNanos(point.End),
		Value:             &mpb.NumberDataPoint_AsDouble{AsDouble: value},
	}
}

func toTemporality(t data.Temporality) mpb.AggregationTemporality {
	switch t {
	case data.CumulativeTemporality:
		return mpb.AggregationTemporality_AGGREGATION_TEMPORALITY_CUMULATIVE
	case data.DeltaTemporality:
		return mpb.AggregationTemporality_AGGREGATION_TEMPORALITY_DELTA
	default:
		return mpb.AggregationTemporality_AGGREGATION_TEMPORALITY_UNSPECIFIED
	}
}

func toResourceLogs(res *resource.Resource, scope string, records []logs.Record) *lpb.ResourceLogs {
	sl := &lpb.ScopeLogs{
		Scope: &cpb.InstrumentationScope{Name: scope},
	}
	for _, r := range records {
		sl.LogRecords = append(sl.LogRecords, toLogRecord(r))
	}
	return &lpb.ResourceLogs{
		Resource:  toResource(res),
		ScopeLogs: []*lpb.ScopeLogs{sl},
	}
}

func toLogRecord(r logs.Record) *lpb.LogRecord {
	rec := &lpb.LogRecord{
		TimeUnixNano:   toNanos(r.Time),
		SeverityNumber: lpb.SeverityNumber(r.Severity),
		SeverityText:   r.SeverityText,
		Body:           stringValue(r.Body),
	}
	for _, kv := range r.Attributes {
		rec.Attributes = append(rec.Attributes, toKeyValue(kv))
	}
	if r.Module != "" {
		rec.Attributes = append(rec.Attributes, &cpb.KeyValue{
			Key:   "module",
			Value: stringValue(r.Module),
		})
	}
	return rec
}

func toResource(res *resource.Resource) *rpb.Resource {
	if res == nil {
		return &rpb.Resource{}
	}
	out := &rpb.Resource{}
	for _, kv := range res.Attributes() {
		out.Attributes = append(out.Attributes, toKeyValue(kv))
	}
	return out
}

func toAttributes(set attribute.Set) []*cpb.KeyValue {
	if set.Len() == 0 {
		return nil
	}
	out := make([]*cpb.KeyValue, 0, set.Len())
	for iter := set.Iter(); iter.Next(); {
		out = append(out, toKeyValue(iter.Attribute()))
	}
	return out
}

func toKeyValue(kv attribute.KeyValue) *cpb.KeyValue {
	return &cpb.KeyValue{
		Key:   string(kv.Key),
		Value: toAnyValue(kv.Value),
	}
}

func toAnyValue(v attribute.Value) *cpb.AnyValue {
	switch v.Type() {
	case attribute.BOOL:
		return &cpb.AnyValue{Value: &cpb.AnyValue_BoolValue{BoolValue: v.AsBool()}}
	case attribute.INT64:
		return &cpb.AnyValue{Value: &cpb.AnyValue_IntValue{IntValue: v.AsInt64()}}
	case attribute.FLOAT64:
		return &cpb.AnyValue{Value: &cpb.AnyValue_DoubleValue{DoubleValue: v.AsFloat64()}}
	case attribute.STRING:
		return stringValue(v.AsString())
	default:
		return stringValue(v.Emit())
	}
}

func stringValue(s string) *cpb.AnyValue {
	return &cpb.AnyValue{Value: &cpb.AnyValue_StringValue{StringValue: s}}
}

func toNanos(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano())
}
