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

// Package prom translates registry snapshots into the Prometheus text
// exposition format and serves them on a scrape endpoint.  The
// translation is stateless: every scrape renders the current
// cumulative snapshot.
package prom // import "github.com/otelobs/otel-orchestrator-go/exporters/prom"

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

// ContentType is the scrape response content type.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

type label struct {
	key   string
	value string
}

// Render writes one snapshot as a text exposition document.
// Translation rules: Counter becomes a counter suffixed _total,
// UpDownCounter and ObservableGauge become gauges, Histogram becomes
// cumulative _bucket lines in ascending boundary order plus a +Inf
// bucket, _sum, and _count.  Every sample carries the resource
// attributes plus the point's own attributes as labels.  A
// target_info gauge with value 1 is always emitted first.
func Render(w io.Writer, m data.Metrics) error {
	resLabels := resourceLabels(m)

	if _, err := fmt.Fprintf(w, "# TYPE target_info gauge\ntarget_info%s 1\n", renderLabels(resLabels)); err != nil {
		return err
	}

	for _, inst := range m.Instruments {
		if err := renderInstrument(w, inst, resLabels); err != nil {
			return err
		}
	}
	return nil
}

func renderInstrument(w io.Writer, inst data.Instrument, resLabels []label) error {
	if len(inst.Points) == 0 {
		return nil
	}

	name := sanitizeName(inst.Descriptor.Name)
	promType := "gauge"
	switch inst.Descriptor.Kind {
	case data.CounterKind:
		promType = "counter"
		if !strings.HasSuffix(name, "_total") {
			name += "_total"
		}
	case data.HistogramKind:
		promType = "histogram"
	}

	if inst.Descriptor.Description != "" {
		if _, err := fmt.Fprintf(w, "# HELP %s %s\n", name, escapeHelp(inst.Descriptor.Description)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "# TYPE %s %s\n", name, promType); err != nil {
		return err
	}

	for _, point := range inst.Points {
		pointLabels := mergeLabels(resLabels, point.Attributes)

		switch agg := point.Aggregation.(type) {
		case data.Sum:
			if _, err := fmt.Fprintf(w, "%s%s %s\n", name, renderLabels(pointLabels), formatFloat(agg.Value)); err != nil {
				return err
			}
		case data.Gauge:
			if _, err := fmt.Fprintf(w, "%s%s %s\n", name, renderLabels(pointLabels), formatFloat(agg.Value)); err != nil {
				return err
			}
		case data.Histogram:
			if err := renderHistogram(w, name, pointLabels, agg); err != nil {
				return err
			}
		}
	}
	return nil
}

// renderHistogram writes cumulative bucket counters in ascending
// boundary order.  The running total over per-bucket counts makes the
// rendered counts non-decreasing by construction.
func renderHistogram(w io.Writer, name string, pointLabels []label, agg data.Histogram) error {
	var cumulative uint64
	for i, boundary := range agg.Boundaries {
		cumulative += agg.BucketCounts[i]
		bucketLabels := append(append([]label(nil), pointLabels...), label{key: "le", value: formatFloat(boundary)})
		if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", name, renderLabels(bucketLabels), cumulative); err != nil {
			return err
		}
	}

	infLabels := append(append([]label(nil), pointLabels...), label{key: "le", value: "+Inf"})
	if _, err := fmt.Fprintf(w, "%s_bucket%s %d\n", name, renderLabels(infLabels), agg.Count); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s_sum%s %s\n", name, renderLabels(pointLabels), formatFloat(agg.Sum)); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s_count%s %d\n", name, renderLabels(pointLabels), agg.Count)
	return err
}

// resourceLabels flattens the resource into labels, keeping
// service.name first as service_name.
func resourceLabels(m data.Metrics) []label {
	if m.Resource == nil {
		return nil
	}
	var serviceName string
	var rest []label
	for _, kv := range m.Resource.Attributes() {
		if kv.Key == semconv.ServiceNameKey {
			serviceName = kv.Value.Emit()
			continue
		}
		rest = append(rest, label{key: sanitizeLabelKey(string(kv.Key)), value: kv.Value.Emit()})
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].key < rest[j].key })

	out := make([]label, 0, len(rest)+1)
	if serviceName != "" {
		out = append(out, label{key: "service_name", value: serviceName})
	}
	return append(out, rest...)
}

// mergeLabels overlays point attributes onto the resource labels; a
// point attribute replaces a resource label with the same key.
func mergeLabels(resLabels []label, attrs attribute.Set) []label {
	merged := append([]label(nil), resLabels...)
	for iter := attrs.Iter(); iter.Next(); {
		kv := iter.Attribute()
		key := sanitizeLabelKey(string(kv.Key))
		replaced := false
		for i := range merged {
			if merged[i].key == key {
				merged[i].value = kv.Value.Emit()
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, label{key: key, value: kv.Value.Emit()})
		}
	}
	return merged
}

func renderLabels(labels []label) string {
	if len(labels) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, l := range labels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l.key)
		b.WriteString(`="`)
		b.WriteString(escapeValue(l.value))
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

func formatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+Inf"
	case math.IsInf(v, -1):
		return "-Inf"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

// sanitizeName maps a metric name onto the [a-zA-Z0-9_:] charset.
func sanitizeName(name string) string {
	return sanitize(name, true)
}

// sanitizeLabelKey maps a label key onto the [a-zA-Z0-9_] charset.
func sanitizeLabelKey(key string) string {
	return sanitize(key, false)
}

func sanitize(s string, allowColon bool) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range s {
		valid := r == '_' ||
			(r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(allowColon && r == ':') ||
			(i > 0 && r >= '0' && r <= '9')
		if valid {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func escapeValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return strings.ReplaceAll(v, "\n", `\n`)
}

func escapeHelp(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, "\n", `\n`)
}
