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

package stdoutmetrics

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric"
)

func TestExportWritesDocument(t *testing.T) {
	ctx := context.Background()
	provider := metric.NewMeterProvider(resource.NewSchemaless(
		attribute.String("service.name", "svc"),
	))

	counter, err := provider.Int64Counter("requests")
	require.NoError(t, err)
	counter.Add(ctx, 5, attribute.String("route", "/a"))

	hist, err := provider.Float64Histogram("latency",
		metric.WithExplicitBoundaries([]float64{10, 20}))
	require.NoError(t, err)
	hist.Record(ctx, 15)

	var buf bytes.Buffer
	exporter := NewWriter(&buf)
	require.NoError(t, exporter.ExportMetrics(ctx, provider.Collect(time.Now())))
	require.NoError(t, exporter.ShutdownMetrics(ctx))

	var doc jsonDocument
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	require.Equal(t, "svc", doc.Resource["service.name"])
	require.Len(t, doc.Instruments, 2)

	require.Equal(t, "requests", doc.Instruments[0].Name)
	require.Equal(t, "counter", doc.Instruments[0].Kind)
	require.Len(t, doc.Instruments[0].Points, 1)
	point := doc.Instruments[0].Points[0]
	require.NotNil(t, point.Value)
	require.Equal(t, 5.0, *point.Value)
	require.Equal(t, "/a", point.Attributes["route"])

	require.Equal(t, "latency", doc.Instruments[1].Name)
	hp := doc.Instruments[1].Points[0]
	require.NotNil(t, hp.Count)
	require.Equal(t, uint64(1), *hp.Count)
	require.Equal(t, []uint64{0, 1, 0}, hp.BucketCounts)
}

func TestConcurrentExportsInterleaveCleanly(t *testing.T) {
	provider := metric.NewMeterProvider(resource.Empty())
	counter, err := provider.Int64Counter("c")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	var buf bytes.Buffer
	exporter := NewWriter(&buf)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = exporter.ExportMetrics(context.Background(), provider.Collect(time.Now()))
		}
	}()
	for i := 0; i < 10; i++ {
		require.NoError(t, exporter.ExportMetrics(context.Background(), provider.Collect(time.Now())))
	}
	<-done

	dec := json.NewDecoder(&buf)
	count := 0
	for dec.More() {
		var doc jsonDocument
		require.NoError(t, dec.Decode(&doc))
		count++
	}
	require.Equal(t, 20, count)
}
