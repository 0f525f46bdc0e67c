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

package metric_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric"
	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

func testProvider() *metric.MeterProvider {
	return metric.NewMeterProvider(resource.Empty())
}

func findInstrument(t *testing.T, m data.Metrics, name string) data.Instrument {
	t.Helper()
	for _, inst := range m.Instruments {
		if inst.Descriptor.Name == name {
			return inst
		}
	}
	t.Fatalf("instrument %q not collected", name)
	return data.Instrument{}
}

func TestCounterConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	provider := testProvider()

	counter, err := provider.Int64Counter("requests")
	require.NoError(t, err)

	const workers = 4
	const perWorker = 1000

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				counter.Add(ctx, 1)
			}
		}()
	}
	wg.Wait()

	now := time.Now()
	m := provider.Collect(now)
	inst := findInstrument(t, m, "requests")

	require.Len(t, inst.Points, 1)
	point := inst.Points[0]
	require.Equal(t, data.CumulativeTemporality, point.Temporality)
	require.Equal(t, provider.StartTime(), point.Start)
	require.Equal(t, now, point.End)

	sum := point.Aggregation.(data.Sum)
	require.True(t, sum.Monotonic)
	require.Equal(t, float64(workers*perWorker), sum.Value)
}

func TestCounterNegativeIncrementDropped(t *testing.T) {
	ctx := context.Background()
	provider := testProvider()

	counter, err := provider.Float64Counter("c")
	require.NoError(t, err)
	counter.Add(ctx, 10)
	counter.Add(ctx, -3)

	inst := findInstrument(t, provider.Collect(time.Now()), "c")
	require.Equal(t, 10.0, inst.Points[0].Aggregation.(data.Sum).Value)
}

func TestUpDownCounterGoesNegative(t *testing.T) {
	ctx := context.Background()
	provider := testProvider()

	updown, err := provider.Int64UpDownCounter("inflight")
	require.NoError(t, err)
	updown.Add(ctx, 2)
	updown.Add(ctx, -5)

	inst := findInstrument(t, provider.Collect(time.Now()), "inflight")
	sum := inst.Points[0].Aggregation.(data.Sum)
	require.False(t, sum.Monotonic)
	require.Equal(t, -3.0, sum.Value)
}

func TestCounterAttributeStreams(t *testing.T) {
	ctx := context.Background()
	provider := testProvider()

	counter, err := provider.Int64Counter("hits")
	require.NoError(t, err)
	counter.Add(ctx, 1, attribute.String("route", "/a"))
	counter.Add(ctx, 2, attribute.String("route", "/b"))
	counter.Add(ctx, 3, attribute.String("route", "/a"))

	inst := findInstrument(t, provider.Collect(time.Now()), "hits")
	require.Len(t, inst.Points, 2)

	byRoute := map[string]float64{}
	for _, point := range inst.Points {
		route, _ := point.Attributes.Value("route")
		byRoute[route.AsString()] = point.Aggregation.(data.Sum).Value
	}
	require.Equal(t, map[string]float64{"/a": 4, "/b": 2}, byRoute)
}

func TestDuplicateRegistration(t *testing.T) {
	provider := testProvider()

	first, err := provider.Int64Counter("dup", metric.WithUnit("1"))
	require.NoError(t, err)
	second, err := provider.Int64Counter("dup", metric.WithUnit("1"))
	require.NoError(t, err)
	require.Equal(t, first, second)

	_, err = provider.Int64Counter("dup", metric.WithUnit("ms"))
	require.Error(t, err)

	_, err = provider.Float64Histogram("dup")
	require.Error(t, err)
}

func TestHistogramBucketing(t *testing.T) {
	ctx := context.Background()
	provider := testProvider()

	hist, err := provider.Float64Histogram("latency",
		metric.WithExplicitBoundaries([]float64{0, 5, 10, 25, 50}))
	require.NoError(t, err)

	for _, v := range []float64{3, 3, 7, 40, 40} {
		hist.Record(ctx, v)
	}

	inst := findInstrument(t, provider.Collect(time.Now()), "latency")
	require.Len(t, inst.Points, 1)

	agg := inst.Points[0].Aggregation.(data.Histogram)
	require.Equal(t, 93.0, agg.Sum)
	require.Equal(t, uint64(5), agg.Count)
	require.Equal(t, []float64{0, 5, 10, 25, 50}, agg.Boundaries)
	require.Equal(t, []uint64{0, 2, 1, 0, 2, 0}, agg.BucketCounts)
}

func TestHistogramBoundaryValueInclusive(t *testing.T) {
	ctx := context.Background()
	provider := testProvider()

	hist, err := provider.Float64Histogram("h",
		metric.WithExplicitBoundaries([]float64{10}))
	require.NoError(t, err)
	hist.Record(ctx, 10)
	hist.Record(ctx, 10.5)

	inst := findInstrument(t, provider.Collect(time.Now()), "h")
	agg := inst.Points[0].Aggregation.(data.Histogram)
	require.Equal(t, []uint64{1, 1}, agg.BucketCounts)
}

func TestHistogramRejectsUnsortedBoundaries(t *testing.T) {
	provider := testProvider()
	_, err := provider.Float64Histogram("bad",
		metric.WithExplicitBoundaries([]float64{10, 5}))
	require.Error(t, err)
}

func TestObservableGauge(t *testing.T) {
	provider := testProvider()

	value := 1.5
	_, err := provider.Float64ObservableGauge("temperature",
		func(_ context.Context, observer metric.Float64Observer) {
			observer.Observe(value, attribute.String("room", "a"))
		})
	require.NoError(t, err)

	inst := findInstrument(t, provider.Collect(time.Now()), "temperature")
	require.Len(t, inst.Points, 1)
	require.Equal(t, 1.5, inst.Points[0].Aggregation.(data.Gauge).Value)

	value = 2.5
	inst = findInstrument(t, provider.Collect(time.Now()), "temperature")
	require.Equal(t, 2.5, inst.Points[0].Aggregation.(data.Gauge).Value)
}

func TestCollectEmptyRegistry(t *testing.T) {
	provider := testProvider()
	m := provider.Collect(time.Now())
	require.Equal(t, metric.ScopeName, m.Scope)
	require.Empty(t, m.Instruments)
}
