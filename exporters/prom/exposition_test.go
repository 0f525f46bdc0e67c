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

package prom

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric"
	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

func testResource() *resource.Resource {
	return resource.NewSchemaless(
		semconv.ServiceName("svc"),
		attribute.String("region", "us"),
	)
}

func render(t *testing.T, m data.Metrics) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, m))
	return buf.String()
}

func TestRenderTargetInfoFirst(t *testing.T) {
	out := render(t, data.Metrics{Resource: testResource()})

	want := "# TYPE target_info gauge\n" +
		`target_info{service_name="svc",region="us"} 1` + "\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("exposition mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderCounter(t *testing.T) {
	m := data.Metrics{
		Resource: testResource(),
		Instruments: []data.Instrument{{
			Descriptor: data.Descriptor{
				Name:        "http.requests",
				Description: "Requests served",
				Kind:        data.CounterKind,
			},
			Points: []data.Point{{
				Attributes:  attribute.NewSet(attribute.String("route", "/a")),
				Temporality: data.CumulativeTemporality,
				Aggregation: data.Sum{Value: 7, Monotonic: true},
			}},
		}},
	}

	out := render(t, m)
	require.Contains(t, out, "# HELP http_requests_total Requests served\n")
	require.Contains(t, out, "# TYPE http_requests_total counter\n")
	require.Contains(t, out,
		`http_requests_total{service_name="svc",region="us",route="/a"} 7`+"\n")
}

func TestRenderGaugeKinds(t *testing.T) {
	m := data.Metrics{
		Instruments: []data.Instrument{
			{
				Descriptor: data.Descriptor{Name: "inflight", Kind: data.UpDownCounterKind},
				Points: []data.Point{{
					Aggregation: data.Sum{Value: -2},
				}},
			},
			{
				Descriptor: data.Descriptor{Name: "temperature", Kind: data.ObservableGaugeKind},
				Points: []data.Point{{
					Aggregation: data.Gauge{Value: 21.5},
				}},
			},
		},
	}

	out := render(t, m)
	require.Contains(t, out, "# TYPE inflight gauge\ninflight -2\n")
	require.Contains(t, out, "# TYPE temperature gauge\ntemperature 21.5\n")
}

func TestRenderHistogramGolden(t *testing.T) {
	m := data.Metrics{
		Instruments: []data.Instrument{{
			Descriptor: data.Descriptor{Name: "latency", Kind: data.HistogramKind},
			Points: []data.Point{{
				Temporality: data.CumulativeTemporality,
				Aggregation: data.Histogram{
					Sum:        93,
					Count:      5,
					Boundaries: []float64{0, 5, 10, 25, 50},
					// Observations 3, 3, 7, 40, 40.
					BucketCounts: []uint64{0, 2, 1, 0, 2, 0},
				},
			}},
		}},
	}

	want := "# TYPE target_info gauge\n" +
		"target_info 1\n" +
		"# TYPE latency histogram\n" +
		`latency_bucket{le="0"} 0` + "\n" +
		`latency_bucket{le="5"} 2` + "\n" +
		`latency_bucket{le="10"} 3` + "\n" +
		`latency_bucket{le="25"} 3` + "\n" +
		`latency_bucket{le="50"} 5` + "\n" +
		`latency_bucket{le="+Inf"} 5` + "\n" +
		"latency_sum 93\n" +
		"latency_count 5\n"

	out := render(t, m)
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("exposition mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderBucketCountsNonDecreasing(t *testing.T) {
	m := data.Metrics{
		Instruments: []data.Instrument{{
			Descriptor: data.Descriptor{Name: "h", Kind: data.HistogramKind},
			Points: []data.Point{{
				Aggregation: data.Histogram{
					Sum:          10,
					Count:        6,
					Boundaries:   []float64{1, 2, 3},
					BucketCounts: []uint64{3, 0, 2, 1},
				},
			}},
		}},
	}

	out := render(t, m)
	var prev uint64
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "h_bucket") {
			continue
		}
		fields := strings.Fields(line)
		v, err := strconv.ParseUint(fields[len(fields)-1], 10, 64)
		require.NoError(t, err)
		require.GreaterOrEqual(t, v, prev, line)
		prev = v
	}
	require.Equal(t, uint64(6), prev)
}

func TestSanitizeAndEscape(t *testing.T) {
	m := data.Metrics{
		Instruments: []data.Instrument{{
			Descriptor: data.Descriptor{Name: "my.metric-1", Kind: data.ObservableGaugeKind},
			Points: []data.Point{{
				Attributes: attribute.NewSet(
					attribute.String("path.name", "a\"b\\c\nd"),
				),
				Aggregation: data.Gauge{Value: 1},
			}},
		}},
	}

	out := render(t, m)
	require.Contains(t, out, "# TYPE my_metric_1 gauge\n")
	require.Contains(t, out, `my_metric_1{path_name="a\"b\\c\nd"} 1`+"\n")
}

func TestPointAttributeOverridesResourceLabel(t *testing.T) {
	m := data.Metrics{
		Resource: testResource(),
		Instruments: []data.Instrument{{
			Descriptor: data.Descriptor{Name: "g", Kind: data.ObservableGaugeKind},
			Points: []data.Point{{
				Attributes:  attribute.NewSet(attribute.String("region", "eu")),
				Aggregation: data.Gauge{Value: 1},
			}},
		}},
	}

	out := render(t, m)
	require.Contains(t, out, `g{service_name="svc",region="eu"} 1`+"\n")
}

func TestRenderConcurrentWithUpdates(t *testing.T) {
	ctx := context.Background()
	provider := metric.NewMeterProvider(testResource())
	counter, err := provider.Int64Counter("spins")
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				counter.Add(ctx, 1)
			}
		}
	}()

	for i := 0; i < 50; i++ {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, provider.Collect(time.Now())))
		require.Contains(t, buf.String(), "spins_total")
	}
	close(done)
	wg.Wait()
}
