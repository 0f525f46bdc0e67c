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

// Package host registers built-in host and runtime gauges on the
// instrument registry.  Values are observed lazily at collection time.
package host // import "github.com/otelobs/otel-orchestrator-go/instrumentation/host"

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"go.opentelemetry.io/otel/attribute"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric"
)

var (
	attrMemoryUsed      = attribute.String("state", "used")
	attrMemoryAvailable = attribute.String("state", "available")
)

// Register installs the host gauges on provider.  Observation errors
// at collection time produce no points for that tick.
func Register(provider *metric.MeterProvider) error {
	_, err := provider.Float64ObservableGauge(
		"system.memory.usage",
		func(ctx context.Context, observer metric.Float64Observer) {
			vmStats, err := mem.VirtualMemoryWithContext(ctx)
			if err != nil {
				return
			}
			observer.Observe(float64(vmStats.Used), attrMemoryUsed)
			observer.Observe(float64(vmStats.Available), attrMemoryAvailable)
		},
		metric.WithUnit("By"),
		metric.WithDescription("Memory usage of this process host attributed by memory state (Used, Available)"),
	)
	if err != nil {
		return err
	}

	_, err = provider.Float64ObservableGauge(
		"system.memory.utilization",
		func(ctx context.Context, observer metric.Float64Observer) {
			vmStats, err := mem.VirtualMemoryWithContext(ctx)
			if err != nil || vmStats.Total == 0 {
				return
			}
			observer.Observe(float64(vmStats.Used)/float64(vmStats.Total), attrMemoryUsed)
			observer.Observe(float64(vmStats.Available)/float64(vmStats.Total), attrMemoryAvailable)
		},
		metric.WithDescription("Memory utilization of this process host attributed by memory state (Used, Available)"),
	)
	if err != nil {
		return err
	}

	_, err = provider.Float64ObservableGauge(
		"system.cpu.load_average.1m",
		func(ctx context.Context, observer metric.Float64Observer) {
			avg, err := load.AvgWithContext(ctx)
			if err != nil {
				return
			}
			observer.Observe(avg.Load1)
		},
		metric.WithUnit("1"),
		metric.WithDescription("Average CPU load over the last minute"),
	)
	if err != nil {
		return err
	}

	_, err = provider.Float64ObservableGauge(
		"process.runtime.go.goroutines",
		func(_ context.Context, observer metric.Float64Observer) {
			observer.Observe(float64(runtime.NumGoroutine()))
		},
		metric.WithDescription("Number of goroutines that currently exist"),
	)
	return err
}
