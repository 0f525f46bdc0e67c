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
	"context"
	"time"

	"github.com/otelobs/otel-orchestrator-go/internal/doevery"
	"github.com/otelobs/otel-orchestrator-go/sdk/metric"
	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

// MetricsPipeline periodically snapshots the instrument registry,
// applies the target's temporality policy, and pushes the result.
// Export failures are transient: reported through diagnostics,
// absorbed at the pipeline boundary, never fatal, never retried
// within the same tick.
type MetricsPipeline struct {
	cfg      PipelineConfig
	provider *metric.MeterProvider
	exporter metric.PushExporter
	delta    *deltaState
}

// NewMetricsPipeline builds a pipeline exporting provider snapshots
// through exporter with the given temporality.
func NewMetricsPipeline(cfg PipelineConfig, provider *metric.MeterProvider, exporter metric.PushExporter, temporality data.Temporality) *MetricsPipeline {
	p := &MetricsPipeline{
		cfg:      cfg,
		provider: provider,
		exporter: exporter,
	}
	if temporality == data.DeltaTemporality {
		p.delta = newDeltaState(provider.StartTime())
	}
	return p
}

// Run ticks every Interval until ctx is cancelled.  A tick that
// exceeds its timeout never delays the next scheduled tick beyond the
// interval, and other pipelines' timers are unaffected.
func (p *MetricsPipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.exportTick(ctx)
		}
	}
}

// ForceFlush performs one immediate export, bounded by the pipeline
// timeout.  Used during shutdown.
func (p *MetricsPipeline) ForceFlush(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	return p.exporter.ExportMetrics(ctx, p.snapshot())
}

// Shutdown releases the exporter.
func (p *MetricsPipeline) Shutdown(ctx context.Context) error {
	return p.exporter.ShutdownMetrics(ctx)
}

func (p *MetricsPipeline) snapshot() data.Metrics {
	m := p.provider.Collect(time.Now())
	if p.delta != nil {
		// The delta baseline advances here, at collection time.
		// A failed push below loses that interval's increments:
		// a gap in the delta series, by design.
		m = p.delta.convert(m)
	}
	return m
}

func (p *MetricsPipeline) exportTick(ctx context.Context) {
	m := p.snapshot()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if err := p.exporter.ExportMetrics(ctx, m); err != nil && ctx.Err() != context.Canceled {
		doevery.TimePeriod(30*time.Second, func() {
			p.cfg.Diag.Error(err, "metrics export failed", "target", p.cfg.Name)
		})
	}
}
