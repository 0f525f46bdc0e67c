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

// Package launcher configures and runs the telemetry export
// orchestrator: per-target OTLP push pipelines for metrics and logs,
// an optional prometheus scrape endpoint, and optional stdout/stderr
// mirrors, all owned by a single Otel value.
package launcher

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/otelobs/otel-orchestrator-go/exporters/otlp"
	"github.com/otelobs/otel-orchestrator-go/exporters/prom"
	"github.com/otelobs/otel-orchestrator-go/exporters/stdoutmetrics"
	"github.com/otelobs/otel-orchestrator-go/instrumentation/host"
	"github.com/otelobs/otel-orchestrator-go/logs"
	"github.com/otelobs/otel-orchestrator-go/pipelines"
	"github.com/otelobs/otel-orchestrator-go/sdk/metric"
	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

// stdoutMirrorInterval is the tick period of the stdout metrics
// mirror when no push target provides a cadence to follow.
const stdoutMirrorInterval = 30 * time.Second

// Option adjusts orchestrator construction.
type Option func(*settings)

type settings struct {
	diag        logr.Logger
	hostMetrics bool
}

// WithDiagnostics replaces the internal diagnostics logger used for
// setup messages and rate-limited export failure reports.
func WithDiagnostics(diag logr.Logger) Option {
	return func(s *settings) {
		s.diag = diag
	}
}

// WithoutHostMetrics disables the built-in host and runtime gauges.
func WithoutHostMetrics() Option {
	return func(s *settings) {
		s.hostMetrics = false
	}
}

// Otel owns every pipeline and endpoint derived from one Config.
// Construct with NewOtel, drive with Run, release with Shutdown.
type Otel struct {
	cfg  Config
	diag logr.Logger

	meter  *metric.MeterProvider
	logger *logs.LoggerProvider

	metricPipelines []*pipelines.MetricsPipeline
	logPipelines    []*pipelines.LogsPipeline
	promServer      *prom.Server
}

// NewOtel validates cfg and builds the orchestrator: resource, meter
// provider, logger provider with its filters, one pipeline per target,
// and the bound (not yet serving) scrape listener.  Any setup failure
// is returned and nothing is left running.
func NewOtel(cfg Config, opts ...Option) (*Otel, error) {
	s := settings{
		diag:        stdr.New(log.New(os.Stderr, "", log.LstdFlags)),
		hostMetrics: true,
	}
	for _, opt := range opts {
		opt(&s)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	filter, err := logs.ParseFilter(cfg.Level)
	if err != nil {
		return nil, err
	}
	disallow := make([]logs.DisallowFilter, 0, len(cfg.RegexFilters))
	for _, f := range cfg.RegexFilters {
		df, err := logs.NewDisallowFilter(f.ModuleRegex, f.LogTextRegex)
		if err != nil {
			return nil, err
		}
		disallow = append(disallow, df)
	}

	res := newResource(cfg)

	o := &Otel{
		cfg:   cfg,
		diag:  s.diag,
		meter: metric.NewMeterProvider(res),
		logger: logs.NewLoggerProvider(
			logs.WithServiceName(cfg.ServiceName),
			logs.WithFilter(filter),
			logs.WithStderrMirror(cfg.EmitLogsToStderr),
			logs.WithDisallowFilters(disallow),
		),
	}

	if s.hostMetrics {
		if err := host.Register(o.meter); err != nil {
			return nil, fmt.Errorf("host metrics: %w", err)
		}
	}

	for _, target := range cfg.MetricsExportTargets {
		client, err := otlp.NewMetricsClient(otlp.ClientConfig{
			Endpoint: target.URL,
			Insecure: target.Insecure,
			Headers:  target.Headers,
		})
		if err != nil {
			return nil, fmt.Errorf("metrics target %s: %w", target.URL, err)
		}
		temporality := data.CumulativeTemporality
		if target.Temporality != "" {
			temporality, _ = data.ParseTemporality(target.Temporality)
		}
		o.metricPipelines = append(o.metricPipelines, pipelines.NewMetricsPipeline(
			pipelines.PipelineConfig{
				Name:     target.URL,
				Interval: time.Duration(target.IntervalSecs) * time.Second,
				Timeout:  time.Duration(target.TimeoutSecs) * time.Second,
				Diag:     s.diag,
			},
			o.meter, client, temporality))
	}

	if cfg.EmitMetricsToStdout {
		// The mirror follows the cadence of the first push target
		// when one exists.
		interval := stdoutMirrorInterval
		if len(cfg.MetricsExportTargets) > 0 {
			interval = time.Duration(cfg.MetricsExportTargets[0].IntervalSecs) * time.Second
		}
		o.metricPipelines = append(o.metricPipelines, pipelines.NewMetricsPipeline(
			pipelines.PipelineConfig{
				Name:     "stdout",
				Interval: interval,
				Timeout:  interval,
				Diag:     s.diag,
			},
			o.meter, stdoutmetrics.New(), data.CumulativeTemporality))
	}

	for _, target := range cfg.LogsExportTargets {
		client, err := otlp.NewLogsClient(otlp.ClientConfig{
			Endpoint: target.URL,
			Insecure: target.Insecure,
			Headers:  target.Headers,
		}, res)
		if err != nil {
			return nil, fmt.Errorf("logs target %s: %w", target.URL, err)
		}
		var minSeverity logs.Severity
		if target.ExportSeverity != "" {
			minSeverity, _ = logs.ParseSeverity(target.ExportSeverity)
		}
		pipeline := pipelines.NewLogsPipeline(
			pipelines.PipelineConfig{
				Name:     target.URL,
				Interval: time.Duration(target.IntervalSecs) * time.Second,
				Timeout:  time.Duration(target.TimeoutSecs) * time.Second,
				Diag:     s.diag,
			},
			client, minSeverity)
		o.logPipelines = append(o.logPipelines, pipeline)
		o.logger.RegisterProcessor(pipeline)
	}

	if cfg.PrometheusConfig != nil {
		port := cfg.PrometheusConfig.Port
		if port == 0 {
			port = DefaultPrometheusPort
		}
		server, err := prom.NewServer(port, o.meter, s.diag)
		if err != nil {
			return nil, fmt.Errorf("prometheus endpoint: %w", err)
		}
		o.promServer = server
	}

	return o, nil
}

// Run drives every pipeline and the scrape server until ctx is
// cancelled and all of them have stopped.  Steady-state export
// failures are absorbed inside the pipelines; Run only returns errors
// from the scrape server itself.
func (o *Otel) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, p := range o.metricPipelines {
		p := p
		g.Go(func() error { return p.Run(ctx) })
	}
	for _, p := range o.logPipelines {
		p := p
		g.Go(func() error { return p.Run(ctx) })
	}
	if o.promServer != nil {
		g.Go(func() error { return o.promServer.Run(ctx) })
	}

	return g.Wait()
}

// Shutdown flushes and releases every pipeline.  Call after Run has
// returned.
func (o *Otel) Shutdown(ctx context.Context) error {
	var err error
	for _, p := range o.metricPipelines {
		err = multierr.Append(err, p.ForceFlush(ctx))
		err = multierr.Append(err, p.Shutdown(ctx))
	}
	err = multierr.Append(err, o.logger.Shutdown(ctx))
	return err
}

// Meter returns the shared instrument registry.
func (o *Otel) Meter() *metric.MeterProvider {
	return o.meter
}

// LoggerProvider returns the shared logger provider.
func (o *Otel) LoggerProvider() *logs.LoggerProvider {
	return o.logger
}

// Logger returns a module-scoped logger.
func (o *Otel) Logger(module string) *logs.Logger {
	return o.logger.Logger(module)
}

// PrometheusAddr returns the bound scrape address, or nil when the
// endpoint is disabled.
func (o *Otel) PrometheusAddr() net.Addr {
	if o.promServer == nil {
		return nil
	}
	return o.promServer.Addr()
}
