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

package launcher

import (
	"context"
	"fmt"
	"os"

	"github.com/sethvargo/go-envconfig"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"gopkg.in/yaml.v3"

	"github.com/otelobs/otel-orchestrator-go/logs"
	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

// DefaultPrometheusPort is the scrape port used when a prometheus
// section is present without an explicit port.
const DefaultPrometheusPort = 9600

// Config is the single process-wide configuration.  It is read once,
// validated by NewOtel, and never mutated afterwards.
type Config struct {
	// ServiceName becomes the service.name resource attribute.
	// Required.
	ServiceName string `yaml:"service_name" env:"OTELOBS_SERVICE_NAME"`

	// EnterpriseNumber is an optional organization identifier added
	// to the resource as enterprise.number.
	EnterpriseNumber string `yaml:"enterprise_number" env:"OTELOBS_ENTERPRISE_NUMBER"`

	// ResourceAttributes are additional resource attributes.
	ResourceAttributes map[string]string `yaml:"resource_attributes"`

	// Level is the global level filter expression: a default
	// severity plus per-module overrides, e.g. "info,hyper=off".
	Level string `yaml:"level" env:"OTELOBS_LEVEL"`

	// PrometheusConfig enables the pull-based scrape endpoint when
	// non-nil.
	PrometheusConfig *PrometheusConfig `yaml:"prometheus"`

	MetricsExportTargets []MetricsExportTarget `yaml:"metrics_export_targets"`
	LogsExportTargets    []LogsExportTarget    `yaml:"logs_export_targets"`

	// EmitMetricsToStdout mirrors metric snapshots to stdout as
	// pretty JSON.
	EmitMetricsToStdout bool `yaml:"emit_metrics_to_stdout" env:"OTELOBS_METRICS_STDOUT"`

	// EmitLogsToStderr mirrors accepted records to stderr as syslog
	// lines.  On by default.
	EmitLogsToStderr bool `yaml:"emit_logs_to_stderr" env:"OTELOBS_LOGS_STDERR"`

	// RegexFilters suppress matching records before any other
	// filtering.
	RegexFilters []RegexFilter `yaml:"regex_filters"`
}

// PrometheusConfig configures the scrape endpoint.
type PrometheusConfig struct {
	Port uint16 `yaml:"port" env:"OTELOBS_PROMETHEUS_PORT"`
}

// NewPrometheusConfig returns a scrape configuration on the default
// port.
func NewPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{Port: DefaultPrometheusPort}
}

// MetricsExportTarget describes one OTLP metrics destination with its
// own schedule and temporality preference.
type MetricsExportTarget struct {
	URL          string `yaml:"url"`
	IntervalSecs uint32 `yaml:"interval_secs"`
	TimeoutSecs  uint32 `yaml:"timeout_secs"`

	// Temporality is "cumulative" (default) or "delta".  Only
	// Counter and Histogram streams follow it.
	Temporality string `yaml:"temporality"`

	Insecure bool              `yaml:"insecure"`
	Headers  map[string]string `yaml:"headers"`
}

// LogsExportTarget describes one OTLP logs destination.
type LogsExportTarget struct {
	URL          string `yaml:"url"`
	IntervalSecs uint32 `yaml:"interval_secs"`
	TimeoutSecs  uint32 `yaml:"timeout_secs"`

	// ExportSeverity, when set, is an additional minimum severity
	// applied to this target only, on top of the global filter.
	ExportSeverity string `yaml:"export_severity"`

	Insecure bool              `yaml:"insecure"`
	Headers  map[string]string `yaml:"headers"`
}

// FilterAction selects what a matching regex filter does with a
// record.  Disallow is the only action.
type FilterAction string

const FilterActionDisallow FilterAction = "disallow"

// RegexFilter suppresses records whose module matches ModuleRegex and
// whose body matches LogTextRegex.
type RegexFilter struct {
	ModuleRegex  string       `yaml:"module_regex"`
	LogTextRegex string       `yaml:"log_text_regex"`
	Action       FilterAction `yaml:"action"`
}

// NewConfig returns the default configuration: stderr mirror on,
// level "info", nothing else enabled.
func NewConfig() Config {
	return Config{
		Level:            "info",
		EmitLogsToStderr: true,
	}
}

// LoadConfig reads a YAML configuration file over the defaults and
// applies the environment overlay.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	c := NewConfig()
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.ApplyEnv(context.Background()); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ApplyEnv overlays OTELOBS_* environment variables onto c.  Unset
// variables leave the corresponding fields untouched.
func (c *Config) ApplyEnv(ctx context.Context) error {
	if err := envconfig.Process(ctx, c); err != nil {
		return fmt.Errorf("environment overlay: %w", err)
	}
	return nil
}

// Validate reports the first setup error in c.  A valid configuration
// with no targets and no endpoints is acceptable.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}
	if _, err := logs.ParseFilter(c.Level); err != nil {
		return fmt.Errorf("level: %w", err)
	}
	for i, t := range c.MetricsExportTargets {
		if err := validateSchedule(t.URL, t.IntervalSecs, t.TimeoutSecs); err != nil {
			return fmt.Errorf("metrics target %d: %w", i, err)
		}
		if t.Temporality != "" {
			if _, err := data.ParseTemporality(t.Temporality); err != nil {
				return fmt.Errorf("metrics target %d: %w", i, err)
			}
		}
	}
	for i, t := range c.LogsExportTargets {
		if err := validateSchedule(t.URL, t.IntervalSecs, t.TimeoutSecs); err != nil {
			return fmt.Errorf("logs target %d: %w", i, err)
		}
		if t.ExportSeverity != "" {
			if _, err := logs.ParseSeverity(t.ExportSeverity); err != nil {
				return fmt.Errorf("logs target %d: %w", i, err)
			}
		}
	}
	for i, f := range c.RegexFilters {
		if f.Action != FilterActionDisallow {
			return fmt.Errorf("regex filter %d: unknown action %q", i, f.Action)
		}
		if _, err := logs.NewDisallowFilter(f.ModuleRegex, f.LogTextRegex); err != nil {
			return fmt.Errorf("regex filter %d: %w", i, err)
		}
	}
	return nil
}

func validateSchedule(url string, intervalSecs, timeoutSecs uint32) error {
	if url == "" {
		return fmt.Errorf("target URL is required")
	}
	if intervalSecs == 0 {
		return fmt.Errorf("interval must be positive")
	}
	if timeoutSecs == 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if timeoutSecs > intervalSecs {
		return fmt.Errorf("timeout %ds exceeds interval %ds", timeoutSecs, intervalSecs)
	}
	return nil
}

// newResource builds the resource attached to every exported batch
// and every scrape.
func newResource(c Config) *resource.Resource {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(c.ServiceName),
		semconv.HostName(hostname),
	}
	if c.EnterpriseNumber != "" {
		attrs = append(attrs, attribute.String("enterprise.number", c.EnterpriseNumber))
	}
	for k, v := range c.ResourceAttributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}
