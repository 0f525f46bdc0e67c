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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	c := NewConfig()
	c.ServiceName = "svc"
	return c
}

func TestNewConfigDefaults(t *testing.T) {
	c := NewConfig()
	assert.Equal(t, "info", c.Level)
	assert.True(t, c.EmitLogsToStderr)
	assert.False(t, c.EmitMetricsToStdout)
	assert.Nil(t, c.PrometheusConfig)
}

func TestNewPrometheusConfigDefaultPort(t *testing.T) {
	require.Equal(t, uint16(9600), NewPrometheusConfig().Port)
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
service_name: books
enterprise_number: "32473"
level: "debug,hyper=off"
prometheus:
  port: 9700
resource_attributes:
  deployment: staging
metrics_export_targets:
  - url: https://collector:4317
    interval_secs: 60
    timeout_secs: 10
    temporality: delta
logs_export_targets:
  - url: http://collector:4317
    interval_secs: 30
    timeout_secs: 5
    export_severity: error
    insecure: true
regex_filters:
  - module_regex: "^noisy$"
    log_text_regex: "heartbeat"
    action: disallow
emit_metrics_to_stdout: true
`), 0o600))

	c, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "books", c.ServiceName)
	assert.Equal(t, "32473", c.EnterpriseNumber)
	assert.Equal(t, "debug,hyper=off", c.Level)
	require.NotNil(t, c.PrometheusConfig)
	assert.Equal(t, uint16(9700), c.PrometheusConfig.Port)
	assert.Equal(t, map[string]string{"deployment": "staging"}, c.ResourceAttributes)

	require.Len(t, c.MetricsExportTargets, 1)
	assert.Equal(t, "https://collector:4317", c.MetricsExportTargets[0].URL)
	assert.Equal(t, uint32(60), c.MetricsExportTargets[0].IntervalSecs)
	assert.Equal(t, "delta", c.MetricsExportTargets[0].Temporality)

	require.Len(t, c.LogsExportTargets, 1)
	assert.Equal(t, "error", c.LogsExportTargets[0].ExportSeverity)
	assert.True(t, c.LogsExportTargets[0].Insecure)

	require.Len(t, c.RegexFilters, 1)
	assert.Equal(t, FilterActionDisallow, c.RegexFilters[0].Action)

	assert.True(t, c.EmitMetricsToStdout)
	assert.True(t, c.EmitLogsToStderr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestEnvOverlay(t *testing.T) {
	t.Setenv("OTELOBS_SERVICE_NAME", "env-svc")
	t.Setenv("OTELOBS_LEVEL", "warn")
	t.Setenv("OTELOBS_METRICS_STDOUT", "true")

	c := NewConfig()
	require.NoError(t, c.ApplyEnv(context.Background()))

	assert.Equal(t, "env-svc", c.ServiceName)
	assert.Equal(t, "warn", c.Level)
	assert.True(t, c.EmitMetricsToStdout)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"empty service name": func(c *Config) { c.ServiceName = "" },
		"bad level":          func(c *Config) { c.Level = "loud" },
		"empty metrics url": func(c *Config) {
			c.MetricsExportTargets = []MetricsExportTarget{{IntervalSecs: 60, TimeoutSecs: 10}}
		},
		"zero interval": func(c *Config) {
			c.MetricsExportTargets = []MetricsExportTarget{{URL: "https://x", TimeoutSecs: 10}}
		},
		"zero timeout": func(c *Config) {
			c.MetricsExportTargets = []MetricsExportTarget{{URL: "https://x", IntervalSecs: 60}}
		},
		"timeout exceeds interval": func(c *Config) {
			c.MetricsExportTargets = []MetricsExportTarget{{URL: "https://x", IntervalSecs: 10, TimeoutSecs: 60}}
		},
		"bad temporality": func(c *Config) {
			c.MetricsExportTargets = []MetricsExportTarget{{URL: "https://x", IntervalSecs: 60, TimeoutSecs: 10, Temporality: "weekly"}}
		},
		"bad export severity": func(c *Config) {
			c.LogsExportTargets = []LogsExportTarget{{URL: "https://x", IntervalSecs: 60, TimeoutSecs: 10, ExportSeverity: "loud"}}
		},
		"bad regex": func(c *Config) {
			c.RegexFilters = []RegexFilter{{ModuleRegex: "(", LogTextRegex: "x", Action: FilterActionDisallow}}
		},
		"bad filter action": func(c *Config) {
			c.RegexFilters = []RegexFilter{{ModuleRegex: "x", LogTextRegex: "x", Action: "allow"}}
		},
	} {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}

	c := validConfig()
	require.NoError(t, c.Validate())
}

func TestNewResource(t *testing.T) {
	c := validConfig()
	c.EnterpriseNumber = "32473"
	c.ResourceAttributes = map[string]string{"deployment": "staging"}

	res := newResource(c)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "svc", attrs["service.name"])
	assert.Equal(t, "32473", attrs["enterprise.number"])
	assert.Equal(t, "staging", attrs["deployment"])
	assert.NotEmpty(t, attrs["host.name"])
}
