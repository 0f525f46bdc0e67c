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

// Package pipelines implements the periodic export tasks: one metric
// pipeline per metric target and one log pipeline per log target,
// each with its own interval, timeout, and filtering policy, running
// until the orchestrator cancels them.
package pipelines // import "github.com/otelobs/otel-orchestrator-go/pipelines"

import (
	"time"

	"github.com/go-logr/logr"
)

// PipelineConfig carries the per-target schedule shared by metric and
// log pipelines.
type PipelineConfig struct {
	// Name identifies the pipeline in diagnostics, usually the
	// target endpoint.
	Name string

	// Interval is the tick period.
	Interval time.Duration

	// Timeout bounds each export attempt.  Must not exceed
	// Interval; the launcher validates this.
	Timeout time.Duration

	// Diag receives transient failure reports.
	Diag logr.Logger
}
