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

package logs // import "github.com/otelobs/otel-orchestrator-go/logs"

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Record is one emitted log record.
type Record struct {
	Time         time.Time
	Severity     Severity
	SeverityText string
	Module       string
	Body         string
	Attributes   []attribute.KeyValue
}

// Processor receives records that passed the global filter.
// Implementations buffer and export; OnEmit must not block the
// emitting goroutine.
type Processor interface {
	OnEmit(r Record)

	// ForceFlush exports any buffered records.
	ForceFlush(ctx context.Context) error

	// Shutdown flushes and releases resources.  No OnEmit calls
	// follow.
	Shutdown(ctx context.Context) error
}

// Exporter delivers one batch of records to a destination, bounded by
// the context deadline.
type Exporter interface {
	ExportLogs(ctx context.Context, records []Record) error
	Shutdown(ctx context.Context) error
}
