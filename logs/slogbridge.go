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
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
)

// SlogHandler routes log/slog records into a LoggerProvider, so
// application code anywhere in the process can log through the
// standard library and still reach every configured export target.
type SlogHandler struct {
	provider *LoggerProvider
	module   string
	attrs    []attribute.KeyValue
}

var _ slog.Handler = (*SlogHandler)(nil)

// NewSlogHandler returns a handler scoped to module.
func NewSlogHandler(provider *LoggerProvider, module string) *SlogHandler {
	return &SlogHandler{provider: provider, module: module}
}

// Enabled consults the provider's global level filter.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.provider.filter.Enabled(h.module, slogSeverity(level))
}

// Handle converts and emits the record.
func (h *SlogHandler) Handle(_ context.Context, rec slog.Record) error {
	attrs := append([]attribute.KeyValue(nil), h.attrs...)
	rec.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, slogAttribute(a))
		return true
	})

	h.provider.Emit(Record{
		Time:         rec.Time,
		Severity:     slogSeverity(rec.Level),
		SeverityText: rec.Level.String(),
		Module:       h.module,
		Body:         rec.Message,
		Attributes:   attrs,
	})
	return nil
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]attribute.KeyValue(nil), h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slogAttribute(a))
	}
	return &next
}

// WithGroup scopes the module name; slog groups map onto module path
// segments.
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	next := *h
	if name != "" {
		next.module = h.module + "/" + name
	}
	return &next
}

func slogSeverity(level slog.Level) Severity {
	switch {
	case level >= slog.LevelError:
		return SeverityError
	case level >= slog.LevelWarn:
		return SeverityWarn
	case level >= slog.LevelInfo:
		return SeverityInfo
	case level >= slog.LevelDebug:
		return SeverityDebug
	default:
		return SeverityTrace
	}
}

func slogAttribute(a slog.Attr) attribute.KeyValue {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return attribute.Bool(a.Key, v.Bool())
	case slog.KindInt64:
		return attribute.Int64(a.Key, v.Int64())
	case slog.KindFloat64:
		return attribute.Float64(a.Key, v.Float64())
	case slog.KindString:
		return attribute.String(a.Key, v.String())
	default:
		return attribute.String(a.Key, v.String())
	}
}
