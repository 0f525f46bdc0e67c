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
	"fmt"
	"io"
	"os"
	"regexp"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

// DisallowFilter suppresses records whose module matches Module and
// whose body matches Body.
type DisallowFilter struct {
	Module *regexp.Regexp
	Body   *regexp.Regexp
}

// NewDisallowFilter compiles a disallow filter from its two patterns.
func NewDisallowFilter(moduleRegex, bodyRegex string) (DisallowFilter, error) {
	module, err := regexp.Compile(moduleRegex)
	if err != nil {
		return DisallowFilter{}, fmt.Errorf("invalid module pattern %q: %w", moduleRegex, err)
	}
	body, err := regexp.Compile(bodyRegex)
	if err != nil {
		return DisallowFilter{}, fmt.Errorf("invalid log text pattern %q: %w", bodyRegex, err)
	}
	return DisallowFilter{Module: module, Body: body}, nil
}

// LoggerProvider owns the global level filter, the stderr mirror, and
// the fan-out to export processors.  It is created once at
// orchestrator start; Emit is safe for concurrent use.
type LoggerProvider struct {
	serviceName string
	hostname    string
	pid         int
	filter      *Filter
	disallow    []DisallowFilter
	mirror      io.Writer // nil when the stderr mirror is disabled

	lock       sync.RWMutex
	processors []Processor
}

// ProviderOption configures a LoggerProvider.
type ProviderOption func(*LoggerProvider)

// WithServiceName sets the service name used in mirrored syslog lines.
func WithServiceName(name string) ProviderOption {
	return func(p *LoggerProvider) {
		p.serviceName = name
	}
}

// WithFilter installs the global level filter.
func WithFilter(f *Filter) ProviderOption {
	return func(p *LoggerProvider) {
		p.filter = f
	}
}

// WithStderrMirror enables the per-record syslog mirror.
func WithStderrMirror(enabled bool) ProviderOption {
	return func(p *LoggerProvider) {
		if enabled {
			p.mirror = os.Stderr
		} else {
			p.mirror = nil
		}
	}
}

// WithMirrorWriter redirects the mirror to w.  Used by tests.
func WithMirrorWriter(w io.Writer) ProviderOption {
	return func(p *LoggerProvider) {
		p.mirror = w
	}
}

// WithDisallowFilters installs regex disallow filters applied before
// any other filtering.
func WithDisallowFilters(filters []DisallowFilter) ProviderOption {
	return func(p *LoggerProvider) {
		p.disallow = filters
	}
}

// NewLoggerProvider constructs a provider with no processors.
func NewLoggerProvider(opts ...ProviderOption) *LoggerProvider {
	hostname, _ := os.Hostname()
	p := &LoggerProvider{
		serviceName: "app",
		hostname:    hostname,
		pid:         os.Getpid(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.filter == nil {
		p.filter, _ = ParseFilter("info")
	}
	return p
}

// RegisterProcessor adds a processor to the fan-out.  Called during
// orchestrator setup, before steady-state emission.
func (p *LoggerProvider) RegisterProcessor(proc Processor) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.processors = append(p.processors, proc)
}

// Emit applies the disallow filters and the global level filter, then
// mirrors the record to stderr (when enabled) and fans it out to every
// registered processor.  The stderr mirror is per-record, unbatched.
func (p *LoggerProvider) Emit(r Record) {
	for _, f := range p.disallow {
		if f.Module.MatchString(r.Module) && f.Body.MatchString(r.Body) {
			return
		}
	}
	if !p.filter.Enabled(r.Module, r.Severity) {
		return
	}

	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	if r.SeverityText == "" {
		r.SeverityText = r.Severity.String()
	}

	if p.mirror != nil {
		writeSyslog(p.mirror, r, p.serviceName, p.hostname, p.pid)
	}

	p.lock.RLock()
	processors := p.processors
	p.lock.RUnlock()

	for _, proc := range processors {
		proc.OnEmit(r)
	}
}

// ForceFlush flushes every processor.
func (p *LoggerProvider) ForceFlush(ctx context.Context) error {
	p.lock.RLock()
	processors := p.processors
	p.lock.RUnlock()

	var err error
	for _, proc := range processors {
		err = multierr.Append(err, proc.ForceFlush(ctx))
	}
	return err
}

// Shutdown flushes and shuts down every processor.
func (p *LoggerProvider) Shutdown(ctx context.Context) error {
	p.lock.RLock()
	processors := p.processors
	p.lock.RUnlock()

	var err error
	for _, proc := range processors {
		err = multierr.Append(err, proc.Shutdown(ctx))
	}
	return err
}

// Logger returns a leveled logger scoped to module.
func (p *LoggerProvider) Logger(module string) *Logger {
	return &Logger{provider: p, module: module}
}

// Logger is a module-scoped handle for emitting leveled records.
type Logger struct {
	provider *LoggerProvider
	module   string
}

func (l *Logger) emit(sev Severity, body string, attrs []attribute.KeyValue) {
	l.provider.Emit(Record{
		Time:       time.Now(),
		Severity:   sev,
		Module:     l.module,
		Body:       body,
		Attributes: attrs,
	})
}

func (l *Logger) Trace(body string, attrs ...attribute.KeyValue) {
	l.emit(SeverityTrace, body, attrs)
}

func (l *Logger) Debug(body string, attrs ...attribute.KeyValue) {
	l.emit(SeverityDebug, body, attrs)
}

func (l *Logger) Info(body string, attrs ...attribute.KeyValue) {
	l.emit(SeverityInfo, body, attrs)
}

func (l *Logger) Warn(body string, attrs ...attribute.KeyValue) {
	l.emit(SeverityWarn, body, attrs)
}

func (l *Logger) Error(body string, attrs ...attribute.KeyValue) {
	l.emit(SeverityError, body, attrs)
}

func (l *Logger) Tracef(format string, args ...interface{}) {
	l.emit(SeverityTrace, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.emit(SeverityDebug, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.emit(SeverityInfo, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.emit(SeverityWarn, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.emit(SeverityError, fmt.Sprintf(format, args...), nil)
}
