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
	"sync"
	"time"

	"github.com/otelobs/otel-orchestrator-go/internal/doevery"
	"github.com/otelobs/otel-orchestrator-go/logs"
)

const (
	// defaultMaxQueueSize bounds the per-target buffer between
	// flushes.  On overflow the oldest record is dropped first.
	defaultMaxQueueSize = 2048

	// defaultMaxBatchSize bounds one export call.
	defaultMaxBatchSize = 512
)

// LogsPipeline buffers records continuously and flushes them to its
// target every interval.  Delivery is at-most-once: a failed flush
// drops that batch, reported but never replayed and never fatal.
type LogsPipeline struct {
	cfg      PipelineConfig
	exporter logs.Exporter

	// minSeverity is the target's additional filter; zero means no
	// filtering beyond the global level filter, which the provider
	// applies before fan-out.
	minSeverity logs.Severity

	lock    sync.Mutex
	queue   []logs.Record
	dropped uint64
}

var _ logs.Processor = (*LogsPipeline)(nil)

// NewLogsPipeline builds a pipeline exporting through exporter.
func NewLogsPipeline(cfg PipelineConfig, exporter logs.Exporter, minSeverity logs.Severity) *LogsPipeline {
	return &LogsPipeline{
		cfg:         cfg,
		exporter:    exporter,
		minSeverity: minSeverity,
	}
}

// OnEmit implements logs.Processor.  The severity filter is applied
// at admission so a flood of low-severity records cannot evict
// exportable ones.  Never blocks the emitting goroutine.
func (p *LogsPipeline) OnEmit(r logs.Record) {
	if r.Severity < p.minSeverity {
		return
	}

	p.lock.Lock()
	if len(p.queue) >= defaultMaxQueueSize {
		// Drop oldest first.
		copy(p.queue, p.queue[1:])
		p.queue = p.queue[:len(p.queue)-1]
		p.dropped++
	}
	p.queue = append(p.queue, r)
	p.lock.Unlock()
}

// Run flushes every Interval until ctx is cancelled, then performs
// one final best-effort flush.
func (p *LogsPipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
			defer cancel()
			_ = p.flush(flushCtx)
			return nil
		case <-ticker.C:
			if err := p.flush(ctx); err != nil {
				doevery.TimePeriod(30*time.Second, func() {
					p.cfg.Diag.Error(err, "logs export failed", "target", p.cfg.Name)
				})
			}
		}
	}
}

// ForceFlush implements logs.Processor.
func (p *LogsPipeline) ForceFlush(ctx context.Context) error {
	return p.flush(ctx)
}

// Shutdown implements logs.Processor: final flush, then release the
// exporter.
func (p *LogsPipeline) Shutdown(ctx context.Context) error {
	err := p.flush(ctx)
	if err2 := p.exporter.Shutdown(ctx); err == nil {
		err = err2
	}
	return err
}

// Dropped returns the number of records discarded by the bounded
// buffer since startup.
func (p *LogsPipeline) Dropped() uint64 {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.dropped
}

// flush drains the queue in batches within one timeout window.  The
// records are removed from the queue before the export, so a failure
// drops them.
func (p *LogsPipeline) flush(ctx context.Context) error {
	p.lock.Lock()
	batch := p.queue
	p.queue = nil
	p.lock.Unlock()

	if len(batch) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	for len(batch) > 0 {
		n := len(batch)
		if n > defaultMaxBatchSize {
			n = defaultMaxBatchSize
		}
		if err := p.exporter.ExportLogs(ctx, batch[:n]); err != nil {
			return err
		}
		batch = batch[n:]
	}
	return nil
}
