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

package otlp // import "github.com/otelobs/otel-orchestrator-go/exporters/otlp"

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/sdk/resource"
	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	lpb "go.opentelemetry.io/proto/otlp/logs/v1"
	"google.golang.org/grpc"

	"github.com/otelobs/otel-orchestrator-go/logs"
)

// logScopeName identifies the log bridge as the instrumentation
// scope of exported log batches.
const logScopeName = "otelobs/logs"

// LogsClient pushes log batches to one OTLP/gRPC collector.
type LogsClient struct {
	cfg      ClientConfig
	resource *resource.Resource
	conn     *grpc.ClientConn
	client   collogspb.LogsServiceClient
}

var _ logs.Exporter = (*LogsClient)(nil)

// NewLogsClient builds a client for the target endpoint, attaching
// res to every exported batch.
func NewLogsClient(cfg ClientConfig, res *resource.Resource) (*LogsClient, error) {
	conn, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &LogsClient{
		cfg:      cfg,
		resource: res,
		conn:     conn,
		client:   collogspb.NewLogsServiceClient(conn),
	}, nil
}

func (c *LogsClient) String() string {
	return fmt.Sprintf("otlp-logs:%s", c.cfg.Endpoint)
}

// ExportLogs implements logs.Exporter.
func (c *LogsClient) ExportLogs(ctx context.Context, records []logs.Record) error {
	if len(records) == 0 {
		return nil
	}
	req := &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*lpb.ResourceLogs{toResourceLogs(c.resource, logScopeName, records)},
	}
	if _, err := c.client.Export(exportContext(ctx, c.cfg.Headers), req); err != nil {
		return fmt.Errorf("export to %s: %w", c.cfg.Endpoint, err)
	}
	return nil
}

// Shutdown implements logs.Exporter.
func (c *LogsClient) Shutdown(context.Context) error {
	return c.conn.Close()
}
