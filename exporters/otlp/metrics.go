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

	colmetricpb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	mpb "go.opentelemetry.io/proto/otlp/metrics/v1"
	"google.golang.org/grpc"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric"
	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

// MetricsClient pushes metric batches to one OTLP/gRPC collector.
type MetricsClient struct {
	cfg    ClientConfig
	conn   *grpc.ClientConn
	client colmetricpb.MetricsServiceClient
}

var _ metric.PushExporter = (*MetricsClient)(nil)

// NewMetricsClient builds a client for the target endpoint.  The
// connection is lazy; a bad address is a setup error, an unreachable
// collector is not.
func NewMetricsClient(cfg ClientConfig) (*MetricsClient, error) {
	conn, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &MetricsClient{
		cfg:    cfg,
		conn:   conn,
		client: colmetricpb.NewMetricsServiceClient(conn),
	}, nil
}

func (c *MetricsClient) String() string {
	return fmt.Sprintf("otlp-metrics:%s", c.cfg.Endpoint)
}

// ExportMetrics implements metric.PushExporter.
func (c *MetricsClient) ExportMetrics(ctx context.Context, metrics data.Metrics) error {
	req := &colmetricpb.ExportMetricsServiceRequest{
		ResourceMetrics: []*mpb.ResourceMetrics{toResourceMetrics(metrics)},
	}
	if _, err := c.client.Export(exportContext(ctx, c.cfg.Headers), req); err != nil {
		return fmt.Errorf("export to %s: %w", c.cfg.Endpoint, err)
	}
	return nil
}

// ShutdownMetrics implements metric.PushExporter.
func (c *MetricsClient) ShutdownMetrics(context.Context) error {
	return c.conn.Close()
}
