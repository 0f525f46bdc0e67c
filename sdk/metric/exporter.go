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

package metric // import "github.com/otelobs/otel-orchestrator-go/sdk/metric"

import (
	"context"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric/data"
)

// PushExporter delivers one collected batch to a destination.  The
// export must respect the context deadline; a deadline overrun is a
// transient failure for that batch only.
type PushExporter interface {
	// ExportMetrics sends data to the destination.
	ExportMetrics(ctx context.Context, metrics data.Metrics) error

	// ShutdownMetrics releases the exporter's resources.  No
	// ExportMetrics calls follow.
	ShutdownMetrics(ctx context.Context) error
}
