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

package prom // import "github.com/otelobs/otel-orchestrator-go/exporters/prom"

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric"
)

// Server answers GET /metrics by rendering the registry's current
// snapshot.  The listener is bound at construction so a port conflict
// is a setup error, before any pipeline starts.
type Server struct {
	listener net.Listener
	server   *http.Server
	provider *metric.MeterProvider
	diag     logr.Logger
}

// NewServer binds the scrape listener on port.  Port 0 binds an
// ephemeral port, see Addr.
func NewServer(port uint16, provider *metric.MeterProvider, diag logr.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("prometheus endpoint: %w", err)
	}

	s := &Server{
		listener: listener,
		provider: provider,
		diag:     diag,
	}

	router := mux.NewRouter()
	router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	s.server = &http.Server{Handler: router}
	return s, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run serves scrapes until ctx is cancelled, then closes the server
// and releases the port.  In-flight scrapes are not drained.
func (s *Server) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := s.server.Serve(s.listener); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		return s.server.Close()
	})
	return eg.Wait()
}

// handleMetrics renders the snapshot into a buffer first, so a render
// failure produces a clean 500 instead of a truncated document.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot := s.provider.Collect(time.Now())

	var buf bytes.Buffer
	if err := Render(&buf, snapshot); err != nil {
		s.diag.Error(err, "rendering scrape response")
		http.Error(w, "rendering metrics failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ContentType)
	_, _ = buf.WriteTo(w)
}
