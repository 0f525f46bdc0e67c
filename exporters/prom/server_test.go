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

package prom

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/otelobs/otel-orchestrator-go/sdk/metric"
)

func TestServerScrape(t *testing.T) {
	ctx := context.Background()
	provider := metric.NewMeterProvider(testResource())
	counter, err := provider.Int64Counter("scrapes")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	server, err := NewServer(0, provider, logr.Discard())
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(runCtx) }()

	url := fmt.Sprintf("http://%s/metrics", server.Addr())
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, ContentType, resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "target_info")
	require.Contains(t, string(body), `scrapes_total{service_name="svc",region="us"} 3`)

	// Only GET is routed.
	postResp, err := http.Post(url, "text/plain", nil)
	require.NoError(t, err)
	postResp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, postResp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServerReleasesPortOnCancel(t *testing.T) {
	provider := metric.NewMeterProvider(testResource())

	server, err := NewServer(0, provider, logr.Discard())
	require.NoError(t, err)
	port := server.Addr().(*net.TCPAddr).Port

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	rebound, err := NewServer(uint16(port), provider, logr.Discard())
	require.NoError(t, err)
	require.NoError(t, rebound.listener.Close())
}

func TestServerPortConflict(t *testing.T) {
	provider := metric.NewMeterProvider(testResource())

	first, err := NewServer(0, provider, logr.Discard())
	require.NoError(t, err)
	defer first.listener.Close()

	port := first.Addr().(*net.TCPAddr).Port
	_, err = NewServer(uint16(port), provider, logr.Discard())
	require.Error(t, err)
}
