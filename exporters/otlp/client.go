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

// Package otlp pushes metric and log batches to OTLP/gRPC collectors.
// The transport is gRPC; this package only maps the registry data
// model onto the OTLP message types and imposes the per-target
// deadline passed in by the pipelines.
package otlp // import "github.com/otelobs/otel-orchestrator-go/exporters/otlp"

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// ClientConfig carries the per-target transport settings.
type ClientConfig struct {
	// Endpoint accepts "host:port" or a URL such as
	// "https://collector:4317"; an https or grpcs scheme forces TLS.
	Endpoint string

	// Insecure disables TLS for scheme-less or http endpoints.
	Insecure bool

	// Headers are attached to every export request.
	Headers map[string]string
}

// dial resolves the endpoint and returns a lazily connecting client
// connection.  No I/O happens here; connectivity errors surface on
// the first export.
func dial(cfg ClientConfig) (*grpc.ClientConn, error) {
	target := cfg.Endpoint
	secure := !cfg.Insecure

	if scheme, rest, found := strings.Cut(cfg.Endpoint, "://"); found {
		target = rest
		switch strings.ToLower(scheme) {
		case "https", "grpcs":
			secure = true
		case "http", "grpc":
			secure = false
		default:
			return nil, fmt.Errorf("unsupported endpoint scheme %q in %q", scheme, cfg.Endpoint)
		}
	}
	if target == "" {
		return nil, fmt.Errorf("empty endpoint")
	}

	creds := insecure.NewCredentials()
	if secure {
		creds = credentials.NewClientTLSFromCert(nil, "")
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dial %q: %w", target, err)
	}
	return conn, nil
}

// exportContext attaches the configured headers as outgoing metadata.
func exportContext(ctx context.Context, headers map[string]string) context.Context {
	if len(headers) == 0 {
		return ctx
	}
	pairs := make([]string, 0, 2*len(headers))
	for k, v := range headers {
		pairs = append(pairs, k, v)
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...)
}
