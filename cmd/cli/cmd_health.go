// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-arcade/gatekeeper/internal/pkg/grpc"
	"github.com/go-arcade/gatekeeper/pkg/http"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var (
	healthServer string
	healthGrpc   string
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the http and grpc health endpoints of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		resp, err := http.NewClient(http.ClientConfig{BaseURL: healthServer}).R().SetContext(ctx).Get("/health")
		if err != nil {
			return fmt.Errorf("http health: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "http: %d %s\n", resp.StatusCode(), resp.String())

		if healthGrpc == "" {
			return nil
		}
		conn, err := grpc.NewClientConn(healthGrpc, "")
		if err != nil {
			return fmt.Errorf("grpc dial: %w", err)
		}
		defer conn.Close()

		hr, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
		if err != nil {
			return fmt.Errorf("grpc health: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "grpc: %s\n", hr.GetStatus())
		return nil
	},
}

func init() {
	healthCmd.Flags().StringVar(&healthServer, "server", "http://127.0.0.1:8080", "gatekeeper base url")
	healthCmd.Flags().StringVar(&healthGrpc, "grpc", "", "grpc address, empty to skip")
}
