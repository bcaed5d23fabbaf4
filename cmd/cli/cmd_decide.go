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
	"fmt"
	"time"

	"github.com/go-arcade/gatekeeper/internal/pkg/grpc"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/cache"
	"github.com/go-arcade/gatekeeper/pkg/clientguard"
	"github.com/spf13/cobra"
)

var (
	decideServer  string
	decideToken   string
	decideTimeout time.Duration
	decideReq     authz.Request
	decideRes     string
	decideAction  string
	decideGrpc    string
)

// decideCmd 先用本地快照给出预判, 再向服务端确认
var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Ask a running server for an authorization decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := decideReq
		req.Resource = authz.Resource(decideRes)
		req.Action = authz.Action(decideAction)
		req.HasTask = cmd.Flags().Changed("task")
		if err := req.Validate(); err != nil {
			return err
		}

		ctx := cmd.Context()
		remote := clientguard.NewRemoteDecider(decideServer, decideToken, decideTimeout)
		guard := clientguard.New(cache.NewFastCache(cache.FastCacheConfig{}))

		var projects []string
		if req.ProjectID != "" {
			projects = append(projects, req.ProjectID)
		}
		if err := guard.Sync(ctx, remote, projects...); err != nil {
			return fmt.Errorf("sync snapshot: %w", err)
		}

		// 指定 --grpc 时经 gRPC 确认
		var authority clientguard.Authority = remote
		if decideGrpc != "" {
			conn, err := grpc.NewClientConn(decideGrpc, decideToken)
			if err != nil {
				return fmt.Errorf("dial grpc: %w", err)
			}
			defer conn.Close()
			authority = grpc.NewDecideClient(conn)
		}

		provisional := guard.Evaluate(req)
		final, err := guard.Confirm(ctx, authority, req)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "provisional: %s\n", provisional.State)
		if final.RedirectTo != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "redirect:    %s\n", final.RedirectTo)
		}
		return printJSON(cmd, final.Decision)
	},
}

func init() {
	f := decideCmd.Flags()
	f.StringVar(&decideServer, "server", "http://127.0.0.1:8080", "gatekeeper base url")
	f.StringVar(&decideToken, "token", "", "bearer access token")
	f.DurationVar(&decideTimeout, "timeout", 5*time.Second, "request timeout")
	f.StringVar(&decideReq.Route, "route", "/", "route being visited")
	f.StringVar(&decideRes, "resource", "", "resource, e.g. projects")
	f.StringVar(&decideAction, "action", "view", "action, e.g. create")
	f.StringVar(&decideReq.ProjectID, "project", "", "project id")
	f.Int64Var(&decideReq.TaskID, "task", 0, "task id")
	f.BoolVar(&decideReq.RequesterIsAssignee, "assignee", false, "requester is the task assignee")
	f.StringVar(&decideGrpc, "grpc", "", "confirm over gRPC at this address instead of HTTP")
	_ = decideCmd.MarkFlagRequired("token")
	_ = decideCmd.MarkFlagRequired("resource")
}
