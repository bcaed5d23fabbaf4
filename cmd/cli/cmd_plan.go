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

	"github.com/bytedance/sonic"
	"github.com/go-arcade/gatekeeper/internal/engine/config"
	"github.com/go-arcade/gatekeeper/pkg/authz"
	"github.com/go-arcade/gatekeeper/pkg/http/auth/jwt"
	"github.com/spf13/cobra"
)

var (
	trialPlan       string
	trialStartedAt  string
	trialSubscribed bool

	tokenUserId string
	tokenOrgId  string
)

var trialCmd = &cobra.Command{
	Use:   "trial",
	Short: "Evaluate the trial phase of an organization at the current time",
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := authz.ParsePlan(trialPlan)
		if err != nil {
			return err
		}
		var started time.Time
		if trialStartedAt != "" {
			started, err = time.Parse(time.RFC3339, trialStartedAt)
			if err != nil {
				return fmt.Errorf("invalid --started, want RFC3339: %w", err)
			}
		}
		return printJSON(cmd, authz.EvaluateTrial(plan, started, trialSubscribed, time.Now()))
	},
}

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Print the effective plan limits table",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConf, err := config.LoadConfigFile(configFile)
		if err != nil {
			return err
		}
		table, err := appConf.Entitlement.LimitsTable()
		if err != nil {
			return err
		}
		return printJSON(cmd, table)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access and refresh token pair for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConf, err := config.LoadConfigFile(configFile)
		if err != nil {
			return err
		}
		if appConf.Http.Auth.Provider != "jwt" {
			return fmt.Errorf("token issuing needs the jwt provider, configured: %s", appConf.Http.Auth.Provider)
		}
		aToken, rToken, err := jwt.GenToken(tokenUserId, tokenOrgId, appConf.Http.Auth)
		if err != nil {
			return err
		}
		return printJSON(cmd, map[string]string{
			"accessToken":  aToken,
			"refreshToken": rToken,
		})
	},
}

func init() {
	trialCmd.Flags().StringVar(&trialPlan, "plan", string(authz.PlanProTrial), "plan: solo, pro or pro_trial")
	trialCmd.Flags().StringVar(&trialStartedAt, "started", "", "trial start time in RFC3339")
	trialCmd.Flags().BoolVar(&trialSubscribed, "subscribed", false, "organization has an active subscription")

	tokenCmd.Flags().StringVar(&tokenUserId, "user", "", "user id")
	tokenCmd.Flags().StringVar(&tokenOrgId, "org", "", "organization id")
	_ = tokenCmd.MarkFlagRequired("user")
	_ = tokenCmd.MarkFlagRequired("org")
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
