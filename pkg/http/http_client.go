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

package http

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
)

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
}

// NewClient returns a resty client encoding bodies with sonic.
func NewClient(cfg ClientConfig) *resty.Client {
	c := resty.New().
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetHeader("Content-Type", "application/json")
	if cfg.BaseURL != "" {
		c.SetBaseURL(cfg.BaseURL)
	}
	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}
	if len(cfg.Headers) > 0 {
		c.SetHeaders(cfg.Headers)
	}
	return c
}
