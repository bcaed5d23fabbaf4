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

package router

import (
	"net/http/pprof"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

// debugRouter 注册pprof路由
// 访问地址: /debug/pprof
func (rt *Router) debugRouter(r fiber.Router) {
	r.Get("/", adaptor.HTTPHandlerFunc(pprof.Index))
	r.Get("/cmdline", adaptor.HTTPHandlerFunc(pprof.Cmdline))
	r.Get("/profile", adaptor.HTTPHandlerFunc(pprof.Profile))
	r.Get("/symbol", adaptor.HTTPHandlerFunc(pprof.Symbol))
	r.Get("/trace", adaptor.HTTPHandlerFunc(pprof.Trace))
	r.Get("/heap", adaptor.HTTPHandler(pprof.Handler("heap")))
	r.Get("/goroutine", adaptor.HTTPHandler(pprof.Handler("goroutine")))
	r.Get("/mutex", adaptor.HTTPHandler(pprof.Handler("mutex")))
}
