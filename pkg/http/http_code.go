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

var (
	Failed                        = failed(5000, "Request failed")
	RequestParameterParsingFailed = failed(4001, "Request parameter parsing failed")
	OrgIdIsEmpty                  = failed(4002, "Org id is empty")
	ProjectIdIsEmpty              = failed(4003, "Project id is empty")

	// Unauthorized 401
	Unauthorized           = failed(4401, "Unauthorized")
	AuthorizationIncorrect = failed(4403, "Missing or invalid authorization header")
	InvalidToken           = failed(4405, "Invalid or expired token")

	// BadRequest 400
	BadRequest = failed(4000, "Bad request")
	NotFound   = failed(4004, "Not found")

	// Forbidden 403
	Forbidden        = failed(4030, "Forbidden")
	PermissionDenied = failed(4031, "Insufficient permissions")
	NoMembership     = failed(4032, "No active organization membership")
	TrialExpired     = failed(4033, "Your trial has expired. Please upgrade to continue")
	UpgradeRequired  = failed(4034, "Plan limit reached")

	TooManyRequests = failed(4290, "Too many requests")

	InternalError      = failed(5000, "Internal error, please contact the administrator")
	ServiceUnavailable = failed(5030, "Authorization service unavailable")
)

var (
	Success = success(200, "Request Success")
)

// failed 构造函数
func failed(code int, msg string) *Response {
	return &Response{
		Code:   code,
		Msg:    msg,
		Detail: nil,
	}
}

// success 构造函数
func success(code int, msg string) *Response {
	return &Response{
		Code:   code,
		Msg:    msg,
		Detail: nil,
	}
}
