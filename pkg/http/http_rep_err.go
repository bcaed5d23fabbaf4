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
	"errors"

	"github.com/gofiber/fiber/v2"
)

type ResponseErr struct {
	ErrCode int    `json:"errCode"`
	ErrMsg  any    `json:"errMsg"`
	Path    string `json:"path,omitempty"`
}

func (e ResponseErr) Error() string {
	if msg, ok := e.ErrMsg.(string); ok {
		return msg
	}
	return InternalError.Msg
}

// WithRepErr writes an error body with the given http status.
func WithRepErr(c *fiber.Ctx, status int, rep *Response) error {
	return c.Status(status).JSON(ResponseErr{
		ErrCode: rep.Code,
		ErrMsg:  rep.Msg,
		Path:    c.Path(),
	})
}

// WithRepErrMsg 自定义错误信息
func WithRepErrMsg(c *fiber.Ctx, status, code int, errMsg string) error {
	return c.Status(status).JSON(ResponseErr{
		ErrCode: code,
		ErrMsg:  errMsg,
		Path:    c.Path(),
	})
}

// ErrorHandler renders errors returned by handlers as ResponseErr bodies.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := InternalError.Code
		switch fe.Code {
		case fiber.StatusNotFound:
			code = NotFound.Code
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			code = BadRequest.Code
		case fiber.StatusTooManyRequests:
			code = TooManyRequests.Code
		}
		return WithRepErrMsg(c, fe.Code, code, fe.Message)
	}
	var re ResponseErr
	if errors.As(err, &re) {
		return c.Status(fiber.StatusBadRequest).JSON(re)
	}
	return WithRepErr(c, fiber.StatusInternalServerError, InternalError)
}
