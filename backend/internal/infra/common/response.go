/*
 * @Author: NEFU AB-IN
 * @Date: 2025-10-09 17:02:32
 * @FilePath: \simple-diary\backend\internal\infra\common\response.go
 * @LastEditTime: 2026-01-28 11:20:16
 */
package response

import (
	"errors"
	"net/http"

	"github.com/yn01/simple-diary/backend/internal/domain/entry"

	"github.com/gin-gonic/gin"
)

const (
	MsgValidation     = "Validation Error"
	MsgInvalidID      = "Invalid ID format"
	MsgEntryNotFound  = "Entry not found"
	MsgNotFound       = "Not Found"
	MsgInternal       = "Internal Server Error"
	MsgTooManyRequests= "Too Many Requests"
)

// Error 描述错误响应的统一结构。
type Error struct {
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// APIError 携带 HTTP 状态码，处理器可以直接返回它来短路成特定的错误响应。
type APIError struct {
	Status  int
	Message string
	Details []string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError 构造带状态码的错误。
func NewAPIError(status int, message string, details ...string) *APIError {
	return &APIError{Status: status, Message: message, Details: details}
}

// StatusOf 把错误映射为状态码与响应体，只看错误类别，不读取内部细节。
// 第三个返回值表示是否属于服务端故障，需要记录日志。
func StatusOf(err error) (int, Error, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, Error{Message: apiErr.Message, Details: apiErr.Details}, apiErr.Status >= http.StatusInternalServerError
	}

	var verr *entry.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, Error{Message: MsgValidation, Details: verr.Details()}, false
	}

	return http.StatusInternalServerError, Error{Message: MsgInternal}, true
}

// JSON 返回成功结果，body 即数据本身。
func JSON(c *gin.Context, status int, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, data)
}

// Created 返回 201 Created 的成功响应。
func Created(c *gin.Context, data any) {
	JSON(c, http.StatusCreated, data)
}

// NoContent 返回 204 响应且无 body。
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail 以统一格式返回错误结果。
func Fail(c *gin.Context, status int, message string, details []string) {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, Error{Message: message, Details: details})
}

// FailWithError 按 StatusOf 的映射写出错误，返回是否为服务端故障。
func FailWithError(c *gin.Context, err error) bool {
	status, body, internal := StatusOf(err)
	c.AbortWithStatusJSON(status, body)
	return internal
}
