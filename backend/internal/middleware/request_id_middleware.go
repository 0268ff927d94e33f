package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID 是请求 ID 使用的 HTTP 头。
const HeaderRequestID = "X-Request-ID"

const contextKeyRequestID = "request_id"

// RequestID 沿用客户端传入的 X-Request-ID，缺失或过长时生成新的 UUID，并回写到响应头。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID 读取当前请求的 ID，未经过 RequestID 中间件时返回空字符串。
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}
