package server

import (
	"errors"
	"net/http"

	"github.com/CarLeaseHub/CarLeaseHub/internal/common/errs"
	"github.com/gin-gonic/gin"
)

// Respond 成功响应；data 为 nil 时只返回状态码。
func Respond(c *gin.Context, code int, data interface{}) {
	if data == nil {
		c.Status(code)
		return
	}
	c.JSON(code, data)
}

// RespondError 按错误分类映射 HTTP 状态码并返回统一的错误体。
func RespondError(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	code := errs.HTTPStatus(err)
	body := gin.H{"error": err.Error()}

	var e *errs.Error
	if errors.As(err, &e) {
		if e.Kind == errs.KindInternal {
			// 内部错误不对外暴露底层细节
			body["error"] = "internal error"
		}
		if e.Entity != "" {
			body["entity"] = e.Entity
		}
		if e.ID != 0 {
			body["id"] = e.ID
		}
	}

	c.AbortWithStatusJSON(code, body)
}
