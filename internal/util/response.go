package util

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 通用返回结构里的 data 使用 map
type Response map[string]interface{}

// business codes
const (
	CodeOK           = 0
	CodeInvalidParam = 40001
	CodeAuth         = 40101
	CodeForbidden    = 40301
	CodeNotFound     = 40401
	CodeServerErr    = 50001
)

// Success 统一成功返回
func Success(c *gin.Context, data Response) {
	c.JSON(http.StatusOK, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

// Error 统一错误返回
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}

// Fail maps a service error onto the error envelope. Unknown errors are
// reported as fallback so internals never leak to the client.
func Fail(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrValidation):
		Error(c, http.StatusBadRequest, CodeInvalidParam, err.Error())
	case errors.Is(err, ErrUnauthorized):
		Error(c, http.StatusUnauthorized, CodeAuth, "unauthorized")
	case errors.Is(err, ErrForbidden):
		Error(c, http.StatusForbidden, CodeForbidden, "forbidden")
	case errors.Is(err, ErrNotFound):
		Error(c, http.StatusNotFound, CodeNotFound, "not found")
	default:
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, CodeServerErr, fallback)
	}
}
