package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess      = 0
	CodeParamError   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeServerError  = 500
)

// 业务错误码，客户端靠它区分"余额不足"和"系统错误"
const (
	CodeInsufficientBalance = 1001
	CodeUserNotFound        = 1002
	CodeReleaseNotFound     = 1003
	CodeCouponNotFound      = 1004
	CodeCouponNotUsable     = 1005
	CodeCartMismatch        = 1006
	CodeCouponConflict      = 1007
	CodeStatusInvalid       = 1008
	CodeResetCodeInvalid    = 1009
	CodeSystemBusy          = 1010 // 并发竞争（锁/乐观锁），重试即可
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, CodeForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, CodeNotFound, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
