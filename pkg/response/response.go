package response

import (
	"net/http"
	"tradeflow/internal/consts"
	"tradeflow/pkg/errors"
	"tradeflow/pkg/errors/ecode"

	"github.com/gin-gonic/gin"
)

// 代表响应给客户端的的一个消息结构，包括错误码，错误信息，响应数据
type ApiResponse struct {
	RequestId string      `json:"request_id"` // 请求的唯一ID
	Code      int         `json:"code"`       // 错误码 0表示无错误
	Message   string      `json:"message"`    // 提示信息
	Data      interface{} `json:"data"`       // 响应数据
}

// 发送json格式数据
func JSON(c *gin.Context, err error, data interface{}) {
	code, message := errors.DecodeErr(err)
	// 如果code != 0, 失败的话 返回http状态码400（一般也可以全部返回200）
	var httpStatus int
	if code != ecode.Success {
		httpStatus = http.StatusBadRequest
	} else {
		httpStatus = http.StatusOK
	}
	c.JSON(httpStatus, ApiResponse{
		RequestId: c.GetString(consts.RequestId),
		Code:      code,
		Message:   message,
		Data:      data,
	})
}

// token鉴权失败，返回401
func RequireAuthErr(c *gin.Context, err error) {
	var message string
	if err != nil {
		message = err.Error()
	} else {
		message = "unknow error."
	}
	c.JSON(http.StatusUnauthorized, ApiResponse{
		RequestId: c.GetString(consts.RequestId),
		Code:      ecode.RequireAuthErr,
		Message:   "invalid token:" + message,
		Data:      nil,
	})
}
