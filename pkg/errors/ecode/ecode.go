package ecode

// 错误码定义，0为成功，非0为失败
const (
	Success        = 0
	InternalErr    = 10001 // 服务内部错误
	InvalidParams  = 10002 // 请求参数错误
	RequireAuthErr = 10003 // 鉴权失败
	NotFoundErr    = 10004 // 资源不存在

	OrderRejectedErr  = 20001 // 下单前置校验失败
	OrderFailedErr    = 20002 // 下单重试耗尽
	StrategyConfigErr = 20003 // 策略配置非法
	MonitorConfigErr  = 20004 // 风控配置非法
)

var messages = map[int]string{
	Success:           "OK",
	InternalErr:       "internal server error",
	InvalidParams:     "invalid request parameters",
	RequireAuthErr:    "authentication required",
	NotFoundErr:       "resource not found",
	OrderRejectedErr:  "order rejected by precondition check",
	OrderFailedErr:    "order submission failed",
	StrategyConfigErr: "invalid strategy config",
	MonitorConfigErr:  "invalid monitoring config",
}

func Message(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[InternalErr]
}
