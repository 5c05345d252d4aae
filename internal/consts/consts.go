package consts

import "time"

const (
	// RequestId 请求id名称
	RequestId   = "request_id"
	Operator    = "operator"
	JWTTokenCtx = "token_ctx"

	DateLayout   = "2006-01-02"
	TimeLayout   = "2006-01-02 15:04:05"
	TimeLayoutMs = "2006-01-02 15:04:05.000"
)

const (
	// redis key 前缀
	TickSnapshotPrefix   = "tick:snapshot:" // tick:snapshot:<symbol> 最新一笔行情
	SignalAuditPrefix    = "signal:latest:" // signal:latest:<symbol> 最近一次信号
	RedisExpireTickSnap  = time.Minute * 10
	RedisExpireLatestSig = time.Hour * 24
)
