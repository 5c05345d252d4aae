package dao

import "errors"

var (
	// ErrIllegalTransition 订单状态只能向前流转
	ErrIllegalTransition = errors.New("illegal order status transition")
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
)
