package model

import "time"

type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

func (s OrderSide) Valid() bool {
	return s == Buy || s == Sell
}

type OrderType string

const (
	// 市价购买
	Market OrderType = "market"
	// 限价购买
	Limit OrderType = "limit"
)

// ExecutionMode 下单执行模式，SIMULATED与REAL走完全相同的代码路径，只是不发真实网络请求
type ExecutionMode string

const (
	ModeReal      ExecutionMode = "REAL"
	ModeSimulated ExecutionMode = "SIMULATED"
)

func (m ExecutionMode) Valid() bool {
	return m == ModeReal || m == ModeSimulated
}

// OrderStatus 订单状态，闭合集合，只允许向前流转
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderSubmitted OrderStatus = "SUBMITTED"
	OrderFilled    OrderStatus = "FILLED"
	OrderFailed    OrderStatus = "FAILED"
	OrderSimulated OrderStatus = "SIMULATED"
)

// 状态只能向前流转，rank相同或倒退的转换非法
var orderStatusRank = map[OrderStatus]int{
	OrderPending:   0,
	OrderSubmitted: 1,
	OrderFilled:    2,
	OrderFailed:    2,
	OrderSimulated: 2,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok
}

// CanTransition 判断状态转换是否合法（只进不退）
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	from, ok1 := orderStatusRank[s]
	t, ok2 := orderStatusRank[to]
	return ok1 && ok2 && t > from
}

// FailureKind 下单失败的分类，给操作员看的是分类而不是原始传输错误
type FailureKind string

const (
	FailTimeout           FailureKind = "timeout"
	FailInsufficientFunds FailureKind = "insufficient_funds"
	FailInvalidSymbol     FailureKind = "invalid_symbol"
	FailMarketClosed      FailureKind = "market_closed"
	FailPermissionDenied  FailureKind = "permission_denied"
	FailUnknown           FailureKind = "unknown"
)

// OrderRecord 订单审计记录，只追加
type OrderRecord struct {
	ID             int64       `gorm:"column:id;primary_key" json:"id"` // snowflake id
	Symbol         string      `gorm:"column:symbol;index" json:"symbol"`
	Side           OrderSide   `gorm:"column:side" json:"side"`
	Quantity       float64     `gorm:"column:quantity" json:"quantity"`
	RequestedPrice float64     `gorm:"column:requested_price" json:"requested_price"`
	Status         OrderStatus `gorm:"column:status" json:"status"`
	GatewayOrderId string      `gorm:"column:gateway_order_id" json:"gateway_order_id"`
	StrategyId     int64       `gorm:"column:strategy_id" json:"strategy_id"`
	Mode           string      `gorm:"column:mode" json:"mode"`
	ErrorKind      string      `gorm:"column:error_kind" json:"error_kind"`
	ErrorMessage   string      `gorm:"column:error_message" json:"error_message"`
	RealizedPnl    float64     `gorm:"column:realized_pnl" json:"realized_pnl"` // 卖出成交时相对持仓成本的已实现盈亏
	SubmittedAt    time.Time   `gorm:"column:submitted_at" json:"submitted_at"`
	FilledAt       *time.Time  `gorm:"column:filled_at" json:"filled_at"`
}

func (OrderRecord) TableName() string {
	return "order_records"
}

// Position 当前持仓，每个symbol最多一笔（由执行网关保证）
type Position struct {
	Symbol          string    `gorm:"column:symbol;primary_key" json:"symbol"`
	Quantity        float64   `gorm:"column:quantity" json:"quantity"`
	AvgCost         float64   `gorm:"column:avg_cost" json:"avg_cost"`
	OpenedAt        time.Time `gorm:"column:opened_at" json:"opened_at"`
	StopLossPrice   float64   `gorm:"column:stop_loss_price" json:"stop_loss_price"`
	TakeProfitPrice float64   `gorm:"column:take_profit_price" json:"take_profit_price"`
}

func (Position) TableName() string {
	return "positions"
}
