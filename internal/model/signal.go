package model

import "time"

// SignalAction 信号方向
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	// ActionExit 风控内部的离场信号（止盈止损触发），不来自策略
	ActionExit SignalAction = "EXIT"
)

func (a SignalAction) Valid() bool {
	return a == ActionBuy || a == ActionSell || a == ActionExit
}

// TradeSignal 策略评估产生的信号，生产后被风控消费一次即丢弃或落审计
type TradeSignal struct {
	Symbol      string       `json:"symbol"`
	StrategyId  int64        `json:"strategy_id"`
	Strategy    string       `json:"strategy"`
	Action      SignalAction `json:"action"`
	Price       float64      `json:"price"`
	Reason      string       `json:"reason"`
	Confidence  float64      `json:"confidence"` // [0,1] 满足子条件的加权比例，仅供参考不做闸门
	GeneratedAt time.Time    `json:"generated_at"`
}

// SignalOutcome 风控对一个信号的处置结果
type SignalOutcome string

const (
	OutcomeExecuted   SignalOutcome = "EXECUTED"   // AUTO模式下已转发执行
	OutcomeAlerted    SignalOutcome = "ALERTED"    // ALERT_ONLY模式下仅记录广播
	OutcomeSuppressed SignalOutcome = "SUPPRESSED" // 冷却期内或模式不允许
	OutcomeRejected   SignalOutcome = "REJECTED"   // 执行网关前置校验失败
)
