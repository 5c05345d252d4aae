package model

// 策略条件用闭合的类型集合表示，由小型解释器求值（见strategy.Evaluate），
// 不做运行时反射，新增条件类型必须先加入集合

type ConditionType string

const (
	CondPriceAboveMA  ConditionType = "price_above_ma"
	CondPriceBelowMA  ConditionType = "price_below_ma"
	CondRSIBelow      ConditionType = "rsi_below"
	CondRSIAbove      ConditionType = "rsi_above"
	CondMACDCrossUp   ConditionType = "macd_cross_up"
	CondMACDCrossDown ConditionType = "macd_cross_down"
	CondPriceBelowBBL ConditionType = "price_below_bb_lower"
	CondPriceAboveBBU ConditionType = "price_above_bb_upper"
	CondATRBelow      ConditionType = "atr_below"
	CondATRAbove      ConditionType = "atr_above"
)

var conditionTypes = map[ConditionType]struct{}{
	CondPriceAboveMA:  {},
	CondPriceBelowMA:  {},
	CondRSIBelow:      {},
	CondRSIAbove:      {},
	CondMACDCrossUp:   {},
	CondMACDCrossDown: {},
	CondPriceBelowBBL: {},
	CondPriceAboveBBU: {},
	CondATRBelow:      {},
	CondATRAbove:      {},
}

func (t ConditionType) Valid() bool {
	_, ok := conditionTypes[t]
	return ok
}

// Condition 单条策略条件
// Period/Threshold按条件类型取用：MA类用Period，RSI类用Period+Threshold，
// 布林类用Period+Threshold(标准差倍数)
type Condition struct {
	Type      ConditionType `json:"type"`
	Period    int           `json:"period,omitempty"`
	Threshold float64       `json:"threshold,omitempty"`
	Weight    float64       `json:"weight,omitempty"` // 置信度加权，默认1
}

// RiskManagement 策略自带的风险参数
type RiskManagement struct {
	StopLossPct    float64 `json:"stop_loss_pct"`
	TakeProfitPct  float64 `json:"take_profit_pct"`
	MaxPositionPct float64 `json:"max_position_pct"`
}

// StrategyConfig 一条命名的策略配置，评估循环只读，
// 修改只能通过显式的enable/disable/update操作
type StrategyConfig struct {
	Id             int64          `json:"id"`
	Name           string         `json:"name"`
	Enabled        bool           `json:"enabled"`
	Symbols        []string       `json:"symbols"`
	BuyConditions  []Condition    `json:"buy_conditions"`
	SellConditions []Condition    `json:"sell_conditions"`
	Risk           RiskManagement `json:"risk_management"`
	// AllowAveraging 已有持仓时是否允许继续评估买入条件（摊平），默认不允许
	AllowAveraging bool `json:"allow_averaging"`
}

// AppliesTo 策略是否覆盖某个symbol
func (sc *StrategyConfig) AppliesTo(symbol string) bool {
	for _, s := range sc.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// Validate 校验条件类型是否都在闭合集合内
func (sc *StrategyConfig) Validate() error {
	for _, c := range append(append([]Condition{}, sc.BuyConditions...), sc.SellConditions...) {
		if !c.Type.Valid() {
			return &InvalidConditionError{Type: string(c.Type)}
		}
	}
	return nil
}

type InvalidConditionError struct {
	Type string
}

func (e *InvalidConditionError) Error() string {
	return "unknown condition type: " + e.Type
}
