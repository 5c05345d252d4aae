package strategy

import (
	"strings"
	"sync"
	"time"

	"tradeflow/internal/indicator"
	"tradeflow/internal/model"
	"tradeflow/pkg/logger"
)

// 加权得分达到该比例才认为条件组成立
const groupScoreThreshold = 0.6

// armState 每个(symbol, 策略, 方向)的触发状态
// 条件持续成立时只发一次信号，必须经过一个条件为假的tick才重新武装
type armState int

const (
	stateIdle armState = iota
	stateConditionMet
	stateSignalEmitted
)

func (s armState) String() string {
	switch s {
	case stateConditionMet:
		return "CONDITION_MET"
	case stateSignalEmitted:
		return "SIGNAL_EMITTED"
	default:
		return "IDLE"
	}
}

type armKey struct {
	symbol     string
	strategyId int64
	action     model.SignalAction
}

// Engine 策略评估器
// 策略状态按(symbol, 策略)划分，同一symbol的评估由上层串行调度
type Engine struct {
	mu     sync.Mutex
	states map[armKey]armState
}

func NewEngine() *Engine {
	return &Engine{states: make(map[armKey]armState)}
}

// Evaluate 对单个symbol评估所有适用策略，每个策略最多产生一个信号
// 单个策略的评估异常只记日志，不影响其它策略
func (e *Engine) Evaluate(symbol string, bars []model.Bar, configs []*model.StrategyConfig, hasPosition bool) []model.TradeSignal {
	if len(bars) == 0 || len(configs) == 0 {
		return nil
	}

	var applicable []*model.StrategyConfig
	for _, cfg := range configs {
		if cfg.Enabled && cfg.AppliesTo(symbol) {
			applicable = append(applicable, cfg)
		}
	}
	if len(applicable) == 0 {
		return nil
	}

	spec := SpecFor(applicable)
	rs := indicator.Compute(bars, spec)

	var signals []model.TradeSignal
	for _, cfg := range applicable {
		sig := e.evaluateOne(symbol, cfg, rs, spec, bars, hasPosition)
		if sig != nil {
			signals = append(signals, *sig)
		}
	}
	return signals
}

func (e *Engine) evaluateOne(symbol string, cfg *model.StrategyConfig, rs *indicator.ResultSet, spec indicator.Spec, bars []model.Bar, hasPosition bool) (sig *model.TradeSignal) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[Strategy] %s evaluate %s panic: %v", cfg.Name, symbol, r)
			sig = nil
		}
	}()

	price := bars[len(bars)-1].Close

	// 买入条件先于卖出条件评估
	// 已有持仓时跳过买入评估，除非策略允许摊平
	if !hasPosition || cfg.AllowAveraging {
		if s := e.evaluateGroup(symbol, cfg, model.ActionBuy, cfg.BuyConditions, rs, spec, price); s != nil {
			return s
		}
	}
	return e.evaluateGroup(symbol, cfg, model.ActionSell, cfg.SellConditions, rs, spec, price)
}

func (e *Engine) evaluateGroup(symbol string, cfg *model.StrategyConfig, action model.SignalAction, conds []model.Condition, rs *indicator.ResultSet, spec indicator.Spec, price float64) *model.TradeSignal {
	if len(conds) == 0 {
		return nil
	}

	var totalWeight, metWeight float64
	var reasons []string
	for _, c := range conds {
		w := c.Weight
		if w <= 0 {
			w = 1
		}
		met, ok, desc := evalCondition(c, rs, spec)
		if !ok {
			// 数据不足或序列缺失时整组视为不成立
			logger.Debugf("[Strategy] %s %s %s unevaluable: %s", cfg.Name, symbol, c.Type, desc)
			e.disarm(symbol, cfg.Id, action)
			return nil
		}
		totalWeight += w
		if met {
			metWeight += w
			reasons = append(reasons, string(c.Type)+": "+desc)
		}
	}

	confidence := metWeight / totalWeight
	groupMet := confidence >= groupScoreThreshold

	key := armKey{symbol: symbol, strategyId: cfg.Id, action: action}
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.states[key]
	if !groupMet {
		if cur != stateIdle {
			e.transition(key, cur, stateIdle)
		}
		return nil
	}
	if cur != stateIdle {
		// 条件持续成立，已经发过信号了
		return nil
	}
	e.transition(key, stateIdle, stateConditionMet)
	e.transition(key, stateConditionMet, stateSignalEmitted)

	return &model.TradeSignal{
		Symbol:      symbol,
		StrategyId:  cfg.Id,
		Strategy:    cfg.Name,
		Action:      action,
		Price:       price,
		Reason:      strings.Join(reasons, "; "),
		Confidence:  confidence,
		GeneratedAt: time.Now(),
	}
}

// disarm 条件无法评估时回到初始状态
func (e *Engine) disarm(symbol string, strategyId int64, action model.SignalAction) {
	key := armKey{symbol: symbol, strategyId: strategyId, action: action}
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur := e.states[key]; cur != stateIdle {
		e.transition(key, cur, stateIdle)
	}
}

// 调用方需持有e.mu
func (e *Engine) transition(key armKey, from, to armState) {
	e.states[key] = to
	logger.Debugf("[Strategy] %s strategy=%d %s: %s -> %s", key.symbol, key.strategyId, key.action, from, to)
}
