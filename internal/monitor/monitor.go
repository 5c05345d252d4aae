package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tradeflow/internal/dao"
	"tradeflow/internal/model"
	"tradeflow/pkg/logger"
)

// ConfigStore 每symbol风控配置的读写
type ConfigStore interface {
	Get(ctx context.Context, symbol string) (*model.PositionMonitoringConfig, error)
	Put(ctx context.Context, cfg *model.PositionMonitoringConfig) error
	StampTriggered(ctx context.Context, symbol string, at time.Time) error
}

// PositionStore 持仓读取
type PositionStore interface {
	Get(ctx context.Context, symbol string) (*model.Position, error)
}

// SignalRecorder 信号审计
type SignalRecorder interface {
	Record(ctx context.Context, sig *model.TradeSignal, outcome model.SignalOutcome) error
}

// Executor 执行网关的抽象，ALERT_ONLY路径下永远不会被调用
type Executor interface {
	Execute(ctx context.Context, sig *model.TradeSignal) error
}

// Notifier 信号处置结果的对外广播，可为nil
type Notifier interface {
	NotifySignal(sig *model.TradeSignal, outcome model.SignalOutcome)
}

// 执行网关的前置校验失败实现该接口
type preconditioner interface {
	Precondition() bool
}

func isPrecondition(err error) bool {
	var p preconditioner
	return errors.As(err, &p) && p.Precondition()
}

// Monitor 仓位风险监控
// 每个symbol一条配置，冷却时间戳只由这里写入
type Monitor struct {
	configs   ConfigStore
	positions PositionStore
	signals   SignalRecorder
	exec      Executor
	limiter   *DailyLimiter
	notifier  Notifier

	defaultCooldown int

	mu      sync.Mutex
	exiting map[string]bool // 止损止盈单在途的symbol
}

func NewMonitor(configs ConfigStore, positions PositionStore, signals SignalRecorder, exec Executor, limiter *DailyLimiter, defaultCooldownMinutes int) *Monitor {
	return &Monitor{
		configs:         configs,
		positions:       positions,
		signals:         signals,
		exec:            exec,
		limiter:         limiter,
		defaultCooldown: defaultCooldownMinutes,
		exiting:         make(map[string]bool),
	}
}

// SetNotifier 挂接广播端，启动期调用一次
func (m *Monitor) SetNotifier(n Notifier) {
	m.notifier = n
}

// ensureConfig 首次观察到symbol时写入安全默认配置
func (m *Monitor) ensureConfig(ctx context.Context, symbol string) (*model.PositionMonitoringConfig, error) {
	cfg, err := m.configs.Get(ctx, symbol)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, dao.ErrNotFound) {
		return nil, err
	}
	cfg = model.DefaultMonitoringConfig(symbol, m.defaultCooldown)
	if err := m.configs.Put(ctx, cfg); err != nil {
		return nil, err
	}
	logger.Infof("[Monitor] %s first observed, default config %s/%s", symbol, cfg.MonitoringStatus, cfg.StrategyMode)
	return cfg, nil
}

// OnSignal 处置一个策略信号，返回处置结果
func (m *Monitor) OnSignal(ctx context.Context, sig *model.TradeSignal) (model.SignalOutcome, error) {
	cfg, err := m.ensureConfig(ctx, sig.Symbol)
	if err != nil {
		return model.OutcomeSuppressed, err
	}

	outcome := m.decide(ctx, cfg, sig)

	if err := m.signals.Record(ctx, sig, outcome); err != nil {
		logger.Warnf("[Monitor] record signal %s failed: %v", sig.Symbol, err)
	}
	if m.notifier != nil {
		m.notifier.NotifySignal(sig, outcome)
	}
	return outcome, nil
}

func (m *Monitor) decide(ctx context.Context, cfg *model.PositionMonitoringConfig, sig *model.TradeSignal) model.SignalOutcome {
	if cfg.MonitoringStatus != model.MonitorEnabled {
		return model.OutcomeSuppressed
	}

	switch cfg.StrategyMode {
	case model.ModeAuto:
		if !cfg.StrategyEnabled(sig.StrategyId) {
			return model.OutcomeSuppressed
		}
		now := time.Now()
		if !cfg.CooldownElapsed(now) {
			logger.Infof("[Monitor] %s in cooldown, signal suppressed", sig.Symbol)
			return model.OutcomeSuppressed
		}
		if !m.limiter.TryTrade(now) {
			logger.Warnf("[Monitor] daily limit reached, %s signal suppressed", sig.Symbol)
			return model.OutcomeSuppressed
		}
		if err := m.exec.Execute(ctx, sig); err != nil {
			m.limiter.Refund()
			if isPrecondition(err) {
				logger.Infof("[Monitor] %s signal rejected: %v", sig.Symbol, err)
			} else {
				logger.Errorf("[Monitor] %s execution failed: %v", sig.Symbol, err)
			}
			return model.OutcomeRejected
		}
		if err := m.configs.StampTriggered(ctx, sig.Symbol, now); err != nil {
			logger.Warnf("[Monitor] stamp cooldown %s failed: %v", sig.Symbol, err)
		}
		return model.OutcomeExecuted

	case model.ModeAlertOnly:
		return model.OutcomeAlerted

	default:
		return model.OutcomeSuppressed
	}
}

// OnTick 检查止损止盈
// 止损止盈是安全机制，monitoring开启时即使ALERT_ONLY也会执行
func (m *Monitor) OnTick(ctx context.Context, tick *model.QuoteTick) {
	pos, err := m.positions.Get(ctx, tick.Symbol)
	if err != nil {
		if !errors.Is(err, dao.ErrNotFound) {
			logger.Warnf("[Monitor] get position %s failed: %v", tick.Symbol, err)
		}
		m.clearExiting(tick.Symbol)
		return
	}

	cfg, err := m.ensureConfig(ctx, tick.Symbol)
	if err != nil {
		logger.Warnf("[Monitor] config %s unavailable: %v", tick.Symbol, err)
		return
	}
	if cfg.MonitoringStatus != model.MonitorEnabled || cfg.StrategyMode == model.ModeDisabled {
		return
	}

	sl, tp := exitPrices(pos, cfg)
	var reason string
	switch {
	case sl > 0 && tick.LastPrice <= sl:
		reason = fmt.Sprintf("stop loss: price %.4f <= %.4f", tick.LastPrice, sl)
	case tp > 0 && tick.LastPrice >= tp:
		reason = fmt.Sprintf("take profit: price %.4f >= %.4f", tick.LastPrice, tp)
	default:
		return
	}

	m.mu.Lock()
	if m.exiting[tick.Symbol] {
		m.mu.Unlock()
		return
	}
	m.exiting[tick.Symbol] = true
	m.mu.Unlock()

	sig := &model.TradeSignal{
		Symbol:      tick.Symbol,
		Action:      model.ActionExit,
		Price:       tick.LastPrice,
		Reason:      reason,
		Confidence:  1,
		GeneratedAt: time.Now(),
	}

	outcome := model.OutcomeExecuted
	if err := m.exec.Execute(ctx, sig); err != nil {
		logger.Errorf("[Monitor] %s exit failed: %v", tick.Symbol, err)
		outcome = model.OutcomeRejected
		m.clearExiting(tick.Symbol)
	} else {
		if tick.LastPrice < pos.AvgCost {
			m.limiter.RecordLoss(time.Now(), (pos.AvgCost-tick.LastPrice)*pos.Quantity)
		}
		if err := m.configs.StampTriggered(ctx, tick.Symbol, time.Now()); err != nil {
			logger.Warnf("[Monitor] stamp cooldown %s failed: %v", tick.Symbol, err)
		}
	}
	if err := m.signals.Record(ctx, sig, outcome); err != nil {
		logger.Warnf("[Monitor] record exit %s failed: %v", tick.Symbol, err)
	}
	if m.notifier != nil {
		m.notifier.NotifySignal(sig, outcome)
	}
}

func (m *Monitor) clearExiting(symbol string) {
	m.mu.Lock()
	delete(m.exiting, symbol)
	m.mu.Unlock()
}

// Limiter 当日计数的读取入口
func (m *Monitor) Limiter() *DailyLimiter {
	return m.limiter
}

// exitPrices 持仓上的显式价位优先，没有时按配置比例从成本价推算
func exitPrices(pos *model.Position, cfg *model.PositionMonitoringConfig) (sl, tp float64) {
	sl, tp = pos.StopLossPrice, pos.TakeProfitPrice
	if sl <= 0 && cfg.StopLossRatio > 0 {
		sl = pos.AvgCost * (1 - cfg.StopLossRatio)
	}
	if tp <= 0 && cfg.TakeProfitRatio > 0 {
		tp = pos.AvgCost * (1 + cfg.TakeProfitRatio)
	}
	return sl, tp
}
