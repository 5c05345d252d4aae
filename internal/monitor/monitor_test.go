package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tradeflow/internal/config"
	"tradeflow/internal/dao"
	"tradeflow/internal/gateway"
	"tradeflow/internal/model"

	"github.com/stretchr/testify/require"
)

type fakeConfigs struct {
	mu   sync.Mutex
	data map[string]*model.PositionMonitoringConfig
}

func newFakeConfigs() *fakeConfigs {
	return &fakeConfigs{data: make(map[string]*model.PositionMonitoringConfig)}
}

func (f *fakeConfigs) Get(_ context.Context, symbol string) (*model.PositionMonitoringConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.data[symbol]
	if !ok {
		return nil, dao.ErrNotFound
	}
	cp := *cfg
	return &cp, nil
}

func (f *fakeConfigs) Put(_ context.Context, cfg *model.PositionMonitoringConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *cfg
	f.data[cfg.Symbol] = &cp
	return nil
}

func (f *fakeConfigs) StampTriggered(_ context.Context, symbol string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cfg, ok := f.data[symbol]; ok {
		cfg.LastTriggeredAt = &at
	}
	return nil
}

type fakePositions struct {
	mu   sync.Mutex
	data map[string]*model.Position
}

func newFakePositions() *fakePositions {
	return &fakePositions{data: make(map[string]*model.Position)}
}

func (f *fakePositions) Get(_ context.Context, symbol string) (*model.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.data[symbol]
	if !ok {
		return nil, dao.ErrNotFound
	}
	cp := *pos
	return &cp, nil
}

func (f *fakePositions) set(pos *model.Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[pos.Symbol] = pos
}

type recordedSignal struct {
	sig     model.TradeSignal
	outcome model.SignalOutcome
}

type fakeSignals struct {
	mu      sync.Mutex
	records []recordedSignal
}

func (f *fakeSignals) Record(_ context.Context, sig *model.TradeSignal, outcome model.SignalOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, recordedSignal{sig: *sig, outcome: outcome})
	return nil
}

func (f *fakeSignals) last(t *testing.T) recordedSignal {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.records)
	return f.records[len(f.records)-1]
}

type fakeExec struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeExec) Execute(_ context.Context, _ *model.TradeSignal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeExec) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestMonitor(configs *fakeConfigs, positions *fakePositions, exec *fakeExec, risk config.RiskConfig) (*Monitor, *fakeSignals) {
	signals := &fakeSignals{}
	m := NewMonitor(configs, positions, signals, exec, NewDailyLimiter(risk), 30)
	return m, signals
}

func buySignal(symbol string) *model.TradeSignal {
	return &model.TradeSignal{
		Symbol:      symbol,
		StrategyId:  1,
		Strategy:    "ma-breakout",
		Action:      model.ActionBuy,
		Price:       100,
		Confidence:  1,
		GeneratedAt: time.Now(),
	}
}

func TestMonitor_AlertOnlyNeverExecutes(t *testing.T) {
	configs := newFakeConfigs()
	configs.data["BTC-USDT"] = &model.PositionMonitoringConfig{
		Symbol:           "BTC-USDT",
		MonitoringStatus: model.MonitorEnabled,
		StrategyMode:     model.ModeAlertOnly,
	}
	exec := &fakeExec{}
	m, signals := newTestMonitor(configs, newFakePositions(), exec, config.RiskConfig{})

	outcome, err := m.OnSignal(context.Background(), buySignal("BTC-USDT"))
	require.NoError(t, err)
	require.Equal(t, model.OutcomeAlerted, outcome)
	require.Zero(t, exec.count())

	rec := signals.last(t)
	require.Equal(t, model.OutcomeAlerted, rec.outcome)
	require.Equal(t, "BTC-USDT", rec.sig.Symbol)
}

func TestMonitor_FirstObservationGetsSafeDefault(t *testing.T) {
	// 首次出现的symbol自动建ALERT_ONLY配置，绝不默认自动交易
	configs := newFakeConfigs()
	exec := &fakeExec{}
	m, _ := newTestMonitor(configs, newFakePositions(), exec, config.RiskConfig{})

	outcome, err := m.OnSignal(context.Background(), buySignal("DOGE-USDT"))
	require.NoError(t, err)
	require.Equal(t, model.OutcomeAlerted, outcome)
	require.Zero(t, exec.count())

	created, err := configs.Get(context.Background(), "DOGE-USDT")
	require.NoError(t, err)
	require.Equal(t, model.MonitorEnabled, created.MonitoringStatus)
	require.Equal(t, model.ModeAlertOnly, created.StrategyMode)
	require.Equal(t, 30, created.CooldownMinutes)
}

func TestMonitor_AutoExecutesAndStampsCooldown(t *testing.T) {
	configs := newFakeConfigs()
	configs.data["BTC-USDT"] = &model.PositionMonitoringConfig{
		Symbol:           "BTC-USDT",
		MonitoringStatus: model.MonitorEnabled,
		StrategyMode:     model.ModeAuto,
		CooldownMinutes:  30,
	}
	exec := &fakeExec{}
	m, _ := newTestMonitor(configs, newFakePositions(), exec, config.RiskConfig{})

	outcome, err := m.OnSignal(context.Background(), buySignal("BTC-USDT"))
	require.NoError(t, err)
	require.Equal(t, model.OutcomeExecuted, outcome)
	require.Equal(t, 1, exec.count())

	stamped, _ := configs.Get(context.Background(), "BTC-USDT")
	require.NotNil(t, stamped.LastTriggeredAt)

	// 冷却期内的第二个信号被压制，不再执行也不再盖时间戳
	before := *stamped.LastTriggeredAt
	outcome, err = m.OnSignal(context.Background(), buySignal("BTC-USDT"))
	require.NoError(t, err)
	require.Equal(t, model.OutcomeSuppressed, outcome)
	require.Equal(t, 1, exec.count())

	after, _ := configs.Get(context.Background(), "BTC-USDT")
	require.Equal(t, before, *after.LastTriggeredAt)
}

func TestMonitor_CooldownExpiresAllowsNextTrade(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	configs := newFakeConfigs()
	configs.data["BTC-USDT"] = &model.PositionMonitoringConfig{
		Symbol:           "BTC-USDT",
		MonitoringStatus: model.MonitorEnabled,
		StrategyMode:     model.ModeAuto,
		CooldownMinutes:  30,
		LastTriggeredAt:  &past,
	}
	exec := &fakeExec{}
	m, _ := newTestMonitor(configs, newFakePositions(), exec, config.RiskConfig{})

	outcome, err := m.OnSignal(context.Background(), buySignal("BTC-USDT"))
	require.NoError(t, err)
	require.Equal(t, model.OutcomeExecuted, outcome)
}

func TestMonitor_MonitoringDisabledSuppresses(t *testing.T) {
	for _, status := range []model.MonitoringStatus{model.MonitorDisabled, model.MonitorPaused} {
		configs := newFakeConfigs()
		configs.data["BTC-USDT"] = &model.PositionMonitoringConfig{
			Symbol:           "BTC-USDT",
			MonitoringStatus: status,
			StrategyMode:     model.ModeAuto,
		}
		exec := &fakeExec{}
		m, _ := newTestMonitor(configs, newFakePositions(), exec, config.RiskConfig{})

		outcome, err := m.OnSignal(context.Background(), buySignal("BTC-USDT"))
		require.NoError(t, err)
		require.Equal(t, model.OutcomeSuppressed, outcome, "status %s", status)
		require.Zero(t, exec.count())
	}
}

func TestMonitor_StrategyAllowListFilters(t *testing.T) {
	configs := newFakeConfigs()
	configs.data["BTC-USDT"] = &model.PositionMonitoringConfig{
		Symbol:            "BTC-USDT",
		MonitoringStatus:  model.MonitorEnabled,
		StrategyMode:      model.ModeAuto,
		EnabledStrategies: []int64{7},
	}
	exec := &fakeExec{}
	m, _ := newTestMonitor(configs, newFakePositions(), exec, config.RiskConfig{})

	sig := buySignal("BTC-USDT")
	sig.StrategyId = 1
	outcome, err := m.OnSignal(context.Background(), sig)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeSuppressed, outcome)
	require.Zero(t, exec.count())
}

func TestMonitor_RejectedExecutionRefundsQuota(t *testing.T) {
	configs := newFakeConfigs()
	configs.data["BTC-USDT"] = &model.PositionMonitoringConfig{
		Symbol:           "BTC-USDT",
		MonitoringStatus: model.MonitorEnabled,
		StrategyMode:     model.ModeAuto,
	}
	exec := &fakeExec{err: &gateway.PreconditionError{Symbol: "BTC-USDT", Reason: "position already exists"}}
	m, signals := newTestMonitor(configs, newFakePositions(), exec, config.RiskConfig{MaxTradesPerDay: 5})

	outcome, err := m.OnSignal(context.Background(), buySignal("BTC-USDT"))
	require.NoError(t, err)
	require.Equal(t, model.OutcomeRejected, outcome)
	require.Equal(t, model.OutcomeRejected, signals.last(t).outcome)

	// 未成行的下单要退回当日额度
	trades, _ := m.Limiter().Counters(time.Now())
	require.Zero(t, trades)

	// 失败不盖冷却时间戳
	cfg, _ := configs.Get(context.Background(), "BTC-USDT")
	require.Nil(t, cfg.LastTriggeredAt)
}

func TestMonitor_DailyLimitSuppresses(t *testing.T) {
	configs := newFakeConfigs()
	configs.data["BTC-USDT"] = &model.PositionMonitoringConfig{
		Symbol:           "BTC-USDT",
		MonitoringStatus: model.MonitorEnabled,
		StrategyMode:     model.ModeAuto,
		CooldownMinutes:  0,
	}
	exec := &fakeExec{}
	m, _ := newTestMonitor(configs, newFakePositions(), exec, config.RiskConfig{MaxTradesPerDay: 1})

	outcome, _ := m.OnSignal(context.Background(), buySignal("BTC-USDT"))
	require.Equal(t, model.OutcomeExecuted, outcome)

	// 额度用尽后压制
	configs.data["BTC-USDT"].LastTriggeredAt = nil
	outcome, _ = m.OnSignal(context.Background(), buySignal("BTC-USDT"))
	require.Equal(t, model.OutcomeSuppressed, outcome)
	require.Equal(t, 1, exec.count())
}

func TestMonitor_StopLossTriggersExitEvenInAlertOnly(t *testing.T) {
	configs := newFakeConfigs()
	configs.data["BTC-USDT"] = &model.PositionMonitoringConfig{
		Symbol:           "BTC-USDT",
		MonitoringStatus: model.MonitorEnabled,
		StrategyMode:     model.ModeAlertOnly,
	}
	positions := newFakePositions()
	positions.set(&model.Position{
		Symbol:        "BTC-USDT",
		Quantity:      2,
		AvgCost:       100,
		StopLossPrice: 95,
	})
	exec := &fakeExec{}
	m, signals := newTestMonitor(configs, positions, exec, config.RiskConfig{})

	m.OnTick(context.Background(), tickAt("BTC-USDT", 94))

	require.Equal(t, 1, exec.count())
	rec := signals.last(t)
	require.Equal(t, model.ActionExit, rec.sig.Action)
	require.Equal(t, model.OutcomeExecuted, rec.outcome)
	require.Contains(t, rec.sig.Reason, "stop loss")

	// 亏损计入当日额度
	_, loss := m.Limiter().Counters(time.Now())
	require.InDelta(t, 12, loss, 1e-9)

	// 离场单在途，重复tick不再下第二单
	m.OnTick(context.Background(), tickAt("BTC-USDT", 93))
	require.Equal(t, 1, exec.count())
}

func TestMonitor_TakeProfitFromRatio(t *testing.T) {
	configs := newFakeConfigs()
	configs.data["BTC-USDT"] = &model.PositionMonitoringConfig{
		Symbol:           "BTC-USDT",
		MonitoringStatus: model.MonitorEnabled,
		StrategyMode:     model.ModeAuto,
		TakeProfitRatio:  0.1,
	}
	positions := newFakePositions()
	positions.set(&model.Position{Symbol: "BTC-USDT", Quantity: 1, AvgCost: 100})
	exec := &fakeExec{}
	m, signals := newTestMonitor(configs, positions, exec, config.RiskConfig{})

	// 未到止盈价不动作
	m.OnTick(context.Background(), tickAt("BTC-USDT", 109))
	require.Zero(t, exec.count())

	m.OnTick(context.Background(), tickAt("BTC-USDT", 110.5))
	require.Equal(t, 1, exec.count())
	require.Contains(t, signals.last(t).sig.Reason, "take profit")
}

func TestMonitor_ExitSkippedWhenMonitoringOff(t *testing.T) {
	configs := newFakeConfigs()
	configs.data["BTC-USDT"] = &model.PositionMonitoringConfig{
		Symbol:           "BTC-USDT",
		MonitoringStatus: model.MonitorPaused,
		StrategyMode:     model.ModeAuto,
	}
	positions := newFakePositions()
	positions.set(&model.Position{Symbol: "BTC-USDT", Quantity: 1, AvgCost: 100, StopLossPrice: 95})
	exec := &fakeExec{}
	m, _ := newTestMonitor(configs, positions, exec, config.RiskConfig{})

	m.OnTick(context.Background(), tickAt("BTC-USDT", 90))
	require.Zero(t, exec.count())
}

func TestMonitor_FailedExitRetriesOnNextTick(t *testing.T) {
	configs := newFakeConfigs()
	configs.data["BTC-USDT"] = &model.PositionMonitoringConfig{
		Symbol:           "BTC-USDT",
		MonitoringStatus: model.MonitorEnabled,
		StrategyMode:     model.ModeAuto,
	}
	positions := newFakePositions()
	positions.set(&model.Position{Symbol: "BTC-USDT", Quantity: 1, AvgCost: 100, StopLossPrice: 95})
	exec := &fakeExec{err: errors.New("request timeout")}
	m, signals := newTestMonitor(configs, positions, exec, config.RiskConfig{})

	m.OnTick(context.Background(), tickAt("BTC-USDT", 94))
	require.Equal(t, 1, exec.count())
	require.Equal(t, model.OutcomeRejected, signals.last(t).outcome)

	// 失败后在途标记清除，下一个tick重试
	m.OnTick(context.Background(), tickAt("BTC-USDT", 93))
	require.Equal(t, 2, exec.count())
}

func TestMonitor_NoPositionNoExit(t *testing.T) {
	exec := &fakeExec{}
	m, _ := newTestMonitor(newFakeConfigs(), newFakePositions(), exec, config.RiskConfig{})

	m.OnTick(context.Background(), tickAt("BTC-USDT", 50))
	require.Zero(t, exec.count())
}

func tickAt(symbol string, price float64) *model.QuoteTick {
	return &model.QuoteTick{
		Symbol:    symbol,
		Timestamp: time.Now(),
		LastPrice: price,
		Sequence:  time.Now().UnixNano(),
	}
}
