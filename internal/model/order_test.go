package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOrderStatus_CanTransition(t *testing.T) {
	// 状态只进不退
	require.True(t, OrderPending.CanTransition(OrderSubmitted))
	require.True(t, OrderPending.CanTransition(OrderSimulated))
	require.True(t, OrderSubmitted.CanTransition(OrderFilled))
	require.True(t, OrderSubmitted.CanTransition(OrderFailed))

	require.False(t, OrderFilled.CanTransition(OrderSubmitted))
	require.False(t, OrderSubmitted.CanTransition(OrderPending))
	require.False(t, OrderFilled.CanTransition(OrderFailed))
	require.False(t, OrderPending.CanTransition(OrderPending))
	require.False(t, OrderStatus("bogus").CanTransition(OrderFilled))
}

func TestStrategyConfig_Validate(t *testing.T) {
	cfg := &StrategyConfig{
		Name:          "demo",
		BuyConditions: []Condition{{Type: CondPriceAboveMA, Period: 20}},
		SellConditions: []Condition{
			{Type: CondRSIAbove, Period: 14, Threshold: 70},
		},
	}
	require.NoError(t, cfg.Validate())

	cfg.SellConditions = append(cfg.SellConditions, Condition{Type: "moon_phase"})
	err := cfg.Validate()
	require.Error(t, err)
	var invalid *InvalidConditionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "moon_phase", invalid.Type)
}

func TestMonitoringConfig_Cooldown(t *testing.T) {
	cfg := &PositionMonitoringConfig{CooldownMinutes: 30}
	now := time.Now()

	// 从未触发过
	require.True(t, cfg.CooldownElapsed(now))

	recent := now.Add(-10 * time.Minute)
	cfg.LastTriggeredAt = &recent
	require.False(t, cfg.CooldownElapsed(now))

	old := now.Add(-31 * time.Minute)
	cfg.LastTriggeredAt = &old
	require.True(t, cfg.CooldownElapsed(now))
}

func TestMonitoringConfig_StrategyAllowList(t *testing.T) {
	cfg := &PositionMonitoringConfig{}
	// 空列表放行全部策略
	require.True(t, cfg.StrategyEnabled(1))

	cfg.EnabledStrategies = []int64{2, 3}
	require.False(t, cfg.StrategyEnabled(1))
	require.True(t, cfg.StrategyEnabled(3))
}

func TestDefaultMonitoringConfig(t *testing.T) {
	cfg := DefaultMonitoringConfig("BTC-USDT", 30)
	require.Equal(t, MonitorEnabled, cfg.MonitoringStatus)
	// 新symbol绝不默认自动交易
	require.Equal(t, ModeAlertOnly, cfg.StrategyMode)
	require.Equal(t, 30, cfg.CooldownMinutes)
}

func TestBarPeriod(t *testing.T) {
	require.True(t, Bar15m.Valid())
	require.Equal(t, 15*time.Minute, Bar15m.Duration())
	require.False(t, BarPeriod("2m").Valid())
}
