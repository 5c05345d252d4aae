package model

import "time"

// MonitoringStatus 仓位监控开关，闭合集合
// PAUSED和DISABLED都会跳过评估，但在界面上语义不同：PAUSED表示临时暂停
type MonitoringStatus string

const (
	MonitorEnabled  MonitoringStatus = "ENABLED"
	MonitorDisabled MonitoringStatus = "DISABLED"
	MonitorPaused   MonitoringStatus = "PAUSED"
)

func (s MonitoringStatus) Valid() bool {
	return s == MonitorEnabled || s == MonitorDisabled || s == MonitorPaused
}

// StrategyMode 策略信号的处置模式
type StrategyMode string

const (
	ModeAuto      StrategyMode = "AUTO"       // 通过的信号转发执行
	ModeAlertOnly StrategyMode = "ALERT_ONLY" // 只记录广播，不执行
	ModeDisabled  StrategyMode = "DISABLED"   // 该symbol完全不评估
)

func (m StrategyMode) Valid() bool {
	return m == ModeAuto || m == ModeAlertOnly || m == ModeDisabled
}

// PositionMonitoringConfig 每个symbol一条的风控配置
// 新观察到的symbol默认ALERT_ONLY，永远不默认AUTO
type PositionMonitoringConfig struct {
	Symbol            string           `gorm:"column:symbol;primary_key" json:"symbol"`
	MonitoringStatus  MonitoringStatus `gorm:"column:monitoring_status" json:"monitoring_status"`
	StrategyMode      StrategyMode     `gorm:"column:strategy_mode" json:"strategy_mode"`
	EnabledStrategies []int64          `gorm:"-" json:"enabled_strategies"`
	StopLossRatio     float64          `gorm:"column:stop_loss_ratio" json:"stop_loss_ratio"`
	TakeProfitRatio   float64          `gorm:"column:take_profit_ratio" json:"take_profit_ratio"`
	CooldownMinutes   int              `gorm:"column:cooldown_minutes" json:"cooldown_minutes"`
	LastTriggeredAt   *time.Time       `gorm:"column:last_triggered_at" json:"last_triggered_at"`
}

// DefaultMonitoringConfig 首次观察到symbol时的安全默认值
func DefaultMonitoringConfig(symbol string, cooldownMinutes int) *PositionMonitoringConfig {
	return &PositionMonitoringConfig{
		Symbol:           symbol,
		MonitoringStatus: MonitorEnabled,
		StrategyMode:     ModeAlertOnly,
		CooldownMinutes:  cooldownMinutes,
	}
}

// StrategyEnabled 判断strategyId是否在允许列表中，空列表表示全部允许
func (c *PositionMonitoringConfig) StrategyEnabled(strategyId int64) bool {
	if len(c.EnabledStrategies) == 0 {
		return true
	}
	for _, id := range c.EnabledStrategies {
		if id == strategyId {
			return true
		}
	}
	return false
}

// CooldownElapsed 冷却时间是否已过
func (c *PositionMonitoringConfig) CooldownElapsed(now time.Time) bool {
	if c.LastTriggeredAt == nil {
		return true
	}
	return now.Sub(*c.LastTriggeredAt) >= time.Duration(c.CooldownMinutes)*time.Minute
}
