package entity

import (
	"time"

	"gorm.io/datatypes"
)

// MonitoringConfigRecord 每symbol一条的风控配置存储结构
type MonitoringConfigRecord struct {
	Symbol           string `gorm:"column:symbol;primaryKey;type:varchar(30)"`
	MonitoringStatus string `gorm:"column:monitoring_status;type:varchar(10);not null"`
	StrategyMode     string `gorm:"column:strategy_mode;type:varchar(12);not null"`

	EnabledStrategies datatypes.JSON `gorm:"column:enabled_strategies;type:json"` // []int64

	StopLossRatio   float64    `gorm:"column:stop_loss_ratio;type:decimal(8,4)"`
	TakeProfitRatio float64    `gorm:"column:take_profit_ratio;type:decimal(8,4)"`
	CooldownMinutes int        `gorm:"column:cooldown_minutes"`
	LastTriggeredAt *time.Time `gorm:"column:last_triggered_at"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (MonitoringConfigRecord) TableName() string {
	return "position_monitoring_configs"
}
