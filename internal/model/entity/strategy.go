package entity

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/plugin/soft_delete"
)

// StrategyRecord 策略配置的存储结构，条件列表用JSON列存储
// 软删除：删除的策略保留在表中用于审计回溯
type StrategyRecord struct {
	ID      int64  `gorm:"primaryKey"`
	Name    string `gorm:"type:varchar(64);not null;uniqueIndex"`
	Enabled bool   `gorm:"column:enabled;not null;default:0"`

	Symbols        datatypes.JSON `gorm:"column:symbols;type:json"`         // []string
	BuyConditions  datatypes.JSON `gorm:"column:buy_conditions;type:json"`  // []model.Condition
	SellConditions datatypes.JSON `gorm:"column:sell_conditions;type:json"` // []model.Condition

	StopLossPct    float64 `gorm:"column:stop_loss_pct;type:decimal(8,4)"`
	TakeProfitPct  float64 `gorm:"column:take_profit_pct;type:decimal(8,4)"`
	MaxPositionPct float64 `gorm:"column:max_position_pct;type:decimal(8,4)"`
	AllowAveraging bool    `gorm:"column:allow_averaging"`

	CreatedAt time.Time             `gorm:"column:created_at"`
	UpdatedAt time.Time             `gorm:"column:updated_at"`
	DeletedAt soft_delete.DeletedAt `gorm:"column:deleted_at;uniqueIndex:idx_name_del"`
}

func (StrategyRecord) TableName() string {
	return "strategy_configs"
}
