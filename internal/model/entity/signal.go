package entity

import "time"

// SignalRecord 信号审计表，只追加
// Outcome记录风控对该信号的处置：EXECUTED/ALERTED/SUPPRESSED/REJECTED
type SignalRecord struct {
	ID uint64 `gorm:"primaryKey"`

	Symbol     string  `gorm:"type:varchar(30);not null;index:idx_symbol_ts"`
	StrategyId int64   `gorm:"column:strategy_id;not null"`
	Strategy   string  `gorm:"type:varchar(64)"`
	Action     string  `gorm:"type:varchar(10);not null"` // BUY/SELL/EXIT
	Price      float64 `gorm:"type:decimal(15,8)"`
	Reason     string  `gorm:"type:text"`
	Confidence float64 `gorm:"type:decimal(5,4)"`
	Outcome    string  `gorm:"type:varchar(12);not null"`

	GeneratedAt time.Time `gorm:"column:generated_at;index:idx_symbol_ts"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (SignalRecord) TableName() string {
	return "signal_records"
}
