package dao

import (
	"context"
	"time"
	"tradeflow/internal/model"
	"tradeflow/internal/model/entity"

	"gorm.io/gorm"
)

type SignalDao struct {
	db *gorm.DB
}

func NewSignalDao(db *gorm.DB) *SignalDao {
	return &SignalDao{db: db}
}

// Record 信号落审计表，带处置结果
func (d *SignalDao) Record(ctx context.Context, sig *model.TradeSignal, outcome model.SignalOutcome) error {
	row := &entity.SignalRecord{
		Symbol:      sig.Symbol,
		StrategyId:  sig.StrategyId,
		Strategy:    sig.Strategy,
		Action:      string(sig.Action),
		Price:       sig.Price,
		Reason:      sig.Reason,
		Confidence:  sig.Confidence,
		Outcome:     string(outcome),
		GeneratedAt: sig.GeneratedAt,
	}
	return d.db.WithContext(ctx).Create(row).Error
}

// ListRecent 查询某symbol最近的信号记录
func (d *SignalDao) ListRecent(ctx context.Context, symbol string, since time.Time, limit int) ([]entity.SignalRecord, error) {
	var rows []entity.SignalRecord
	err := d.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Where("generated_at >= ?", since).
		Order("generated_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
