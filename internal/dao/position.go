package dao

import (
	"context"
	"tradeflow/internal/model"

	"gorm.io/gorm"
)

type PositionDao struct {
	db *gorm.DB
}

func NewPositionDao(db *gorm.DB) *PositionDao {
	return &PositionDao{db: db}
}

func (d *PositionDao) Get(ctx context.Context, symbol string) (*model.Position, error) {
	var pos model.Position
	err := d.db.WithContext(ctx).Where("symbol = ?", symbol).First(&pos).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

func (d *PositionDao) List(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position
	err := d.db.WithContext(ctx).Find(&positions).Error
	return positions, err
}

// Upsert symbol是主键，重复写入覆盖
func (d *PositionDao) Upsert(ctx context.Context, pos *model.Position) error {
	return d.db.WithContext(ctx).Save(pos).Error
}

// Delete 平仓后删除持仓记录
func (d *PositionDao) Delete(ctx context.Context, symbol string) error {
	return d.db.WithContext(ctx).Where("symbol = ?", symbol).Delete(&model.Position{}).Error
}
