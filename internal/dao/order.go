package dao

import (
	"context"
	"time"
	"tradeflow/internal/model"

	"gorm.io/gorm"
)

type OrderDao struct {
	db *gorm.DB
}

func NewOrderDao(db *gorm.DB) *OrderDao {
	return &OrderDao{db: db}
}

// 插入下单记录
func (d *OrderDao) Insert(ctx context.Context, record *model.OrderRecord) error {
	return d.db.WithContext(ctx).Create(record).Error
}

// UpdateStatus 推进订单状态，orderStatusRank保证只进不退，非法转换直接拒绝
func (d *OrderDao) UpdateStatus(ctx context.Context, id int64, from, to model.OrderStatus, filledAt *time.Time) error {
	if !from.CanTransition(to) {
		return ErrIllegalTransition
	}
	updates := map[string]interface{}{"status": to}
	if filledAt != nil {
		updates["filled_at"] = filledAt
	}
	return d.db.WithContext(ctx).Model(&model.OrderRecord{}).
		Where("id = ?", id).
		Where("status = ?", from).
		Updates(updates).Error
}

// AttachGatewayOrder 记录交易所返回的订单号
func (d *OrderDao) AttachGatewayOrder(ctx context.Context, id int64, gatewayOrderId string) error {
	return d.db.WithContext(ctx).Model(&model.OrderRecord{}).
		Where("id = ?", id).
		Update("gateway_order_id", gatewayOrderId).Error
}

// RecordPnl 卖出成交后补写已实现盈亏，重启恢复当日亏损额度时用
func (d *OrderDao) RecordPnl(ctx context.Context, id int64, pnl float64) error {
	return d.db.WithContext(ctx).Model(&model.OrderRecord{}).
		Where("id = ?", id).
		Update("realized_pnl", pnl).Error
}

// MarkFailed 重试耗尽后落盘失败分类，错误信息是分类后的文本而不是原始传输错误
func (d *OrderDao) MarkFailed(ctx context.Context, id int64, from model.OrderStatus, kind model.FailureKind, msg string) error {
	if !from.CanTransition(model.OrderFailed) {
		return ErrIllegalTransition
	}
	return d.db.WithContext(ctx).Model(&model.OrderRecord{}).
		Where("id = ?", id).
		Where("status = ?", from).
		Updates(map[string]interface{}{
			"status":        model.OrderFailed,
			"error_kind":    kind,
			"error_message": msg,
		}).Error
}

// 查找某symbol最后一笔订单
func (d *OrderDao) GetLast(ctx context.Context, symbol string) (or model.OrderRecord, err error) {
	err = d.db.WithContext(ctx).Model(&model.OrderRecord{}).
		Where("symbol = ?", symbol).
		Order("submitted_at DESC").
		Limit(1).
		Find(&or).Error
	return
}

// 查询当日所有订单，用于每日计数的恢复
func (d *OrderDao) ListSince(ctx context.Context, since time.Time) (records []model.OrderRecord, err error) {
	err = d.db.WithContext(ctx).Model(&model.OrderRecord{}).
		Where("submitted_at >= ?", since).
		Order("submitted_at ASC").
		Find(&records).Error
	return
}
