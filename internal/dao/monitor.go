package dao

import (
	"context"
	"time"
	"tradeflow/internal/model"
	"tradeflow/internal/model/entity"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

type MonitorDao struct {
	db *gorm.DB
}

func NewMonitorDao(db *gorm.DB) *MonitorDao {
	return &MonitorDao{db: db}
}

func (d *MonitorDao) Get(ctx context.Context, symbol string) (*model.PositionMonitoringConfig, error) {
	var row entity.MonitoringConfigRecord
	err := d.db.WithContext(ctx).Where("symbol = ?", symbol).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeMonitorConfig(&row)
}

func (d *MonitorDao) List(ctx context.Context) ([]*model.PositionMonitoringConfig, error) {
	var rows []entity.MonitoringConfigRecord
	if err := d.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	configs := make([]*model.PositionMonitoringConfig, 0, len(rows))
	for i := range rows {
		cfg, err := decodeMonitorConfig(&rows[i])
		if err != nil {
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Put 保存配置，key为symbol，last-write-wins
func (d *MonitorDao) Put(ctx context.Context, cfg *model.PositionMonitoringConfig) error {
	if !cfg.MonitoringStatus.Valid() || !cfg.StrategyMode.Valid() {
		return ErrIllegalTransition
	}
	row, err := encodeMonitorConfig(cfg)
	if err != nil {
		return err
	}
	return d.db.WithContext(ctx).Save(row).Error
}

// StampTriggered 记录最近一次自动执行的时间（冷却计时起点）
func (d *MonitorDao) StampTriggered(ctx context.Context, symbol string, at time.Time) error {
	return d.db.WithContext(ctx).Model(&entity.MonitoringConfigRecord{}).
		Where("symbol = ?", symbol).
		Update("last_triggered_at", at).Error
}

func decodeMonitorConfig(row *entity.MonitoringConfigRecord) (*model.PositionMonitoringConfig, error) {
	cfg := &model.PositionMonitoringConfig{
		Symbol:           row.Symbol,
		MonitoringStatus: model.MonitoringStatus(row.MonitoringStatus),
		StrategyMode:     model.StrategyMode(row.StrategyMode),
		StopLossRatio:    row.StopLossRatio,
		TakeProfitRatio:  row.TakeProfitRatio,
		CooldownMinutes:  row.CooldownMinutes,
		LastTriggeredAt:  row.LastTriggeredAt,
	}
	if len(row.EnabledStrategies) > 0 {
		if err := json.Unmarshal(row.EnabledStrategies, &cfg.EnabledStrategies); err != nil {
			return nil, err
		}
	}
	// 存储中出现集合之外的状态值时拒绝加载，而不是带病运行
	if !cfg.MonitoringStatus.Valid() || !cfg.StrategyMode.Valid() {
		return nil, ErrIllegalTransition
	}
	return cfg, nil
}

func encodeMonitorConfig(cfg *model.PositionMonitoringConfig) (*entity.MonitoringConfigRecord, error) {
	ids, err := json.Marshal(cfg.EnabledStrategies)
	if err != nil {
		return nil, err
	}
	return &entity.MonitoringConfigRecord{
		Symbol:            cfg.Symbol,
		MonitoringStatus:  string(cfg.MonitoringStatus),
		StrategyMode:      string(cfg.StrategyMode),
		EnabledStrategies: ids,
		StopLossRatio:     cfg.StopLossRatio,
		TakeProfitRatio:   cfg.TakeProfitRatio,
		CooldownMinutes:   cfg.CooldownMinutes,
		LastTriggeredAt:   cfg.LastTriggeredAt,
	}, nil
}
