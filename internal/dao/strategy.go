package dao

import (
	"context"
	"tradeflow/internal/model"
	"tradeflow/internal/model/entity"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

type StrategyDao struct {
	db *gorm.DB
}

func NewStrategyDao(db *gorm.DB) *StrategyDao {
	return &StrategyDao{db: db}
}

// ListEnabled 加载所有启用的策略配置
func (d *StrategyDao) ListEnabled(ctx context.Context) ([]*model.StrategyConfig, error) {
	var rows []entity.StrategyRecord
	err := d.db.WithContext(ctx).Where("enabled = ?", true).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	configs := make([]*model.StrategyConfig, 0, len(rows))
	for i := range rows {
		cfg, err := decodeStrategy(&rows[i])
		if err != nil {
			// 单条配置损坏不影响其他策略加载
			continue
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (d *StrategyDao) Get(ctx context.Context, id int64) (*model.StrategyConfig, error) {
	var row entity.StrategyRecord
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeStrategy(&row)
}

// SetEnabled 启停一个策略
func (d *StrategyDao) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	res := d.db.WithContext(ctx).Model(&entity.StrategyRecord{}).
		Where("id = ?", id).
		Update("enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Save 新建或更新策略配置
func (d *StrategyDao) Save(ctx context.Context, cfg *model.StrategyConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	row, err := encodeStrategy(cfg)
	if err != nil {
		return err
	}
	return d.db.WithContext(ctx).Save(row).Error
}

func decodeStrategy(row *entity.StrategyRecord) (*model.StrategyConfig, error) {
	cfg := &model.StrategyConfig{
		Id:      row.ID,
		Name:    row.Name,
		Enabled: row.Enabled,
		Risk: model.RiskManagement{
			StopLossPct:    row.StopLossPct,
			TakeProfitPct:  row.TakeProfitPct,
			MaxPositionPct: row.MaxPositionPct,
		},
		AllowAveraging: row.AllowAveraging,
	}
	if len(row.Symbols) > 0 {
		if err := json.Unmarshal(row.Symbols, &cfg.Symbols); err != nil {
			return nil, err
		}
	}
	if len(row.BuyConditions) > 0 {
		if err := json.Unmarshal(row.BuyConditions, &cfg.BuyConditions); err != nil {
			return nil, err
		}
	}
	if len(row.SellConditions) > 0 {
		if err := json.Unmarshal(row.SellConditions, &cfg.SellConditions); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

func encodeStrategy(cfg *model.StrategyConfig) (*entity.StrategyRecord, error) {
	symbols, err := json.Marshal(cfg.Symbols)
	if err != nil {
		return nil, err
	}
	buys, err := json.Marshal(cfg.BuyConditions)
	if err != nil {
		return nil, err
	}
	sells, err := json.Marshal(cfg.SellConditions)
	if err != nil {
		return nil, err
	}
	return &entity.StrategyRecord{
		ID:             cfg.Id,
		Name:           cfg.Name,
		Enabled:        cfg.Enabled,
		Symbols:        symbols,
		BuyConditions:  buys,
		SellConditions: sells,
		StopLossPct:    cfg.Risk.StopLossPct,
		TakeProfitPct:  cfg.Risk.TakeProfitPct,
		MaxPositionPct: cfg.Risk.MaxPositionPct,
		AllowAveraging: cfg.AllowAveraging,
	}, nil
}
