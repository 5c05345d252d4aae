package strategy

import (
	"context"
	"sync/atomic"

	"tradeflow/internal/dao"
	"tradeflow/internal/model"
	"tradeflow/pkg/logger"
)

// Registry 启用中策略的内存快照，评估路径无锁读取
// 修改先写库再整体换快照
type Registry struct {
	dao     *dao.StrategyDao
	configs atomic.Value // []*model.StrategyConfig
}

func NewRegistry(d *dao.StrategyDao) *Registry {
	r := &Registry{dao: d}
	r.configs.Store([]*model.StrategyConfig{})
	return r
}

// Reload 从库里重新加载启用中的策略
func (r *Registry) Reload(ctx context.Context) error {
	configs, err := r.dao.ListEnabled(ctx)
	if err != nil {
		return err
	}
	r.configs.Store(configs)
	logger.Infof("[Registry] loaded %d enabled strategies", len(configs))
	return nil
}

// Active 当前启用中的策略快照，调用方不得修改
func (r *Registry) Active() []*model.StrategyConfig {
	return r.configs.Load().([]*model.StrategyConfig)
}

// SetEnabled 启用或停用一条策略并刷新快照
func (r *Registry) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	if err := r.dao.SetEnabled(ctx, id, enabled); err != nil {
		return err
	}
	return r.Reload(ctx)
}

// Save 新增或更新一条策略并刷新快照
func (r *Registry) Save(ctx context.Context, cfg *model.StrategyConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := r.dao.Save(ctx, cfg); err != nil {
		return err
	}
	return r.Reload(ctx)
}

// Get 按id读取策略，未入库的返回dao.ErrNotFound
func (r *Registry) Get(ctx context.Context, id int64) (*model.StrategyConfig, error) {
	return r.dao.Get(ctx, id)
}
