package cache

import (
	"context"
	"tradeflow/internal/consts"
	"tradeflow/internal/model"
	"tradeflow/pkg/cache"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// tick快照缓存：每个symbol只保留最新一笔行情，供看板和状态接口读取
// 写入是尽力而为的，redis不可用不能影响tick流水线

type TickCache struct {
	rc *redis.Client
}

func NewTickCache() *TickCache {
	return &TickCache{rc: cache.GetRedisClient()}
}

// Put 覆盖symbol的最新tick快照
func (c *TickCache) Put(ctx context.Context, tick *model.QuoteTick) error {
	data, err := json.Marshal(tick)
	if err != nil {
		return err
	}
	return c.rc.Set(ctx, consts.TickSnapshotPrefix+tick.Symbol, data, consts.RedisExpireTickSnap).Err()
}

// Get 读取symbol的最新tick快照，不存在时返回nil
func (c *TickCache) Get(ctx context.Context, symbol string) (*model.QuoteTick, error) {
	data, err := c.rc.Get(ctx, consts.TickSnapshotPrefix+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var tick model.QuoteTick
	if err := json.Unmarshal(data, &tick); err != nil {
		return nil, err
	}
	return &tick, nil
}

// PutLatestSignal 缓存symbol最近一次信号，看板轮询用
func (c *TickCache) PutLatestSignal(ctx context.Context, sig *model.TradeSignal) error {
	data, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	return c.rc.Set(ctx, consts.SignalAuditPrefix+sig.Symbol, data, consts.RedisExpireLatestSig).Err()
}
