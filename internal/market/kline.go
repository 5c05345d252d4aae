package market

import (
	"sync"
	"time"

	"go.uber.org/multierr"

	"tradeflow/internal/exchange"
	"tradeflow/internal/model"
	"tradeflow/pkg/logger"
)

// KlineManager 维护每个symbol的K线窗口
// 历史部分从交易所回填，最新的bar由实时tick聚合，收盘后并入历史
type KlineManager struct {
	ex     exchange.Exchange
	period model.BarPeriod
	depth  int

	mu   sync.RWMutex
	bars map[string][]model.Bar // 已收盘bar，升序
	live map[string]*model.Bar  // 当前未收盘bar

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewKlineManager(ex exchange.Exchange, period model.BarPeriod, depth int) *KlineManager {
	if depth <= 0 {
		depth = 200
	}
	return &KlineManager{
		ex:     ex,
		period: period,
		depth:  depth,
		bars:   make(map[string][]model.Bar),
		live:   make(map[string]*model.Bar),
		stopCh: make(chan struct{}),
	}
}

// Backfill 拉取各symbol的历史K线，单个symbol失败不影响其它
func (km *KlineManager) Backfill(symbols []string) error {
	var errs error
	for _, sym := range symbols {
		bars, err := km.ex.GetKlineRecords(sym, km.period, km.depth+1)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if len(bars) > 0 {
			// 最后一根可能未收盘，只保留之前的
			bars = bars[:len(bars)-1]
		}
		if len(bars) > km.depth {
			bars = bars[len(bars)-km.depth:]
		}
		km.mu.Lock()
		km.bars[sym] = bars
		km.mu.Unlock()
		logger.Infof("[KlineManager] backfilled %s: %d bars", sym, len(bars))
	}
	return errs
}

// StartRefresh 周期性重新回填，修复断线期间的缺口
func (km *KlineManager) StartRefresh(symbols []string, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-km.stopCh:
				return
			case <-ticker.C:
				if err := km.Backfill(symbols); err != nil {
					logger.Warnf("[KlineManager] refresh error: %v", err)
				}
			}
		}
	}()
}

func (km *KlineManager) Stop() {
	km.stopOnce.Do(func() { close(km.stopCh) })
}

// OnTick 把tick聚合进当前bar，跨周期边界时收盘上一根
func (km *KlineManager) OnTick(tick *model.QuoteTick) {
	dur := km.period.Duration()
	if dur <= 0 {
		return
	}
	start := tick.Timestamp.Truncate(dur)

	km.mu.Lock()
	defer km.mu.Unlock()

	cur := km.live[tick.Symbol]
	if cur == nil || start.After(cur.Timestamp) {
		if cur != nil {
			km.appendClosed(tick.Symbol, *cur)
		}
		km.live[tick.Symbol] = &model.Bar{
			Symbol:    tick.Symbol,
			Period:    km.period,
			Timestamp: start,
			Open:      tick.LastPrice,
			High:      tick.LastPrice,
			Low:       tick.LastPrice,
			Close:     tick.LastPrice,
			Volume:    tick.Volume,
		}
		return
	}
	if start.Before(cur.Timestamp) {
		// 迟到的tick不回写已收盘的bar
		return
	}
	if tick.LastPrice > cur.High {
		cur.High = tick.LastPrice
	}
	if tick.LastPrice < cur.Low {
		cur.Low = tick.LastPrice
	}
	cur.Close = tick.LastPrice
	cur.Volume += tick.Volume
}

// 调用方需持有km.mu
func (km *KlineManager) appendClosed(symbol string, bar model.Bar) {
	bars := km.bars[symbol]
	if n := len(bars); n > 0 && !bar.Timestamp.After(bars[n-1].Timestamp) {
		return
	}
	bars = append(bars, bar)
	if len(bars) > km.depth {
		bars = bars[len(bars)-km.depth:]
	}
	km.bars[symbol] = bars
}

// Bars 返回已收盘bar的副本，升序
func (km *KlineManager) Bars(symbol string) []model.Bar {
	km.mu.RLock()
	defer km.mu.RUnlock()
	src := km.bars[symbol]
	out := make([]model.Bar, len(src))
	copy(out, src)
	return out
}

// LastClose 最近一根已收盘bar的收盘价，没有数据时ok为false
func (km *KlineManager) LastClose(symbol string) (float64, bool) {
	km.mu.RLock()
	defer km.mu.RUnlock()
	bars := km.bars[symbol]
	if len(bars) == 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close, true
}
