package monitor

import (
	"sync"
	"testing"
	"time"

	"tradeflow/internal/config"

	"github.com/stretchr/testify/require"
)

func TestDailyLimiter_ConcurrentTryTradeNeverExceeds(t *testing.T) {
	l := NewDailyLimiter(config.RiskConfig{MaxTradesPerDay: 50})
	now := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryTrade(now) {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 50, granted)
	trades, _ := l.Counters(now)
	require.Equal(t, 50, trades)
}

func TestDailyLimiter_LossCapStopsTrading(t *testing.T) {
	l := NewDailyLimiter(config.RiskConfig{MaxTradesPerDay: 100, MaxDailyLoss: 500})
	now := time.Now()

	require.True(t, l.TryTrade(now))
	l.RecordLoss(now, 499.99)
	require.True(t, l.TryTrade(now))
	l.RecordLoss(now, 0.01)
	require.False(t, l.TryTrade(now))

	_, loss := l.Counters(now)
	require.InDelta(t, 500, loss, 1e-9)
}

func TestDailyLimiter_Refund(t *testing.T) {
	l := NewDailyLimiter(config.RiskConfig{MaxTradesPerDay: 1})
	now := time.Now()

	require.True(t, l.TryTrade(now))
	require.False(t, l.TryTrade(now))
	l.Refund()
	require.True(t, l.TryTrade(now))
}

func TestDailyLimiter_RolloverAtResetHour(t *testing.T) {
	l := NewDailyLimiter(config.RiskConfig{MaxTradesPerDay: 1, MaxDailyLoss: 100, ResetHour: 2})

	// 重置时刻前后属于不同的计数日
	before := time.Date(2026, 8, 29, 1, 59, 0, 0, time.UTC)
	after := time.Date(2026, 8, 29, 2, 1, 0, 0, time.UTC)

	require.True(t, l.TryTrade(before))
	l.RecordLoss(before, 80)
	require.False(t, l.TryTrade(before))

	// 跨过2点，计数清零
	require.True(t, l.TryTrade(after))
	trades, loss := l.Counters(after)
	require.Equal(t, 1, trades)
	require.Zero(t, loss)
}

func TestDailyLimiter_SameDayNoReset(t *testing.T) {
	l := NewDailyLimiter(config.RiskConfig{MaxTradesPerDay: 1})

	morning := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC)

	require.True(t, l.TryTrade(morning))
	require.False(t, l.TryTrade(evening))
}

func TestDailyLimiter_PreloadRestoresCounters(t *testing.T) {
	l := NewDailyLimiter(config.RiskConfig{MaxTradesPerDay: 5, MaxDailyLoss: 100})
	now := time.Now()

	// 进程重启后用当日订单记录恢复
	l.Preload(now, 4, 60)
	require.True(t, l.TryTrade(now))
	require.False(t, l.TryTrade(now))

	trades, loss := l.Counters(now)
	require.Equal(t, 5, trades)
	require.InDelta(t, 60, loss, 1e-9)
}

func TestDailyLimiter_ZeroLimitsMeanUnlimited(t *testing.T) {
	l := NewDailyLimiter(config.RiskConfig{})
	now := time.Now()
	for i := 0; i < 100; i++ {
		require.True(t, l.TryTrade(now))
	}
}
