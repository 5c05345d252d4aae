package market

import (
	"testing"
	"time"

	"tradeflow/internal/model"

	"github.com/stretchr/testify/require"
)

func tickAt(symbol string, at time.Time, price, vol float64) *model.QuoteTick {
	return &model.QuoteTick{
		Symbol:    symbol,
		Timestamp: at,
		LastPrice: price,
		Volume:    vol,
		Sequence:  at.UnixMilli(),
	}
}

func TestKlineManager_AggregatesTicksIntoBar(t *testing.T) {
	km := NewKlineManager(nil, model.Bar1m, 100)
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	km.OnTick(tickAt("BTC-USDT", base.Add(5*time.Second), 100, 1))
	km.OnTick(tickAt("BTC-USDT", base.Add(20*time.Second), 105, 2))
	km.OnTick(tickAt("BTC-USDT", base.Add(40*time.Second), 98, 1))
	km.OnTick(tickAt("BTC-USDT", base.Add(59*time.Second), 102, 3))

	// 周期未结束，还没有已收盘bar
	require.Empty(t, km.Bars("BTC-USDT"))

	// 跨过分钟边界，上一根bar收盘
	km.OnTick(tickAt("BTC-USDT", base.Add(61*time.Second), 103, 1))

	bars := km.Bars("BTC-USDT")
	require.Len(t, bars, 1)
	bar := bars[0]
	require.Equal(t, base, bar.Timestamp)
	require.InDelta(t, 100, bar.Open, 1e-9)
	require.InDelta(t, 105, bar.High, 1e-9)
	require.InDelta(t, 98, bar.Low, 1e-9)
	require.InDelta(t, 102, bar.Close, 1e-9)
	require.InDelta(t, 7, bar.Volume, 1e-9)

	c, ok := km.LastClose("BTC-USDT")
	require.True(t, ok)
	require.InDelta(t, 102, c, 1e-9)
}

func TestKlineManager_LateTickIgnored(t *testing.T) {
	km := NewKlineManager(nil, model.Bar1m, 100)
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	km.OnTick(tickAt("BTC-USDT", base.Add(10*time.Second), 100, 1))
	km.OnTick(tickAt("BTC-USDT", base.Add(70*time.Second), 110, 1))

	// 属于已收盘周期的迟到tick不能改写历史
	km.OnTick(tickAt("BTC-USDT", base.Add(30*time.Second), 999, 1))

	bars := km.Bars("BTC-USDT")
	require.Len(t, bars, 1)
	require.InDelta(t, 100, bars[0].Close, 1e-9)

	// 当前live bar也不受影响
	km.OnTick(tickAt("BTC-USDT", base.Add(130*time.Second), 111, 1))
	bars = km.Bars("BTC-USDT")
	require.Len(t, bars, 2)
	require.InDelta(t, 110, bars[1].Close, 1e-9)
}

func TestKlineManager_DepthBounded(t *testing.T) {
	km := NewKlineManager(nil, model.Bar1m, 3)
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		km.OnTick(tickAt("BTC-USDT", base.Add(time.Duration(i)*time.Minute), float64(100+i), 1))
	}

	bars := km.Bars("BTC-USDT")
	require.Len(t, bars, 3)
	// 保留的是最近的三根
	require.InDelta(t, 106, bars[0].Close, 1e-9)
	require.InDelta(t, 108, bars[2].Close, 1e-9)
	for i := 1; i < len(bars); i++ {
		require.True(t, bars[i].Timestamp.After(bars[i-1].Timestamp))
	}
}

func TestKlineManager_PerSymbolIsolation(t *testing.T) {
	km := NewKlineManager(nil, model.Bar1m, 100)
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)

	km.OnTick(tickAt("BTC-USDT", base, 100, 1))
	km.OnTick(tickAt("ETH-USDT", base, 2000, 1))
	km.OnTick(tickAt("BTC-USDT", base.Add(time.Minute), 101, 1))

	require.Len(t, km.Bars("BTC-USDT"), 1)
	require.Empty(t, km.Bars("ETH-USDT"))
}
