package indicator

import (
	"testing"
	"time"

	"tradeflow/internal/model"

	"github.com/stretchr/testify/require"
)

func makeBars(closes ...float64) []model.Bar {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Symbol:    "BTC-USDT",
			Period:    model.Bar15m,
			Timestamp: start.Add(time.Duration(i) * 15 * time.Minute),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    10,
		}
	}
	return bars
}

func TestCompute_InsufficientData(t *testing.T) {
	// 数据量不足时所有点都必须是未定义，不能退化成0值
	bars := makeBars(100, 101, 102)
	rs := Compute(bars, Spec{SMAPeriods: []int{20}, RSIPeriod: 14})

	sma, ok := rs.Get(SMAName(20))
	require.True(t, ok)
	require.Len(t, sma.Values, len(bars))
	for i := range bars {
		_, valid := sma.At(i)
		require.False(t, valid, "sma(20) must be undefined at %d with 3 bars", i)
	}

	rsi, ok := rs.Get(RSIName(14))
	require.True(t, ok)
	if _, valid := rsi.Last(); valid {
		t.Fatal("rsi(14) must be undefined with 3 bars")
	}
}

func TestCompute_SMAValidityWindow(t *testing.T) {
	closes := make([]float64, 10)
	for i := range closes {
		closes[i] = 50
	}
	rs := Compute(makeBars(closes...), Spec{SMAPeriods: []int{5}})

	sma, ok := rs.Get(SMAName(5))
	require.True(t, ok)

	// 前period-1个点未定义，从第period个点开始有值
	for i := 0; i < 4; i++ {
		_, valid := sma.At(i)
		require.False(t, valid, "index %d", i)
	}
	for i := 4; i < 10; i++ {
		v, valid := sma.At(i)
		require.True(t, valid, "index %d", i)
		require.InDelta(t, 50, v, 1e-9)
	}
}

func TestCompute_RSIRange(t *testing.T) {
	// 单边上涨时RSI顶到100，且始终在[0,100]内
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rs := Compute(makeBars(closes...), Spec{RSIPeriod: 14})

	rsi, ok := rs.Get(RSIName(14))
	require.True(t, ok)
	v, valid := rsi.Last()
	require.True(t, valid)
	require.InDelta(t, 100, v, 1e-6)

	for i := range closes {
		if v, ok := rsi.At(i); ok {
			require.GreaterOrEqual(t, v, 0.0)
			require.LessOrEqual(t, v, 100.0)
		}
	}
}

func TestCompute_RSINeedsPeriodPlusOne(t *testing.T) {
	// RSI基于差分，需要period+1个收盘价才有第一个点
	rs := Compute(makeBars(1, 2, 3, 4, 5), Spec{RSIPeriod: 5})
	rsi, ok := rs.Get(RSIName(5))
	require.True(t, ok)
	_, valid := rsi.Last()
	require.False(t, valid)

	rs = Compute(makeBars(1, 2, 3, 4, 5, 6), Spec{RSIPeriod: 5})
	rsi, _ = rs.Get(RSIName(5))
	_, valid = rsi.Last()
	require.True(t, valid)
}

func TestCompute_MACDLookback(t *testing.T) {
	spec := Spec{MACDFast: 12, MACDSlow: 26, MACDSignal: 9}
	// slow+signal-2 = 33，34个bar刚好出第一个点
	closes := make([]float64, 34)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	rs := Compute(makeBars(closes...), spec)

	line, ok := rs.Get(MACDLine)
	require.True(t, ok)
	sig, ok := rs.Get(MACDSig)
	require.True(t, ok)

	for i := 0; i < 33; i++ {
		_, valid := line.At(i)
		require.False(t, valid, "macd line index %d", i)
	}
	_, valid := line.At(33)
	require.True(t, valid)
	_, valid = sig.At(33)
	require.True(t, valid)
}

func TestCompute_Bollinger(t *testing.T) {
	// 常数序列的布林上下轨都等于均值
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 200
	}
	rs := Compute(makeBars(closes...), Spec{BBPeriod: 20, BBStdDev: 2})

	upper, ok := rs.Get(BBUpper)
	require.True(t, ok)
	lower, ok := rs.Get(BBLower)
	require.True(t, ok)

	u, valid := upper.Last()
	require.True(t, valid)
	l, valid := lower.Last()
	require.True(t, valid)
	require.InDelta(t, 200, u, 1e-9)
	require.InDelta(t, 200, l, 1e-9)
}

func TestCompute_ATR(t *testing.T) {
	// 收盘价不变、每根bar高低差固定为2，ATR收敛为2
	bars := makeBars(200, 200, 200, 200, 200, 200, 200, 200, 200, 200)
	rs := Compute(bars, Spec{ATRPeriod: 5})

	atr, ok := rs.Get(ATRName(5))
	require.True(t, ok)
	for i := 0; i < 5; i++ {
		_, valid := atr.At(i)
		require.False(t, valid, "atr(5) must be undefined at %d", i)
	}
	for i := 5; i < len(bars); i++ {
		v, valid := atr.At(i)
		require.True(t, valid, "atr(5) must be defined at %d", i)
		require.InDelta(t, 2, v, 1e-9)
	}
}

func TestCompute_ATRNeedsPeriodPlusOne(t *testing.T) {
	bars := makeBars(200, 200, 200, 200, 200)
	rs := Compute(bars, Spec{ATRPeriod: 5})

	atr, ok := rs.Get(ATRName(5))
	require.True(t, ok)
	for i := range bars {
		_, valid := atr.At(i)
		require.False(t, valid)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	bars := makeBars(10, 11, 9, 12, 13, 12.5, 14, 13, 15, 16, 15.5, 17, 18, 17.5, 19, 20)
	spec := Spec{SMAPeriods: []int{5}, RSIPeriod: 5}

	a := Compute(bars, spec)
	b := Compute(bars, spec)

	sa, _ := a.Get(SMAName(5))
	sb, _ := b.Get(SMAName(5))
	require.Equal(t, sa.Values, sb.Values)
	require.Equal(t, sa.Valid, sb.Valid)

	ra, _ := a.Get(RSIName(5))
	rb, _ := b.Get(RSIName(5))
	require.Equal(t, ra.Values, rb.Values)
}
