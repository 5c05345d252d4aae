package market

import (
	"testing"
	"time"

	"tradeflow/internal/model"

	"github.com/stretchr/testify/require"
)

func tick(symbol string, seq int64, price float64) *model.QuoteTick {
	return &model.QuoteTick{
		Symbol:    symbol,
		Timestamp: time.Now(),
		LastPrice: price,
		Sequence:  seq,
	}
}

func TestNormalizer_DropsStaleAndDuplicate(t *testing.T) {
	n := NewNormalizer()

	require.True(t, n.Accept(tick("BTC-USDT", 1, 100)))
	require.True(t, n.Accept(tick("BTC-USDT", 2, 101)))
	// 重复
	require.False(t, n.Accept(tick("BTC-USDT", 2, 101)))
	// 乱序
	require.False(t, n.Accept(tick("BTC-USDT", 1, 99)))
	require.True(t, n.Accept(tick("BTC-USDT", 5, 102)))

	require.EqualValues(t, 2, n.Dropped())
	require.EqualValues(t, 5, n.LastSequence("BTC-USDT"))
}

func TestNormalizer_PerSymbolWatermark(t *testing.T) {
	// 不同symbol的水位互不影响
	n := NewNormalizer()

	require.True(t, n.Accept(tick("BTC-USDT", 10, 100)))
	require.True(t, n.Accept(tick("ETH-USDT", 3, 2000)))
	require.False(t, n.Accept(tick("ETH-USDT", 2, 1999)))
	require.True(t, n.Accept(tick("BTC-USDT", 11, 101)))

	require.EqualValues(t, 11, n.LastSequence("BTC-USDT"))
	require.EqualValues(t, 3, n.LastSequence("ETH-USDT"))
}

func TestNormalizer_AcceptedStreamStrictlyIncreasing(t *testing.T) {
	n := NewNormalizer()
	in := []int64{3, 1, 4, 4, 2, 7, 5, 9, 9, 10}

	var out []int64
	for _, seq := range in {
		if n.Accept(tick("SOL-USDT", seq, 50)) {
			out = append(out, seq)
		}
	}

	require.Equal(t, []int64{3, 4, 7, 9, 10}, out)
	for i := 1; i < len(out); i++ {
		require.Greater(t, out[i], out[i-1])
	}
}

func TestNormalizer_ResetClearsWatermark(t *testing.T) {
	n := NewNormalizer()

	require.True(t, n.Accept(tick("BTC-USDT", 100, 1)))
	n.Reset("BTC-USDT")
	// 重新订阅后序号从头来过也要能接收
	require.True(t, n.Accept(tick("BTC-USDT", 1, 2)))
	require.EqualValues(t, 1, n.LastSequence("BTC-USDT"))
}
