package exchange

import (
	"context"
	"errors"
	"testing"

	"tradeflow/internal/model"

	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err  error
		want model.FailureKind
	}{
		{context.DeadlineExceeded, model.FailTimeout},
		{context.Canceled, model.FailTimeout},
		{errors.New("dial tcp: i/o timeout"), model.FailTimeout},
		{errors.New("context deadline exceeded while awaiting headers"), model.FailTimeout},
		{errors.New("insufficient balance"), model.FailInsufficientFunds},
		{errors.New("code 51001: instrument does not exist"), model.FailInvalidSymbol},
		{errors.New("market closed for maintenance"), model.FailMarketClosed},
		{errors.New("code 51054: trading suspended"), model.FailMarketClosed},
		{errors.New("code 50111: invalid apikey"), model.FailPermissionDenied},
		{errors.New("passphrase incorrect"), model.FailPermissionDenied},
		{errors.New("something completely different"), model.FailUnknown},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ClassifyError(c.err), "error %v", c.err)
	}
	require.Empty(t, ClassifyError(nil))
}

func TestRetryable(t *testing.T) {
	// 重试只对瞬时失败有意义
	require.True(t, Retryable(model.FailTimeout))
	require.True(t, Retryable(model.FailUnknown))
	require.True(t, Retryable(model.FailMarketClosed))

	require.False(t, Retryable(model.FailInsufficientFunds))
	require.False(t, Retryable(model.FailInvalidSymbol))
	require.False(t, Retryable(model.FailPermissionDenied))
}

func TestSimulatedExchange_InstantFill(t *testing.T) {
	sim := NewSimulatedExchange(nil)
	sim.SetPrice("BTC-USDT", 50000)

	result, err := sim.PlaceOrder(context.Background(), &OrderRequest{
		Symbol:   "BTC-USDT",
		Side:     model.Buy,
		Type:     model.Market,
		Quantity: 0.5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.OrderId)

	fill, err := sim.GetOrderStatus(result.OrderId, "BTC-USDT")
	require.NoError(t, err)
	require.True(t, fill.Filled())
	require.InDelta(t, 0.5, fill.FilledQty, 1e-9)
	// 市价单按最新价成交
	require.InDelta(t, 50000, fill.AvgPrice, 1e-9)
}

func TestSimulatedExchange_LimitPriceWins(t *testing.T) {
	sim := NewSimulatedExchange(nil)
	sim.SetPrice("BTC-USDT", 50000)

	result, err := sim.PlaceOrder(context.Background(), &OrderRequest{
		Symbol:   "BTC-USDT",
		Side:     model.Buy,
		Type:     model.Limit,
		Quantity: 1,
		Price:    49500,
	})
	require.NoError(t, err)

	fill, _ := sim.GetOrderStatus(result.OrderId, "BTC-USDT")
	require.InDelta(t, 49500, fill.AvgPrice, 1e-9)
}

func TestSimulatedExchange_Errors(t *testing.T) {
	sim := NewSimulatedExchange(nil)

	_, err := sim.PlaceOrder(context.Background(), &OrderRequest{Symbol: "BTC-USDT", Side: "hold", Quantity: 1})
	require.Error(t, err)

	// 没有价格源的市价单失败
	_, err = sim.PlaceOrder(context.Background(), &OrderRequest{Symbol: "BTC-USDT", Side: model.Buy, Quantity: 1})
	require.Error(t, err)

	_, err = sim.GetOrderStatus("missing", "BTC-USDT")
	require.Error(t, err)
}
