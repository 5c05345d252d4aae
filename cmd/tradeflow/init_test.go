package api

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tradeflow/internal/model"
)

func TestDailyCountersFrom(t *testing.T) {
	records := []model.OrderRecord{
		{Side: model.Buy, Status: model.OrderFilled},
		{Side: model.Sell, Status: model.OrderFilled, RealizedPnl: -120.5},
		{Side: model.Sell, Status: model.OrderSimulated, RealizedPnl: 30}, // 盈利不占亏损额度
		{Side: model.Buy, Status: model.OrderFailed},                      // 失败单不计交易次数
		{Side: model.Sell, Status: model.OrderFilled, RealizedPnl: -9.5},
	}

	trades, loss := dailyCountersFrom(records)
	require.Equal(t, 4, trades)
	require.InDelta(t, 130, loss, 1e-9)
}

func TestDailyCountersFrom_Empty(t *testing.T) {
	trades, loss := dailyCountersFrom(nil)
	require.Zero(t, trades)
	require.Zero(t, loss)
}
