package advisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tradeflow/internal/config"
	"tradeflow/internal/model"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestAdvise_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/advise", r.URL.Path)
		var req adviseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "BTC-USDT", req.Symbol)
		require.Equal(t, "BUY", req.Action)

		json.NewEncoder(w).Encode(Advice{Action: "BUY", Confidence: 0.8, Rationale: "momentum intact"})
	}))
	defer srv.Close()

	c := NewClient(config.AdvisorConfig{Enabled: true, BaseURL: srv.URL})
	advice := c.Advise(context.Background(), "BTC-USDT", nil, model.ActionBuy)

	require.NotNil(t, advice)
	require.InDelta(t, 0.8, advice.Confidence, 1e-9)
	require.Equal(t, "momentum intact", advice.Rationale)
}

func TestAdvise_FailuresReturnNil(t *testing.T) {
	// 服务故障不能阻断规则路径，一律返回nil
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	c := NewClient(config.AdvisorConfig{Enabled: true, BaseURL: bad.URL})
	require.Nil(t, c.Advise(context.Background(), "BTC-USDT", nil, model.ActionBuy))

	// 置信度越界视为无效响应
	outOfRange := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Advice{Action: "BUY", Confidence: 1.5})
	}))
	defer outOfRange.Close()
	c = NewClient(config.AdvisorConfig{Enabled: true, BaseURL: outOfRange.URL})
	require.Nil(t, c.Advise(context.Background(), "BTC-USDT", nil, model.ActionBuy))
}

func TestAdvise_DisabledClient(t *testing.T) {
	c := NewClient(config.AdvisorConfig{})
	require.False(t, c.Enabled())
	require.Nil(t, c.Advise(context.Background(), "BTC-USDT", nil, model.ActionBuy))

	var nilClient *Client
	require.False(t, nilClient.Enabled())
}

func TestBlend(t *testing.T) {
	// 没有意见时置信度不变
	require.InDelta(t, 0.7, Blend(0.7, model.ActionBuy, nil), 1e-9)

	// 方向一致取平均
	agree := &Advice{Action: "BUY", Confidence: 0.9}
	require.InDelta(t, 0.8, Blend(0.7, model.ActionBuy, agree), 1e-9)

	// 方向相反按对方置信度压低
	disagree := &Advice{Action: "SELL", Confidence: 1}
	require.InDelta(t, 0.35, Blend(0.7, model.ActionBuy, disagree), 1e-9)

	neutral := &Advice{Action: "SELL", Confidence: 0}
	require.InDelta(t, 0.7, Blend(0.7, model.ActionBuy, neutral), 1e-9)
}
