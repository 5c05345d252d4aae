package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	goexv2 "github.com/nntaoli-project/goex/v2"
	goexmodel "github.com/nntaoli-project/goex/v2/model"
	"github.com/nntaoli-project/goex/v2/options"

	"tradeflow/internal/model"
	"tradeflow/pkg/logger"
)

// 本地周期到交易所K线周期的映射
var klinePeriods = map[model.BarPeriod]goexmodel.KlinePeriod{
	model.Bar1m:  goexmodel.Kline_1min,
	model.Bar5m:  goexmodel.Kline_5min,
	model.Bar15m: goexmodel.Kline_15min,
	model.Bar30m: goexmodel.Kline_30min,
	model.Bar1h:  goexmodel.Kline_1h,
	model.Bar4h:  goexmodel.Kline_4h,
	model.Bar1d:  goexmodel.Kline_1day,
}

// OkxExchange OKX现货接入，私有接口懒加载
type OkxExchange struct {
	mu      sync.Mutex
	prv     goexv2.IPrvRest
	pub     goexv2.IPubRest
	apiConf []options.ApiOption
	inited  bool
}

// okxv5 api 如果要使用模拟交易，需要切换到模拟交易下创建apikey
func NewOkxExchange(apiKey, apiSecret, passphrase string) *OkxExchange {
	conf := []options.ApiOption{
		options.WithApiKey(apiKey),
		options.WithApiSecretKey(apiSecret),
		options.WithPassphrase(passphrase),
	}
	return &OkxExchange{
		pub:     goexv2.OKx.Spot,
		apiConf: conf,
	}
}

// 懒加载私有api
// 测试连接，创建订单时需要先调用GetExchangeInfo加载pair
func (e *OkxExchange) getPrv() (goexv2.IPrvRest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inited {
		return e.prv, nil
	}
	_, _, err := e.pub.GetExchangeInfo()
	if err != nil {
		return nil, fmt.Errorf("okx exchange info: %w", err)
	}
	e.prv = goexv2.OKx.Spot.NewPrvApi(e.apiConf...)
	e.inited = true
	return e.prv, nil
}

// symbol 格式转换: "BTC/USDT" -> goex 需要的 CurrencyPair
func (e *OkxExchange) toCurrencyPair(symbol string) (goexmodel.CurrencyPair, error) {
	parts := strings.Split(symbol, "/")
	if len(parts) == 1 {
		parts = strings.Split(symbol, "-")
	}
	if len(parts) < 2 {
		return goexmodel.CurrencyPair{}, fmt.Errorf("invalid symbol %q, expected like BTC/USDT", symbol)
	}
	return e.pub.NewCurrencyPair(parts[0], parts[1])
}

// PlaceOrder 下单，附带的止盈止损以市价委托
func (e *OkxExchange) PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error) {
	prv, err := e.getPrv()
	if err != nil {
		return nil, err
	}
	pair, err := e.toCurrencyPair(req.Symbol)
	if err != nil {
		return nil, err
	}

	var side goexmodel.OrderSide
	switch req.Side {
	case model.Buy:
		side = goexmodel.Spot_Buy
	case model.Sell:
		side = goexmodel.Spot_Sell
	default:
		return nil, fmt.Errorf("invalid order side %q", req.Side)
	}

	orderType := goexmodel.OrderType_Market
	if req.Type == model.Limit {
		orderType = goexmodel.OrderType_Limit
	}

	var opts []goexmodel.OptionParameter
	if req.TakeProfitPrice > 0 {
		opts = append(opts,
			goexmodel.OptionParameter{Key: "tpTriggerPx", Value: strconv.FormatFloat(req.TakeProfitPrice, 'f', -1, 64)},
			goexmodel.OptionParameter{Key: "tpOrdPx", Value: "-1"}, // -1 表示市价止盈
		)
	}
	if req.StopLossPrice > 0 {
		opts = append(opts,
			goexmodel.OptionParameter{Key: "slTriggerPx", Value: strconv.FormatFloat(req.StopLossPrice, 'f', -1, 64)},
			goexmodel.OptionParameter{Key: "slOrdPx", Value: "-1"}, // -1 表示市价止损
		)
	}

	type result struct {
		ord *goexmodel.Order
		err error
	}
	done := make(chan result, 1)
	go func() {
		created, resp, err := prv.CreateOrder(pair, req.Quantity, req.Price, side, orderType, opts...)
		if err != nil {
			logger.Errorf("[OkxExchange] CreateOrder %s 失败: %v, resp=%s", req.Symbol, err, string(resp))
		}
		done <- result{ord: created, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if r.ord == nil {
			return nil, errors.New("okx returned empty order")
		}
		return &OrderResult{
			OrderId: r.ord.Id,
			Status:  r.ord.Status.String(),
		}, nil
	}
}

// GetOrderStatus 查询订单成交状态
func (e *OkxExchange) GetOrderStatus(orderId, symbol string) (*FillStatus, error) {
	prv, err := e.getPrv()
	if err != nil {
		return nil, err
	}
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return nil, err
	}
	info, _, err := prv.GetOrderInfo(pair, orderId)
	if err != nil {
		return nil, err
	}
	return &FillStatus{
		OrderId:   info.Id,
		State:     info.Status.String(),
		FilledQty: info.ExecutedQty,
		AvgPrice:  info.PriceAvg,
	}, nil
}

// GetLastPrice 获取最新成交价
func (e *OkxExchange) GetLastPrice(symbol string) (float64, error) {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return 0, err
	}
	ticker, _, err := e.pub.GetTicker(pair)
	if err != nil {
		return 0, err
	}
	if ticker == nil {
		return 0, errors.New("failed to get ticker")
	}
	return ticker.Last, nil
}

// GetKlineRecords 拉取历史K线，按时间升序返回
func (e *OkxExchange) GetKlineRecords(symbol string, period model.BarPeriod, size int) ([]model.Bar, error) {
	pair, err := e.toCurrencyPair(symbol)
	if err != nil {
		return nil, err
	}
	kp, ok := klinePeriods[period]
	if !ok {
		return nil, fmt.Errorf("unsupported kline period %q", period)
	}

	var opts []goexmodel.OptionParameter
	if size > 0 {
		opts = append(opts, goexmodel.OptionParameter{Key: "limit", Value: strconv.Itoa(size)})
	}
	lines, _, err := e.pub.GetKline(pair, kp, opts...)
	if err != nil {
		return nil, err
	}

	bars := make([]model.Bar, 0, len(lines))
	for _, k := range lines {
		bars = append(bars, model.Bar{
			Symbol:    symbol,
			Period:    period,
			Timestamp: time.UnixMilli(k.Timestamp),
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Vol,
		})
	}
	// okx 返回的K线从新到旧，翻转成升序
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}
