package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"tradeflow/internal/model"
)

// SimulatedExchange 模拟交易所，下单立即成交，行情读取委托给真实数据源
// 与真实接入走同一套调用路径，只是不会产生任何外部请求
type SimulatedExchange struct {
	mu     sync.Mutex
	orders map[string]*FillStatus
	prices map[string]float64
	market Exchange // 可选，为空时只用本地价格
}

func NewSimulatedExchange(market Exchange) *SimulatedExchange {
	return &SimulatedExchange{
		orders: make(map[string]*FillStatus),
		prices: make(map[string]float64),
		market: market,
	}
}

// SetPrice 设置本地模拟价格
func (s *SimulatedExchange) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

func (s *SimulatedExchange) PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error) {
	if !req.Side.Valid() {
		return nil, fmt.Errorf("invalid order side %q", req.Side)
	}
	price := req.Price
	if price <= 0 {
		last, err := s.GetLastPrice(req.Symbol)
		if err != nil {
			return nil, err
		}
		price = last
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	orderId := uuid.NewString()
	s.orders[orderId] = &FillStatus{
		OrderId:   orderId,
		State:     "filled", // 模拟立即成交
		FilledQty: req.Quantity,
		AvgPrice:  price,
	}
	return &OrderResult{OrderId: orderId, Status: "filled"}, nil
}

func (s *SimulatedExchange) GetOrderStatus(orderId, symbol string) (*FillStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.orders[orderId]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderId)
	}
	return status, nil
}

func (s *SimulatedExchange) GetLastPrice(symbol string) (float64, error) {
	s.mu.Lock()
	if price, ok := s.prices[symbol]; ok {
		s.mu.Unlock()
		return price, nil
	}
	s.mu.Unlock()
	if s.market != nil {
		return s.market.GetLastPrice(symbol)
	}
	return 0, fmt.Errorf("no price for %s", symbol)
}

func (s *SimulatedExchange) GetKlineRecords(symbol string, period model.BarPeriod, size int) ([]model.Bar, error) {
	if s.market != nil {
		return s.market.GetKlineRecords(symbol, period, size)
	}
	return nil, nil
}
