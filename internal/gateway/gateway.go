package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"tradeflow/internal/dao"
	"tradeflow/internal/exchange"
	"tradeflow/internal/model"
	"tradeflow/pkg/logger"
)

// OrderStore 订单审计记录的写入
type OrderStore interface {
	Insert(ctx context.Context, record *model.OrderRecord) error
	UpdateStatus(ctx context.Context, id int64, from, to model.OrderStatus, filledAt *time.Time) error
	AttachGatewayOrder(ctx context.Context, id int64, gatewayOrderId string) error
	MarkFailed(ctx context.Context, id int64, from model.OrderStatus, kind model.FailureKind, msg string) error
	RecordPnl(ctx context.Context, id int64, pnl float64) error
}

// PositionStore 持仓记录的读写
type PositionStore interface {
	Get(ctx context.Context, symbol string) (*model.Position, error)
	Upsert(ctx context.Context, pos *model.Position) error
	Delete(ctx context.Context, symbol string) error
}

// Config 执行参数
type Config struct {
	Mode          model.ExecutionMode
	Retries       int           // 瞬时失败的最大尝试次数
	RetryDelay    time.Duration // 两次尝试之间的固定间隔
	OrderTimeout  time.Duration // 单次尝试的超时
	FillPollDelay time.Duration // 提交成功后查询成交前的等待
	TradeAmount   float64       // 自动买入的金额（USDT）
}

func (c *Config) applyDefaults() {
	if !c.Mode.Valid() {
		c.Mode = model.ModeSimulated
	}
	if c.Retries <= 0 {
		c.Retries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.OrderTimeout <= 0 {
		c.OrderTimeout = 10 * time.Second
	}
	if c.FillPollDelay <= 0 {
		c.FillPollDelay = 3 * time.Second
	}
	if c.TradeAmount <= 0 {
		c.TradeAmount = 100
	}
}

// PlaceRequest 一次下单请求
type PlaceRequest struct {
	Symbol          string
	Side            model.OrderSide
	Quantity        float64
	Price           float64 // 0表示市价
	StrategyId      int64
	StopLossPrice   float64
	TakeProfitPrice float64
}

// Gateway 订单执行网关
// 提交前先做前置校验（每symbol一笔持仓），瞬时失败有界重试，
// 模拟模式与真实模式走同一条路径
type Gateway struct {
	ex        exchange.Exchange
	orders    OrderStore
	positions PositionStore
	node      *snowflake.Node
	cfg       Config

	// 同一symbol的下单串行化，前置校验和提交必须在同一临界区里，
	// 否则两笔并发请求会同时通过校验造成重复提交
	mu       sync.Mutex
	symLocks map[string]*sync.Mutex

	// 按策略id查风险参数，可为nil
	riskLookup func(strategyId int64) *model.RiskManagement
}

func NewGateway(ex exchange.Exchange, orders OrderStore, positions PositionStore, cfg Config) (*Gateway, error) {
	cfg.applyDefaults()
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	return &Gateway{
		ex:        ex,
		orders:    orders,
		positions: positions,
		node:      node,
		cfg:       cfg,
		symLocks:  make(map[string]*sync.Mutex),
	}, nil
}

func (g *Gateway) symbolLock(symbol string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.symLocks[symbol]
	if !ok {
		l = &sync.Mutex{}
		g.symLocks[symbol] = l
	}
	return l
}

// SetRiskLookup 挂接策略风险参数的查询，启动期调用一次
func (g *Gateway) SetRiskLookup(fn func(strategyId int64) *model.RiskManagement) {
	g.riskLookup = fn
}

// Mode 当前执行模式
func (g *Gateway) Mode() model.ExecutionMode {
	return g.cfg.Mode
}

// Execute 把风控放行的信号转换成下单请求
// BUY按配置金额换算数量，SELL和EXIT全量平仓
func (g *Gateway) Execute(ctx context.Context, sig *model.TradeSignal) error {
	req := &PlaceRequest{
		Symbol:     sig.Symbol,
		StrategyId: sig.StrategyId,
	}

	switch sig.Action {
	case model.ActionBuy:
		if sig.Price <= 0 {
			return fmt.Errorf("buy signal for %s without price", sig.Symbol)
		}
		req.Side = model.Buy
		req.Price = sig.Price
		req.Quantity = g.cfg.TradeAmount / sig.Price
		if g.riskLookup != nil {
			if risk := g.riskLookup(sig.StrategyId); risk != nil {
				if risk.StopLossPct > 0 {
					req.StopLossPrice = sig.Price * (1 - risk.StopLossPct)
				}
				if risk.TakeProfitPct > 0 {
					req.TakeProfitPrice = sig.Price * (1 + risk.TakeProfitPct)
				}
			}
		}
	case model.ActionSell, model.ActionExit:
		req.Side = model.Sell
	default:
		return fmt.Errorf("unsupported signal action %q", sig.Action)
	}

	_, err := g.Place(ctx, req)
	return err
}

// Place 下单主流程：前置校验 -> 落PENDING记录 -> 提交（带重试）-> 查成交 -> 更新持仓
// 自动路径和手动平仓接口可能并发到达，整个流程持有symbol锁
func (g *Gateway) Place(ctx context.Context, req *PlaceRequest) (*model.OrderRecord, error) {
	lock := g.symbolLock(req.Symbol)
	lock.Lock()
	defer lock.Unlock()

	pos, err := g.checkPrecondition(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.Side == model.Sell && req.Quantity <= 0 {
		// 卖出默认全量平仓
		req.Quantity = pos.Quantity
	}
	if req.Quantity <= 0 {
		return nil, &PreconditionError{Symbol: req.Symbol, Reason: "quantity must be positive"}
	}

	record := &model.OrderRecord{
		ID:             g.node.Generate().Int64(),
		Symbol:         req.Symbol,
		Side:           req.Side,
		Quantity:       req.Quantity,
		RequestedPrice: req.Price,
		Status:         model.OrderPending,
		StrategyId:     req.StrategyId,
		Mode:           string(g.cfg.Mode),
		SubmittedAt:    time.Now(),
	}
	if err := g.orders.Insert(ctx, record); err != nil {
		return nil, err
	}

	result, err := g.submit(ctx, req)
	if err != nil {
		kind := exchange.ClassifyError(err)
		msg := fmt.Sprintf("%s: %s", kind, describeFailure(kind))
		if derr := g.orders.MarkFailed(ctx, record.ID, model.OrderPending, kind, msg); derr != nil {
			logger.Errorf("[Gateway] mark order %d failed: %v", record.ID, derr)
		}
		record.Status = model.OrderFailed
		record.ErrorKind = string(kind)
		record.ErrorMessage = msg
		return record, err
	}

	record.GatewayOrderId = result.OrderId
	if err := g.orders.AttachGatewayOrder(ctx, record.ID, result.OrderId); err != nil {
		logger.Warnf("[Gateway] attach gateway order id failed: %v", err)
	}

	if g.cfg.Mode == model.ModeSimulated {
		// 模拟模式下交易所立即成交，记录状态用SIMULATED
		fill, err := g.ex.GetOrderStatus(result.OrderId, req.Symbol)
		if err != nil {
			return record, err
		}
		if err := g.orders.UpdateStatus(ctx, record.ID, model.OrderPending, model.OrderSimulated, nil); err != nil {
			logger.Errorf("[Gateway] update order %d failed: %v", record.ID, err)
		}
		record.Status = model.OrderSimulated
		if err := g.applyFill(ctx, req, record, fill); err != nil {
			return record, err
		}
		return record, nil
	}

	if err := g.orders.UpdateStatus(ctx, record.ID, model.OrderPending, model.OrderSubmitted, nil); err != nil {
		logger.Errorf("[Gateway] update order %d failed: %v", record.ID, err)
	}
	record.Status = model.OrderSubmitted

	// 提交成功后只查一次成交，未成交的留给对账
	select {
	case <-ctx.Done():
		return record, nil
	case <-time.After(g.cfg.FillPollDelay):
	}
	fill, err := g.ex.GetOrderStatus(result.OrderId, req.Symbol)
	if err != nil {
		logger.Warnf("[Gateway] poll fill %s failed: %v", result.OrderId, err)
		return record, nil
	}
	if !fill.Filled() {
		logger.Infof("[Gateway] order %s still %s, left for reconciliation", result.OrderId, fill.State)
		return record, nil
	}

	now := time.Now()
	if err := g.orders.UpdateStatus(ctx, record.ID, model.OrderSubmitted, model.OrderFilled, &now); err != nil {
		logger.Errorf("[Gateway] update order %d failed: %v", record.ID, err)
	}
	record.Status = model.OrderFilled
	record.FilledAt = &now
	if err := g.applyFill(ctx, req, record, fill); err != nil {
		return record, err
	}
	return record, nil
}

// Status 查询交易所侧的成交状态
func (g *Gateway) Status(gatewayOrderId, symbol string) (*exchange.FillStatus, error) {
	return g.ex.GetOrderStatus(gatewayOrderId, symbol)
}

// checkPrecondition 买入要求无持仓，卖出要求有持仓，违反立即拒绝不发网络请求
func (g *Gateway) checkPrecondition(ctx context.Context, req *PlaceRequest) (*model.Position, error) {
	pos, err := g.positions.Get(ctx, req.Symbol)
	switch req.Side {
	case model.Buy:
		if err == nil {
			return nil, errPositionExists(req.Symbol)
		}
		if !errors.Is(err, dao.ErrNotFound) {
			return nil, err
		}
		return nil, nil
	case model.Sell:
		if errors.Is(err, dao.ErrNotFound) {
			return nil, errNoPosition(req.Symbol)
		}
		if err != nil {
			return nil, err
		}
		if pos.Quantity <= 0 {
			return nil, errNoPosition(req.Symbol)
		}
		return pos, nil
	default:
		return nil, &PreconditionError{Symbol: req.Symbol, Reason: "invalid side " + string(req.Side)}
	}
}

// submit 带重试的提交，只有瞬时失败才重试
func (g *Gateway) submit(ctx context.Context, req *PlaceRequest) (*exchange.OrderResult, error) {
	orderType := model.Market
	if req.Price > 0 {
		orderType = model.Limit
	}
	exReq := &exchange.OrderRequest{
		Symbol:          req.Symbol,
		Side:            req.Side,
		Type:            orderType,
		Quantity:        req.Quantity,
		Price:           req.Price,
		StopLossPrice:   req.StopLossPrice,
		TakeProfitPrice: req.TakeProfitPrice,
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= g.cfg.Retries; attempt++ {
		attempts = attempt
		attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.OrderTimeout)
		result, err := g.ex.PlaceOrder(attemptCtx, exReq)
		cancel()
		if err == nil {
			return result, nil
		}
		lastErr = err
		kind := exchange.ClassifyError(err)
		if !exchange.Retryable(kind) {
			logger.Warnf("[Gateway] %s order failed (%s), not retrying: %v", req.Symbol, kind, err)
			break
		}
		logger.Warnf("[Gateway] %s order attempt %d/%d failed: %v", req.Symbol, attempt, g.cfg.Retries, err)
		if attempt < g.cfg.Retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(g.cfg.RetryDelay):
			}
		}
	}
	kind := exchange.ClassifyError(lastErr)
	return nil, &ExecutionError{Symbol: req.Symbol, Kind: string(kind), Attempts: attempts, Last: lastErr}
}

// applyFill 根据成交更新持仓：买入建仓，卖到零删仓，部分成交按剩余量更新
// 卖出成交时计算相对持仓成本的已实现盈亏并补写到订单记录
func (g *Gateway) applyFill(ctx context.Context, req *PlaceRequest, record *model.OrderRecord, fill *exchange.FillStatus) error {
	if fill == nil || fill.FilledQty <= 0 {
		return nil
	}
	switch req.Side {
	case model.Buy:
		pos := &model.Position{
			Symbol:          req.Symbol,
			Quantity:        fill.FilledQty,
			AvgCost:         fill.AvgPrice,
			OpenedAt:        time.Now(),
			StopLossPrice:   req.StopLossPrice,
			TakeProfitPrice: req.TakeProfitPrice,
		}
		return g.positions.Upsert(ctx, pos)
	case model.Sell:
		pos, err := g.positions.Get(ctx, req.Symbol)
		if err != nil {
			if errors.Is(err, dao.ErrNotFound) {
				return nil
			}
			return err
		}

		pnl := (fill.AvgPrice - pos.AvgCost) * fill.FilledQty
		record.RealizedPnl = pnl
		if err := g.orders.RecordPnl(ctx, record.ID, pnl); err != nil {
			logger.Warnf("[Gateway] record pnl for order %d failed: %v", record.ID, err)
		}

		remaining := pos.Quantity - fill.FilledQty
		if remaining <= 1e-9 {
			return g.positions.Delete(ctx, req.Symbol)
		}
		pos.Quantity = remaining
		return g.positions.Upsert(ctx, pos)
	}
	return nil
}

func describeFailure(kind model.FailureKind) string {
	switch kind {
	case model.FailTimeout:
		return "brokerage did not respond in time, will not retry further"
	case model.FailInsufficientFunds:
		return "account balance is insufficient for this order"
	case model.FailInvalidSymbol:
		return "symbol is unknown or not tradable"
	case model.FailMarketClosed:
		return "market is closed or trading is suspended"
	case model.FailPermissionDenied:
		return "api credentials rejected, operator action required"
	default:
		return "unclassified brokerage error"
	}
}
