package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"tradeflow/internal/advisor"
	"tradeflow/internal/dao"
	"tradeflow/internal/market"
	"tradeflow/internal/model"
	"tradeflow/internal/monitor"
	"tradeflow/internal/strategy"
	"tradeflow/pkg/logger"
)

const feedSubscriberId = "engine"

// Engine 协调循环：行情 -> K线 -> 策略评估 -> 风控 -> 执行
// 每个symbol一个worker串行处理自己的tick，symbol之间完全并行
type Engine struct {
	market    *market.Manager
	klines    *market.KlineManager
	registry  *strategy.Registry
	evaluator *strategy.Engine
	monitor   *monitor.Monitor
	positions monitor.PositionStore
	advisor   *advisor.Client

	evalTimeout time.Duration

	mu      sync.Mutex
	workers map[string]chan *model.QuoteTick

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(mkt *market.Manager, klines *market.KlineManager, registry *strategy.Registry, mon *monitor.Monitor, positions monitor.PositionStore, adv *advisor.Client, evalTimeout time.Duration) *Engine {
	if evalTimeout <= 0 {
		evalTimeout = 500 * time.Millisecond
	}
	return &Engine{
		market:      mkt,
		klines:      klines,
		registry:    registry,
		evaluator:   strategy.NewEngine(),
		monitor:     mon,
		positions:   positions,
		advisor:     adv,
		evalTimeout: evalTimeout,
		workers:     make(map[string]chan *model.QuoteTick),
		stopCh:      make(chan struct{}),
	}
}

// Start 挂到行情扇出上并启动分发循环
func (e *Engine) Start() {
	sub := e.market.Feed(feedSubscriberId)
	e.wg.Add(1)
	go e.dispatch(sub)
	logger.Info("engine started")
}

// Stop 停止分发和所有symbol worker
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		e.market.Unfeed(feedSubscriberId)
	})
	e.wg.Wait()
	logger.Info("engine stopped")
}

// dispatch 把tick分发到对应symbol的worker，分发循环自己永不阻塞
func (e *Engine) dispatch(sub *market.Subscriber) {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case tick, ok := <-sub.C():
			if !ok {
				return
			}
			e.route(tick)
		}
	}
}

func (e *Engine) route(tick *model.QuoteTick) {
	e.mu.Lock()
	ch, ok := e.workers[tick.Symbol]
	if !ok {
		ch = make(chan *model.QuoteTick, 1)
		e.workers[tick.Symbol] = ch
		e.wg.Add(1)
		go e.symbolWorker(tick.Symbol, ch)
	}
	e.mu.Unlock()

	// worker在忙时只保留最新一条
	select {
	case ch <- tick:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- tick:
	default:
	}
}

// symbolWorker 同一symbol的tick串行处理，策略状态和冷却状态都以symbol为粒度
func (e *Engine) symbolWorker(symbol string, ch <-chan *model.QuoteTick) {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case tick := <-ch:
			e.process(tick)
		}
	}
}

func (e *Engine) process(tick *model.QuoteTick) {
	e.klines.OnTick(tick)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 止损止盈优先于策略信号
	e.monitor.OnTick(ctx, tick)

	signals := e.evaluate(tick.Symbol)
	for i := range signals {
		sig := &signals[i]
		if e.advisor.Enabled() {
			advice := e.advisor.Advise(ctx, sig.Symbol, e.klines.Bars(sig.Symbol), sig.Action)
			sig.Confidence = advisor.Blend(sig.Confidence, sig.Action, advice)
			if advice != nil {
				sig.Reason += "; advisor: " + advice.Rationale
			}
		}
		outcome, err := e.monitor.OnSignal(ctx, sig)
		if err != nil {
			logger.Warnf("[Engine] %s signal handling error: %v", sig.Symbol, err)
		}
		logger.Info("signal handled",
			logger.Pair("symbol", sig.Symbol),
			logger.Pair("action", sig.Action),
			logger.Pair("strategy", sig.Strategy),
			logger.Pair("confidence", sig.Confidence),
			logger.Pair("outcome", outcome))
	}
}

// evaluate 带时间预算的策略评估，超时按无信号处理
func (e *Engine) evaluate(symbol string) []model.TradeSignal {
	bars := e.klines.Bars(symbol)
	if len(bars) == 0 {
		return nil
	}
	hasPosition := e.hasPosition(symbol)
	configs := e.registry.Active()

	done := make(chan []model.TradeSignal, 1)
	go func() {
		done <- e.evaluator.Evaluate(symbol, bars, configs, hasPosition)
	}()

	select {
	case signals := <-done:
		return signals
	case <-time.After(e.evalTimeout):
		logger.Warnf("[Engine] %s evaluation exceeded %v, treated as no signal", symbol, e.evalTimeout)
		return nil
	}
}

func (e *Engine) hasPosition(symbol string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := e.positions.Get(ctx, symbol)
	if err != nil {
		if !errors.Is(err, dao.ErrNotFound) {
			logger.Warnf("[Engine] position lookup %s failed: %v", symbol, err)
		}
		return false
	}
	return true
}
