package api

import (
	"context"
	"time"

	"gorm.io/gorm"

	"tradeflow/internal/advisor"
	"tradeflow/internal/cache"
	"tradeflow/internal/config"
	"tradeflow/internal/dao"
	"tradeflow/internal/engine"
	"tradeflow/internal/exchange"
	"tradeflow/internal/gateway"
	authHandler "tradeflow/internal/handler/auth"
	marketHandler "tradeflow/internal/handler/market"
	monitorHandler "tradeflow/internal/handler/monitor"
	orderHandler "tradeflow/internal/handler/order"
	statusHandler "tradeflow/internal/handler/status"
	strategyHandler "tradeflow/internal/handler/strategy"
	"tradeflow/internal/market"
	"tradeflow/internal/model"
	"tradeflow/internal/model/entity"
	"tradeflow/internal/monitor"
	"tradeflow/internal/router"
	"tradeflow/internal/strategy"
	"tradeflow/pkg/logger"
)

// Core 交易核心的装配结果，Start/Stop管理所有后台goroutine
type Core struct {
	cfg *config.Config

	market   *market.Manager
	klines   *market.KlineManager
	registry *strategy.Registry
	monitor  *monitor.Monitor
	gateway  *gateway.Gateway
	engine   *engine.Engine
	limiter  *monitor.DailyLimiter

	positions *dao.PositionDao
	orders    *dao.OrderDao
	signals   *dao.SignalDao
	monitors  *dao.MonitorDao
}

func InitCore(cfg *config.Config, db *gorm.DB) (*Core, error) {
	if err := db.AutoMigrate(
		&model.OrderRecord{},
		&model.Position{},
		&entity.StrategyRecord{},
		&entity.SignalRecord{},
		&entity.MonitoringConfigRecord{},
	); err != nil {
		return nil, err
	}

	orders := dao.NewOrderDao(db)
	positions := dao.NewPositionDao(db)
	signals := dao.NewSignalDao(db)
	monitors := dao.NewMonitorDao(db)
	strategies := dao.NewStrategyDao(db)

	okxEx := exchange.NewOkxExchange(cfg.Okx.ApiKey, cfg.Okx.SecretKey, cfg.Okx.Password)

	var ex exchange.Exchange = okxEx
	mode := model.ModeReal
	if cfg.Okx.Simulated {
		// 模拟盘下单不发真实请求，行情查询仍走公共接口
		ex = exchange.NewSimulatedExchange(okxEx)
		mode = model.ModeSimulated
	}

	gw, err := gateway.NewGateway(ex, orders, positions, gateway.Config{
		Mode:          mode,
		Retries:       cfg.Engine.OrderRetries,
		RetryDelay:    cfg.Engine.OrderRetryDelay,
		OrderTimeout:  cfg.Engine.OrderTimeout,
		FillPollDelay: cfg.Engine.FillPollDelay,
		TradeAmount:   cfg.Risk.TradeAmount,
	})
	if err != nil {
		return nil, err
	}

	registry := strategy.NewRegistry(strategies)
	gw.SetRiskLookup(func(strategyId int64) *model.RiskManagement {
		for _, sc := range registry.Active() {
			if sc.Id == strategyId {
				return &sc.Risk
			}
		}
		return nil
	})

	ticks := cache.NewTickCache()

	limiter := monitor.NewDailyLimiter(cfg.Risk)
	mon := monitor.NewMonitor(monitors, positions, &signalAudit{db: signals, ticks: ticks}, gw, limiter, cfg.Risk.DefaultCooldownMinutes)

	mkt := market.NewManager(cfg.Okx.WsURL, cfg.Engine.ReconnectBase, cfg.Engine.ReconnectCap,
		cfg.Engine.SubscriberQueue, ticks)

	period := model.BarPeriod(cfg.Engine.BarPeriod)
	if !period.Valid() {
		period = model.Bar15m
	}
	klines := market.NewKlineManager(okxEx, period, cfg.Engine.BackfillBars)

	adv := advisor.NewClient(cfg.Advisor)

	eng := engine.New(mkt, klines, registry, mon, positions, adv, cfg.Engine.EvalTimeout)

	return &Core{
		cfg:       cfg,
		market:    mkt,
		klines:    klines,
		registry:  registry,
		monitor:   mon,
		gateway:   gw,
		engine:    eng,
		limiter:   limiter,
		positions: positions,
		orders:    orders,
		signals:   signals,
		monitors:  monitors,
	}, nil
}

// Start 回补K线、加载策略、恢复当日计数，然后接通行情
func (c *Core) Start() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.registry.Reload(ctx); err != nil {
		logger.Errorf("load strategies failed: %v", err)
	}
	c.restoreDailyCounters(ctx)

	symbols := c.cfg.Engine.Symbols
	if err := c.klines.Backfill(symbols); err != nil {
		logger.Warnf("kline backfill incomplete: %v", err)
	}
	c.klines.StartRefresh(symbols, 5*time.Minute)

	c.engine.Start()
	if err := c.market.Start(symbols); err != nil {
		logger.Errorf("market subscribe failed: %v", err)
	}
	logger.Info("core started",
		logger.Pair("symbols", symbols),
		logger.Pair("mode", c.gateway.Mode()))
}

func (c *Core) Stop() {
	c.market.Stop()
	c.engine.Stop()
	c.klines.Stop()
}

// signalAudit 信号处置落库后顺带刷新redis里的最新信号快照，看板轮询用
type signalAudit struct {
	db    *dao.SignalDao
	ticks *cache.TickCache
}

func (a *signalAudit) Record(ctx context.Context, sig *model.TradeSignal, outcome model.SignalOutcome) error {
	if err := a.db.Record(ctx, sig, outcome); err != nil {
		return err
	}
	if err := a.ticks.PutLatestSignal(ctx, sig); err != nil {
		logger.Debugf("latest signal snapshot failed: %v", err)
	}
	return nil
}

// restoreDailyCounters 重启后从订单审计恢复当日交易次数和已实现亏损，
// 否则进程重启会清掉当日亏损额度
func (c *Core) restoreDailyCounters(ctx context.Context) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), c.cfg.Risk.ResetHour, 0, 0, 0, now.Location())
	if dayStart.After(now) {
		dayStart = dayStart.AddDate(0, 0, -1)
	}
	records, err := c.orders.ListSince(ctx, dayStart)
	if err != nil {
		logger.Warnf("restore daily counters failed: %v", err)
		return
	}
	trades, loss := dailyCountersFrom(records)
	c.limiter.Preload(now, trades, loss)
	logger.Infof("daily counters restored: %d trades, %.2f loss since %s", trades, loss, dayStart.Format("15:04"))
}

// dailyCountersFrom 从当日订单记录统计交易次数和已实现亏损
func dailyCountersFrom(records []model.OrderRecord) (trades int, loss float64) {
	for _, r := range records {
		if r.Status == model.OrderFailed {
			continue
		}
		trades++
		if r.Side == model.Sell && r.RealizedPnl < 0 {
			loss += -r.RealizedPnl
		}
	}
	return trades, loss
}

// InitRouter 装配HTTP控制面
func InitRouter(cfg *config.Config, db *gorm.DB, core *Core) Router {
	ah := authHandler.NewHandler(cfg.Jwt)
	mh := marketHandler.NewHandler(core.market)
	ws := marketHandler.NewWsGateway(core.market)
	core.monitor.SetNotifier(ws)

	sh := strategyHandler.NewHandler(core.registry)
	nh := monitorHandler.NewHandler(core.monitors)
	oh := orderHandler.NewHandler(core.orders, core.signals, core.gateway)
	st := statusHandler.NewHandler(core.market, core.positions, core.limiter, core.gateway.Mode())

	return router.NewApiRouter(ah, mh, ws, sh, nh, oh, st)
}
