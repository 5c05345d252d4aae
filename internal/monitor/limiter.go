package monitor

import (
	"sync"
	"time"

	"tradeflow/internal/config"
	"tradeflow/internal/consts"
)

// DailyLimiter 进程级的每日交易计数和亏损额度
// 两个symbol同时触发时不能都基于旧读数通过检查，
// 所以检查和递增在同一把锁里完成
type DailyLimiter struct {
	mu        sync.Mutex
	trades    int
	loss      float64
	day       string
	maxTrades int
	maxLoss   float64
	resetHour int
}

func NewDailyLimiter(cfg config.RiskConfig) *DailyLimiter {
	return &DailyLimiter{
		maxTrades: cfg.MaxTradesPerDay,
		maxLoss:   cfg.MaxDailyLoss,
		resetHour: cfg.ResetHour,
	}
}

// dayKey 以resetHour为界的自然日
func (l *DailyLimiter) dayKey(now time.Time) string {
	return now.Add(-time.Duration(l.resetHour) * time.Hour).Format(consts.DateLayout)
}

// 调用方需持有l.mu
func (l *DailyLimiter) rollover(now time.Time) {
	key := l.dayKey(now)
	if key != l.day {
		l.day = key
		l.trades = 0
		l.loss = 0
	}
}

// Preload 进程重启后用当日已有的订单记录恢复计数
func (l *DailyLimiter) Preload(now time.Time, trades int, loss float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(now)
	l.trades = trades
	l.loss = loss
}

// TryTrade 原子的检查并占用一个交易额度
func (l *DailyLimiter) TryTrade(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(now)

	if l.maxTrades > 0 && l.trades >= l.maxTrades {
		return false
	}
	if l.maxLoss > 0 && l.loss >= l.maxLoss {
		return false
	}
	l.trades++
	return true
}

// Refund 下单未成行时退回占用的额度
func (l *DailyLimiter) Refund() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.trades > 0 {
		l.trades--
	}
}

// RecordLoss 记录已实现亏损，amount为正数
func (l *DailyLimiter) RecordLoss(now time.Time, amount float64) {
	if amount <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(now)
	l.loss += amount
}

// Counters 今日已用的交易次数和亏损额
func (l *DailyLimiter) Counters(now time.Time) (trades int, loss float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollover(now)
	return l.trades, l.loss
}
