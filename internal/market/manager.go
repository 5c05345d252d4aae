package market

import (
	"context"
	"sync"
	"time"

	"tradeflow/internal/model"
	"tradeflow/pkg/logger"
)

const snapshotQueueSize = 256

// TickStore tick快照的持久化，写入是尽力而为的
type TickStore interface {
	Put(ctx context.Context, tick *model.QuoteTick) error
	Get(ctx context.Context, symbol string) (*model.QuoteTick, error)
}

// Manager 行情接入的组装层：流 -> 序号过滤 -> 扇出
// 同时保留每个symbol的最新tick快照，供查询接口和redis持久化使用
// 快照写入走独立goroutine，存储慢或不可用不能阻塞tick流水线
type Manager struct {
	stream *Stream
	norm   *Normalizer
	hub    *Hub
	ticks  TickStore // 可为nil，表示不落快照

	snapCh    chan *model.QuoteTick
	done      chan struct{}
	closeOnce sync.Once

	mu   sync.RWMutex
	last map[string]*model.QuoteTick
}

func NewManager(wsURL string, backoffBase, backoffCap time.Duration, queueSize int, ticks TickStore) *Manager {
	m := &Manager{
		norm:  NewNormalizer(),
		hub:   NewHub(queueSize),
		ticks: ticks,
		last:  make(map[string]*model.QuoteTick),
		done:  make(chan struct{}),
	}
	if ticks != nil {
		m.snapCh = make(chan *model.QuoteTick, snapshotQueueSize)
		go m.snapshotLoop()
	}
	m.stream = NewStream(wsURL, backoffBase, backoffCap, m.onTick)
	return m
}

// Start 连接行情源并订阅初始symbol集合
func (m *Manager) Start(symbols []string) error {
	m.stream.Start()
	return m.stream.Subscribe(symbols)
}

func (m *Manager) Stop() {
	m.stream.Close()
	m.closeOnce.Do(func() { close(m.done) })
}

// SubscribeSymbols 运行期追加订阅
func (m *Manager) SubscribeSymbols(symbols []string) error {
	return m.stream.Subscribe(symbols)
}

// UnsubscribeSymbols 运行期取消订阅，同时清掉序号水位
func (m *Manager) UnsubscribeSymbols(symbols []string) error {
	if err := m.stream.Unsubscribe(symbols); err != nil {
		return err
	}
	for _, sym := range symbols {
		m.norm.Reset(sym)
	}
	return nil
}

// Subscribed 当前订阅集合
func (m *Manager) Subscribed() []string {
	return m.stream.Subscribed()
}

// Feed 注册一个tick消费者
func (m *Manager) Feed(id string) *Subscriber {
	return m.hub.Subscribe(id)
}

// Unfeed 注销tick消费者
func (m *Manager) Unfeed(id string) {
	m.hub.Unsubscribe(id)
}

// LastTick 某个symbol的最新tick，没有数据时返回nil
// 重启后内存里可能还是空的，这时回退读redis快照
func (m *Manager) LastTick(symbol string) *model.QuoteTick {
	m.mu.RLock()
	tick := m.last[symbol]
	m.mu.RUnlock()
	if tick != nil || m.ticks == nil {
		return tick
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cached, err := m.ticks.Get(ctx, symbol)
	if err != nil {
		logger.Debugf("[Market] tick snapshot read failed: %v", err)
		return nil
	}
	return cached
}

// Status 行情流状态加上过滤统计
func (m *Manager) Status() model.StreamStatus {
	return m.stream.Status()
}

// StaleDropped 因乱序或重复被丢弃的tick总数
func (m *Manager) StaleDropped() int64 {
	return m.norm.Dropped()
}

func (m *Manager) onTick(tick *model.QuoteTick) {
	if !m.norm.Accept(tick) {
		return
	}

	m.mu.Lock()
	m.last[tick.Symbol] = tick
	m.mu.Unlock()

	m.hub.Publish(tick)

	if m.snapCh != nil {
		// 队列满时丢弃，快照只要最新值，落后的写入没有意义
		select {
		case m.snapCh <- tick:
		default:
		}
	}
}

// snapshotLoop 消费快照队列，网络IO不在tick投递路径上
func (m *Manager) snapshotLoop() {
	for {
		select {
		case <-m.done:
			return
		case tick := <-m.snapCh:
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if err := m.ticks.Put(ctx, tick); err != nil {
				logger.Debugf("[Market] tick snapshot persist failed: %v", err)
			}
			cancel()
		}
	}
}
