package market

import (
	"sync"
	"sync/atomic"

	"tradeflow/internal/model"
	"tradeflow/pkg/logger"
)

// Subscriber hub的一个下游消费者，持有固定容量的tick队列
type Subscriber struct {
	id      string
	ch      chan *model.QuoteTick
	dropped atomic.Int64
	closed  atomic.Bool
}

// C 消费端只读通道
func (s *Subscriber) C() <-chan *model.QuoteTick {
	return s.ch
}

// Dropped 因队列溢出被挤掉的tick数量
func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Hub 行情扇出中心，发布路径永不阻塞
// 订阅者队列满时挤掉队头最旧的tick并计数，慢消费者只影响自己
type Hub struct {
	mu        sync.Mutex // 只保护订阅者集合的写入
	subs      atomic.Value
	queueSize int
}

func NewHub(queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 256
	}
	h := &Hub{queueSize: queueSize}
	h.subs.Store(make(map[string]*Subscriber))
	return h
}

func (h *Hub) loadSubs() map[string]*Subscriber {
	return h.subs.Load().(map[string]*Subscriber)
}

// Subscribe 注册一个消费者，同名订阅会替换旧的
func (h *Hub) Subscribe(id string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	old := h.loadSubs()
	next := make(map[string]*Subscriber, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	if prev, ok := next[id]; ok {
		prev.close()
	}
	sub := &Subscriber{id: id, ch: make(chan *model.QuoteTick, h.queueSize)}
	next[id] = sub
	h.subs.Store(next)
	return sub
}

// Unsubscribe 移除消费者并关闭其通道
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	old := h.loadSubs()
	sub, ok := old[id]
	if !ok {
		return
	}
	next := make(map[string]*Subscriber, len(old))
	for k, v := range old {
		if k != id {
			next[k] = v
		}
	}
	h.subs.Store(next)
	sub.close()
}

// Publish 把tick推给所有订阅者，任何订阅者都不会让发布方阻塞
func (h *Hub) Publish(tick *model.QuoteTick) {
	for _, sub := range h.loadSubs() {
		sub.push(tick)
	}
}

// Count 当前订阅者数量
func (h *Hub) Count() int {
	return len(h.loadSubs())
}

func (s *Subscriber) push(tick *model.QuoteTick) {
	if s.closed.Load() {
		return
	}
	defer func() {
		// 和close并发时向已关闭通道写入会panic，吞掉即可
		if r := recover(); r != nil {
			logger.Warnf("[Hub] send to closed subscriber %s", s.id)
		}
	}()
	select {
	case s.ch <- tick:
		return
	default:
	}
	// 队列满，挤掉最旧的一条再入队
	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.ch <- tick:
	default:
		s.dropped.Add(1)
	}
}

func (s *Subscriber) close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.ch)
	}
}
