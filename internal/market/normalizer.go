package market

import (
	"sync"
	"sync/atomic"

	"tradeflow/internal/model"
)

// Normalizer 对每个symbol维护序号水位，过滤乱序和重复的tick
// 通过过滤后的tick序列保证Sequence严格递增
type Normalizer struct {
	mu      sync.Mutex
	lastSeq map[string]int64
	dropped atomic.Int64
}

func NewNormalizer() *Normalizer {
	return &Normalizer{lastSeq: make(map[string]int64)}
}

// Accept 返回该tick是否可进入下游，陈旧的tick只计数不传播
func (n *Normalizer) Accept(tick *model.QuoteTick) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	last, ok := n.lastSeq[tick.Symbol]
	if ok && tick.Sequence <= last {
		n.dropped.Add(1)
		return false
	}
	n.lastSeq[tick.Symbol] = tick.Sequence
	return true
}

// Dropped 累计丢弃的陈旧tick数量
func (n *Normalizer) Dropped() int64 {
	return n.dropped.Load()
}

// LastSequence 某个symbol当前的序号水位，没有tick时返回0
func (n *Normalizer) LastSequence(symbol string) int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastSeq[symbol]
}

// Reset 清掉某个symbol的水位，取消订阅后调用
func (n *Normalizer) Reset(symbol string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.lastSeq, symbol)
}
