package market

import (
	"context"
	"sync"
	"testing"
	"time"

	"tradeflow/internal/model"

	"github.com/stretchr/testify/require"
)

type fakeTickStore struct {
	mu     sync.Mutex
	delay  time.Duration
	puts   int
	cached *model.QuoteTick
}

func (s *fakeTickStore) Put(_ context.Context, _ *model.QuoteTick) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	return nil
}

func (s *fakeTickStore) Get(_ context.Context, _ string) (*model.QuoteTick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached, nil
}

func (s *fakeTickStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

func TestManager_SlowSnapshotStoreDoesNotBlockTickPath(t *testing.T) {
	// 存储端每次写入卡100ms，同步写50个tick至少要5秒
	store := &fakeTickStore{delay: 100 * time.Millisecond}
	m := NewManager("", time.Second, time.Second, 8, store)
	defer m.Stop()

	start := time.Now()
	for i := 1; i <= 50; i++ {
		m.onTick(tick("BTC-USDT", int64(i), 100))
	}
	require.Less(t, time.Since(start), time.Second,
		"tick path must not wait on snapshot persistence")

	last := m.LastTick("BTC-USDT")
	require.NotNil(t, last)
	require.Equal(t, int64(50), last.Sequence)
}

func TestManager_SnapshotEventuallyPersisted(t *testing.T) {
	store := &fakeTickStore{}
	m := NewManager("", time.Second, time.Second, 8, store)
	defer m.Stop()

	m.onTick(tick("BTC-USDT", 1, 100))
	require.Eventually(t, func() bool { return store.putCount() >= 1 },
		time.Second, 10*time.Millisecond)
}

func TestManager_LastTickFallsBackToSnapshot(t *testing.T) {
	cached := tick("BTC-USDT", 7, 123)
	store := &fakeTickStore{cached: cached}
	m := NewManager("", time.Second, time.Second, 8, store)
	defer m.Stop()

	// 重启后内存为空，读快照
	got := m.LastTick("BTC-USDT")
	require.NotNil(t, got)
	require.Equal(t, int64(7), got.Sequence)

	// 有了实时数据后不再回退
	m.onTick(tick("BTC-USDT", 8, 124))
	got = m.LastTick("BTC-USDT")
	require.Equal(t, int64(8), got.Sequence)
}
