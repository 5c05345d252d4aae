package market

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cast"
	"github.com/goccy/go-json"

	"tradeflow/internal/model"
	"tradeflow/pkg/logger"
)

const defaultStreamURL = "wss://ws.okx.com:8443/ws/v5/public"

// Stream 基于OKX WebSocket的行情流
// 连接断开后按指数退避重连，重连成功后重放当前订阅集合
type Stream struct {
	mu          sync.Mutex
	conn        *websocket.Conn
	subscribed  map[string]struct{}
	lastRequest time.Time

	url         string
	backoffBase time.Duration
	backoffCap  time.Duration

	onTick func(*model.QuoteTick)

	connected    atomic.Bool
	reconnecting atomic.Bool
	lastTickAt   atomic.Int64 // unix nano
	closeCh      chan struct{}
	closeOnce    sync.Once
}

func NewStream(url string, backoffBase, backoffCap time.Duration, onTick func(*model.QuoteTick)) *Stream {
	if url == "" {
		url = defaultStreamURL
	}
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	if backoffCap <= 0 {
		backoffCap = 30 * time.Second
	}
	return &Stream{
		url:         url,
		backoffBase: backoffBase,
		backoffCap:  backoffCap,
		subscribed:  make(map[string]struct{}),
		onTick:      onTick,
		closeCh:     make(chan struct{}),
	}
}

// Start 建立连接并启动读循环，首次连接失败也交给重连循环处理
func (s *Stream) Start() {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		logger.Warnf("[Stream] initial dial failed: %v", err)
		go s.reconnect()
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.connected.Store(true)
	go s.readLoop(conn)
}

// Close 停止行情流，不再重连
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		s.mu.Lock()
		if s.conn != nil {
			_ = s.conn.Close()
		}
		s.mu.Unlock()
		s.connected.Store(false)
	})
}

// Subscribe 批量订阅，过滤掉已经订阅过的
func (s *Stream) Subscribe(symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toSubscribe []string
	for _, sym := range symbols {
		if _, ok := s.subscribed[sym]; !ok {
			toSubscribe = append(toSubscribe, sym)
			s.subscribed[sym] = struct{}{}
		}
	}
	if len(toSubscribe) == 0 {
		return nil
	}
	return s.sendSubOp("subscribe", toSubscribe)
}

// Unsubscribe 取消订阅
func (s *Stream) Unsubscribe(symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var toRemove []string
	for _, sym := range symbols {
		if _, ok := s.subscribed[sym]; ok {
			delete(s.subscribed, sym)
			toRemove = append(toRemove, sym)
		}
	}
	if len(toRemove) == 0 {
		return nil
	}
	return s.sendSubOp("unsubscribe", toRemove)
}

// Subscribed 当前订阅集合的副本
func (s *Stream) Subscribed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subscribed))
	for sym := range s.subscribed {
		out = append(out, sym)
	}
	return out
}

// Status 运行状态快照
func (s *Stream) Status() model.StreamStatus {
	s.mu.Lock()
	count := len(s.subscribed)
	s.mu.Unlock()
	var last time.Time
	if n := s.lastTickAt.Load(); n > 0 {
		last = time.Unix(0, n)
	}
	return model.StreamStatus{
		Connected:       s.connected.Load(),
		Reconnecting:    s.reconnecting.Load(),
		SubscribedCount: count,
		LastTickAt:      last,
	}
}

// 调用方需持有s.mu
func (s *Stream) sendSubOp(op string, symbols []string) error {
	if s.conn == nil {
		// 还没连上，等重连成功后replay
		return nil
	}
	args := make([]map[string]string, 0, len(symbols))
	for _, sym := range symbols {
		args = append(args, map[string]string{
			"channel": "tickers",
			"instId":  sym,
		})
	}
	msg := map[string]interface{}{"op": op, "args": args}

	// okx要求请求间隔至少50ms
	if since := time.Since(s.lastRequest); since < 50*time.Millisecond {
		time.Sleep(50*time.Millisecond - since)
	}
	s.lastRequest = time.Now()
	return s.conn.WriteJSON(msg)
}

func (s *Stream) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			logger.Warnf("[Stream] read error: %v", err)
			s.connected.Store(false)
			s.reconnect()
			return
		}
		s.handleMessage(conn, msg)
	}
}

// reconnect 指数退避重连，成功后重放订阅集合
func (s *Stream) reconnect() {
	s.reconnecting.Store(true)
	defer s.reconnecting.Store(false)

	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()

	delay := s.backoffBase
	for {
		select {
		case <-s.closeCh:
			return
		case <-time.After(delay):
		}

		conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
		if err != nil {
			logger.Warnf("[Stream] reconnect failed, retrying in %v: %v", delay, err)
			delay *= 2
			if delay > s.backoffCap {
				delay = s.backoffCap
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		symbols := make([]string, 0, len(s.subscribed))
		for sym := range s.subscribed {
			symbols = append(symbols, sym)
		}
		// replay前清空集合，让Subscribe重新记账
		s.subscribed = make(map[string]struct{})
		s.mu.Unlock()

		s.connected.Store(true)
		logger.Infof("[Stream] reconnected, resubscribing %d symbols", len(symbols))
		if len(symbols) > 0 {
			if err := s.Subscribe(symbols); err != nil {
				logger.Errorf("[Stream] resubscribe error: %v", err)
			}
		}
		go s.readLoop(conn)
		return
	}
}

func (s *Stream) handleMessage(conn *websocket.Conn, msg []byte) {
	var raw map[string]interface{}
	if err := json.Unmarshal(msg, &raw); err != nil {
		logger.Warnf("[Stream] json unmarshal error: %v", err)
		return
	}

	if evt, ok := raw["event"].(string); ok {
		switch evt {
		case "ping":
			pong, _ := json.Marshal(map[string]string{"event": "pong"})
			if err := conn.WriteMessage(websocket.TextMessage, pong); err != nil {
				logger.Warnf("[Stream] write pong error: %v", err)
			}
			return
		case "error":
			logger.Errorf("[Stream] error from okx: %v", raw)
			return
		case "subscribe", "unsubscribe":
			return
		}
	}

	arg, ok := raw["arg"].(map[string]interface{})
	if !ok {
		return
	}
	if channel, _ := arg["channel"].(string); channel != "tickers" {
		return
	}
	dataArr, ok := raw["data"].([]interface{})
	if !ok {
		return
	}

	for _, d := range dataArr {
		item, ok := d.(map[string]interface{})
		if !ok {
			continue
		}
		instId, _ := item["instId"].(string)
		if instId == "" {
			continue
		}
		ts := cast.ToInt64(item["ts"])
		seq := cast.ToInt64(item["seqId"])
		if seq == 0 {
			// tickers频道没有独立序号，用推送时间戳代替
			seq = ts
		}
		tick := &model.QuoteTick{
			Symbol:    instId,
			Timestamp: time.UnixMilli(ts),
			LastPrice: cast.ToFloat64(item["last"]),
			Volume:    cast.ToFloat64(item["lastSz"]),
			CumVolume: cast.ToFloat64(item["vol24h"]),
			Sequence:  seq,
		}
		s.lastTickAt.Store(time.Now().UnixNano())
		if s.onTick != nil {
			s.onTick(tick)
		}
	}
}
