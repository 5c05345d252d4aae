package market

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tradeflow/internal/market"
	"tradeflow/internal/model"
	"tradeflow/pkg/logger"
)

const dashboardFeedId = "dashboard"

// ClientConn 单个dashboard连接，发送队列满时直接丢弃消息
type ClientConn struct {
	ClientID string
	Conn     *websocket.Conn
	Send     chan []byte
	closed   atomic.Bool
}

func (c *ClientConn) safeSend(msg []byte) {
	if c.closed.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			// 与close并发时可能写到已关闭的通道
		}
	}()
	select {
	case c.Send <- msg:
	default:
		// dashboard是旁路消费，丢弃不影响交易链路
	}
}

func (c *ClientConn) close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.Send)
		_ = c.Conn.Close()
	}
}

// WsGateway dashboard推送：实时tick和信号处置结果
// 客户端集合用COW，广播路径无锁读取
type WsGateway struct {
	market   *market.Manager
	upgrader websocket.Upgrader

	mu      sync.Mutex // 保护clients map写入
	clients atomic.Value
}

func NewWsGateway(mkt *market.Manager) *WsGateway {
	g := &WsGateway{
		market: mkt,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	g.clients.Store(make(map[string]*ClientConn))
	go g.forwardTicks()
	return g
}

type wsEnvelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// forwardTicks 作为hub的一个订阅者旁路转发行情
func (g *WsGateway) forwardTicks() {
	sub := g.market.Feed(dashboardFeedId)
	for tick := range sub.C() {
		msg, err := json.Marshal(wsEnvelope{Type: "tick", Data: tick})
		if err != nil {
			continue
		}
		g.broadcast(msg)
	}
}

type signalPayload struct {
	Signal  *model.TradeSignal  `json:"signal"`
	Outcome model.SignalOutcome `json:"outcome"`
}

// NotifySignal 风控处置结果广播到所有dashboard
func (g *WsGateway) NotifySignal(sig *model.TradeSignal, outcome model.SignalOutcome) {
	msg, err := json.Marshal(wsEnvelope{Type: "signal", Data: &signalPayload{Signal: sig, Outcome: outcome}})
	if err != nil {
		return
	}
	g.broadcast(msg)
}

func (g *WsGateway) broadcast(msg []byte) {
	for _, client := range g.loadClients() {
		client.safeSend(msg)
	}
}

func (g *WsGateway) loadClients() map[string]*ClientConn {
	return g.clients.Load().(map[string]*ClientConn)
}

// ServeWS 建立dashboard连接，同一client_id重连时替换旧连接
func (g *WsGateway) ServeWS(c *gin.Context) {
	clientID := c.Query("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("[WsGateway] upgrade error: %v", err)
		return
	}

	client := &ClientConn{
		ClientID: clientID,
		Conn:     conn,
		Send:     make(chan []byte, 256),
	}

	g.mu.Lock()
	old := g.loadClients()
	next := make(map[string]*ClientConn, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	if prev, found := next[clientID]; found {
		prev.close()
	}
	next[clientID] = client
	g.clients.Store(next)
	g.mu.Unlock()

	logger.Infof("[WsGateway] client %s connected", clientID)
	go g.writePump(client)
	go g.readPump(client)
}

func (g *WsGateway) writePump(client *ClientConn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				g.remove(client)
				return
			}
		case <-ticker.C:
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				g.remove(client)
				return
			}
		}
	}
}

// readPump 只用来感知断开，dashboard不上行业务消息
func (g *WsGateway) readPump(client *ClientConn) {
	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			g.remove(client)
			return
		}
	}
}

func (g *WsGateway) remove(client *ClientConn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	old := g.loadClients()
	if old[client.ClientID] != client {
		// 已经被新连接替换
		client.close()
		return
	}
	next := make(map[string]*ClientConn, len(old))
	for k, v := range old {
		if k != client.ClientID {
			next[k] = v
		}
	}
	g.clients.Store(next)
	client.close()
	logger.Infof("[WsGateway] client %s disconnected", client.ClientID)
}
