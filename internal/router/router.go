package router

import (
	"github.com/gin-gonic/gin"

	authHandler "tradeflow/internal/handler/auth"
	marketHandler "tradeflow/internal/handler/market"
	monitorHandler "tradeflow/internal/handler/monitor"
	orderHandler "tradeflow/internal/handler/order"
	strategyHandler "tradeflow/internal/handler/strategy"
	statusHandler "tradeflow/internal/handler/status"
	"tradeflow/internal/middleware"
)

type ApiRouter struct {
	auth     *authHandler.Handler
	market   *marketHandler.Handler
	ws       *marketHandler.WsGateway
	strategy *strategyHandler.Handler
	monitor  *monitorHandler.Handler
	order    *orderHandler.Handler
	status   *statusHandler.Handler
}

func NewApiRouter(ah *authHandler.Handler, mh *marketHandler.Handler, ws *marketHandler.WsGateway, sh *strategyHandler.Handler, nh *monitorHandler.Handler, oh *orderHandler.Handler, st *statusHandler.Handler) *ApiRouter {
	return &ApiRouter{auth: ah, market: mh, ws: ws, strategy: sh, monitor: nh, order: oh, status: st}
}

func (api *ApiRouter) Load(g *gin.Engine) {
	base := g.Group("/api/v1")

	base.POST("/auth/token", api.auth.Token())
	base.GET("/status", api.status.Get())

	m := base.Group("/market")
	{
		m.GET("/tick", api.market.LastTick())
		m.GET("/ws", api.ws.ServeWS)
	}

	// 改变系统行为的接口都要求认证
	ms := base.Group("/market", middleware.AuthToken())
	{
		ms.POST("/subscribe", api.market.Subscribe())
		ms.POST("/unsubscribe", api.market.Unsubscribe())
	}

	s := base.Group("/strategy")
	{
		s.GET("/list", api.strategy.List())
	}
	sa := base.Group("/strategy", middleware.AuthToken())
	{
		sa.POST("/enabled", api.strategy.SetEnabled())
		sa.POST("/save", api.strategy.Save())
	}

	mo := base.Group("/monitor")
	{
		mo.GET("/list", api.monitor.List())
	}
	moa := base.Group("/monitor", middleware.AuthToken())
	{
		moa.POST("/status", api.monitor.SetStatus())
		moa.POST("/mode", api.monitor.SetMode())
		moa.POST("/save", api.monitor.Save())
	}

	o := base.Group("/order")
	{
		o.GET("/today", api.order.ListToday())
		o.GET("/signals", api.order.Signals())
		o.GET("/fill", api.order.Fill())
	}
	oa := base.Group("/order", middleware.AuthToken())
	{
		oa.POST("/close", api.order.Close())
	}
}
