package status

import (
	"time"

	"github.com/gin-gonic/gin"

	"tradeflow/internal/dao"
	"tradeflow/internal/market"
	"tradeflow/internal/model"
	"tradeflow/internal/monitor"
	"tradeflow/pkg/errors"
	"tradeflow/pkg/errors/ecode"
	"tradeflow/pkg/response"
)

type Handler struct {
	market    *market.Manager
	positions *dao.PositionDao
	limiter   *monitor.DailyLimiter
	mode      model.ExecutionMode
}

func NewHandler(mkt *market.Manager, positions *dao.PositionDao, limiter *monitor.DailyLimiter, mode model.ExecutionMode) *Handler {
	return &Handler{market: mkt, positions: positions, limiter: limiter, mode: mode}
}

type statusResp struct {
	Mode          model.ExecutionMode `json:"mode"`
	Stream        model.StreamStatus  `json:"stream"`
	Subscriptions []string            `json:"subscriptions"`
	StaleDropped  int64               `json:"stale_dropped"`
	Positions     []model.Position    `json:"positions"`
	TradesToday   int                 `json:"trades_today"`
	LossToday     float64             `json:"loss_today"`
}

// Get 系统状态快照：行情流、订阅、持仓、当日计数
func (h *Handler) Get() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		positions, err := h.positions.List(ctx)
		if err != nil {
			response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
			return
		}
		trades, loss := h.limiter.Counters(time.Now())
		response.JSON(ctx, nil, &statusResp{
			Mode:          h.mode,
			Stream:        h.market.Status(),
			Subscriptions: h.market.Subscribed(),
			StaleDropped:  h.market.StaleDropped(),
			Positions:     positions,
			TradesToday:   trades,
			LossToday:     loss,
		})
	}
}
