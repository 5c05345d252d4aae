package order

import (
	stderrors "errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"tradeflow/internal/dao"
	"tradeflow/internal/gateway"
	"tradeflow/internal/model"
	"tradeflow/pkg/errors"
	"tradeflow/pkg/errors/ecode"
	"tradeflow/pkg/response"
	"tradeflow/pkg/validator"
)

type Handler struct {
	orders  *dao.OrderDao
	signals *dao.SignalDao
	gateway *gateway.Gateway
}

func NewHandler(orders *dao.OrderDao, signals *dao.SignalDao, gw *gateway.Gateway) *Handler {
	return &Handler{orders: orders, signals: signals, gateway: gw}
}

// ListToday 当日订单审计记录
func (h *Handler) ListToday() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		since := time.Now().Truncate(24 * time.Hour)
		records, err := h.orders.ListSince(ctx, since)
		if err != nil {
			response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
			return
		}
		response.JSON(ctx, nil, records)
	}
}

// Signals 某symbol最近的信号处置记录
func (h *Handler) Signals() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		symbol := ctx.Query("symbol")
		if symbol == "" {
			response.JSON(ctx, errors.WithMessage(ecode.InvalidParams, "symbol is required"), nil)
			return
		}
		hours := cast.ToInt(ctx.DefaultQuery("hours", "24"))
		if hours <= 0 || hours > 168 {
			hours = 24
		}
		limit := cast.ToInt(ctx.DefaultQuery("limit", "100"))
		if limit <= 0 || limit > 500 {
			limit = 100
		}
		records, err := h.signals.ListRecent(ctx, symbol, time.Now().Add(-time.Duration(hours)*time.Hour), limit)
		if err != nil {
			response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
			return
		}
		response.JSON(ctx, nil, records)
	}
}

type closeReq struct {
	Symbol string `json:"symbol" binding:"required"`
}

// Close 手动全量平仓，走和自动交易完全相同的下单路径
func (h *Handler) Close() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req closeReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithMessage(ecode.InvalidParams, validator.TranslateErr(err)), nil)
			return
		}
		record, err := h.gateway.Place(ctx, &gateway.PlaceRequest{
			Symbol: req.Symbol,
			Side:   model.Sell,
		})
		if err != nil {
			var pre *gateway.PreconditionError
			if stderrors.As(err, &pre) {
				response.JSON(ctx, errors.WithMessage(ecode.OrderRejectedErr, pre.Reason), nil)
				return
			}
			var exec *gateway.ExecutionError
			if stderrors.As(err, &exec) {
				response.JSON(ctx, errors.Wrap(ecode.OrderFailedErr, err), nil)
				return
			}
			response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
			return
		}
		response.JSON(ctx, nil, record)
	}
}

// Fill 查询真实模式下还停留在SUBMITTED的订单的成交状态
func (h *Handler) Fill() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		orderId := ctx.Query("order_id")
		symbol := ctx.Query("symbol")
		if orderId == "" || symbol == "" {
			response.JSON(ctx, errors.WithMessage(ecode.InvalidParams, "order_id and symbol are required"), nil)
			return
		}
		fill, err := h.gateway.Status(orderId, symbol)
		if err != nil {
			response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
			return
		}
		response.JSON(ctx, nil, fill)
	}
}
