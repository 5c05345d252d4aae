package market

import (
	"github.com/gin-gonic/gin"

	"tradeflow/internal/market"
	"tradeflow/pkg/errors"
	"tradeflow/pkg/errors/ecode"
	"tradeflow/pkg/response"
	"tradeflow/pkg/validator"
)

type Handler struct {
	market *market.Manager
}

func NewHandler(mkt *market.Manager) *Handler {
	return &Handler{market: mkt}
}

// LastTick 某symbol的最新行情快照
func (h *Handler) LastTick() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		symbol := ctx.Query("symbol")
		if symbol == "" {
			response.JSON(ctx, errors.WithMessage(ecode.InvalidParams, "symbol is required"), nil)
			return
		}
		tick := h.market.LastTick(symbol)
		if tick == nil {
			response.JSON(ctx, errors.WithMessage(ecode.NotFoundErr, "no tick observed for "+symbol), nil)
			return
		}
		response.JSON(ctx, nil, tick)
	}
}

type symbolsReq struct {
	Symbols []string `json:"symbols" binding:"required,min=1"`
}

// Subscribe 运行期追加订阅
func (h *Handler) Subscribe() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req symbolsReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithMessage(ecode.InvalidParams, validator.TranslateErr(err)), nil)
			return
		}
		if err := h.market.SubscribeSymbols(req.Symbols); err != nil {
			response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
			return
		}
		response.JSON(ctx, nil, h.market.Subscribed())
	}
}

// Unsubscribe 运行期取消订阅
func (h *Handler) Unsubscribe() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req symbolsReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithMessage(ecode.InvalidParams, validator.TranslateErr(err)), nil)
			return
		}
		if err := h.market.UnsubscribeSymbols(req.Symbols); err != nil {
			response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
			return
		}
		response.JSON(ctx, nil, h.market.Subscribed())
	}
}
