package strategy

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"tradeflow/internal/dao"
	"tradeflow/internal/model"
	"tradeflow/internal/strategy"
	"tradeflow/pkg/errors"
	"tradeflow/pkg/errors/ecode"
	"tradeflow/pkg/response"
	"tradeflow/pkg/validator"
)

type Handler struct {
	registry *strategy.Registry
}

func NewHandler(registry *strategy.Registry) *Handler {
	return &Handler{registry: registry}
}

// List 当前启用中的策略
func (h *Handler) List() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		response.JSON(ctx, nil, h.registry.Active())
	}
}

type setEnabledReq struct {
	Id      int64 `json:"id" binding:"required"`
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetEnabled 启用或停用一条策略
func (h *Handler) SetEnabled() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req setEnabledReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithMessage(ecode.InvalidParams, validator.TranslateErr(err)), nil)
			return
		}
		if err := h.registry.SetEnabled(ctx, req.Id, *req.Enabled); err != nil {
			if stderrors.Is(err, dao.ErrNotFound) {
				response.JSON(ctx, errors.Wrap(ecode.NotFoundErr, err), nil)
				return
			}
			response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
			return
		}
		response.JSON(ctx, nil, nil)
	}
}

// Save 新增或更新一条策略配置
func (h *Handler) Save() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var cfg model.StrategyConfig
		if err := ctx.ShouldBindJSON(&cfg); err != nil {
			response.JSON(ctx, errors.WithMessage(ecode.InvalidParams, validator.TranslateErr(err)), nil)
			return
		}
		if err := h.registry.Save(ctx, &cfg); err != nil {
			var ice *model.InvalidConditionError
			if stderrors.As(err, &ice) {
				response.JSON(ctx, errors.Wrap(ecode.StrategyConfigErr, err), nil)
				return
			}
			response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
			return
		}
		response.JSON(ctx, nil, &cfg)
	}
}
