package monitor

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"tradeflow/internal/dao"
	"tradeflow/internal/model"
	"tradeflow/pkg/errors"
	"tradeflow/pkg/errors/ecode"
	"tradeflow/pkg/response"
	"tradeflow/pkg/validator"
)

type Handler struct {
	configs *dao.MonitorDao
}

func NewHandler(configs *dao.MonitorDao) *Handler {
	return &Handler{configs: configs}
}

// List 所有symbol的风控配置
func (h *Handler) List() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		configs, err := h.configs.List(ctx)
		if err != nil {
			response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
			return
		}
		response.JSON(ctx, nil, configs)
	}
}

type setStatusReq struct {
	Symbol string                 `json:"symbol" binding:"required"`
	Status model.MonitoringStatus `json:"status" binding:"required"`
}

// SetStatus 开关某个symbol的监控
func (h *Handler) SetStatus() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req setStatusReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithMessage(ecode.InvalidParams, validator.TranslateErr(err)), nil)
			return
		}
		if !req.Status.Valid() {
			response.JSON(ctx, errors.WithMessage(ecode.MonitorConfigErr, "unknown monitoring status"), nil)
			return
		}
		h.update(ctx, req.Symbol, func(cfg *model.PositionMonitoringConfig) {
			cfg.MonitoringStatus = req.Status
		})
	}
}

type setModeReq struct {
	Symbol string             `json:"symbol" binding:"required"`
	Mode   model.StrategyMode `json:"mode" binding:"required"`
}

// SetMode 设置某个symbol的策略信号处置模式
func (h *Handler) SetMode() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req setModeReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithMessage(ecode.InvalidParams, validator.TranslateErr(err)), nil)
			return
		}
		if !req.Mode.Valid() {
			response.JSON(ctx, errors.WithMessage(ecode.MonitorConfigErr, "unknown strategy mode"), nil)
			return
		}
		h.update(ctx, req.Symbol, func(cfg *model.PositionMonitoringConfig) {
			cfg.StrategyMode = req.Mode
		})
	}
}

// Save 覆盖写入整条配置
func (h *Handler) Save() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var cfg model.PositionMonitoringConfig
		if err := ctx.ShouldBindJSON(&cfg); err != nil {
			response.JSON(ctx, errors.WithMessage(ecode.InvalidParams, validator.TranslateErr(err)), nil)
			return
		}
		if !cfg.MonitoringStatus.Valid() || !cfg.StrategyMode.Valid() {
			response.JSON(ctx, errors.WithMessage(ecode.MonitorConfigErr, "invalid status or mode"), nil)
			return
		}
		if err := h.configs.Put(ctx, &cfg); err != nil {
			response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
			return
		}
		response.JSON(ctx, nil, &cfg)
	}
}

func (h *Handler) update(ctx *gin.Context, symbol string, mutate func(*model.PositionMonitoringConfig)) {
	cfg, err := h.configs.Get(ctx, symbol)
	if err != nil {
		if stderrors.Is(err, dao.ErrNotFound) {
			response.JSON(ctx, errors.Wrap(ecode.NotFoundErr, err), nil)
			return
		}
		response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
		return
	}
	mutate(cfg)
	if err := h.configs.Put(ctx, cfg); err != nil {
		response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
		return
	}
	response.JSON(ctx, nil, cfg)
}
