package auth

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"tradeflow/internal/config"
	"tradeflow/pkg/errors"
	"tradeflow/pkg/errors/ecode"
	"tradeflow/pkg/jwt"
	"tradeflow/pkg/response"
	"tradeflow/pkg/validator"
)

const defaultTokenTtl = 24 * time.Hour

// Handler 操作员token签发，控制面的变更类接口都要求携带这里签出的token
type Handler struct {
	cfg config.JwtConfig
}

func NewHandler(cfg config.JwtConfig) *Handler {
	return &Handler{cfg: cfg}
}

type tokenReq struct {
	Operator  string `json:"operator" binding:"required"`
	AccessKey string `json:"access_key" binding:"required"`
}

type tokenResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Token 用access-key换取操作员token
// access-key未配置时签发接口整体禁用
func (h *Handler) Token() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req tokenReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, errors.WithMessage(ecode.InvalidParams, validator.TranslateErr(err)), nil)
			return
		}

		if h.cfg.AccessKey == "" {
			response.RequireAuthErr(ctx, fmt.Errorf("token issuing is disabled"))
			ctx.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(req.AccessKey), []byte(h.cfg.AccessKey)) != 1 {
			response.RequireAuthErr(ctx, fmt.Errorf("invalid access key"))
			ctx.Abort()
			return
		}

		ttl := defaultTokenTtl
		if h.cfg.JwtTtl > 0 {
			ttl = time.Duration(h.cfg.JwtTtl) * time.Second
		}
		expiresAt := time.Now().Add(ttl)
		token, err := jwt.GenToken(jwt.BuildClaims(expiresAt, req.Operator), h.cfg.Secret)
		if err != nil {
			response.JSON(ctx, errors.Wrap(ecode.InternalErr, err), nil)
			return
		}
		response.JSON(ctx, nil, &tokenResp{Token: token, ExpiresAt: expiresAt})
	}
}
