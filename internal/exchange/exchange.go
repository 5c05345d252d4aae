package exchange

import (
	"context"
	"errors"
	"strings"

	"tradeflow/internal/model"
)

// OrderRequest 提交到交易所的下单参数
// 注意限价和市价的Quantity单位不相同，当限价时Quantity的单位为币本身，当市价时Quantity的单位为USDT
type OrderRequest struct {
	Symbol          string
	Side            model.OrderSide
	Type            model.OrderType
	Quantity        float64
	Price           float64 // 限价单委托价，市价单忽略
	StopLossPrice   float64 // >0 时附带止损触发价
	TakeProfitPrice float64 // >0 时附带止盈触发价
}

// OrderResult 交易所受理后的回执
type OrderResult struct {
	OrderId string
	Status  string
}

// FillStatus 订单的成交查询结果
type FillStatus struct {
	OrderId   string
	State     string
	FilledQty float64
	AvgPrice  float64
}

// Filled 订单是否已全部成交
func (f *FillStatus) Filled() bool {
	return strings.EqualFold(f.State, "filled")
}

// Exchange 交易所能力边界：下单、查单、行情
type Exchange interface {
	PlaceOrder(ctx context.Context, req *OrderRequest) (*OrderResult, error)
	GetOrderStatus(orderId, symbol string) (*FillStatus, error)
	GetLastPrice(symbol string) (float64, error)
	GetKlineRecords(symbol string, period model.BarPeriod, size int) ([]model.Bar, error)
}

// ClassifyError 将交易所/网络的原始错误归类，便于上层区分可重试与不可重试
func ClassifyError(err error) model.FailureKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return model.FailTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return model.FailTimeout
	case strings.Contains(msg, "insufficient"):
		return model.FailInsufficientFunds
	case strings.Contains(msg, "instrument") || strings.Contains(msg, "invalid symbol") ||
		strings.Contains(msg, "51001"):
		return model.FailInvalidSymbol
	case strings.Contains(msg, "market closed") || strings.Contains(msg, "suspended") ||
		strings.Contains(msg, "51054"):
		return model.FailMarketClosed
	case strings.Contains(msg, "permission") || strings.Contains(msg, "apikey") ||
		strings.Contains(msg, "passphrase") || strings.Contains(msg, "50111") ||
		strings.Contains(msg, "50113"):
		return model.FailPermissionDenied
	default:
		return model.FailUnknown
	}
}

// Retryable 判断该失败类别是否值得再次尝试
func Retryable(kind model.FailureKind) bool {
	switch kind {
	case model.FailTimeout, model.FailUnknown, model.FailMarketClosed:
		return true
	default:
		return false
	}
}
