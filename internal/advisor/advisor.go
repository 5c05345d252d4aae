package advisor

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"tradeflow/internal/config"
	"tradeflow/internal/model"
	"tradeflow/pkg/logger"
)

// Advice 辅助决策服务的返回
type Advice struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Client AI辅助决策服务的客户端，纯增量输入
// 服务不可用时规则路径照常工作，这里只返回nil不返回错误给调用方阻断流程
type Client struct {
	enabled bool
	baseURL string
	cli     *http.Client
}

func NewClient(cfg config.AdvisorConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		enabled: cfg.Enabled && cfg.BaseURL != "",
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cli:     &http.Client{Timeout: timeout},
	}
}

// Enabled 是否配置了可用的服务
func (c *Client) Enabled() bool {
	return c != nil && c.enabled
}

type adviseRequest struct {
	Symbol string      `json:"symbol"`
	Bars   []model.Bar `json:"bars"`
	Action string      `json:"action"`
}

// Advise 请求对一个候选信号的参考意见，失败时返回nil
func (c *Client) Advise(ctx context.Context, symbol string, bars []model.Bar, action model.SignalAction) *Advice {
	if !c.Enabled() {
		return nil
	}
	// 最近的bar足够判断，不用传整个窗口
	if len(bars) > 50 {
		bars = bars[len(bars)-50:]
	}
	body, err := json.Marshal(adviseRequest{Symbol: symbol, Bars: bars, Action: string(action)})
	if err != nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/advise", bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cli.Do(req)
	if err != nil {
		logger.Debugf("[Advisor] %s request failed: %v", symbol, err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.Debugf("[Advisor] %s unexpected status %d", symbol, resp.StatusCode)
		return nil
	}

	var advice Advice
	if err := json.NewDecoder(resp.Body).Decode(&advice); err != nil {
		logger.Debugf("[Advisor] %s decode failed: %v", symbol, err)
		return nil
	}
	if advice.Confidence < 0 || advice.Confidence > 1 {
		return nil
	}
	return &advice
}

// Blend 把参考意见混入规则置信度：方向一致时取两者平均，相反时按意见置信度压低
// 平均意味着意见方向一致但置信度更低时，结果也会低于规则置信度
func Blend(ruleConfidence float64, sig model.SignalAction, advice *Advice) float64 {
	if advice == nil {
		return ruleConfidence
	}
	if strings.EqualFold(advice.Action, string(sig)) {
		return (ruleConfidence + advice.Confidence) / 2
	}
	blended := ruleConfidence * (1 - advice.Confidence/2)
	if blended < 0 {
		blended = 0
	}
	return blended
}
