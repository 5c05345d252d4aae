package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 配置加载（API密钥等）

type Okx struct {
	ApiKey    string `yaml:"apiKey"`
	SecretKey string `yaml:"secretKey"`
	Password  string `yaml:"password"`
	Simulated bool   `yaml:"simulated"` // 模拟盘交易，下单不会触发真实网络请求
	WsURL     string `yaml:"ws-url"`    // 行情推送地址
}

type Db struct {
	DbName   string `yaml:"dbname"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// EngineConfig 协调循环和评估相关的配置
type EngineConfig struct {
	Symbols []string `yaml:"symbols"` // 启动时订阅的交易对

	EvalTimeout     time.Duration `yaml:"eval-timeout"`      // 单次策略评估的时间预算
	SubscriberQueue int           `yaml:"subscriber-queue"`  // 行情分发队列长度（每个订阅者）
	BarPeriod       string        `yaml:"bar-period"`        // 策略评估使用的K线周期
	BackfillBars    int           `yaml:"backfill-bars"`     // 启动时回补的K线数量
	ReconnectBase   time.Duration `yaml:"reconnect-base"`    // 行情断线重连起始间隔
	ReconnectCap    time.Duration `yaml:"reconnect-cap"`     // 行情断线重连最大间隔
	OrderTimeout    time.Duration `yaml:"order-timeout"`     // 单次下单请求超时
	OrderRetries    int           `yaml:"order-retries"`     // 下单重试次数
	OrderRetryDelay time.Duration `yaml:"order-retry-delay"` // 下单重试间隔
	FillPollDelay   time.Duration `yaml:"fill-poll-delay"`   // 下单后查询成交状态的延迟
}

// RiskConfig 全局风控参数，symbol级别的参数在数据库中
type RiskConfig struct {
	DefaultCooldownMinutes int     `yaml:"default-cooldown-minutes"` // 新观察到的币种默认冷却时间
	MaxTradesPerDay        int     `yaml:"max-trades-per-day"`       // 每日最大下单次数（全局）
	MaxDailyLoss           float64 `yaml:"max-daily-loss"`           // 每日最大亏损额（USDT），超过后停止自动交易
	ResetHour              int     `yaml:"reset-hour"`               // 每日计数重置时间（小时）
	TradeAmount            float64 `yaml:"trade-amount"`             // 每次自动下单的金额（USDT）
}

// AdvisorConfig AI辅助决策服务，可选
type AdvisorConfig struct {
	Enabled bool          `yaml:"enabled"`
	BaseURL string        `yaml:"base-url"`
	Timeout time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	FileName   string `yaml:"file-name"`
	TimeFormat string `yaml:"time-format"`
	MaxSize    int    `yaml:"max-size"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAge     int    `yaml:"max-age"`
	Compress   bool   `yaml:"compress"`
	LocalTime  bool   `yaml:"local-time"`
	Console    bool   `yaml:"console"`
}

// RedisConfig is used to configure redis
type RedisConfig struct {
	Addr         string `yaml:"address"`
	Password     string `yaml:"password"`
	Db           int    `yaml:"db"`
	PoolSize     int    `yaml:"pool-size"`
	MinIdleConns int    `yaml:"min-idle-conns"`
}

type JwtConfig struct {
	Secret    string `yaml:"secret"`
	JwtTtl    int64  `yaml:"ttl"`        // token 有效期（秒）
	AccessKey string `yaml:"access-key"` // 换取操作员token的口令，为空时禁用签发接口
}

type Config struct {
	AppName      string `yaml:"app-name"`
	Listen       string `yaml:"listen"`
	Mode         string `yaml:"mode"`
	Language     string `yaml:"language"`
	MaxPingCount int    `yaml:"max-ping-count"`

	Okx     `yaml:"okx"`
	Db      `yaml:"database"`
	Engine  EngineConfig  `yaml:"engine"`
	Risk    RiskConfig    `yaml:"risk"`
	Advisor AdvisorConfig `yaml:"advisor"`
	Log     LogConfig     `yaml:"log"`
	Jwt     JwtConfig     `yaml:"jwt"`
	Redis   RedisConfig   `yaml:"redis"`
}

var AppConfig Config

func LoadConfig(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Read config file error %w", err)
	}
	if err := yaml.Unmarshal(data, &AppConfig); err != nil {
		return fmt.Errorf("Unmarshal config yaml error: %w", err)
	}
	AppConfig.Engine.applyDefaults()
	AppConfig.Risk.applyDefaults()
	return nil
}

func (c *EngineConfig) applyDefaults() {
	if c.EvalTimeout <= 0 {
		c.EvalTimeout = 500 * time.Millisecond
	}
	if c.SubscriberQueue <= 0 {
		c.SubscriberQueue = 256
	}
	if c.BarPeriod == "" {
		c.BarPeriod = "15m"
	}
	if c.BackfillBars <= 0 {
		c.BackfillBars = 200
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = time.Second
	}
	if c.ReconnectCap <= 0 {
		c.ReconnectCap = 30 * time.Second
	}
	if c.OrderTimeout <= 0 {
		c.OrderTimeout = 10 * time.Second
	}
	if c.OrderRetries <= 0 {
		c.OrderRetries = 3
	}
	if c.OrderRetryDelay <= 0 {
		c.OrderRetryDelay = 2 * time.Second
	}
	if c.FillPollDelay <= 0 {
		c.FillPollDelay = 3 * time.Second
	}
}

func (c *RiskConfig) applyDefaults() {
	if c.DefaultCooldownMinutes <= 0 {
		c.DefaultCooldownMinutes = 30
	}
	if c.MaxTradesPerDay <= 0 {
		c.MaxTradesPerDay = 20
	}
	if c.TradeAmount <= 0 {
		c.TradeAmount = 100
	}
}
