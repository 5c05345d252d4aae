package model

import "time"

// QuoteTick 单笔行情推送，按symbol构成一条只追加的逻辑流
// 不变量：同一symbol的Sequence单调不减，乱序或重复的tick会被丢弃
type QuoteTick struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	LastPrice float64   `json:"last_price"`
	Volume    float64   `json:"volume"`     // 本笔成交量
	CumVolume float64   `json:"cum_volume"` // 当日累计成交量
	Sequence  int64     `json:"sequence"`
}

// BarPeriod K线周期，闭合集合
type BarPeriod string

const (
	Bar1m  BarPeriod = "1m"
	Bar5m  BarPeriod = "5m"
	Bar15m BarPeriod = "15m"
	Bar30m BarPeriod = "30m"
	Bar1h  BarPeriod = "1h"
	Bar4h  BarPeriod = "4h"
	Bar1d  BarPeriod = "1d"
)

var barDurations = map[BarPeriod]time.Duration{
	Bar1m:  time.Minute,
	Bar5m:  5 * time.Minute,
	Bar15m: 15 * time.Minute,
	Bar30m: 30 * time.Minute,
	Bar1h:  time.Hour,
	Bar4h:  4 * time.Hour,
	Bar1d:  24 * time.Hour,
}

func (p BarPeriod) Valid() bool {
	_, ok := barDurations[p]
	return ok
}

func (p BarPeriod) Duration() time.Duration {
	return barDurations[p]
}

// Bar 聚合后的OHLCV，周期收盘后不可变
type Bar struct {
	Symbol    string    `json:"symbol"`
	Period    BarPeriod `json:"period"`
	Timestamp time.Time `json:"timestamp"` // 周期起始时间
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// SymbolSubscription 订阅集合中的一项
type SymbolSubscription struct {
	Symbol  string `json:"symbol"`
	Enabled bool   `json:"enabled"`
}

// StreamStatus 行情流的运行状态快照
type StreamStatus struct {
	Connected       bool      `json:"connected"`
	Reconnecting    bool      `json:"reconnecting"`
	SubscribedCount int       `json:"subscribed_count"`
	LastTickAt      time.Time `json:"last_tick_at"`
}
