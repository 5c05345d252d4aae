package indicator

import (
	"fmt"
	"tradeflow/internal/model"

	"github.com/markcheno/go-talib"
)

// 指标引擎：纯计算，无副作用，相同输入必然得到相同输出
// 数据量不足时该点为"未定义"，调用方必须把未定义当作数据不足处理，
// 绝不能当作中性信号或者0值参与比较

// Series 一条与输入bars对齐的指标序列
// Valid[i]为false表示该点因数据量不足而未定义
type Series struct {
	Name   string
	Values []float64
	Valid  []bool
}

// At 取第i个点，未定义时ok为false
func (s *Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s.Values) || !s.Valid[i] {
		return 0, false
	}
	return s.Values[i], true
}

// Last 最新一个点
func (s *Series) Last() (float64, bool) {
	return s.At(len(s.Values) - 1)
}

// Prev 倒数第二个点，交叉判断用
func (s *Series) Prev() (float64, bool) {
	return s.At(len(s.Values) - 2)
}

// Spec 一次计算需要哪些指标
type Spec struct {
	SMAPeriods []int
	EMAPeriods []int
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	BBPeriod   int
	BBStdDev   float64
	ATRPeriod  int
}

// DefaultSpec 常用参数：RSI 14，MACD 12/26/9，布林 20/2
func DefaultSpec() Spec {
	return Spec{
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		BBPeriod:   20,
		BBStdDev:   2,
	}
}

// ResultSet 一次计算的全部命名序列
type ResultSet struct {
	series map[string]*Series
}

func (r *ResultSet) Get(name string) (*Series, bool) {
	s, ok := r.series[name]
	return s, ok
}

func (r *ResultSet) put(s *Series) {
	r.series[s.Name] = s
}

// 序列命名约定
func SMAName(period int) string { return fmt.Sprintf("sma_%d", period) }
func EMAName(period int) string { return fmt.Sprintf("ema_%d", period) }
func RSIName(period int) string { return fmt.Sprintf("rsi_%d", period) }
func ATRName(period int) string { return fmt.Sprintf("atr_%d", period) }

const (
	MACDLine   = "macd"
	MACDSig    = "macd_signal"
	MACDHist   = "macd_hist"
	BBUpper    = "bb_upper"
	BBMiddle   = "bb_middle"
	BBLower    = "bb_lower"
	ClosePrice = "close"
)

// Compute 根据spec计算所有指标序列，bars必须按时间升序
func Compute(bars []model.Bar, spec Spec) *ResultSet {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	rs := &ResultSet{series: make(map[string]*Series)}
	rs.put(&Series{Name: ClosePrice, Values: closes, Valid: allValid(len(closes))})

	for _, p := range spec.SMAPeriods {
		rs.put(sma(closes, p))
	}
	for _, p := range spec.EMAPeriods {
		rs.put(ema(closes, p))
	}
	if spec.RSIPeriod > 0 {
		rs.put(rsi(closes, spec.RSIPeriod))
	}
	if spec.MACDFast > 0 && spec.MACDSlow > 0 && spec.MACDSignal > 0 {
		line, sig, hist := macd(closes, spec.MACDFast, spec.MACDSlow, spec.MACDSignal)
		rs.put(line)
		rs.put(sig)
		rs.put(hist)
	}
	if spec.BBPeriod > 0 {
		upper, middle, lower := bbands(closes, spec.BBPeriod, spec.BBStdDev)
		rs.put(upper)
		rs.put(middle)
		rs.put(lower)
	}
	if spec.ATRPeriod > 0 {
		rs.put(atr(bars, closes, spec.ATRPeriod))
	}
	return rs
}

func allValid(n int) []bool {
	v := make([]bool, n)
	for i := range v {
		v[i] = true
	}
	return v
}

// validity 前lookback个点标记为未定义
func validity(n, lookback int) []bool {
	v := make([]bool, n)
	for i := lookback; i < n; i++ {
		v[i] = true
	}
	return v
}

func undefined(name string, n int) *Series {
	return &Series{Name: name, Values: make([]float64, n), Valid: make([]bool, n)}
}

func sma(closes []float64, period int) *Series {
	name := SMAName(period)
	if period <= 0 || len(closes) < period {
		return undefined(name, len(closes))
	}
	values := talib.Sma(closes, period)
	return &Series{Name: name, Values: values, Valid: validity(len(closes), period-1)}
}

func ema(closes []float64, period int) *Series {
	name := EMAName(period)
	if period <= 0 || len(closes) < period {
		return undefined(name, len(closes))
	}
	values := talib.Ema(closes, period)
	return &Series{Name: name, Values: values, Valid: validity(len(closes), period-1)}
}

// rsi Wilder平滑；纯上涨行情平均跌幅为0时RSI=100而不是未定义
func rsi(closes []float64, period int) *Series {
	name := RSIName(period)
	if period <= 0 || len(closes) < period+1 {
		return undefined(name, len(closes))
	}
	values := talib.Rsi(closes, period)
	// 钳制到[0,100]，浮点误差可能略微越界
	for i := range values {
		if values[i] > 100 {
			values[i] = 100
		}
		if values[i] < 0 {
			values[i] = 0
		}
	}
	return &Series{Name: name, Values: values, Valid: validity(len(closes), period)}
}

// atr Wilder平滑真实波幅，需要high/low/close三条序列
func atr(bars []model.Bar, closes []float64, period int) *Series {
	name := ATRName(period)
	n := len(bars)
	if period <= 0 || n < period+1 {
		return undefined(name, n)
	}
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}
	values := talib.Atr(highs, lows, closes, period)
	return &Series{Name: name, Values: values, Valid: validity(n, period)}
}

func macd(closes []float64, fast, slow, signal int) (line, sig, hist *Series) {
	n := len(closes)
	// talib的MACD前(slow-1)+(signal-1)个点不稳定
	lookback := slow + signal - 2
	if n <= lookback {
		return undefined(MACDLine, n), undefined(MACDSig, n), undefined(MACDHist, n)
	}
	l, s, h := talib.Macd(closes, fast, slow, signal)
	valid := validity(n, lookback)
	line = &Series{Name: MACDLine, Values: l, Valid: valid}
	sig = &Series{Name: MACDSig, Values: s, Valid: valid}
	hist = &Series{Name: MACDHist, Values: h, Valid: valid}
	return
}

func bbands(closes []float64, period int, stddev float64) (upper, middle, lower *Series) {
	n := len(closes)
	if n < period {
		return undefined(BBUpper, n), undefined(BBMiddle, n), undefined(BBLower, n)
	}
	if stddev <= 0 {
		stddev = 2
	}
	u, m, l := talib.BBands(closes, period, stddev, stddev, talib.SMA)
	valid := validity(n, period-1)
	upper = &Series{Name: BBUpper, Values: u, Valid: valid}
	middle = &Series{Name: BBMiddle, Values: m, Valid: valid}
	lower = &Series{Name: BBLower, Values: l, Valid: valid}
	return
}
