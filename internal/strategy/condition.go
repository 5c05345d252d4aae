package strategy

import (
	"fmt"

	"tradeflow/internal/indicator"
	"tradeflow/internal/model"
)

const (
	defaultMAPeriod  = 20
	defaultATRPeriod = 14
)

// SpecFor 收集一批策略配置需要的指标参数
// RSI和布林的参数以第一个出现的条件为准，后续不一致的条件会因序列缺失而评估失败
func SpecFor(configs []*model.StrategyConfig) indicator.Spec {
	spec := indicator.DefaultSpec()
	seen := make(map[int]struct{})
	rsiSet, bbSet := false, false

	for _, cfg := range configs {
		for _, c := range append(append([]model.Condition{}, cfg.BuyConditions...), cfg.SellConditions...) {
			switch c.Type {
			case model.CondPriceAboveMA, model.CondPriceBelowMA:
				p := c.Period
				if p <= 0 {
					p = defaultMAPeriod
				}
				if _, ok := seen[p]; !ok {
					seen[p] = struct{}{}
					spec.SMAPeriods = append(spec.SMAPeriods, p)
				}
			case model.CondRSIBelow, model.CondRSIAbove:
				if !rsiSet && c.Period > 0 {
					spec.RSIPeriod = c.Period
					rsiSet = true
				}
			case model.CondPriceBelowBBL, model.CondPriceAboveBBU:
				if !bbSet && c.Period > 0 {
					spec.BBPeriod = c.Period
					if c.Threshold > 0 {
						spec.BBStdDev = c.Threshold
					}
					bbSet = true
				}
			case model.CondATRBelow, model.CondATRAbove:
				if spec.ATRPeriod == 0 {
					p := c.Period
					if p <= 0 {
						p = defaultATRPeriod
					}
					spec.ATRPeriod = p
				}
			}
		}
	}
	return spec
}

// evalCondition 在指标结果上解释单个条件
// ok为false表示条件无法评估（数据不足或序列缺失），不等于条件为假
func evalCondition(c model.Condition, rs *indicator.ResultSet, spec indicator.Spec) (met bool, ok bool, desc string) {
	close, cok := lastOf(rs, indicator.ClosePrice)
	if !cok {
		return false, false, "close unavailable"
	}

	switch c.Type {
	case model.CondPriceAboveMA, model.CondPriceBelowMA:
		p := c.Period
		if p <= 0 {
			p = defaultMAPeriod
		}
		ma, mok := lastOf(rs, indicator.SMAName(p))
		if !mok {
			return false, false, fmt.Sprintf("sma(%d) undefined", p)
		}
		if c.Type == model.CondPriceAboveMA {
			return close > ma, true, fmt.Sprintf("close %.4f vs sma(%d) %.4f", close, p, ma)
		}
		return close < ma, true, fmt.Sprintf("close %.4f vs sma(%d) %.4f", close, p, ma)

	case model.CondRSIBelow, model.CondRSIAbove:
		p := c.Period
		if p <= 0 {
			p = spec.RSIPeriod
		}
		rsi, rok := lastOf(rs, indicator.RSIName(p))
		if !rok {
			return false, false, fmt.Sprintf("rsi(%d) undefined", p)
		}
		if c.Type == model.CondRSIBelow {
			return rsi < c.Threshold, true, fmt.Sprintf("rsi %.2f vs %.2f", rsi, c.Threshold)
		}
		return rsi > c.Threshold, true, fmt.Sprintf("rsi %.2f vs %.2f", rsi, c.Threshold)

	case model.CondMACDCrossUp, model.CondMACDCrossDown:
		line, lok := rs.Get(indicator.MACDLine)
		sig, sok := rs.Get(indicator.MACDSig)
		if !lok || !sok {
			return false, false, "macd undefined"
		}
		l1, ok1 := line.Last()
		l0, ok0 := line.Prev()
		s1, ok3 := sig.Last()
		s0, ok2 := sig.Prev()
		if !ok0 || !ok1 || !ok2 || !ok3 {
			return false, false, "macd window too short"
		}
		if c.Type == model.CondMACDCrossUp {
			return l0 <= s0 && l1 > s1, true, fmt.Sprintf("macd %.4f/%.4f signal %.4f/%.4f", l0, l1, s0, s1)
		}
		return l0 >= s0 && l1 < s1, true, fmt.Sprintf("macd %.4f/%.4f signal %.4f/%.4f", l0, l1, s0, s1)

	case model.CondPriceBelowBBL:
		lower, bok := lastOf(rs, indicator.BBLower)
		if !bok {
			return false, false, "bollinger undefined"
		}
		return close < lower, true, fmt.Sprintf("close %.4f vs bb_lower %.4f", close, lower)

	case model.CondPriceAboveBBU:
		upper, bok := lastOf(rs, indicator.BBUpper)
		if !bok {
			return false, false, "bollinger undefined"
		}
		return close > upper, true, fmt.Sprintf("close %.4f vs bb_upper %.4f", close, upper)

	// 波动率过滤：threshold为ATR相对最新收盘价的比例
	case model.CondATRBelow, model.CondATRAbove:
		p := c.Period
		if p <= 0 {
			p = spec.ATRPeriod
		}
		atr, aok := lastOf(rs, indicator.ATRName(p))
		if !aok {
			return false, false, fmt.Sprintf("atr(%d) undefined", p)
		}
		ratio := atr / close
		if c.Type == model.CondATRBelow {
			return ratio < c.Threshold, true, fmt.Sprintf("atr/close %.4f vs %.4f", ratio, c.Threshold)
		}
		return ratio > c.Threshold, true, fmt.Sprintf("atr/close %.4f vs %.4f", ratio, c.Threshold)

	default:
		return false, false, "unknown condition " + string(c.Type)
	}
}

func lastOf(rs *indicator.ResultSet, name string) (float64, bool) {
	s, ok := rs.Get(name)
	if !ok {
		return 0, false
	}
	return s.Last()
}
