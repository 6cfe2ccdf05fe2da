package engine

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// PricePoint is one observation of an adjusted-close price series.
type PricePoint struct {
	Date     string  `json:"date"` // YYYY-MM-DD
	AdjClose float64 `json:"adjClose"`
}

// ReturnPoint is one observation of a return series.
type ReturnPoint struct {
	Date string  `json:"date"`
	Ret  float64 `json:"ret"`
}

// Interval is the resampling frequency of a price or return series.
type Interval string

const (
	Daily   Interval = "1d"
	Weekly  Interval = "1wk"
	Monthly Interval = "1mo"
)

// ParseInterval maps a wire value to an Interval. Both the compact forms
// (1d, 1wk, 1mo) and the long aliases (daily, weekly, monthly) are accepted.
func ParseInterval(s string) (Interval, error) {
	switch s {
	case "", "1d", "daily":
		return Daily, nil
	case "1wk", "weekly":
		return Weekly, nil
	case "1mo", "monthly":
		return Monthly, nil
	}
	return "", errf(KindInvalidParameter, "unknown interval %q (want 1d, 1wk or 1mo)", s)
}

// PeriodsPerYear returns the annualization factor for an interval.
func (iv Interval) PeriodsPerYear() float64 {
	switch iv {
	case Weekly:
		return 52
	case Monthly:
		return 12
	default:
		return 252
	}
}

// AlignedReturns is a set of return series sharing one strictly increasing
// date index. Tickers carries the canonical ordering used by every vector
// and matrix derived from the set.
type AlignedReturns struct {
	Tickers []string
	Dates   []string
	Series  map[string][]float64
}

// Matrix lays the aligned returns out as rows=observations, cols=tickers
// in canonical order.
func (ar *AlignedReturns) Matrix() [][]float64 {
	rows := make([][]float64, len(ar.Dates))
	for i := range rows {
		row := make([]float64, len(ar.Tickers))
		for j, t := range ar.Tickers {
			row[j] = ar.Series[t][i]
		}
		rows[i] = row
	}
	return rows
}

// Resample reduces a daily price series to the last observation of each
// ISO week or calendar month. Daily input is returned unchanged.
func Resample(points []PricePoint, interval Interval) []PricePoint {
	if interval == Daily || len(points) == 0 {
		return points
	}
	keyOf := func(d time.Time) string {
		if interval == Weekly {
			year, week := d.ISOWeek()
			return fmt.Sprintf("%04d-w%02d", year, week)
		}
		return d.Format("2006-01")
	}

	var out []PricePoint
	lastKey := ""
	for _, p := range points {
		d, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			continue
		}
		k := keyOf(d)
		if k == lastKey && len(out) > 0 {
			out[len(out)-1] = p // keep the last observation of the bucket
		} else {
			out = append(out, p)
			lastKey = k
		}
	}
	return out
}

// AlignPrices inner-joins price series on their date index. A date missing
// from any ticker drops the row for all tickers. Tickers come back in
// canonical (sorted) order; dates strictly increasing.
func AlignPrices(series map[string][]PricePoint) (tickers []string, dates []string, prices map[string][]float64, err error) {
	tickers = make([]string, 0, len(series))
	for t := range series {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	byDate := make(map[string]map[string]float64)
	for _, t := range tickers {
		if len(series[t]) == 0 {
			return nil, nil, nil, errf(KindInsufficientData, "ticker %s has no price points", t)
		}
		for _, p := range series[t] {
			m, ok := byDate[p.Date]
			if !ok {
				m = make(map[string]float64, len(tickers))
				byDate[p.Date] = m
			}
			m[t] = p.AdjClose
		}
	}

	for d, m := range byDate {
		if len(m) == len(tickers) {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)

	if len(dates) < 2 {
		return nil, nil, nil, errf(KindInsufficientData,
			"only %d aligned observations across %d tickers; need at least 2", len(dates), len(tickers))
	}

	prices = make(map[string][]float64, len(tickers))
	for _, t := range tickers {
		col := make([]float64, len(dates))
		for i, d := range dates {
			col[i] = byDate[d][t]
		}
		prices[t] = col
	}
	return tickers, dates, prices, nil
}

// PriceReturns converts a price column into simple or natural-log returns.
// The result has one fewer element than the input.
func PriceReturns(prices []float64, logReturns bool) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if logReturns {
			out[i-1] = math.Log(prices[i] / prices[i-1])
		} else {
			out[i-1] = prices[i]/prices[i-1] - 1
		}
	}
	return out
}

// BuildAlignedReturns resamples, aligns and differences a set of raw price
// series into one AlignedReturns value.
func BuildAlignedReturns(raw map[string][]PricePoint, interval Interval, logReturns bool) (*AlignedReturns, error) {
	resampled := make(map[string][]PricePoint, len(raw))
	for t, pts := range raw {
		resampled[t] = Resample(pts, interval)
	}

	tickers, dates, prices, err := AlignPrices(resampled)
	if err != nil {
		return nil, err
	}

	out := &AlignedReturns{
		Tickers: tickers,
		Dates:   dates[1:], // a return is dated by its second price
		Series:  make(map[string][]float64, len(tickers)),
	}
	for _, t := range tickers {
		out.Series[t] = PriceReturns(prices[t], logReturns)
	}
	return out, nil
}

// AlignReturnSeries inner-joins already-computed return series (for
// endpoints that receive returns rather than prices on the wire).
func AlignReturnSeries(series map[string][]ReturnPoint) (*AlignedReturns, error) {
	tickers := make([]string, 0, len(series))
	for t := range series {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	byDate := make(map[string]map[string]float64)
	for _, t := range tickers {
		if len(series[t]) == 0 {
			return nil, errf(KindInsufficientData, "ticker %s has no return points", t)
		}
		for _, p := range series[t] {
			m, ok := byDate[p.Date]
			if !ok {
				m = make(map[string]float64, len(tickers))
				byDate[p.Date] = m
			}
			m[t] = p.Ret
		}
	}

	var dates []string
	for d, m := range byDate {
		if len(m) == len(tickers) {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	if len(dates) < 2 {
		return nil, errf(KindInsufficientData,
			"only %d aligned return observations across %d tickers; need at least 2", len(dates), len(tickers))
	}

	out := &AlignedReturns{Tickers: tickers, Dates: dates, Series: make(map[string][]float64, len(tickers))}
	for _, t := range tickers {
		col := make([]float64, len(dates))
		for i, d := range dates {
			col[i] = byDate[d][t]
		}
		out.Series[t] = col
	}
	return out, nil
}
