// Package chart shapes attribution results into horizontal bar chart rows.
package chart

import (
	"math"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/dylanram/attribution/internal/domain/attribution"
)

// axisHeadroom leaves room after the longest bar for its label.
const axisHeadroom = 1.2

// Bar is one labelled row of the chart.
type Bar struct {
	Partner string  `json:"partner"`
	Amount  float64 `json:"amount"`
	Share   float64 `json:"share"`
	Label   string  `json:"label"`
}

// Bars returns one bar per partner sorted by descending amount; equal amounts
// are ordered by partner name.
func Bars(r attribution.Result) []Bar {
	bars := make([]Bar, 0, len(r.Partners))
	for _, p := range r.Partners {
		amt := r.Amounts[p]
		var share float64
		if r.Value > 0 {
			share = amt / r.Value
		}
		bars = append(bars, Bar{Partner: p, Amount: amt, Share: share, Label: Currency(amt)})
	}
	sort.SliceStable(bars, func(i, j int) bool {
		if bars[i].Amount != bars[j].Amount {
			return bars[i].Amount > bars[j].Amount
		}
		return bars[i].Partner < bars[j].Partner
	})
	return bars
}

// AxisMax is the upper bound of the value axis for bars.
func AxisMax(bars []Bar) float64 {
	var top float64
	for _, b := range bars {
		top = math.Max(top, b.Amount)
	}
	return top * axisHeadroom
}

// Currency formats v as whole dollars, e.g. "$37,500".
func Currency(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}
