package report

import (
	"fmt"
	"math"
	"strings"
)

// Series is one named sequence of readings, oldest first.
type Series struct {
	Name   string
	Values []float64
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders values as a single row of block characters, at most
// width wide. Values are scaled between their own min and max.
func Sparkline(values []float64, width int) string {
	values = resample(values, width)
	if len(values) == 0 {
		return ""
	}
	lo, hi := bounds(values)
	var b strings.Builder
	for _, v := range values {
		level := len(sparkLevels) / 2
		if hi-lo > 1e-9 {
			level = int(math.Round((v - lo) / (hi - lo) * float64(len(sparkLevels)-1)))
		}
		b.WriteRune(sparkLevels[level])
	}
	return b.String()
}

// trendLines renders one labelled sparkline per series with its range.
func trendLines(series []Series, width int) []string {
	nameWidth := 0
	for _, s := range series {
		nameWidth = max(nameWidth, len(s.Name))
	}
	var lines []string
	for _, s := range series {
		if len(s.Values) == 0 {
			continue
		}
		lo, hi := bounds(s.Values)
		lines = append(lines, fmt.Sprintf("%-*s  %s  %.0f..%.0f", nameWidth, s.Name, Sparkline(s.Values, width), lo, hi))
	}
	return lines
}

// resample averages values into at most width buckets.
func resample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return append([]float64(nil), values...)
	}
	out := make([]float64, width)
	for i := range out {
		start := i * len(values) / width
		end := max((i+1)*len(values)/width, start+1)
		var sum float64
		for _, v := range values[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

func bounds(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
