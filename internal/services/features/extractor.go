package features

import (
	"math"

	"BitLearn/internal/domain/models"
)

// Series pulls one field out of records, skipping records that lack it.
func Series(records []models.TrainingRecord, field string) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := r.Fields[field]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Tail returns at most the last n values.
func Tail(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// ComputeLogReturns computes log returns r_t = ln(v_t / v_{t-1}).
// It returns a slice of length len(values)-1, or nil if insufficient data.
func ComputeLogReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		prev := values[i-1]
		cur := values[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// RealizedVolatility computes the sample standard deviation of the latest
// window returns scaled by sqrt(periods).
func RealizedVolatility(logReturns []float64, window int, periods float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sd := StdDev(logReturns[len(logReturns)-window:])
	return sd * math.Sqrt(periods)
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev is the sample standard deviation (n-1).
func StdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := Mean(values)
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// ZScore scores the last value against the preceding ones.
func ZScore(values []float64) float64 {
	if len(values) < 3 {
		return 0
	}
	hist := values[:len(values)-1]
	sd := StdDev(hist)
	if sd == 0 {
		return 0
	}
	return (values[len(values)-1] - Mean(hist)) / sd
}

// Slope is the least squares slope of values against their index.
func Slope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sx, sy, sxy, sxx float64
	for i, v := range values {
		x := float64(i)
		sx += x
		sy += v
		sxy += x * v
		sxx += x * x
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}

// Pearson correlates two series over their common tail. Returns 0 when
// either side is constant or shorter than 3.
func Pearson(x, y []float64) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n < 3 {
		return 0
	}
	x, y = x[len(x)-n:], y[len(y)-n:]
	mx, my := Mean(x), Mean(y)
	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

// PercentChange returns (to-from)/from*100, or 0 when from is 0.
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
