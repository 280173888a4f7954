package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"BitLearn/internal/domain/models"
)

func TestSeriesSkipsMissingFields(t *testing.T) {
	recs := []models.TrainingRecord{
		{Timestamp: time.Unix(1, 0), Fields: map[string]float64{"price": 1}},
		{Timestamp: time.Unix(2, 0), Fields: map[string]float64{"volume": 5}},
		{Timestamp: time.Unix(3, 0), Fields: map[string]float64{"price": 3}},
		{Timestamp: time.Unix(4, 0)},
	}
	assert.Equal(t, []float64{1, 3}, Series(recs, "price"))
	assert.Empty(t, Series(recs, "nope"))
}

func TestTail(t *testing.T) {
	v := []float64{1, 2, 3, 4}
	assert.Equal(t, []float64{3, 4}, Tail(v, 2))
	assert.Equal(t, v, Tail(v, 10))
	assert.Equal(t, v, Tail(v, 0))
}

func TestComputeLogReturns(t *testing.T) {
	assert.Nil(t, ComputeLogReturns([]float64{1}))
	r := ComputeLogReturns([]float64{100, 110, 0, 50})
	assert.Len(t, r, 3)
	assert.InDelta(t, math.Log(1.1), r[0], 1e-12)
	assert.Zero(t, r[1])
	assert.Zero(t, r[2])
}

func TestMeanStdDev(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.Equal(t, 2.5, Mean([]float64{1, 2, 3, 4}))
	assert.Zero(t, StdDev([]float64{7}))
	assert.InDelta(t, math.Sqrt(5.0/3.0), StdDev([]float64{1, 2, 3, 4}), 1e-12)
}

func TestZScore(t *testing.T) {
	assert.Zero(t, ZScore([]float64{1, 2}))
	assert.Zero(t, ZScore([]float64{5, 5, 5, 9}), "flat history")
	// history mean 2, sd 1
	assert.InDelta(t, 4.0, ZScore([]float64{1, 2, 3, 6}), 1e-12)
}

func TestSlope(t *testing.T) {
	assert.Zero(t, Slope([]float64{3}))
	assert.InDelta(t, 2.0, Slope([]float64{1, 3, 5, 7}), 1e-12)
	assert.InDelta(t, -0.5, Slope([]float64{2, 1.5, 1}), 1e-12)
}

func TestPearson(t *testing.T) {
	assert.InDelta(t, 1.0, Pearson([]float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}), 1e-12)
	assert.InDelta(t, -1.0, Pearson([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
	assert.Zero(t, Pearson([]float64{1, 1, 1}, []float64{1, 2, 3}))
	assert.Zero(t, Pearson([]float64{1, 2}, []float64{1, 2}))
	// common tail of the longer series
	assert.InDelta(t, 1.0, Pearson([]float64{100, 1, 2, 3}, []float64{1, 2, 3}), 1e-12)
}

func TestRealizedVolatility(t *testing.T) {
	assert.Zero(t, RealizedVolatility([]float64{0.1}, 2, 365))
	r := []float64{0.01, -0.01, 0.01, -0.01}
	assert.InDelta(t, StdDev(r)*math.Sqrt(4), RealizedVolatility(r, 4, 4), 1e-12)
}

func TestPercentChange(t *testing.T) {
	assert.Zero(t, PercentChange(0, 5))
	assert.InDelta(t, 25.0, PercentChange(80, 100), 1e-12)
}
