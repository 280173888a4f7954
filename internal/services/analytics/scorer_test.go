package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BitLearn/internal/domain/models"
	"BitLearn/pkg/util"
)

type constScorer float64

func (c constScorer) Score(context.Context, models.Model, []models.TrainingRecord) (float64, error) {
	return float64(c), nil
}

func sampleRecords(n int) []models.TrainingRecord {
	out := make([]models.TrainingRecord, n)
	for i := range out {
		out[i] = models.TrainingRecord{
			Category:  models.CategoryMarket,
			Timestamp: time.Unix(int64(i), 0),
			Fields:    map[string]float64{"price": float64(i), "volume": 10},
		}
	}
	return out
}

func TestSimulatedScorer_SeededSequence(t *testing.T) {
	a := NewSimulatedScorer(util.NewLockedRand(11))
	b := NewSimulatedScorer(util.NewLockedRand(11))
	m := models.DefaultCatalog()[0]
	for i := 0; i < 10; i++ {
		sa, err := a.Score(context.Background(), m, nil)
		require.NoError(t, err)
		sb, _ := b.Score(context.Background(), m, nil)
		assert.Equal(t, sa, sb)
		assert.GreaterOrEqual(t, sa, 0.0)
		assert.Less(t, sa, 1.0)
	}
}

func TestHTTPScorer_UsesRemoteScore(t *testing.T) {
	var got scoreReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/score", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(scoreResp{Score: 0.8})
	}))
	defer srv.Close()

	s := NewHTTPScorer(NewHTTPServiceBase(srv.URL, time.Second), constScorer(0.1))
	m := models.DefaultCatalog()[0]
	score, err := s.Score(context.Background(), m, sampleRecords(60))
	require.NoError(t, err)
	assert.Equal(t, 0.8, score)

	assert.Equal(t, m.ID, got.ModelID)
	assert.Equal(t, 60, got.Samples)
	// mean price over the last 50 records: 10..59
	assert.InDelta(t, 34.5, got.Features["price"], 1e-9)
	assert.Equal(t, 10.0, got.Features["volume"])
}

func TestHTTPScorer_FallsBackAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewHTTPScorer(NewHTTPServiceBase(srv.URL, time.Second), constScorer(0.3))
	score, err := s.Score(context.Background(), models.DefaultCatalog()[0], sampleRecords(3))
	require.NoError(t, err)
	assert.Equal(t, 0.3, score)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPScorer_OutOfRangeWithoutFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(scoreResp{Score: 1.7})
	}))
	defer srv.Close()

	s := NewHTTPScorer(NewHTTPServiceBase(srv.URL, time.Second), nil)
	_, err := s.Score(context.Background(), models.DefaultCatalog()[0], nil)
	assert.ErrorContains(t, err, "out of range")
}

func TestHTTPServiceBase_Disabled(t *testing.T) {
	var b *HTTPServiceBase
	assert.False(t, b.Enabled())
	assert.Error(t, NewHTTPServiceBase("", 0).PostJSON(context.Background(), "/x", nil, nil))
}

func TestHTTPServiceBase_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	b := NewHTTPServiceBase(srv.URL, time.Second)
	err := b.PostJSONWithRetry(context.Background(), "/score", scoreReq{}, nil, 4)
	assert.ErrorContains(t, err, "422")
	assert.Equal(t, int32(1), calls.Load())
}
