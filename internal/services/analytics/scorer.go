package analytics

import (
	"context"
	"fmt"

	"BitLearn/internal/domain/models"
	domsvc "BitLearn/internal/domain/service"
	"BitLearn/internal/services/features"
	"BitLearn/pkg/util"
)

// SimulatedScorer is the seeded random-walk training signal. With a fixed
// seed the sequence of scores is reproducible.
type SimulatedScorer struct {
	rnd *util.LockedRand
}

func NewSimulatedScorer(rnd *util.LockedRand) *SimulatedScorer {
	return &SimulatedScorer{rnd: rnd}
}

func (s *SimulatedScorer) Score(_ context.Context, _ models.Model, _ []models.TrainingRecord) (float64, error) {
	return s.rnd.Float64(), nil
}

// HTTPScorer asks a remote scoring service for the signal and falls back to
// the simulated scorer on any error.
type HTTPScorer struct {
	base     *HTTPServiceBase
	fallback domsvc.Scorer
	attempts int
}

func NewHTTPScorer(base *HTTPServiceBase, fallback domsvc.Scorer) *HTTPScorer {
	return &HTTPScorer{base: base, fallback: fallback, attempts: 2}
}

// WithAttempts sets how many times the remote call is tried before falling back.
func (s *HTTPScorer) WithAttempts(n int) *HTTPScorer {
	if n > 0 {
		s.attempts = n
	}
	return s
}

type scoreReq struct {
	ModelID  string             `json:"model_id"`
	Target   string             `json:"target"`
	Features map[string]float64 `json:"features"`
	Samples  int                `json:"samples"`
}

type scoreResp struct {
	Score float64 `json:"score"`
}

func (s *HTTPScorer) Score(ctx context.Context, m models.Model, records []models.TrainingRecord) (float64, error) {
	req := scoreReq{
		ModelID:  m.ID,
		Target:   m.TargetMetric,
		Features: latestFeatureMeans(m.Features, records, 50),
		Samples:  len(records),
	}
	var resp scoreResp
	err := s.base.PostJSONWithRetry(ctx, "/score", req, &resp, s.attempts)
	if err == nil && resp.Score >= 0 && resp.Score <= 1 {
		return resp.Score, nil
	}
	if err == nil {
		err = fmt.Errorf("score %.4f out of range", resp.Score)
	}
	if s.fallback == nil {
		return 0, err
	}
	return s.fallback.Score(ctx, m, records)
}

// latestFeatureMeans averages each feature over the last n records.
func latestFeatureMeans(names []string, records []models.TrainingRecord, n int) map[string]float64 {
	if len(records) > n {
		records = records[len(records)-n:]
	}
	out := make(map[string]float64, len(names))
	for _, name := range names {
		out[name] = features.Mean(features.Series(records, name))
	}
	return out
}

var (
	_ domsvc.Scorer = (*SimulatedScorer)(nil)
	_ domsvc.Scorer = (*HTTPScorer)(nil)
)
