package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BitLearn/internal/domain/models"
)

func TestRetentionPruner_DropsOldDataAndIsIdempotent(t *testing.T) {
	f := newFixture()
	cfg := testConfig()
	cfg.DataRetentionDays = 2

	day := 24 * time.Hour
	f.buffers.Append(marketRecords(3, t0.Add(-3*day))...)
	f.buffers.Append(marketRecords(4, t0.Add(-day))...)
	f.insights.ReplaceLatest([]models.Insight{
		{ID: "old", Timestamp: t0.Add(-5 * day), Type: models.InsightPrice},
		{ID: "new", Timestamp: t0.Add(-time.Hour), Type: models.InsightPrice},
	})

	first := f.pruner.Prune(t0, cfg)
	assert.Equal(t, 3, first.RecordsRemoved)
	assert.Equal(t, 1, first.InsightsRemoved)
	assert.Equal(t, t0.Add(-2*day), first.Cutoff)

	afterOnce := f.buffers.Snapshot()
	insightsOnce := f.insights.Recent(0)

	second := f.pruner.Prune(t0, cfg)
	assert.Zero(t, second.RecordsRemoved)
	assert.Zero(t, second.InsightsRemoved)
	assert.Equal(t, afterOnce, f.buffers.Snapshot())
	assert.Equal(t, insightsOnce, f.insights.Recent(0))

	require.Len(t, f.buffers.Records(models.CategoryMarket), 4)
	require.Len(t, insightsOnce, 1)
	assert.Equal(t, "new", insightsOnce[0].ID)
	assert.Len(t, f.bus.ofType(models.EventDataPruned), 2)
}

func TestRetentionPruner_KeepsRecordAtCutoff(t *testing.T) {
	f := newFixture()
	cfg := testConfig()
	cfg.DataRetentionDays = 1
	cutoff := t0.Add(-24 * time.Hour)

	f.buffers.Append(
		models.TrainingRecord{Category: models.CategoryMempool, Timestamp: cutoff.Add(-time.Nanosecond), Source: "a"},
		models.TrainingRecord{Category: models.CategoryMempool, Timestamp: cutoff, Source: "b"},
	)
	res := f.pruner.Prune(t0, cfg)
	assert.Equal(t, 1, res.RecordsRemoved)
	recs := f.buffers.Records(models.CategoryMempool)
	require.Len(t, recs, 1)
	assert.Equal(t, "b", recs[0].Source)
}
