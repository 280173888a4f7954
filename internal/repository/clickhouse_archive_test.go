package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BitLearn/internal/domain/models"
)

type insertCall struct {
	table   string
	columns []string
	rows    [][]any
}

type fakeInserter struct {
	calls []insertCall
	err   error
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, columns []string, rows [][]any) error {
	f.calls = append(f.calls, insertCall{table: table, columns: columns, rows: rows})
	return f.err
}

func TestClickHouseArchive_RowShape(t *testing.T) {
	ins := &fakeInserter{}
	a := NewClickHouseArchive(ins, "bitlearn.telemetry_records")
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := a.ArchiveBatch(context.Background(), []models.TrainingRecord{{
		Category:  models.CategoryMempool,
		Timestamp: ts,
		Source:    "mempool.space",
		Synthetic: true,
		Fields:    map[string]float64{"fee_rate": 12.5},
	}})
	require.NoError(t, err)

	require.Len(t, ins.calls, 1)
	call := ins.calls[0]
	assert.Equal(t, "bitlearn.telemetry_records", call.table)
	assert.Equal(t, []string{"ts", "category", "source", "synthetic", "fields"}, call.columns)
	require.Len(t, call.rows, 1)
	assert.Equal(t, []any{ts, "mempool", "mempool.space", uint8(1), `{"fee_rate":12.5}`}, call.rows[0])
}

func TestClickHouseArchive_Chunks(t *testing.T) {
	ins := &fakeInserter{}
	a := NewClickHouseArchive(ins, "t")

	recs := make([]models.TrainingRecord, archiveChunk*2+5)
	for i := range recs {
		recs[i] = models.TrainingRecord{Category: models.CategoryMarket, Source: "sim"}
	}
	require.NoError(t, a.ArchiveBatch(context.Background(), recs))

	require.Len(t, ins.calls, 3)
	assert.Len(t, ins.calls[0].rows, archiveChunk)
	assert.Len(t, ins.calls[1].rows, archiveChunk)
	assert.Len(t, ins.calls[2].rows, 5)
}

func TestClickHouseArchive_EmptyAndError(t *testing.T) {
	ins := &fakeInserter{err: errors.New("connection reset")}
	a := NewClickHouseArchive(ins, "t")

	require.NoError(t, a.ArchiveBatch(context.Background(), nil))
	assert.Empty(t, ins.calls)

	err := a.ArchiveBatch(context.Background(), []models.TrainingRecord{{Category: models.CategoryRunes}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
