package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"BitLearn/internal/domain/models"
	"BitLearn/internal/domain/repository"
)

// ClickHouseArchiveSchema returns the DDL for the telemetry archive table.
func ClickHouseArchiveSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.telemetry_records (
			ts        DateTime64(3),
			category  LowCardinality(String),
			source    String,
			synthetic UInt8,
			fields    String
		) ENGINE = MergeTree ORDER BY (category, ts)`, database),
	}
}

// RowInserter sends column-ordered rows to a table; *clickhouse.Client implements it.
type RowInserter interface {
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any) error
}

var archiveColumns = []string{"ts", "category", "source", "synthetic", "fields"}

const archiveChunk = 1000

// ClickHouseArchive appends collected records to a ClickHouse table.
type ClickHouseArchive struct {
	rows  RowInserter
	table string
}

// NewClickHouseArchive creates a ClickHouse-backed archive.
func NewClickHouseArchive(rows RowInserter, table string) repository.TelemetryArchive {
	return &ClickHouseArchive{rows: rows, table: table}
}

// ArchiveBatch inserts records in blocks of at most archiveChunk rows.
func (a *ClickHouseArchive) ArchiveBatch(ctx context.Context, records []models.TrainingRecord) error {
	for start := 0; start < len(records); start += archiveChunk {
		end := min(start+archiveChunk, len(records))

		rows := make([][]any, 0, end-start)
		for _, r := range records[start:end] {
			fields, err := json.Marshal(r.Fields)
			if err != nil {
				return fmt.Errorf("encode fields: %w", err)
			}
			var synthetic uint8
			if r.Synthetic {
				synthetic = 1
			}
			rows = append(rows, []any{r.Timestamp, string(r.Category), r.Source, synthetic, string(fields)})
		}
		if err := a.rows.InsertRows(ctx, a.table, archiveColumns, rows); err != nil {
			return fmt.Errorf("archive batch: %w", err)
		}
	}
	return nil
}
