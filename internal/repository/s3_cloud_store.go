package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"BitLearn/internal/domain/models"
	"BitLearn/internal/domain/repository"
	s3blob "BitLearn/pkg/blob/s3"
)

// BlobStore is the object storage surface used by S3CloudStore.
type BlobStore interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, dir string) ([]string, error)
	Put(ctx context.Context, path string, data []byte, contentType string) error
}

const (
	blobModelsDir    = "models/"
	blobTrainingDir  = "training/"
	blobInsightsPath = "insights/recent.json"
	jsonContentType  = "application/json"
)

// S3CloudStore keeps one JSON object per model, per training category and one
// for recent insights.
type S3CloudStore struct {
	blobs      BlobStore
	recordCap  int
	insightCap int
}

func NewS3CloudStore(blobs BlobStore) repository.CloudStore {
	return &S3CloudStore{
		blobs:      blobs,
		recordCap:  defaultRemoteRecordCap,
		insightCap: defaultRemoteInsightCap,
	}
}

func (s *S3CloudStore) Name() string { return "s3" }

func (s *S3CloudStore) LoadAllModels(ctx context.Context) ([]models.Model, error) {
	paths, err := s.blobs.List(ctx, blobModelsDir)
	if err != nil {
		return nil, err
	}
	out := make([]models.Model, 0, len(paths))
	for _, p := range paths {
		if !strings.HasSuffix(p, ".json") {
			continue
		}
		var m models.Model
		found, err := s.readJSON(ctx, p, &m)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *S3CloudStore) SaveModel(ctx context.Context, m models.Model) error {
	return s.writeJSON(ctx, blobModelsDir+m.ID+".json", m)
}

func (s *S3CloudStore) LoadTrainingData(ctx context.Context, retentionDays int) (models.TrainingBuffers, error) {
	out := make(models.TrainingBuffers, len(models.AllCategories))
	for _, cat := range models.AllCategories {
		var records []models.TrainingRecord
		found, err := s.readJSON(ctx, trainingPath(cat), &records)
		if err != nil {
			return nil, err
		}
		if found {
			out[cat] = records
		}
	}
	if retentionDays > 0 {
		out = out.Since(time.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour))
	}
	return out, nil
}

func (s *S3CloudStore) SaveTrainingData(ctx context.Context, data models.TrainingBuffers) error {
	for cat, incoming := range data {
		if len(incoming) == 0 {
			continue
		}
		var existing []models.TrainingRecord
		if _, err := s.readJSON(ctx, trainingPath(cat), &existing); err != nil {
			return err
		}
		if err := s.writeJSON(ctx, trainingPath(cat), mergeRecords(existing, incoming, s.recordCap)); err != nil {
			return err
		}
	}
	return nil
}

func (s *S3CloudStore) LoadInsights(ctx context.Context, limit int) ([]models.Insight, error) {
	var insights []models.Insight
	if _, err := s.readJSON(ctx, blobInsightsPath, &insights); err != nil {
		return nil, err
	}
	return capInsights(insights, limit), nil
}

func (s *S3CloudStore) SaveInsights(ctx context.Context, insights []models.Insight) error {
	if len(insights) == 0 {
		return nil
	}
	var existing []models.Insight
	if _, err := s.readJSON(ctx, blobInsightsPath, &existing); err != nil {
		return err
	}
	return s.writeJSON(ctx, blobInsightsPath, mergeInsights(existing, insights, s.insightCap))
}

// readJSON decodes the object at path into dest. A missing object is not an error.
func (s *S3CloudStore) readJSON(ctx context.Context, path string, dest any) (bool, error) {
	body, err := s.blobs.Get(ctx, path)
	if err != nil {
		if errors.Is(err, s3blob.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func (s *S3CloudStore) writeJSON(ctx context.Context, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return s.blobs.Put(ctx, path, data, jsonContentType)
}

func trainingPath(cat models.DataCategory) string {
	return blobTrainingDir + string(cat) + ".json"
}
