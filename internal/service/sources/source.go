// Package sources fetches telemetry from JSON HTTP endpoints and falls back
// to synthetic samples drawn from documented ranges when a fetch fails.
package sources

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"BitLearn/internal/domain/models"
	"BitLearn/internal/domain/service"
	xhttp "BitLearn/pkg/http"
	"BitLearn/pkg/util"
)

// Range is the closed interval a synthetic field is drawn from.
type Range struct {
	Min float64
	Max float64
}

// Spec describes one endpoint: where to fetch, how to map JSON paths to
// record fields and what range each field takes when synthesized.
type Spec struct {
	Name     string
	Category models.DataCategory
	URL      string
	// Fields maps record field name to a dotted JSON path, e.g.
	// "market_data.current_price.usd". Numeric parts index into arrays.
	Fields map[string]string
	// Scale multiplies a fetched field, e.g. 1e-8 to turn sats into BTC.
	Scale map[string]float64
	// TimeField is the path of the observation time; "timestamp" when empty.
	TimeField string
	// Ranges bound the synthetic fallback for every field in Fields.
	Ranges map[string]Range
	// Derive fills dependent fields after sampling (e.g. high/low around price).
	Derive func(fields map[string]float64, rnd *util.LockedRand)
}

// HTTPSource implements service.Source over a JSON GET endpoint.
type HTTPSource struct {
	spec   Spec
	client *xhttp.Client
	rnd    *util.LockedRand
}

var _ service.Source = (*HTTPSource)(nil)

func NewHTTPSource(spec Spec, client *xhttp.Client, rnd *util.LockedRand) *HTTPSource {
	return &HTTPSource{spec: spec, client: client, rnd: rnd}
}

func (s *HTTPSource) Name() string                  { return s.spec.Name }
func (s *HTTPSource) Category() models.DataCategory { return s.spec.Category }

// Fetch GETs the endpoint and extracts every mapped field. Any missing field
// makes the fetch fail so the collector falls back.
func (s *HTTPSource) Fetch(ctx context.Context) (models.TrainingRecord, error) {
	if s.spec.URL == "" {
		return models.TrainingRecord{}, fmt.Errorf("%s: no endpoint: %w", s.spec.Name, models.ErrFetchFailure)
	}

	var body map[string]interface{}
	if err := s.client.GetJSON(ctx, s.spec.URL, nil, &body); err != nil {
		return models.TrainingRecord{}, fmt.Errorf("%s: %v: %w", s.spec.Name, err, models.ErrFetchFailure)
	}

	fields := make(map[string]float64, len(s.spec.Fields))
	for name, path := range s.spec.Fields {
		v, ok := lookup(body, path)
		if !ok {
			return models.TrainingRecord{}, fmt.Errorf("%s: missing field %q: %w", s.spec.Name, path, models.ErrFetchFailure)
		}
		f, ok := util.ToFloat(v)
		if !ok {
			return models.TrainingRecord{}, fmt.Errorf("%s: non-numeric field %q: %w", s.spec.Name, path, models.ErrFetchFailure)
		}
		if k, ok := s.spec.Scale[name]; ok {
			f *= k
		}
		fields[name] = f
	}

	ts := time.Now().UTC()
	timeField := s.spec.TimeField
	if timeField == "" {
		timeField = "timestamp"
	}
	if raw, ok := lookup(body, timeField); ok {
		if t, ok := parseTimestamp(raw); ok {
			ts = t
		}
	}

	return models.TrainingRecord{
		Category:  s.spec.Category,
		Timestamp: ts,
		Source:    s.spec.Name,
		Fields:    fields,
	}, nil
}

// Fallback draws every field uniformly from its documented range.
func (s *HTTPSource) Fallback(now time.Time) models.TrainingRecord {
	return Synthesize(s.spec, now, s.rnd)
}

// Synthesize builds a synthetic record for spec at now. Fields are drawn in
// name order so a seeded rnd yields the same record every run.
func Synthesize(spec Spec, now time.Time, rnd *util.LockedRand) models.TrainingRecord {
	names := make([]string, 0, len(spec.Ranges))
	for name := range spec.Ranges {
		names = append(names, name)
	}
	sort.Strings(names)
	fields := make(map[string]float64, len(spec.Ranges))
	for _, name := range names {
		r := spec.Ranges[name]
		fields[name] = rnd.Between(r.Min, r.Max)
	}
	if spec.Derive != nil {
		spec.Derive(fields, rnd)
	}
	return models.TrainingRecord{
		Category:  spec.Category,
		Timestamp: now.UTC(),
		Source:    spec.Name,
		Synthetic: true,
		Fields:    fields,
	}
}

// parseTimestamp accepts RFC3339 strings and unix seconds or milliseconds,
// either as JSON numbers or numeric strings.
func parseTimestamp(raw interface{}) (time.Time, bool) {
	if n, ok := raw.(float64); ok {
		if n <= 0 {
			return time.Time{}, false
		}
		return util.UnixAuto(int64(n)), true
	}
	t, ok := util.ParseTime(fmt.Sprint(raw))
	return t.UTC(), ok
}

// lookup walks a dotted path through nested JSON objects and arrays.
func lookup(body map[string]interface{}, path string) (interface{}, bool) {
	var cur interface{} = body
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
