package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"BitLearn/internal/domain/models"
	domrepo "BitLearn/internal/domain/repository"
	"BitLearn/internal/domain/service"
	"BitLearn/internal/repository"
	applogger "BitLearn/pkg/logger"
)

// EventPublisher is the publishing half of the event bus.
type EventPublisher interface {
	Publish(ev models.Event)
}

// DataCollector pulls one record per source into the training buffers.
type DataCollector struct {
	mu      sync.RWMutex
	sources []service.Source
	buffers *repository.BufferStore
	archive domrepo.TelemetryArchive
	bus     EventPublisher
	metrics domrepo.Metrics
	clock   service.Clock
	l       *applogger.Logger
}

func NewDataCollector(
	sources []service.Source,
	buffers *repository.BufferStore,
	archive domrepo.TelemetryArchive,
	bus EventPublisher,
	metrics domrepo.Metrics,
	clock service.Clock,
	l *applogger.Logger,
) *DataCollector {
	return &DataCollector{
		sources: sources,
		buffers: buffers,
		archive: archive,
		bus:     bus,
		metrics: metrics,
		clock:   clock,
		l:       l,
	}
}

// AddSource registers src, replacing any source with the same name.
func (c *DataCollector) AddSource(src service.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.sources {
		if s.Name() == src.Name() {
			c.sources[i] = src
			return
		}
	}
	c.sources = append(c.sources, src)
}

// RemoveSource drops the named source and reports whether it existed.
func (c *DataCollector) RemoveSource(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, s := range c.sources {
		if s.Name() == name {
			c.sources = append(c.sources[:i:i], c.sources[i+1:]...)
			return true
		}
	}
	return false
}

// SourceNames lists the registered sources in collection order.
func (c *DataCollector) SourceNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		out = append(out, s.Name())
	}
	return out
}

// Collect fetches every source concurrently, each bounded by timeout. A failed
// or timed out fetch is replaced by the source's synthetic fallback record.
// Records are appended in source order once all fetches are done.
func (c *DataCollector) Collect(ctx context.Context, timeout time.Duration) models.DataCollectedPayload {
	start := time.Now()
	now := c.clock.Now()
	c.mu.RLock()
	srcs := append([]service.Source(nil), c.sources...)
	c.mu.RUnlock()
	records := make([]models.TrainingRecord, len(srcs))
	fellBack := make([]bool, len(srcs))

	var g errgroup.Group
	for i, src := range srcs {
		i, src := i, src
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			rec, err := src.Fetch(fctx)
			if err != nil {
				c.l.Warn("source fetch failed, using synthetic fallback",
					applogger.String("source", src.Name()),
					applogger.String("category", string(src.Category())),
					applogger.Error(err),
				)
				rec = src.Fallback(now)
				fellBack[i] = true
			}
			if rec.Category == "" {
				rec.Category = src.Category()
			}
			if rec.Timestamp.IsZero() {
				rec.Timestamp = now
			}
			records[i] = rec
			c.metrics.RecordCollection(string(src.Category()), fellBack[i])
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	c.buffers.Append(records...)

	if c.archive != nil && len(records) > 0 {
		if err := c.archive.ArchiveBatch(ctx, records); err != nil {
			c.metrics.RecordError("archive")
			c.l.Warn("telemetry archive failed", applogger.Error(err))
		}
	}

	payload := models.DataCollectedPayload{Counts: c.buffers.Counts()}
	seen := make(map[models.DataCategory]bool)
	for i, fb := range fellBack {
		if cat := srcs[i].Category(); fb && !seen[cat] {
			seen[cat] = true
			payload.FallbackCategories = append(payload.FallbackCategories, cat)
		}
	}
	c.metrics.RecordLatency("collect", time.Since(start).Seconds())
	c.bus.Publish(models.Event{Type: models.EventDataCollected, Timestamp: now, Payload: payload})
	c.l.Debug("data collected",
		applogger.Int("records", len(records)),
		applogger.Int("fallbacks", len(payload.FallbackCategories)),
	)
	return payload
}
