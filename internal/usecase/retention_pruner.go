package usecase

import (
	"time"

	"BitLearn/internal/domain/models"
	"BitLearn/internal/repository"
	applogger "BitLearn/pkg/logger"
)

// RetentionPruner drops buffered records and insights older than the
// retention window.
type RetentionPruner struct {
	buffers  *repository.BufferStore
	insights *repository.InsightStore
	bus      EventPublisher
	l        *applogger.Logger
}

func NewRetentionPruner(buffers *repository.BufferStore, insights *repository.InsightStore, bus EventPublisher, l *applogger.Logger) *RetentionPruner {
	return &RetentionPruner{buffers: buffers, insights: insights, bus: bus, l: l}
}

// Prune removes everything with timestamp < now - DataRetentionDays.
// Running it twice with the same now changes nothing the second time.
func (p *RetentionPruner) Prune(now time.Time, cfg models.EngineConfig) models.DataPrunedPayload {
	cutoff := cfg.RetentionCutoff(now)
	payload := models.DataPrunedPayload{
		Cutoff:          cutoff,
		RecordsRemoved:  p.buffers.PruneBefore(cutoff),
		InsightsRemoved: p.insights.PruneBefore(cutoff),
	}
	if payload.RecordsRemoved > 0 || payload.InsightsRemoved > 0 {
		p.l.Info("retention prune",
			applogger.Time("cutoff", cutoff),
			applogger.Int("records_removed", payload.RecordsRemoved),
			applogger.Int("insights_removed", payload.InsightsRemoved),
		)
	}
	p.bus.Publish(models.Event{Type: models.EventDataPruned, Timestamp: now, Payload: payload})
	return payload
}
