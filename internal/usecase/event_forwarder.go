package usecase

import (
	"context"
	"sync"
	"time"

	"BitLearn/internal/domain/models"
	domrepo "BitLearn/internal/domain/repository"
	applogger "BitLearn/pkg/logger"
)

const forwardTimeout = 5 * time.Second

// EventForwarder copies bus events to an external sink such as Kafka.
type EventForwarder struct {
	bus     EventBus
	sink    domrepo.EventSink
	metrics domrepo.Metrics
	l       *applogger.Logger

	mu     sync.Mutex
	cancel func()
	done   chan struct{}
}

func NewEventForwarder(bus EventBus, sink domrepo.EventSink, metrics domrepo.Metrics, l *applogger.Logger) *EventForwarder {
	return &EventForwarder{bus: bus, sink: sink, metrics: metrics, l: l}
}

// Start subscribes to every topic and forwards until Stop or ctx is done.
func (f *EventForwarder) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sink == nil || f.cancel != nil {
		return
	}
	events, unsubscribe := f.bus.Subscribe(256)
	f.cancel = unsubscribe
	f.done = make(chan struct{})
	go f.loop(ctx, events, f.done)
}

func (f *EventForwarder) loop(ctx context.Context, events <-chan models.Event, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), forwardTimeout)
			if err := f.sink.Publish(pctx, ev); err != nil {
				f.metrics.RecordError("event_sink")
				f.l.Warn("event forward failed", applogger.String("type", string(ev.Type)), applogger.Error(err))
			}
			cancel()
		}
	}
}

// Stop unsubscribes and waits for the forwarding goroutine to exit.
func (f *EventForwarder) Stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
