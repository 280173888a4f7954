package logger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batchSpy struct {
	mu      sync.Mutex
	topics  []string
	batches [][]AggregatedLogEntry
	err     error
}

func (s *batchSpy) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
	s.batches = append(s.batches, payload.([]AggregatedLogEntry))
	return s.err
}

func (s *batchSpy) all() [][]AggregatedLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]AggregatedLogEntry(nil), s.batches...)
}

func TestLogCollector_DeduplicatesAndFlushesOnClose(t *testing.T) {
	spy := &batchSpy{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "logs", Publisher: spy})

	for i := 0; i < 3; i++ {
		c.AddLog("warn", "fetch failed", map[string]interface{}{"source": "mempool"}, "a.go:1")
	}
	c.AddLog("warn", "fetch failed", map[string]interface{}{"source": "social"}, "a.go:1")
	c.Close()
	c.Close()

	batches := spy.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	counts := map[interface{}]int{}
	for _, e := range batches[0] {
		counts[e.Fields["source"]] = e.Count
	}
	assert.Equal(t, map[interface{}]int{"mempool": 3, "social": 1}, counts)
	assert.Equal(t, []string{"logs"}, spy.topics)
}

func TestLogCollector_ThresholdFlushesEarly(t *testing.T) {
	spy := &batchSpy{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: spy})
	defer c.Close()

	c.AddLog("error", "a", nil, "x")
	c.AddLog("error", "b", nil, "x")
	require.Eventually(t, func() bool { return len(spy.all()) == 1 }, time.Second, time.Millisecond)
	assert.Len(t, spy.all()[0], 2)
}

func TestLogCollector_ReportsPublishErrors(t *testing.T) {
	spy := &batchSpy{err: errors.New("broker down")}
	var got error
	c := NewLogCollector(&CollectionConfig{
		TimeInterval: time.Hour,
		Publisher:    spy,
		OnError:      func(err error) { got = err },
	})
	c.AddLog("error", "boom", nil, "x")
	c.Flush()
	assert.EqualError(t, got, "broker down")
	c.Close()
}

func TestLogger_WarnFeedsCollector(t *testing.T) {
	spy := &batchSpy{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Publisher: spy})
	l.Warn("slow", String("op", "push"))
	l.Info("ignored")
	l.RemoveCollector()

	batches := spy.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Equal(t, "warn", batches[0][0].Level)
	assert.Equal(t, "push", batches[0][0].Fields["op"])
}
