package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_TypedFields(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, zerolog.InfoLevel).With(String("component", "trainer"))

	l.Debug("hidden")
	l.Info("model trained",
		String("model", "btc-price-predictor"),
		Int("version", 3),
		Float64("accuracy", 0.75),
		Bool("forced", true),
		Duration("took", 1500*time.Millisecond),
		Strings("symbols", []string{"BTC", "ETH"}),
	)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "trainer", entry["component"])
	assert.Equal(t, "btc-price-predictor", entry["model"])
	assert.Equal(t, 3.0, entry["version"])
	assert.Equal(t, true, entry["forced"])
	assert.Equal(t, 1500.0, entry["took"])
	assert.Equal(t, []interface{}{"BTC", "ETH"}, entry["symbols"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestLogger_ChildSharesCollectorAttachedLater(t *testing.T) {
	spy := &batchSpy{}
	root := NewNop()
	child := root.With(String("component", "sync"))

	root.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Publisher: spy})
	child.Error("push failed", Error(errors.New("timeout")))
	root.RemoveCollector()
	child.Error("after removal")

	batches := spy.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	e := batches[0][0]
	assert.Equal(t, "error", e.Level)
	assert.Equal(t, "timeout", e.Fields["error"])
	assert.Contains(t, e.Caller, "logger/logger_test.go:")
}

func TestNew_RejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	assert.Error(t, err)
}
