package kafka

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(WithRegisterer(nil))
	assert.ErrorContains(t, err, "brokers are required")

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("brotli"), WithRegisterer(nil))
	assert.ErrorContains(t, err, "unknown compression")

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}), WithRequiredAcks(2), WithRegisterer(nil))
	assert.Error(t, err)
}

func TestNewProducer_WriterSettings(t *testing.T) {
	p, err := NewProducer(
		WithBrokers([]string{"a:9092", "b:9092"}),
		WithCompression("zstd"),
		WithRequiredAcks(1),
		WithAsync(true),
		WithRegisterer(nil),
	)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, kafka.Zstd, p.writer.Compression)
	assert.Equal(t, kafka.RequireOne, p.writer.RequiredAcks)
	assert.IsType(t, &kafka.Hash{}, p.writer.Balancer)
	assert.NotNil(t, p.writer.Completion)
	assert.NoError(t, p.Close())
}

func TestProducerMetrics_SharedAcrossProducers(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := newProducerMetrics(reg)
	b := newProducerMetrics(reg)
	assert.Same(t, a.messages, b.messages)

	a.observe("events", "snappy", 120, 2, 0, nil)
	b.observe("events", "snappy", 0, 1, 0, assert.AnError)
	assert.Equal(t, 2.0, testutil.ToFloat64(a.messages.WithLabelValues("events", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.messages.WithLabelValues("events", "error")))
	assert.Equal(t, 120.0, testutil.ToFloat64(a.bytes.WithLabelValues("events", "snappy")))

	var nilMetrics *producerMetrics
	nilMetrics.observe("events", "snappy", 1, 1, 0, nil)
}

func TestEncodeValueAndHeaders(t *testing.T) {
	b, err := encodeValue(map[string]int{"v": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(b))

	b, err = encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	_, err = encodeValue(func() {})
	assert.Error(t, err)

	hs := encodeHeaders(map[string]string{"z": "1", "a": "2"})
	require.Len(t, hs, 2)
	assert.Equal(t, "a", hs[0].Key)
	assert.Equal(t, []byte("1"), hs[1].Value)
	assert.Nil(t, encodeHeaders(nil))
}
