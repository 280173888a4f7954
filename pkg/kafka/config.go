package kafka

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProducerOption configures Producer.
type ProducerOption func(*producerConfig)

type producerConfig struct {
	brokers      []string
	requiredAcks int
	compression  string
	maxAttempts  int
	writeTimeout time.Duration
	readTimeout  time.Duration
	batchSize    int
	batchBytes   int
	linger       time.Duration
	async        bool
	registerer   prometheus.Registerer
}

func defaultProducerConfig() *producerConfig {
	return &producerConfig{
		requiredAcks: -1,
		compression:  "snappy",
		maxAttempts:  3,
		writeTimeout: 10 * time.Second,
		readTimeout:  10 * time.Second,
		batchSize:    100,
		batchBytes:   1 << 20,
		linger:       50 * time.Millisecond,
		registerer:   prometheus.DefaultRegisterer,
	}
}

func (c *producerConfig) validate() error {
	if len(c.brokers) == 0 {
		return errors.New("brokers are required")
	}
	if c.requiredAcks < -1 || c.requiredAcks > 1 {
		return errors.New("required acks must be -1, 0 or 1")
	}
	if _, err := parseCompression(c.compression); err != nil {
		return err
	}
	return nil
}

func WithBrokers(brokers []string) ProducerOption {
	return func(c *producerConfig) { c.brokers = brokers }
}

// WithRequiredAcks sets the acknowledgement level (-1 = all in-sync replicas).
func WithRequiredAcks(acks int) ProducerOption {
	return func(c *producerConfig) { c.requiredAcks = acks }
}

// WithCompression accepts none, gzip, snappy, lz4 or zstd.
func WithCompression(codec string) ProducerOption {
	return func(c *producerConfig) { c.compression = codec }
}

func WithMaxAttempts(n int) ProducerOption {
	return func(c *producerConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBatching sets how many messages or bytes are buffered, and for how
// long, before a write is flushed.
func WithBatching(size, bytes int, linger time.Duration) ProducerOption {
	return func(c *producerConfig) {
		if size > 0 {
			c.batchSize = size
		}
		if bytes > 0 {
			c.batchBytes = bytes
		}
		if linger > 0 {
			c.linger = linger
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *producerConfig) {
		c.writeTimeout = write
		c.readTimeout = read
	}
}

// WithAsync makes Publish return before the broker acknowledges. Delivery
// failures are then only visible in metrics.
func WithAsync(async bool) ProducerOption {
	return func(c *producerConfig) { c.async = async }
}

// WithRegisterer sets where producer metrics are registered; nil disables them.
func WithRegisterer(reg prometheus.Registerer) ProducerOption {
	return func(c *producerConfig) { c.registerer = reg }
}
