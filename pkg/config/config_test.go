package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, BackendNone, c.Cloud.Backend)
	assert.False(t, c.CloudEnabled())
	assert.Equal(t, 0.01, c.Engine.LearningRate)
	assert.Equal(t, time.Minute, c.Engine.DataCollectionInterval)
	assert.Equal(t, 5*time.Minute, c.Engine.TrainingInterval)
	assert.Equal(t, 10000, c.Engine.MaxBufferSize)
	assert.Equal(t, "bitlearn.events", c.Kafka.EventsTopic)
}

func TestParse_OverridesAndValidation(t *testing.T) {
	c, err := Parse([]byte(`
environment: prod
engine:
  training_interval: 30s
  learning_rate: 0.5
cloud:
  backend: redis
`))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.Engine.TrainingInterval)
	assert.Equal(t, 0.5, c.Engine.LearningRate)
	assert.True(t, c.CloudEnabled())

	cases := map[string]string{
		"bad backend":       "cloud:\n  backend: ftp\n",
		"s3 without bucket": "cloud:\n  backend: s3\n",
		"pg without host":   "cloud:\n  backend: postgres\n",
		"learning rate":     "engine:\n  learning_rate: 2\n",
		"kafka brokers":     "kafka:\n  enabled: true\n  brokers: []\n",
		"log level":         "log:\n  level: loud\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)

	env := map[string]string{
		"CLOUD_BACKEND":     "memory",
		"KAFKA_BROKERS":     "a:9092,b:9092",
		"SERVER_PORT":       "9090",
		"USE_CLOUD_STORAGE": "true",
		"SIMULATION_SEED":   "42",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	require.NoError(t, c.applyEnv(lookup))

	assert.Equal(t, BackendMemory, c.Cloud.Backend)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
	assert.Equal(t, 9090, c.Server.Port)
	assert.True(t, c.Engine.UseCloudStorage)
	assert.Equal(t, int64(42), c.Engine.SimulationSeed)

	env = map[string]string{"SERVER_PORT": "http"}
	assert.Error(t, c.applyEnv(lookup))
}

func TestLoad_ShippedConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, []string{"http://localhost:3000"}, c.Server.CORSOrigins)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_ArbitrageUniverse(t *testing.T) {
	c, err := Parse([]byte(`
arbitrage:
  venues:
    - name: Alpha
      fee_percent: 1.5
      assets: [DOG]
    - name: Beta
      assets: [DOG]
  assets:
    - id: DOG
      reference_price: 0.005
      volume_24h: 1000000
  quotes:
    Alpha:
      DOG: 0.0049
`))
	require.NoError(t, err)
	require.Len(t, c.Arbitrage.Venues, 2)
	assert.Equal(t, 1.5, c.Arbitrage.Venues[0].FeePercent)
	assert.Equal(t, []string{"DOG"}, c.Arbitrage.Venues[1].Assets)
	require.Len(t, c.Arbitrage.Assets, 1)
	assert.Equal(t, 1e6, c.Arbitrage.Assets[0].Volume24h)
	assert.Equal(t, 0.0049, c.Arbitrage.Quotes["Alpha"]["DOG"])

	_, err = Parse([]byte("arbitrage:\n  assets:\n    - id: DOG\n      reference_price: 0\n"))
	assert.Error(t, err)
	_, err = Parse([]byte("arbitrage:\n  venues:\n    - name: Alpha\n"))
	assert.Error(t, err)
}
