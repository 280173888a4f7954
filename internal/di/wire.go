//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"BitLearn/pkg/config"
	"BitLearn/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideClock,
		ProvideRand,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideRedisCache,
		ProvideS3Client,
		ProvidePostgresClient,
		ProvideClickHouseClient,
		ProvideResources,

		// Repositories
		ProvideCloudStore,
		ProvideTelemetryArchive,
		ProvideEventSink,
		ProvideModelRegistry,
		ProvideBufferStore,
		ProvideInsightStore,

		// Services
		ProvideEventBus,
		ProvideSources,
		ProvideSymbolSource,
		ProvideScorer,

		// Use cases
		ProvideDataCollector,
		ProvideTrainer,
		ProvideInsightGenerator,
		ProvideRetentionPruner,
		ProvideCloudSync,
		ProvideScheduler,
		ProvideLearningEngine,
		ProvideEventForwarder,

		// HTTP
		ProvideResponseCache,
		ProvideLearningHandler,
		ProvideEventsHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
