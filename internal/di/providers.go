package di

import (
	"context"
	"fmt"
	"time"

	"BitLearn/internal/domain/models"
	"BitLearn/internal/domain/repository"
	"BitLearn/internal/domain/service"
	"BitLearn/internal/handler/api"
	internalrepo "BitLearn/internal/repository"
	icache "BitLearn/internal/service/cache"
	"BitLearn/internal/service/eventbus"
	"BitLearn/internal/service/ratelimit"
	"BitLearn/internal/service/sources"
	"BitLearn/internal/services/analytics"
	"BitLearn/internal/usecase"
	s3blob "BitLearn/pkg/blob/s3"
	"BitLearn/pkg/cache"
	pkgch "BitLearn/pkg/clickhouse"
	"BitLearn/pkg/config"
	xhttp "BitLearn/pkg/http"
	pkgkafka "BitLearn/pkg/kafka"
	applogger "BitLearn/pkg/logger"
	"BitLearn/pkg/metrics"
	"BitLearn/pkg/postgres"
	"BitLearn/pkg/server"
	"BitLearn/pkg/util"
)

const initTimeout = 10 * time.Second

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("service", "bitlearn"), applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() repository.Metrics {
	return metrics.New(nil)
}

// ProvideRedisCache connects to Redis when the cloud store or the response
// cache needs it; nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if cfg.Cloud.Backend != config.BackendRedis && cfg.API.CacheBackend != "redis" {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2),
		cache.WithRedisDialTimeout(initTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideS3Client creates the S3 client for the s3 backend; nil otherwise.
func ProvideS3Client(cfg *config.Config) (*s3blob.Client, error) {
	if cfg.Cloud.Backend != config.BackendS3 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	opts := []s3blob.ClientOption{
		s3blob.WithRegion(cfg.S3.Region),
		s3blob.WithBucket(cfg.S3.Bucket, cfg.S3.Prefix),
		s3blob.WithPathStyle(cfg.S3.PathStyle),
	}
	if cfg.S3.Endpoint != "" {
		opts = append(opts, s3blob.WithEndpoint(cfg.S3.Endpoint, cfg.S3.UseSSL))
	}
	if cfg.S3.AccessKey != "" {
		opts = append(opts, s3blob.WithCredentials(cfg.S3.AccessKey, cfg.S3.SecretKey))
	}
	client, err := s3blob.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	if err := client.Health(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// ProvidePostgresClient connects and creates the cloud store tables for the
// postgres backend; nil otherwise.
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, error) {
	if cfg.Cloud.Backend != config.BackendPostgres {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	opts := []postgres.ClientOption{
		postgres.WithDatabase(cfg.Postgres.Database),
		postgres.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		postgres.WithSSLMode(cfg.Postgres.SSLMode),
		postgres.WithPool(cfg.Postgres.MaxConns, 1),
	}
	if cfg.Postgres.DSN != "" {
		opts = append(opts, postgres.WithDSN(cfg.Postgres.DSN))
	} else {
		opts = append(opts, postgres.WithHost(cfg.Postgres.Host, cfg.Postgres.Port))
	}
	client, err := postgres.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	if err := client.InitSchema(ctx, internalrepo.PostgresSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return client, nil
}

// ProvideClickHouseClient creates the telemetry archive client when enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(10, 5, 0),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ClickHouseArchiveSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates the event producer when enabled and attaches
// the log collector to it when a collector topic is configured.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Log.CollectorTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval: cfg.Log.CollectorInterval,
			Topic:        cfg.Log.CollectorTopic,
			Publisher:    producer,
		})
	}
	return producer, nil
}

// ProvideCloudStore selects the cloud backend. The result is nil when cloud
// storage is disabled.
func ProvideCloudStore(cfg *config.Config, rc *cache.RedisCache, s3c *s3blob.Client, pg *postgres.Client) repository.CloudStore {
	switch cfg.Cloud.Backend {
	case config.BackendMemory:
		return internalrepo.NewKVCloudStore(cache.NewMemoryCache(cache.WithMemoryMaxEntries(100_000)), cfg.Cloud.Name)
	case config.BackendRedis:
		return internalrepo.NewKVCloudStore(rc, cfg.Cloud.Name)
	case config.BackendS3:
		return internalrepo.NewS3CloudStore(s3c)
	case config.BackendPostgres:
		return internalrepo.NewPostgresCloudStore(pg.Pool())
	default:
		return nil
	}
}

// ProvideTelemetryArchive returns the ClickHouse archive, or nil without a client.
func ProvideTelemetryArchive(cfg *config.Config, ch *pkgch.Client) repository.TelemetryArchive {
	if ch == nil {
		return nil
	}
	return internalrepo.NewClickHouseArchive(ch, cfg.ClickHouse.Database+".telemetry_records")
}

// ProvideEventSink returns the Kafka sink, or nil without a producer.
func ProvideEventSink(cfg *config.Config, producer *pkgkafka.Producer) repository.EventSink {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEventSink(producer, cfg.Kafka.EventsTopic)
}

func ProvideEventBus() *eventbus.Bus { return eventbus.New() }

func ProvideClock() service.Clock { return service.SystemClock{} }

// ProvideRand seeds the simulation. A zero seed means non-reproducible.
func ProvideRand(cfg *config.Config) *util.LockedRand {
	seed := cfg.Engine.SimulationSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return util.NewLockedRand(seed)
}

func ProvideSources(cfg *config.Config, rnd *util.LockedRand) []service.Source {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Sources.Timeout))
	httpSources := sources.NewDefaultSources(sources.Endpoints{
		Market:   cfg.Sources.Market,
		Mempool:  cfg.Sources.Mempool,
		Ordinals: cfg.Sources.Ordinals,
		Runes:    cfg.Sources.Runes,
		Social:   cfg.Sources.Social,
	}, client, rnd)
	out := make([]service.Source, 0, len(httpSources))
	for _, s := range httpSources {
		out = append(out, s)
	}
	return out
}

// ProvideSymbolSource builds per-symbol market feeds from sources.symbol.
// With no template configured the feeds always fall back to synthetic data.
func ProvideSymbolSource(cfg *config.Config, rnd *util.LockedRand) usecase.SymbolSourceFunc {
	client := xhttp.NewClient(xhttp.WithTimeout(cfg.Sources.Timeout))
	return func(symbol string) service.Source {
		return sources.NewHTTPSource(sources.SymbolSpec(symbol, cfg.Sources.Symbol), client, rnd)
	}
}

// ProvideScorer uses the remote scorer when a URL is configured, with the
// simulated scorer as its fallback.
func ProvideScorer(cfg *config.Config, rnd *util.LockedRand) service.Scorer {
	simulated := analytics.NewSimulatedScorer(rnd)
	if cfg.Scorer.URL == "" {
		return simulated
	}
	base := analytics.NewHTTPServiceBase(cfg.Scorer.URL, cfg.Scorer.Timeout)
	return analytics.NewHTTPScorer(base, simulated).WithAttempts(cfg.Scorer.Attempts)
}

func ProvideModelRegistry() *internalrepo.ModelRegistry {
	return internalrepo.NewModelRegistry(models.DefaultCatalog()...)
}

func ProvideBufferStore(cfg *config.Config) *internalrepo.BufferStore {
	return internalrepo.NewBufferStore(cfg.Engine.MaxBufferSize)
}

func ProvideInsightStore(cfg *config.Config) *internalrepo.InsightStore {
	return internalrepo.NewInsightStore(cfg.Engine.InsightHistoryLimit)
}

func ProvideDataCollector(
	srcs []service.Source,
	buffers *internalrepo.BufferStore,
	archive repository.TelemetryArchive,
	bus *eventbus.Bus,
	m repository.Metrics,
	clock service.Clock,
	l *applogger.Logger,
) *usecase.DataCollector {
	return usecase.NewDataCollector(srcs, buffers, archive, bus, m, clock, l.With(applogger.String("component", "collector")))
}

func ProvideTrainer(
	registry *internalrepo.ModelRegistry,
	buffers *internalrepo.BufferStore,
	scorer service.Scorer,
	rnd *util.LockedRand,
	bus *eventbus.Bus,
	m repository.Metrics,
	clock service.Clock,
	l *applogger.Logger,
) *usecase.Trainer {
	return usecase.NewTrainer(registry, buffers, scorer, rnd, bus, m, clock, l.With(applogger.String("component", "trainer")))
}

func ProvideInsightGenerator(
	cfg *config.Config,
	registry *internalrepo.ModelRegistry,
	buffers *internalrepo.BufferStore,
	insights *internalrepo.InsightStore,
	bus *eventbus.Bus,
	m repository.Metrics,
	clock service.Clock,
	l *applogger.Logger,
) *usecase.InsightGenerator {
	return usecase.NewInsightGenerator(registry, buffers, insights, bus, m, clock,
		l.With(applogger.String("component", "insights")), arbitrageOptions(cfg.Arbitrage)...)
}

// arbitrageOptions applies the configured venue and asset universe and any
// pinned quotes.
func arbitrageOptions(a config.ArbitrageConfig) []usecase.InsightOption {
	var opts []usecase.InsightOption
	if len(a.Venues) > 0 || len(a.Assets) > 0 {
		venues := models.DefaultVenues()
		if len(a.Venues) > 0 {
			venues = make([]models.ArbitrageVenue, 0, len(a.Venues))
			for _, v := range a.Venues {
				venues = append(venues, models.NewVenue(v.Name, v.FeePercent, v.Assets...))
			}
		}
		assets := models.DefaultRuneAssets()
		if len(a.Assets) > 0 {
			assets = make([]models.RuneAsset, 0, len(a.Assets))
			for _, r := range a.Assets {
				name := r.Name
				if name == "" {
					name = r.ID
				}
				assets = append(assets, models.RuneAsset{ID: r.ID, Name: name, ReferencePrice: r.ReferencePrice, Volume24h: r.Volume24h})
			}
		}
		opts = append(opts, usecase.WithArbitrageUniverse(venues, assets))
	}
	if len(a.Quotes) > 0 {
		opts = append(opts, usecase.WithQuotes(usecase.StaticQuotes(a.Quotes)))
	}
	return opts
}

func ProvideRetentionPruner(
	buffers *internalrepo.BufferStore,
	insights *internalrepo.InsightStore,
	bus *eventbus.Bus,
	l *applogger.Logger,
) *usecase.RetentionPruner {
	return usecase.NewRetentionPruner(buffers, insights, bus, l.With(applogger.String("component", "pruner")))
}

func ProvideCloudSync(
	store repository.CloudStore,
	registry *internalrepo.ModelRegistry,
	buffers *internalrepo.BufferStore,
	insights *internalrepo.InsightStore,
	bus *eventbus.Bus,
	m repository.Metrics,
	clock service.Clock,
	l *applogger.Logger,
) *usecase.CloudSync {
	return usecase.NewCloudSync(store, registry, buffers, insights, bus, m, clock, l.With(applogger.String("component", "cloud_sync")))
}

func ProvideScheduler(l *applogger.Logger) *usecase.Scheduler {
	return usecase.NewScheduler(l.With(applogger.String("component", "scheduler")))
}

// ProvideLearningEngine assembles the engine facade.
func ProvideLearningEngine(
	cfg *config.Config,
	registry *internalrepo.ModelRegistry,
	buffers *internalrepo.BufferStore,
	insights *internalrepo.InsightStore,
	collector *usecase.DataCollector,
	trainer *usecase.Trainer,
	generator *usecase.InsightGenerator,
	pruner *usecase.RetentionPruner,
	sync *usecase.CloudSync,
	scheduler *usecase.Scheduler,
	bus *eventbus.Bus,
	clock service.Clock,
	symbolSrc usecase.SymbolSourceFunc,
	l *applogger.Logger,
) (*usecase.LearningEngine, error) {
	engine, err := usecase.NewLearningEngine(cfg.Engine, usecase.EngineDeps{
		Registry:  registry,
		Buffers:   buffers,
		Insights:  insights,
		Collector: collector,
		Trainer:   trainer,
		Generator: generator,
		Pruner:    pruner,
		Sync:      sync,
		Scheduler: scheduler,
		Bus:       bus,
		Clock:     clock,

		SymbolSource: symbolSrc,
	}, l.With(applogger.String("component", "engine")))
	if err != nil {
		return nil, fmt.Errorf("learning engine: %w", err)
	}
	return engine, nil
}

func ProvideEventForwarder(bus *eventbus.Bus, sink repository.EventSink, m repository.Metrics, l *applogger.Logger) *usecase.EventForwarder {
	return usecase.NewEventForwarder(bus, sink, m, l.With(applogger.String("component", "event_forwarder")))
}

// ProvideResponseCache shares cached API responses through Redis when
// configured, otherwise keeps them in process.
func ProvideResponseCache(cfg *config.Config, rc *cache.RedisCache) icache.BytesCache {
	if cfg.API.CacheBackend == "redis" && rc != nil {
		return icache.NewRedisCache(rc.Client(), cfg.Redis.Prefix+":api")
	}
	return icache.NewTTLCache()
}

func ProvideLearningHandler(cfg *config.Config, engine *usecase.LearningEngine, rcache icache.BytesCache, l *applogger.Logger) *api.LearningHandler {
	limits := api.Limits{Burst: cfg.API.ForceBurst, PerSec: cfg.API.ForcePerSec}
	return api.NewLearningHandler(engine, rcache, cfg.API.CacheTTL, ratelimit.New(), limits, l.With(applogger.String("component", "api")))
}

func ProvideEventsHandler(cfg *config.Config, engine *usecase.LearningEngine, l *applogger.Logger) *api.EventsHandler {
	return api.NewEventsHandler(engine, api.StreamConfig{
		Buffer:      cfg.API.WSBuffer,
		PingPeriod:  cfg.API.WSPingPeriod,
		WriteWindow: cfg.API.WSWriteWindow,
	}, l.With(applogger.String("component", "event_stream")))
}

// ProvideHTTPServer creates the Echo server with every API handler registered.
func ProvideHTTPServer(cfg *config.Config, learning *api.LearningHandler, events *api.EventsHandler, l *applogger.Logger) *xhttp.Server {
	origins := cfg.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return xhttp.NewServer(l.With(applogger.String("component", "http")),
		[]xhttp.Handler{learning, events},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true, origins...),
		xhttp.WithSlowRequestThreshold(cfg.Server.SlowRequestThreshold),
	)
}

// ProvideResources lists the clients App closes on shutdown. Absent clients
// are skipped.
func ProvideResources(rc *cache.RedisCache, s3c *s3blob.Client, pg *postgres.Client, ch *pkgch.Client, producer *pkgkafka.Producer) server.Resources {
	var out server.Resources
	if rc != nil {
		out = append(out, server.Resource{Name: "redis", Closer: rc})
	}
	if s3c != nil {
		out = append(out, server.Resource{Name: "s3", Closer: s3c})
	}
	if pg != nil {
		out = append(out, server.Resource{Name: "postgres", Closer: pg})
	}
	if ch != nil {
		out = append(out, server.Resource{Name: "clickhouse", Closer: ch})
	}
	if producer != nil {
		out = append(out, server.Resource{Name: "kafka", Closer: producer})
	}
	return out
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	engine *usecase.LearningEngine,
	forwarder *usecase.EventForwarder,
	events *api.EventsHandler,
	httpServer *xhttp.Server,
	resources server.Resources,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, engine, forwarder, events, httpServer, resources, l)
}
