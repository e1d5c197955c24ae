package di

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domrepo "CashPilot/internal/domain/repository"
	"CashPilot/internal/handler/api"
	internalrepo "CashPilot/internal/repository"
	"CashPilot/internal/service/ratelimit"
	"CashPilot/internal/usecase"
	"CashPilot/pkg/cache"
	pkgch "CashPilot/pkg/clickhouse"
	"CashPilot/pkg/config"
	xhttp "CashPilot/pkg/http"
	"CashPilot/pkg/http/middleware"
	pkgkafka "CashPilot/pkg/kafka"
	"CashPilot/pkg/logger"
	"CashPilot/pkg/metrics"
	"CashPilot/pkg/queue"
	"CashPilot/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// ProvideLogger builds the process logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(logger.String("env", cfg.Environment)), nil
}

// ProvideLocation resolves the timezone months are bucketed in.
func ProvideLocation(cfg *config.Config) (*time.Location, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("engine timezone: %w", err)
	}
	return loc, nil
}

// ProvideRegistry creates the registry served on the metrics path.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Recorder {
	return metrics.NewWithRegistry(reg)
}

// ProvideLedger opens the configured ledger backend.
func ProvideLedger(cfg *config.Config, l *logger.Logger) (*internalrepo.SQLLedger, func(), error) {
	dialect, err := internalrepo.DialectFor(cfg.Ledger.Driver)
	if err != nil {
		return nil, nil, err
	}

	var db *sql.DB
	if dialect.Name == "clickhouse" {
		client, err := pkgch.NewClient(
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithPool(cfg.Ledger.MaxOpenConns, cfg.Ledger.MaxIdleConns, cfg.Ledger.ConnMaxLifetime),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		db = client.DB()
	} else {
		dsn, err := internalrepo.NormalizeDSN(dialect.Name, cfg.Ledger.DSN)
		if err != nil {
			return nil, nil, err
		}
		db, err = sql.Open(dialect.DriverName, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s ledger: %w", dialect.Name, err)
		}
		db.SetMaxOpenConns(cfg.Ledger.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Ledger.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Ledger.ConnMaxLifetime)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ping %s ledger: %w", dialect.Name, err)
		}
	}

	ledger := internalrepo.NewSQLLedger(db, dialect)
	ledger.SetLogger(l)
	ledger.SetQueryTimeout(cfg.Ledger.QueryTimeout)
	l.Info("ledger connected", logger.String("driver", dialect.Name))

	cleanup := func() {
		if err := db.Close(); err != nil {
			l.Warn("ledger close", logger.Error(err))
		}
	}
	return ledger, cleanup, nil
}

// ProvideRedisClient returns nil when redis is disabled.
func ProvideRedisClient(cfg *config.Config, l *logger.Logger) (*redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := cache.NewRedisClient(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, 2, 30*time.Second),
	)
	if err != nil {
		return nil, nil, err
	}
	l.Info("redis connected", logger.String("addr", cfg.Redis.Addr))
	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("redis close", logger.Error(err))
		}
	}, nil
}

// ProvideCache layers memory over redis, or uses memory alone when redis is off.
func ProvideCache(cfg *config.Config, client *redis.Client) (cache.Service, func()) {
	if client == nil {
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize))
		return mc, func() { _ = mc.Close() }
	}
	lc := cache.NewLayeredCache(
		cache.NewRedisCache(client, cfg.Cache.Prefix),
		cache.WithLayeredMemorySize(cfg.Cache.MemoryMaxSize),
		cache.WithLayeredMemoryTTL(cfg.Cache.MemoryTTL),
	)
	return lc, func() { _ = lc.Close() }
}

// ProvideAlertPublisher publishes to Kafka, or drops alerts when Kafka is disabled.
func ProvideAlertPublisher(cfg *config.Config, rec *metrics.Recorder) (domrepo.AlertPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopAlertPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	producer.SetObserver(rec)
	pub := internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.AlertsTopic)
	return pub, func() { _ = pub.Close() }, nil
}

// ProvideCashFlowUseCase builds the analytics use case used by HTTP, jobs and the CLI.
func ProvideCashFlowUseCase(cfg *config.Config, ledger *internalrepo.SQLLedger, c cache.Service, rec *metrics.Recorder, l *logger.Logger, loc *time.Location) *usecase.CashFlowUseCase {
	return usecase.NewCashFlowUseCase(ledger, c, rec, l, usecase.CashFlowConfig{
		HistoryMonths:     cfg.Engine.HistoryMonths,
		ProjectionPeriods: cfg.Engine.ProjectionPeriods,
		CacheTTL:          cfg.Cache.TTL,
		Timeout:           cfg.Engine.Timeout,
		Location:          loc,
	})
}

// ProvideReportUseCase builds an uncached use case for one-shot runs.
func ProvideReportUseCase(cfg *config.Config, ledger *internalrepo.SQLLedger, l *logger.Logger, loc *time.Location) *usecase.CashFlowUseCase {
	return usecase.NewCashFlowUseCase(ledger, nil, nil, l, usecase.CashFlowConfig{
		HistoryMonths:     cfg.Engine.HistoryMonths,
		ProjectionPeriods: cfg.Engine.ProjectionPeriods,
		Timeout:           cfg.Engine.Timeout,
		Location:          loc,
	})
}

// ProvideRefreshJob builds the background insights refresh job.
func ProvideRefreshJob(cfg *config.Config, uc *usecase.CashFlowUseCase, c cache.Service, pub domrepo.AlertPublisher, l *logger.Logger) *usecase.RefreshJob {
	return usecase.NewRefreshJob(uc, c, pub, l, cfg.Cache.LockTTL)
}

// ProvideQueue returns nil when the queue is disabled.
func ProvideQueue(cfg *config.Config, client *redis.Client, job *usecase.RefreshJob, rec *metrics.Recorder, l *logger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || client == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, queue.Config{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
		PollWait:   cfg.Queue.PollWait,
		JobTimeout: cfg.Queue.JobTimeout,
	}, client,
		queue.WithKeyPrefix(cfg.Queue.Name+":queue"),
		queue.WithObserver(rec),
	)
	q.RegisterJob(job)
	return q
}

// ProvideJobEnqueuer returns a nil interface when there is no queue.
func ProvideJobEnqueuer(q *queue.RedisQueue) domrepo.JobEnqueuer {
	if q == nil {
		return nil
	}
	return usecase.NewQueueRefreshEnqueuer(q)
}

// ProvideLedgerEventsHandler binds the ledger topic to cache invalidation and refresh.
func ProvideLedgerEventsHandler(cfg *config.Config, uc *usecase.CashFlowUseCase, jobs domrepo.JobEnqueuer, l *logger.Logger) *usecase.LedgerEventsHandler {
	return usecase.NewLedgerEventsHandler(cfg.Kafka.LedgerTopic, uc, jobs, l)
}

// ProvideKafkaConsumer returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, h *usecase.LedgerEventsHandler, rec *metrics.Recorder, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.SetObserver(rec)
	consumer.RegisterHandler(h)
	return consumer, nil
}

// ProvideScheduler returns nil when scheduling is disabled or there is no queue to feed.
func ProvideScheduler(cfg *config.Config, ledger *internalrepo.SQLLedger, jobs domrepo.JobEnqueuer, l *logger.Logger, loc *time.Location) *usecase.RefreshScheduler {
	if !cfg.Scheduler.Enabled || jobs == nil {
		return nil
	}
	return usecase.NewRefreshScheduler(ledger, jobs, l, usecase.SchedulerConfig{
		Spec:           cfg.Scheduler.Spec,
		LookbackMonths: cfg.Scheduler.LookbackMonths,
		Location:       loc,
	})
}

// ProvideLimiter returns a nil interface when rate limiting is off.
func ProvideLimiter(cfg *config.Config) middleware.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.Refill)
}

// ProvideCashFlowHandler builds the cash-flow HTTP handler.
func ProvideCashFlowHandler(cfg *config.Config, l *logger.Logger, uc *usecase.CashFlowUseCase, jobs domrepo.JobEnqueuer, limiter middleware.Limiter) *api.CashFlowEchoHandler {
	return api.NewCashFlowEchoHandler(l, uc, jobs, limiter, api.StreamConfig{
		Interval:     cfg.Stream.Interval,
		PingInterval: cfg.Stream.PingInterval,
		WriteTimeout: cfg.Stream.WriteTimeout,
	})
}

// ProvideHTTPServer creates the Echo server.
func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, reg *prometheus.Registry, h *api.CashFlowEchoHandler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(reg, cfg.Metrics.Path, cfg.Metrics.SlowThreshold))
	}
	return xhttp.NewServer(l, []xhttp.Handler{h}, opts...)
}

// ProvideApp assembles the process lifecycle. Consumers start after the queue they feed.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	srv *xhttp.Server,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	sched *usecase.RefreshScheduler,
) *server.App {
	return server.New(l, cfg.Server.ShutdownTimeout).
		Add("queue", q).
		Add("kafka-consumer", consumer).
		Add("scheduler", sched).
		Add("http", srv)
}
