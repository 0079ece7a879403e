package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Application
	"github.com/dreschagin/monitoring-core/internal/application/alerting"
	"github.com/dreschagin/monitoring-core/internal/application/broadcast"
	"github.com/dreschagin/monitoring-core/internal/application/dto"
	"github.com/dreschagin/monitoring-core/internal/application/history"
	"github.com/dreschagin/monitoring-core/internal/application/port"
	"github.com/dreschagin/monitoring-core/internal/application/registry"
	"github.com/dreschagin/monitoring-core/internal/application/report"
	"github.com/dreschagin/monitoring-core/internal/application/thresholds"
	"github.com/dreschagin/monitoring-core/internal/application/usecase"

	// Domain
	"github.com/dreschagin/monitoring-core/internal/domain/entity"
	"github.com/dreschagin/monitoring-core/internal/domain/repository"
	"github.com/dreschagin/monitoring-core/internal/domain/service"
	"github.com/dreschagin/monitoring-core/internal/domain/valueobject"

	// Infrastructure
	rediscache "github.com/dreschagin/monitoring-core/internal/infrastructure/cache/redis"
	"github.com/dreschagin/monitoring-core/internal/infrastructure/collector"
	natsInfra "github.com/dreschagin/monitoring-core/internal/infrastructure/messaging/nats"
	sesInfra "github.com/dreschagin/monitoring-core/internal/infrastructure/notification/ses"
	wsInfra "github.com/dreschagin/monitoring-core/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/monitoring-core/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/monitoring-core/internal/infrastructure/observability/metrics"
	dynamodbRepo "github.com/dreschagin/monitoring-core/internal/infrastructure/persistence/dynamodb"
	"github.com/dreschagin/monitoring-core/internal/infrastructure/persistence/memory"
	"github.com/dreschagin/monitoring-core/internal/infrastructure/persistence/postgres"
	s3storage "github.com/dreschagin/monitoring-core/internal/infrastructure/storage/s3"

	// Interfaces
	httpInterface "github.com/dreschagin/monitoring-core/internal/interfaces/http"
	"github.com/dreschagin/monitoring-core/internal/interfaces/http/handler"
	"github.com/dreschagin/monitoring-core/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/monitoring-core/pkg/config"
	"github.com/dreschagin/monitoring-core/pkg/logger"
)

// repositories набор хранилищ, выбранный конфигурацией
type repositories struct {
	alerts     repository.AlertRepository
	thresholds repository.ThresholdRepository
	history    repository.HistoryRepository
	reports    repository.ReportJobRepository
}

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	seed, err := config.LoadSeed(cfg.SeedFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load seed: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(cfg.Server.LogLevel)
	log.Info("Starting Monitoring Core")

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	var logsPublisher *cloudwatch.LogsPublisher
	if cfg.CloudWatch.LogsEnabled {
		logsPublisher, err = cloudwatch.NewLogsPublisher(initCtx, cloudwatch.LogsPublisherConfig{
			LogGroupName:    cfg.CloudWatch.LogGroupName,
			LogStreamName:   cfg.CloudWatch.LogStreamName,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			Service:         "monitoring-core",
			BufferSize:      cfg.CloudWatch.LogsBufferSize,
			FlushInterval:   cfg.CloudWatch.LogsFlushInterval,
			AutoCreate:      true,
		})
		if err != nil {
			log.Error("Failed to initialize CloudWatch logs", err)
			os.Exit(1)
		}
		log.SetLogPublisher(logsPublisher)
		log.Info("CloudWatch logs enabled", "group", cfg.CloudWatch.LogGroupName)
	}

	// 3. Метрики процесса
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	telemetry := metrics.New(promRegistry)

	readiness := make(map[string]httpInterface.ReadinessCheck)

	// 4. Dependency Injection - Infrastructure Layer

	// Repositories
	repos := repositories{
		alerts:     memory.NewAlertRepository(),
		thresholds: memory.NewThresholdRepository(),
		history:    memory.NewHistoryRepository(),
		reports:    memory.NewReportJobRepository(),
	}

	var db *sqlx.DB
	if cfg.Database.Enabled {
		db, err = postgres.Open(initCtx, postgres.Config{
			URL:             cfg.Database.DSN(),
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			log.Error("Failed to connect to database", err)
			os.Exit(1)
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(db); err != nil {
				log.Error("Failed to apply migrations", err)
				os.Exit(1)
			}
			log.Info("Database migrations applied")
		}

		repos = repositories{
			alerts:     postgres.NewAlertRepository(db),
			thresholds: postgres.NewThresholdRepository(db),
			history:    postgres.NewHistoryRepository(db),
			reports:    postgres.NewReportJobRepository(db),
		}
		readiness["postgres"] = db.PingContext
		log.Info("Database connected successfully")
	} else {
		log.Warn("Database is disabled, state is kept in memory only")
	}

	if cfg.Dynamo.Enabled {
		jobs, err := dynamodbRepo.NewReportJobRepository(initCtx, dynamodbRepo.Config{
			TableName:       cfg.Dynamo.TableReportJobs,
			Region:          cfg.Dynamo.Region,
			Endpoint:        cfg.Dynamo.Endpoint,
			AccessKeyID:     cfg.Dynamo.AccessKeyID,
			SecretAccessKey: cfg.Dynamo.SecretAccessKey,
			StrongReads:     cfg.Dynamo.StrongReads,
		})
		if err != nil {
			log.Error("Failed to initialize DynamoDB report jobs", err)
			os.Exit(1)
		}
		repos.reports = jobs
		log.Info("Report jobs stored in DynamoDB", "table", cfg.Dynamo.TableReportJobs)
	}

	// Cache
	var historyCache port.Cache
	if cfg.Redis.Enabled {
		cache, err := rediscache.NewRedisCache(initCtx, rediscache.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			log.Error("Failed to connect to Redis", err)
			os.Exit(1)
		}
		defer cache.Close()
		historyCache = cache
		readiness["redis"] = cache.Ping
		log.Info("Redis history cache enabled", "addr", cfg.Redis.Addr)
	}

	// Broadcaster
	broadcaster := broadcast.New(broadcast.Config{
		QueueCapacity:        cfg.Broadcast.QueueCapacity,
		ConsecutiveDropLimit: cfg.Broadcast.ConsecutiveDropLimit,
	}, telemetry, log)

	// Outbound channels
	var (
		notifiers  []port.AlertNotifier
		deliveries []port.ReportDelivery
		forwarder  *natsInfra.Forwarder
	)

	if cfg.NATS.Enabled {
		publisher, err := natsInfra.NewNATSPublisher(natsInfra.Options{
			URL:        cfg.NATS.URL,
			StreamName: cfg.NATS.Stream,
		}, log)
		if err != nil {
			log.Error("Failed to connect to NATS", err)
			os.Exit(1)
		}
		defer publisher.Close()
		notifiers = append(notifiers, natsInfra.NewAlertNotifier(publisher))
		forwarder = natsInfra.NewForwarder(broadcaster, publisher, cfg.NATS.ForwardMetrics, log)
		log.Info("NATS event stream enabled", "stream", cfg.NATS.Stream)
	}

	if cfg.SES.Enabled {
		mailer, err := sesInfra.NewMailer(initCtx, sesInfra.Config{
			Region:          cfg.SES.Region,
			Endpoint:        cfg.SES.Endpoint,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			From:            cfg.SES.From,
		})
		if err != nil {
			log.Error("Failed to initialize SES mailer", err)
			os.Exit(1)
		}
		if len(cfg.SES.AlertRecipients) > 0 {
			notifiers = append(notifiers, sesInfra.NewAlertNotifier(mailer, cfg.SES.AlertRecipients))
		}
		deliveries = append(deliveries, sesInfra.NewReportDelivery(mailer))
		log.Info("SES e-mail delivery enabled", "from", cfg.SES.From)
	}

	if cfg.S3.Enabled {
		storage, err := s3storage.NewReportStorage(initCtx, s3storage.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			log.Error("Failed to initialize S3 report storage", err)
			os.Exit(1)
		}
		deliveries = append(deliveries, storage)
		log.Info("S3 report archive enabled", "bucket", cfg.S3.Bucket)
	}

	if len(deliveries) == 0 {
		log.Warn("No report delivery channel is configured, report runs will fail")
	}

	var exporter port.MetricsPublisher
	var metricsPublisher *cloudwatch.MetricsPublisher
	if cfg.CloudWatch.MetricsEnabled {
		metricsPublisher, err = cloudwatch.NewMetricsPublisher(initCtx, cloudwatch.MetricsPublisherConfig{
			Namespace:         cfg.CloudWatch.MetricsNamespace,
			Region:            cfg.CloudWatch.Region,
			Endpoint:          cfg.CloudWatch.Endpoint,
			AccessKeyID:       cfg.CloudWatch.AccessKeyID,
			SecretAccessKey:   cfg.CloudWatch.SecretAccessKey,
			DefaultDimensions: cfg.CloudWatch.MetricsDimensions,
			BufferSize:        cfg.CloudWatch.MetricsBufferSize,
			FlushInterval:     cfg.CloudWatch.MetricsFlushInterval,
			StorageResolution: cfg.CloudWatch.MetricsStorageResolution,
		}, log)
		if err != nil {
			log.Error("Failed to initialize CloudWatch metrics", err)
			os.Exit(1)
		}
		exporter = metricsPublisher
		log.Info("CloudWatch metrics export enabled", "namespace", cfg.CloudWatch.MetricsNamespace)
	}

	// Sources
	sources := buildSources(cfg, db)
	if len(sources) == 0 {
		log.Error("No metric sources configured", nil)
		os.Exit(1)
	}

	// WebSocket Hub
	hub := wsInfra.NewHub(broadcaster, log)

	// 5. Dependency Injection - Domain Layer

	validator := service.NewMetricValidator(cfg.Monitoring.MaxClockSkew)
	evaluator := service.NewThresholdEvaluator()

	// 6. Dependency Injection - Application Layer

	reg := registry.New(cfg.Monitoring.RegistryCapacity)

	historyAgg := history.New(history.Config{
		Resolution:    cfg.History.Resolution,
		Retention:     cfg.History.Retention,
		PersistQueue:  cfg.History.PersistQueue,
		FlushInterval: cfg.History.FlushInterval,
	}, repos.history, telemetry, log)
	reg.AddObserver(historyAgg)

	store := thresholds.NewStore(repos.thresholds, log)
	if err := store.Load(initCtx); err != nil {
		log.Error("Failed to load thresholds", err)
		os.Exit(1)
	}

	minSeverity, err := valueobject.ParseSeverity(cfg.Notifications.MinSeverity)
	if err != nil {
		log.Error("Invalid notification severity", err)
		os.Exit(1)
	}
	alerts := alerting.NewManager(repos.alerts, broadcaster, notifiers, telemetry, alerting.Config{
		ResolvedRetention: cfg.History.ResolvedAlertCap,
		Policy: alerting.NotificationPolicy{
			MinSeverity: minSeverity,
			Channels:    cfg.Notifications.Channels,
			Timeout:     cfg.Notifications.Timeout,
		},
	}, log)
	if err := alerts.Restore(initCtx); err != nil {
		log.Error("Failed to restore open alerts", err)
		os.Exit(1)
	}

	scheduler := report.NewScheduler(
		repos.reports,
		historyAgg,
		alerts,
		reg,
		deliveries,
		telemetry,
		report.Config{
			TickInterval:    cfg.Reports.TickInterval,
			DeliveryTimeout: cfg.Reports.DeliveryTimeout,
			SeriesPoints:    cfg.Reports.SeriesPoints,
		},
		log,
	)

	if err := applySeed(initCtx, seed, store, scheduler, log); err != nil {
		log.Error("Failed to apply seed", err)
		os.Exit(1)
	}

	collectMetricsUC := usecase.NewCollectMetricsUseCase(
		sources,
		reg,
		broadcaster,
		exporter,
		validator,
		telemetry,
		usecase.CollectMetricsConfig{
			Interval:  cfg.Monitoring.CollectionInterval,
			Timeout:   cfg.Monitoring.SampleTimeout,
			Intervals: cfg.Monitoring.SourceIntervals,
		},
		log,
	)
	evaluateThresholdsUC := usecase.NewEvaluateThresholdsUseCase(
		reg,
		store,
		evaluator,
		alerts,
		cfg.Monitoring.EvaluationInterval,
		cfg.Monitoring.StaleAfter,
		log,
	)

	// 7. Dependency Injection - Interfaces Layer (HTTP Handlers)

	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
	}

	handlers := httpInterface.Handlers{
		Thresholds: handler.NewThresholdHandler(usecase.NewManageThresholdsUseCase(store, log), log),
		Alerts:     handler.NewAlertHandler(usecase.NewManageAlertsUseCase(alerts, log), authConfig, log),
		Reports:    handler.NewReportHandler(usecase.NewManageReportsUseCase(scheduler, log), log),
		Metrics: handler.NewMetricsAPIHandler(
			usecase.NewGetCurrentMetricsUseCase(reg, log),
			usecase.NewGetMetricHistoryUseCase(historyAgg, historyCache, log),
			cfg.History.DefaultBucket,
			cfg.History.MaxQueryRange,
			log,
		),
		HealthCheck: handler.NewHealthCheckHandler(
			usecase.NewRunHealthCheckUseCase(collectMetricsUC, evaluateThresholdsUC, log),
			log,
		),
		WebSocket: handler.NewWebSocketHandler(hub, cfg.Security.AllowedOrigins, authConfig, log),
		Auth:      handler.NewAuthAPIHandler(authConfig, cfg.Security.CookieTTL, log),
	}

	router := httpInterface.NewRouter(handlers, cfg.Security, telemetry, promRegistry, readiness, log)
	defer router.Close()

	// 8. Запускаем фоновые процессы

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var workers sync.WaitGroup
	runWorker := func(name string, run func(context.Context)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			log.Info("Worker started", "worker", name)
			run(ctx)
			log.Info("Worker stopped", "worker", name)
		}()
	}

	runWorker("collector", collectMetricsUC.Run)
	runWorker("evaluator", evaluateThresholdsUC.Run)
	runWorker("history", historyAgg.Run)
	runWorker("reports", scheduler.Run)
	if forwarder != nil {
		runWorker("nats-forwarder", forwarder.Run)
	}

	// 9. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port, "sources", len(sources))

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 10. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Останавливаем циклы сбора и дожидаемся финального сброса истории
	cancel()
	workers.Wait()

	// Подписчики получают закрытие очередей, уведомления дописываются
	broadcaster.Close()
	alerts.Wait()

	if metricsPublisher != nil {
		if err := metricsPublisher.Close(shutdownCtx); err != nil {
			log.Error("CloudWatch metrics flush failed", err)
		}
	}

	log.Info("Server stopped gracefully", "ws_clients", hub.ClientCount())

	if logsPublisher != nil {
		log.SetLogPublisher(nil)
		if err := logsPublisher.Close(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "CloudWatch logs flush failed: %v\n", err)
		}
	}
}

// buildSources собирает источники метрик из конфигурации
func buildSources(cfg *config.Config, db *sqlx.DB) []port.MetricSource {
	var sources []port.MetricSource

	if cfg.Monitoring.SystemSource {
		sources = append(sources, collector.NewSystemSource(
			cfg.Monitoring.SystemSourceID,
			cfg.Monitoring.CPUWindow,
			cfg.Monitoring.DiskMounts...,
		))
	}

	probeClient := &http.Client{Timeout: cfg.Monitoring.SampleTimeout}
	for name, url := range cfg.Monitoring.HTTPProbes {
		sources = append(sources, collector.NewHTTPProbeSource(name, url, probeClient))
	}

	if db != nil && cfg.Database.AsSource {
		sources = append(sources, collector.NewDatabaseSource("postgres", db))
	}

	return sources
}

// applySeed заводит пороги и задачи отчетов, которых еще нет в хранилищах
func applySeed(ctx context.Context, seed *config.Seed, store *thresholds.Store, scheduler *report.Scheduler, log *logger.Logger) error {
	configs := make([]*entity.ThresholdConfig, 0, len(seed.Thresholds))
	for _, t := range seed.Thresholds {
		req := dto.ThresholdRequest{
			InfoLevel:          t.Info,
			WarningLevel:       t.Warning,
			CriticalLevel:      t.Critical,
			Comparison:         t.Comparison,
			HysteresisPct:      t.HysteresisPct,
			HysteresisAbsolute: t.HysteresisAbsolute,
		}
		c, err := entity.NewThresholdConfig(req.ToParams(t.MetricKey))
		if err != nil {
			return fmt.Errorf("threshold %s: %w", t.MetricKey, err)
		}
		configs = append(configs, c)
	}
	if err := store.Seed(ctx, configs); err != nil {
		return err
	}

	params := make([]entity.ReportJobParams, 0, len(seed.Reports))
	for _, r := range seed.Reports {
		req := dto.ReportJobRequest{
			Name:       r.Name,
			Cadence:    r.Cadence,
			Recipients: r.Recipients,
			Sections:   r.Sections,
			MetricKeys: r.MetricKeys,
			Enabled:    r.Enabled,
		}
		p, err := req.ToParams()
		if err != nil {
			return fmt.Errorf("report %s: %w", r.Name, err)
		}
		params = append(params, p)
	}
	created, err := scheduler.SeedJobs(ctx, params)
	if err != nil {
		return err
	}

	log.Info("Seed applied", "thresholds", len(configs), "reports_created", created)
	return nil
}
