package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/KeviinASD/audi-back/internal/aiprovider"
	"github.com/KeviinASD/audi-back/internal/common/database"
	"github.com/KeviinASD/audi-back/internal/common/logger"
	commonmqtt "github.com/KeviinASD/audi-back/internal/common/mqtt"
	rediscommon "github.com/KeviinASD/audi-back/internal/common/redis"
	"github.com/KeviinASD/audi-back/internal/config"
	httpapi "github.com/KeviinASD/audi-back/internal/http"
	"github.com/KeviinASD/audi-back/internal/metrics"
	analysismqtt "github.com/KeviinASD/audi-back/internal/mqtt"
	"github.com/KeviinASD/audi-back/internal/repository"
	"github.com/KeviinASD/audi-back/internal/service"
	"github.com/KeviinASD/audi-back/internal/store"
)

const serviceName = "audi-back"

type repositories struct {
	equipment repository.EquipmentRepository
	labs      repository.LaboratoryRepository
	snapshots service.SnapshotRepos
	findings  repository.FindingsRepository
	reports   repository.ReportsRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	m := metrics.New()

	var db *sql.DB
	if cfg.DBEnabled {
		db, err = database.NewPostgresDB(&cfg.Database)
		if err != nil {
			log.Warn("Database unavailable, falling back to in-memory repositories", zap.Error(err))
			db = nil
		}
	}
	var repos repositories
	if db != nil {
		repos = postgresRepositories(db)
	} else {
		repos = memoryRepositories(cfg.SeedFile, log)
	}

	var (
		redisClient *redis.Client
		kv          store.KV
		events      service.EventPublisher
	)
	if cfg.RedisEnabled {
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		redisClient, err = rediscommon.Connect(pingCtx, &cfg.Redis)
		cancel()
		if err != nil {
			log.Warn("Redis unavailable, heat-map cache and audit events disabled", zap.Error(err))
		} else {
			kv = store.NewRedisKV(redisClient)
			events = service.NewStreamEventPublisher(redisClient, cfg.Events.Stream)
		}
	}

	consolidator := service.NewDailyConsolidatorService(repos.equipment, repos.labs, repos.snapshots, service.ConsolidatorOptions{
		RiskyScope: service.RiskySoftwareScope(cfg.Audit.RiskySoftwareScope),
		Cache:      kv,
		CacheTTL:   time.Duration(cfg.Audit.HeatMapCacheTTL) * time.Second,
		Metrics:    m,
	}, log)
	analysis := service.NewAIAnalysisService(service.AIAnalysisDeps{
		Consolidator: consolidator,
		Equipment:    repos.equipment,
		Laboratories: repos.labs,
		Reports:      repos.reports,
		Findings:     repos.findings,
		Providers:    buildProviders(cfg, log),
		ProviderName: cfg.AI.Provider,
		Events:       events,
		Metrics:      m,
	}, log)
	findings := service.NewFindingService(repos.findings, repos.equipment, service.FindingServiceOptions{
		RecurringMinFindings: cfg.Audit.RecurringMinFindings,
		Events:               events,
		Metrics:              m,
	}, log)
	agent := service.NewAgentSyncService(service.AgentSyncDeps{
		APIKey:      cfg.Agent.APIKey,
		Equipment:   repos.equipment,
		Snapshots:   repos.snapshots,
		Invalidator: consolidator,
		Events:      events,
		Metrics:     m,
	}, log)
	if cfg.Agent.APIKey == "" {
		log.Warn("AGENT_API_KEY is empty, every agent sync will be rejected")
	}

	router := httpapi.NewRouter(log)
	router.RegisterAuditAnalysisRoutes(httpapi.NewAuditAnalysisHandler(consolidator, analysis, findings, log))
	router.RegisterAgentRoutes(httpapi.NewAgentSyncHandler(agent, log))
	router.RegisterOpsRoutes(metrics.Handler())

	var (
		mqttClient *commonmqtt.Client
		broker     *analysismqtt.AnalysisMQTTBroker
	)
	if cfg.MQTT.Enabled {
		mqttClient, err = commonmqtt.NewClient(&cfg.MQTT.MQTTConfig, log)
		if err != nil {
			log.Error("MQTT unavailable, analysis trigger disabled", zap.Error(err))
		} else {
			broker = analysismqtt.NewAnalysisMQTTBroker(analysis, mqttClient, cfg.MQTT.Topic, cfg.MQTT.QoS, log)
			if err := broker.Start(); err != nil {
				log.Error("Failed to start analysis MQTT broker", zap.Error(err))
				broker = nil
			}
		}
	}

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if broker != nil {
		broker.Stop()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	_ = rediscommon.Close(redisClient)
	_ = database.Close(db)
}

func postgresRepositories(db *sql.DB) repositories {
	return repositories{
		equipment: repository.NewPostgresEquipmentRepository(db),
		labs:      repository.NewPostgresLaboratoryRepository(db),
		snapshots: service.SnapshotRepos{
			Hardware:    repository.NewPostgresHardwareSnapshotRepository(db),
			Security:    repository.NewPostgresSecuritySnapshotRepository(db),
			Performance: repository.NewPostgresPerformanceSnapshotRepository(db),
			Software:    repository.NewPostgresSoftwareRepository(db),
		},
		findings: repository.NewPostgresFindingsRepository(db),
		reports:  repository.NewPostgresReportsRepository(db),
	}
}

func memoryRepositories(seedFile string, log *zap.Logger) repositories {
	labs := repository.NewMemoryLaboratoryRepository()
	equipment := repository.NewMemoryEquipmentRepository(labs)
	software := repository.NewMemorySoftwareRepository()

	if seedFile != "" {
		seed, err := repository.LoadSeedFile(seedFile)
		if err != nil {
			log.Warn("Ignoring seed file", zap.String("path", seedFile), zap.Error(err))
		} else {
			seed.Apply(labs, equipment, software)
			log.Info("Loaded registry seed",
				zap.Int("laboratories", len(seed.Laboratories)),
				zap.Int("equipment", len(seed.Equipment)),
				zap.Int("authorized_software", len(seed.AuthorizedSoftware)),
			)
		}
	}

	return repositories{
		equipment: equipment,
		labs:      labs,
		snapshots: service.SnapshotRepos{
			Hardware:    repository.NewMemoryHardwareSnapshotRepository(),
			Security:    repository.NewMemorySecuritySnapshotRepository(),
			Performance: repository.NewMemoryPerformanceSnapshotRepository(),
			Software:    software,
		},
		findings: repository.NewMemoryFindingsRepository(equipment),
		reports:  repository.NewMemoryReportsRepository(),
	}
}

// buildProviders registers every provider that has an API key.
func buildProviders(cfg *config.Config, log *zap.Logger) *aiprovider.Registry {
	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	var providers []aiprovider.Provider
	if cfg.AI.OpenAI.APIKey != "" {
		providers = append(providers, aiprovider.NewOpenAIProvider(cfg.AI.OpenAI.BaseURL, cfg.AI.OpenAI.APIKey, cfg.AI.OpenAI.Model, timeout, log))
	}
	if cfg.AI.Anthropic.APIKey != "" {
		providers = append(providers, aiprovider.NewClaudeProvider(cfg.AI.Anthropic.BaseURL, cfg.AI.Anthropic.APIKey, cfg.AI.Anthropic.Model, timeout, log))
	}
	registry := aiprovider.NewRegistry(cfg.AI.Provider, providers...)
	if registry.Default() == nil {
		log.Warn("Default AI provider has no API key configured", zap.String("provider", registry.DefaultName()))
	}
	log.Info("AI providers registered", zap.Strings("providers", registry.Names()))
	return registry
}
