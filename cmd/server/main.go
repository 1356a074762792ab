package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/maintenance-engine/internal/adapter/handler"
	"github.com/rl1809/maintenance-engine/internal/adapter/messaging"
	"github.com/rl1809/maintenance-engine/internal/adapter/storage"
	"github.com/rl1809/maintenance-engine/internal/core/service"
	"github.com/rl1809/maintenance-engine/internal/infra/config"
	"github.com/rl1809/maintenance-engine/internal/infra/logger"
	"github.com/rl1809/maintenance-engine/internal/infra/metrics"
	"github.com/rl1809/maintenance-engine/internal/port"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.App.Env, cfg.Log.Level)
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	var (
		db    port.DatabaseRepository
		sqlDB *sqlx.DB
	)
	switch cfg.Storage.Driver {
	case "memory":
		db = storage.NewMemoryAdapter()
		log.Warn("using in-memory storage, data is lost on restart")
	default:
		sqlDB, err = sqlx.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			fatal(log, "open mysql", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
		if err := sqlDB.PingContext(ctx); err != nil {
			fatal(log, "ping mysql", err)
		}
		log.Info("connected to mysql")

		if cfg.MySQL.Migrate {
			if err := storage.Migrate(sqlDB.DB); err != nil {
				fatal(log, "migrate mysql", err)
			}
			log.Info("migrations applied")
		}
		db = storage.NewMySQLAdapter(sqlDB)
	}

	// Cache
	var (
		cache port.CacheRepository
		rdb   *redis.Client
	)
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			fatal(log, "ping redis", err)
		}
		log.Info("connected to redis")
		cache = storage.NewRedisAdapter(rdb, cfg.Redis.StatsTTL)
	} else {
		cache = storage.NewMemoryCache(cfg.Redis.StatsTTL)
	}

	// Events
	var events port.EventPublisher
	if cfg.Kafka.Enabled {
		events = messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info("publishing events to kafka", "topic", cfg.Kafka.Topic)
	} else {
		events = messaging.NewLogPublisher(log)
	}

	m := metrics.New()

	policy, err := service.ParsePromotionPolicy(cfg.Promotion.FailurePolicy)
	if err != nil {
		fatal(log, "promotion policy", err)
	}
	clock := service.Clock{Location: cfg.Location()}
	engine := service.NewMaintenanceService(db, cache, events, service.Options{
		Clock:           clock,
		PromotionPolicy: policy,
		Logger:          log,
		Metrics:         m,
	})
	queries := service.NewQueryService(db, cache, clock, log)

	poller := service.NewReminderPoller(queries, engine, cache, events, service.PollerConfig{
		Interval: cfg.Reminders.Interval,
		Clock:    clock,
		Logger:   log,
		Metrics:  m,
	})
	if cfg.Reminders.Enabled {
		if err := poller.Start(ctx); err != nil {
			fatal(log, "start reminder poller", err)
		}
	}

	// gRPC server
	grpcServer := grpc.NewServer()
	handler.RegisterMaintenanceServiceServer(grpcServer, handler.NewGRPCHandler(engine, queries))

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		fatal(log, "listen grpc", err)
	}
	go func() {
		log.Info("gRPC server listening", "addr", cfg.GRPC.Addr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", "err", err)
		}
	}()

	// HTTP server
	router := mux.NewRouter()
	router.Use(handler.Instrument(m, log))
	handler.NewHTTPHandler(engine, queries, log).RegisterRoutes(router)
	if cfg.Metrics.Enabled {
		router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "err", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown", "err", err)
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	poller.Stop()
	cancel()

	if err := events.Close(); err != nil {
		log.Error("close event publisher", "err", err)
	}
	if rdb != nil {
		rdb.Close()
	}
	if sqlDB != nil {
		sqlDB.Close()
	}
	log.Info("connections closed")
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "err", err)
	os.Exit(1)
}
