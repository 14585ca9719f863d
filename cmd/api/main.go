package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/ligue-crm/internal/infra/config"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
	"github.com/xavierca1/ligue-crm/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/kommo"
	"github.com/xavierca1/ligue-crm/internal/infra/logger"
	"github.com/xavierca1/ligue-crm/internal/infra/mail"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
	"github.com/xavierca1/ligue-crm/internal/infra/worker"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "ligue-crm")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	if err := run(cfg, logg); err != nil {
		logg.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := middleware.BusinessMetrics{}

	// 1. Stores
	var (
		db       *sql.DB
		leadRepo usecase.LeadRepository
		users    usecase.UserDirectory
	)
	switch cfg.Store {
	case config.StorePostgres:
		conn, err := database.NewDBConnection(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := database.Migrate(ctx, conn); err != nil {
			return err
		}
		db = conn
		leadRepo = database.NewLeadRepository(conn)
		users = database.NewUserRepository(conn)
	default:
		logg.Warn("using in-memory lead store; data is lost on restart")
		leadRepo = database.NewMemoryLeadRepository()
		users = database.NewMemoryUserRepository()
	}

	g, gctx := errgroup.WithContext(ctx)

	// 2. Messaging and CRM sync
	var (
		publisher usecase.LeadEventPublisher
		rabbitMQ  *queue.RabbitMQ
	)
	if cfg.RabbitMQURL != "" {
		rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		defer rmq.Close()
		rabbitMQ = rmq
		publisher = queue.NewProducer(rmq.Ch)

		crm := kommo.NewClient(cfg.KommoAPIToken, cfg.KommoBaseURL, logg.Named("kommo"))
		conversions := queue.NewWorker(rmq.Ch, crm, metrics, logg.Named("worker"))
		g.Go(func() error { return conversions.Start(gctx, queue.ConversionQueue) })
	} else {
		logg.Warn("RABBITMQ_URL not set; lead events are not published")
	}

	// 3. Follow-up digest
	if cfg.Mail.Enabled() {
		sender := mail.NewEmailSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.From)
		digest := worker.NewFollowUpDigestWorker(leadRepo, users, sender, cfg.FollowUpDigestCron, cfg.Location, logg.Named("digest"))
		g.Go(func() error { return digest.Start(gctx) })
	}

	// 4. Rate limiting
	var (
		limiter middleware.Limiter
		rdb     *redis.Client
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, time.Minute)
	} else {
		mem := middleware.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
		go mem.Cleanup(ctx, 10*time.Minute)
		limiter = mem
	}

	// 5. Use cases
	lifecycle := usecase.NewLeadLifecycleUseCase(leadRepo, users, publisher, metrics, cfg.Location, logg.Named("leads"))
	notes := usecase.NewAddNoteUseCase(leadRepo, users, logg.Named("notes"))
	analytics := usecase.NewAnalyticsUseCase(leadRepo, cfg.Location, logg.Named("analytics"))

	// 6. HTTP
	var health *handlers.HealthHandler
	if rabbitMQ != nil {
		health = handlers.NewHealthHandler(db, rabbitMQ.Conn, rdb)
	} else {
		health = handlers.NewHealthHandler(db, nil, rdb)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Leads:          handlers.NewLeadHandler(lifecycle, notes, logg.Named("http")),
		Analytics:      handlers.NewAnalyticsHandler(analytics, metrics, logg.Named("http")),
		Health:         health,
		Limiter:        limiter,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logg.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logg.Info("http server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logg.Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
