package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/5-VED/notification-dispatcher/adapters"
	"github.com/5-VED/notification-dispatcher/config"
	"github.com/5-VED/notification-dispatcher/database"
	"github.com/5-VED/notification-dispatcher/dispatcher"
	"github.com/5-VED/notification-dispatcher/events"
	"github.com/5-VED/notification-dispatcher/handlers"
	"github.com/5-VED/notification-dispatcher/metrics"
	"github.com/5-VED/notification-dispatcher/middleware"
	"github.com/5-VED/notification-dispatcher/models"
	"github.com/5-VED/notification-dispatcher/queue"
	"github.com/5-VED/notification-dispatcher/repositories"
	"github.com/5-VED/notification-dispatcher/resolver"
	"github.com/5-VED/notification-dispatcher/workers"
)

// App mirrors the teacher's App struct: a single owner for every
// component's lifecycle, wired once at startup and torn down once at
// shutdown.
type App struct {
	config *config.Config
	logger *zap.Logger

	db    *gorm.DB
	redis *database.RedisDB

	notifRepo repositories.NotificationRepository
	resolver  resolver.Resolver

	queues     *queue.Manager
	dispatcher *dispatcher.Dispatcher
	metrics    *metrics.Collector
	kafka      *events.KafkaClient
	ingestor   *events.Ingestor

	router *gin.Engine
	server *http.Server

	runCancel context.CancelFunc
}

// NewApp builds an App bound to cfg.
func NewApp(cfg *config.Config, logger *zap.Logger) *App {
	return &App{config: cfg, logger: logger}
}

// Initialize wires every component in dependency order: store, queues,
// dispatch pipeline, event ingestor, HTTP router.
func (a *App) Initialize() error {
	if err := a.initStore(); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	a.initQueues()
	a.initDispatchPipeline()
	if err := a.initEvents(); err != nil {
		return fmt.Errorf("init events: %w", err)
	}
	a.initRouter()
	a.initServer()

	a.logger.Info("notification dispatcher initialized", zap.Int("port", a.config.Server.Port))
	return nil
}

func (a *App) initStore() error {
	db, err := database.NewPostgres(a.config.Database, a.config.Debug, a.logger)
	if err != nil {
		return err
	}
	a.db = db

	redisDB, err := database.NewRedisDB(a.config.Redis)
	if err != nil {
		return err
	}
	a.redis = redisDB

	return nil
}

func (a *App) initQueues() {
	a.queues = queue.NewManager(a.redis, a.config.Queue)
}

func (a *App) initDispatchPipeline() {
	a.notifRepo = repositories.NewNotificationRepository(a.db)
	prefRepo := repositories.NewPreferenceRepository(a.db)
	a.resolver = resolver.New(prefRepo, a.logger)

	a.dispatcher = dispatcher.New(a.notifRepo, a.resolver, a.queues, a.logger)
	a.metrics = metrics.New(a.queues)
}

func (a *App) initEvents() error {
	kafkaClient, err := events.NewKafkaClient(a.config.Kafka, a.logger)
	if err != nil {
		return err
	}
	a.kafka = kafkaClient
	a.ingestor = events.New(kafkaClient, a.dispatcher, a.logger)
	return nil
}

func (a *App) initRouter() {
	if !a.config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(a.logger))
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())

	rateLimiter := middleware.NewRateLimiter(a.redis, 300, time.Minute)
	r.Use(rateLimiter.Middleware())

	h := handlers.New(a.dispatcher, a.notifRepo, a.resolver, a.metrics, a.logger)
	h.RegisterRoutes(r)

	a.router = r
}

func (a *App) initServer() {
	addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
	a.server = &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}
}

// Run starts the HTTP server, the channel worker pools, the metrics
// collector and the event ingestor, all in background goroutines.
func (a *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	a.runCancel = cancel

	channelAdapters := map[models.Channel]adapters.ChannelAdapter{
		models.ChannelEmail: adapters.NewEmailAdapter(a.config.SMTP),
		models.ChannelPush:  adapters.NewPushAdapter(a.config.Push),
		models.ChannelSMS:   adapters.NewSMSAdapter(a.config.SMS),
	}

	for ch, adapter := range channelAdapters {
		pool := workers.NewPool(ch, a.queues.For(ch), a.notifRepo, a.resolver, adapter, a.metrics, a.logger)
		go pool.Run(ctx, a.config.Queue.WorkerCount)
	}

	go a.metrics.Run(ctx)
	go a.ingestor.Run(ctx)

	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal("http server failed", zap.Error(err))
		}
	}()
}

// Shutdown tears down the HTTP server, cancels all background workers,
// and closes the store connections. Only the HTTP server shutdown is bounded
// by ctx's deadline; background workers and consumers are cancelled without
// waiting for their in-flight jobs or messages to finish.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down notification dispatcher")

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if a.runCancel != nil {
		a.runCancel()
	}

	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Warn("error closing kafka client", zap.Error(err))
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("error closing redis client", zap.Error(err))
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg := config.MustLoad()

	logger, err := buildLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	app := NewApp(cfg, logger)
	if err := app.Initialize(); err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	app.Run()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}
