package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/stadium-hospitality/internal/config"
	"github.com/iliyamo/stadium-hospitality/internal/database"
	"github.com/iliyamo/stadium-hospitality/internal/handler"
	"github.com/iliyamo/stadium-hospitality/internal/logger"
	"github.com/iliyamo/stadium-hospitality/internal/middleware"
	"github.com/iliyamo/stadium-hospitality/internal/queue"
	"github.com/iliyamo/stadium-hospitality/internal/repository"
	"github.com/iliyamo/stadium-hospitality/internal/router"
	"github.com/iliyamo/stadium-hospitality/internal/service"
)

const serviceName = "stadium-hospitality"

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.Load()
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer zl.Sync()

	db, err := database.Open(cfg.DB)
	if err != nil {
		zl.Fatal("open database", zap.String("host", cfg.DB.Host), zap.Error(err))
	}
	defer db.Close()

	if cfg.DB.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			zl.Fatal("migrate schema", zap.Error(err))
		}
		zl.Info("schema migrated")
	}

	var rdb *redis.Client
	if cfg.RateLimit.Enabled {
		rdb = config.NewRedisClient(cfg.Redis, zl.Named("redis"))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	retries := cfg.Ledger.ReadRetries
	ledger := repository.NewAccessRepo(db, zl, retries)
	presence := repository.NewPresenceRepo(db, retries)
	guests := repository.NewGuestRepo(db, retries)
	rooms := repository.NewRoomRepo(db, retries)
	users := repository.NewUserRepo(db, retries)
	search := repository.NewSearchRepo(db, retries)
	stats := repository.NewStatsRepo(db, retries)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink service.AuditSink = service.DiscardAudit{}
	var auditor *service.Auditor
	var publisher *queue.Publisher
	consumerDone := make(chan struct{})
	if cfg.Audit.Enabled {
		publisher = queue.NewPublisher(cfg.Audit.URL, cfg.Audit.Queue)
		auditor = service.NewAuditor(publisher, cfg.Audit.Buffer, cfg.Audit.PublishTimeout, zl.Named("audit"))
		sink = auditor
		if cfg.Audit.Consume {
			consumer := queue.NewConsumer(cfg.Audit.URL, cfg.Audit.Queue, repository.NewAuditRepo(db), zl.Named("audit_consumer"))
			go func() {
				defer close(consumerDone)
				if err := consumer.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
					zl.Error("audit consumer stopped", zap.Error(err))
				}
			}()
		} else {
			close(consumerDone)
		}
	} else {
		close(consumerDone)
		zl.Info("audit disabled")
	}

	accessSvc := service.NewAccessService(ledger, presence, guests, rooms, sink, zl.Named("access"),
		cfg.Ledger.WriteBudget, cfg.Ledger.SearchBudget)
	searchSvc := service.NewSearchService(search, rooms, zl.Named("search"), cfg.Ledger.SearchBudget, cfg.Ledger.ExportMax)
	statsSvc := service.NewStatsService(stats, rooms, zl.Named("stats"), cfg.Ledger.SearchBudget)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: newRequestID}))
	e.Use(requestLogger(zl.Named("http")))

	auth := router.Auth{
		Secret:  cfg.JWTSecret,
		Users:   users,
		Rooms:   rooms,
		Limiter: middleware.NewTokenBucket(cfg.RateLimit, rdb, zl.Named("ratelimit")),
		Log:     zl.Named("auth"),
	}
	router.RegisterRoutes(e, db)
	router.RegisterGuests(e, handler.NewAccessHandler(accessSvc), handler.NewSearchHandler(searchSvc), auth)
	router.RegisterVenue(e, handler.NewVenueHandler(accessSvc, searchSvc, statsSvc, zl.Named("venue")), auth)

	addr := ":" + cfg.Port
	go func() {
		zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	if auditor != nil {
		if err := auditor.Close(shutdownCtx); err != nil {
			zl.Warn("audit buffer not drained", zap.Error(err))
		}
	}
	if publisher != nil {
		_ = publisher.Close()
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
	}
}
