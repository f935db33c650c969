package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skotchmaster/user_auth/internal/config"
	"github.com/Skotchmaster/user_auth/internal/db"
	"github.com/Skotchmaster/user_auth/internal/es"
	"github.com/Skotchmaster/user_auth/internal/events"
	"github.com/Skotchmaster/user_auth/internal/hash"
	"github.com/Skotchmaster/user_auth/internal/httpserver"
	"github.com/Skotchmaster/user_auth/internal/logging"
	"github.com/Skotchmaster/user_auth/internal/metrics"
	"github.com/Skotchmaster/user_auth/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/user_auth/internal/middleware/logging"
	"github.com/Skotchmaster/user_auth/internal/repo"
	"github.com/Skotchmaster/user_auth/internal/service"
	"github.com/Skotchmaster/user_auth/internal/tokens"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	initCtx = logging.IntoContext(initCtx, log)

	gdb, err := db.Open(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Error("db init error", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(initCtx, gdb); err != nil {
		log.Error("db migrate error", "error", err)
		os.Exit(1)
	}

	hasher, err := hash.NewHasher(cfg.BcryptCost)
	if err != nil {
		log.Error("hasher init error", "error", err)
		os.Exit(1)
	}
	codec, err := tokens.NewCodec(tokens.Config{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Issuer:        cfg.JWTIssuer,
	})
	if err != nil {
		log.Error("token codec init error", "error", err)
		os.Exit(1)
	}

	prod := events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if !prod.Enabled() {
		log.Info("kafka disabled, KAFKA_BROKERS is empty")
	}

	esClient, err := es.NewClient(initCtx, cfg.ESURL, cfg.ESUser, cfg.ESPassword)
	if err != nil {
		log.Error("elasticsearch init error", "error", err)
		os.Exit(1)
	}
	audit := events.NewAuditIndex(esClient, cfg.AuditIndex)
	if err := audit.EnsureIndex(initCtx); err != nil {
		log.Error("audit index init error", "error", err)
		os.Exit(1)
	}
	if !audit.Enabled() {
		log.Info("audit index disabled, ES_URL is empty")
	}
	pub := events.Multi{prod, audit}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewAuth(reg)

	store := repo.NewGormRepo(gdb)
	authSvc := service.NewAuthService(store, hasher, codec, pub, m)
	userSvc := service.NewUserService(store, hasher, pub)

	if created, err := userSvc.EnsureAdmin(initCtx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Error("bootstrap admin error", "error", err)
		os.Exit(1)
	} else if created {
		log.Info("bootstrap admin created", "username", cfg.AdminUsername)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.HTTPErrorHandler
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), middleware.BodyLimit("64K"))
	e.Use(loggingmw.RequestLogger(log))

	cookies := httpserver.Cookies{Secure: cfg.CookieSecure}
	httpserver.Register(e, &httpserver.Deps{
		DB:          gdb,
		AuthHandler: &httpserver.AuthHTTP{Auth: authSvc, Users: userSvc, Cookies: cookies},
		Users:       &httpserver.UsersHTTP{Users: userSvc, Cookies: cookies},
		Admin:       &httpserver.AdminHTTP{Users: userSvc, Auth: authSvc, Audit: audit},
		SessionAuth: auth.NewSessionAuth(store, codec, m),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Info("http server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", "error", err)
	}
	if err := prod.Close(); err != nil {
		log.Error("kafka close error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		log.Error("db close error", "error", err)
	}

	log.Info("shutdown complete")
}
