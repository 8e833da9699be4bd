package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/community_shop/internal/cache"
	"github.com/Skotchmaster/community_shop/internal/config"
	"github.com/Skotchmaster/community_shop/internal/events"
	"github.com/Skotchmaster/community_shop/internal/filestore"
	"github.com/Skotchmaster/community_shop/internal/httpserver"
	"github.com/Skotchmaster/community_shop/internal/middleware/auth"
	"github.com/Skotchmaster/community_shop/internal/middleware/csrf"
	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/payment"
	"github.com/Skotchmaster/community_shop/internal/repo"
	"github.com/Skotchmaster/community_shop/internal/search"
	"github.com/Skotchmaster/community_shop/internal/service"
	"github.com/Skotchmaster/community_shop/pkg/db"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)
	ctx := logging.IntoContext(context.Background(), log)

	gdb, err := db.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Error("db_open_failed", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	if err := repo.Migrate(gdb); err != nil {
		log.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}

	var pub events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		pub = producer
	} else {
		log.Info("kafka_disabled", "reason", "KAFKA_BROKERS not set")
	}

	files, err := filestore.New(cfg.UploadsDir)
	if err != nil {
		log.Error("filestore_init_failed", "dir", cfg.UploadsDir, "error", err)
		os.Exit(1)
	}

	var gateway payment.Gateway = payment.Disabled{}
	if cfg.PaymentSecretKey != "" {
		gateway = payment.NewStripe(cfg.PaymentSecretKey)
	} else {
		log.Warn("payments_disabled", "reason", "PAYMENT_SECRET_KEY not set")
	}

	r := repo.New(gdb)
	catalog := &service.CatalogService{
		Repo:   r,
		Files:  files,
		Cache:  cache.NewProducts(cfg.CacheSize, cfg.CacheTTL),
		Events: pub,
	}
	if cfg.ESURL != "" {
		es, err := search.NewClient(ctx, search.Config{
			URL:      cfg.ESURL,
			Username: cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		if err != nil {
			log.Warn("search_unavailable", "url", cfg.ESURL, "error", err)
		} else {
			catalog.Index = es
		}
	}

	authSvc := &service.AuthService{
		Repo:          r,
		Events:        pub,
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		u, created, err := authSvc.EnsureUser(ctx, service.RegisterInput{
			FirstName: "Admin",
			LastName:  "Admin",
			Username:  cfg.AdminUsername,
			Email:     cfg.AdminEmail,
			Password:  cfg.AdminPassword,
		}, models.RoleAdmin)
		if err != nil {
			log.Error("admin_bootstrap_failed", "username", cfg.AdminUsername, "error", err)
			os.Exit(1)
		}
		log.Info("admin_bootstrap", "user_id", u.ID, "created", created)
	}

	e := echo.New()
	e.HideBanner = true
	httpserver.Register(e, &httpserver.Deps{
		DB:     gdb,
		Logger: log,
		Gate:   &auth.Gate{AccessSecret: cfg.JWTSecret, Refresher: authSvc, Users: r, CookieSecure: cfg.CookieSecure},

		Auth:    &httpserver.AuthHTTP{Svc: authSvc, CookieSecure: cfg.CookieSecure},
		Users:   &httpserver.UserHTTP{Svc: authSvc},
		Catalog: &httpserver.CatalogHTTP{Svc: catalog},
		Cart:    &httpserver.CartHTTP{Svc: &service.CartService{Repo: r, Events: pub}},
		Checkout: &httpserver.CheckoutHTTP{Svc: &service.CheckoutService{
			Repo:      r,
			Gateway:   gateway,
			Catalog:   catalog,
			Events:    pub,
			PublicURL: cfg.PublicURL,
			Currency:  cfg.PaymentCurrency,
		}},
		Media:    &httpserver.MediaHTTP{Svc: &service.MediaService{Repo: r, Files: files, Events: pub}},
		Comments: &httpserver.CommentHTTP{Svc: &service.CommentService{Repo: r, Events: pub}},

		UploadsDir: files.Root(),
		BodyLimit:  cfg.MaxUploadSize,
		CSRF: csrf.Config{
			Secure:            cfg.CookieSecure,
			TrustedOrigins:    []string{cfg.PublicURL},
			EnforceSameOrigin: true,
		},
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      e,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http_server_error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server_shutdown_error", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("kafka_close_error", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		log.Error("db_close_error", "error", err)
	}

	log.Info("shutdown_complete")
}
