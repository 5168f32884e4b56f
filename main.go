package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MohitSaini10/dan-aliph/config"
	"github.com/MohitSaini10/dan-aliph/handlers"
	"github.com/MohitSaini10/dan-aliph/middleware"
	"github.com/MohitSaini10/dan-aliph/service"
	"github.com/MohitSaini10/dan-aliph/store"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "danaliph",
		Short:         "DanaLiph publishing marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(serveCmd(), createAdminCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// app is the wired service graph shared by the commands.
type app struct {
	cfg         *config.Config
	log         *slog.Logger
	db          *store.DB
	registry    *prometheus.Registry
	metrics     *service.Metrics
	sessions    *service.SessionService
	dispatch    *service.Dispatcher
	blobs       service.BlobStore
	users       *service.UserService
	books       *service.BookService
	moderation  *service.ModerationService
	subscribers *service.SubscriberService
	contacts    *service.ContactService
	closers     []func(context.Context) error
}

func (a *app) close(ctx context.Context) {
	if a.dispatch != nil {
		a.dispatch.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn("shutdown", "error", err)
		}
	}
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)
	slog.SetDefault(log)
	if err := cfg.Validate(log); err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	db, err := store.NewMongoDB(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("mongodb: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Disconnect)
	if err := db.EnsureIndexes(ctx); err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("mongodb indexes: %w", err)
	}

	// Blobs stays a nil interface when storage is off, so handlers can test it.
	if cfg.BlobConfigured() {
		s3, err := service.NewS3Service(ctx, service.S3Options{
			Bucket:          cfg.R2Bucket,
			Region:          cfg.R2Region,
			Endpoint:        cfg.R2Endpoint,
			AccessKeyID:     cfg.R2AccessKey,
			SecretAccessKey: cfg.R2SecretKey,
			PublicURL:       cfg.R2PublicURL,
		})
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("r2: %w", err)
		}
		a.blobs = s3
	}

	var notifier service.Notifier = service.NopNotifier{}
	if cfg.MailConfigured() {
		notifier = service.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom())
	}

	var cache service.FeaturedCache = service.NopFeaturedCache{}
	if cfg.RedisURL != "" {
		rdb, err := service.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable; featured cache disabled", "error", err)
		} else {
			cache = service.NewRedisFeaturedCache(rdb, cfg.FeaturedCacheTTL)
			a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		}
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = service.NewMetrics(a.registry)

	a.sessions = service.NewSessionService(cfg.JWTSecret, cfg.SessionTTL)
	a.dispatch = service.NewDispatcher(notifier, db, a.metrics, log)
	a.users = service.NewUserService(db, db, a.sessions, a.dispatch, a.metrics, cfg.SiteURL, log)
	a.books = service.NewBookService(db, db, a.blobs, cache, a.metrics, log)
	a.moderation = service.NewModerationService(db, db, a.users, a.dispatch, cache, a.metrics, cfg.SiteURL, log)
	a.subscribers = service.NewSubscriberService(db, a.dispatch, cfg.SiteURL, log)
	a.contacts = service.NewContactService(db, a.dispatch, cfg.AdminEmail)
	return a, nil
}

func serve(ctx context.Context) error {
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}

	limiterCtx, stopLimiter := context.WithCancel(context.Background())
	defer stopLimiter()

	router := handlers.NewRouter(handlers.Deps{
		Logger:         a.log,
		Metrics:        a.metrics,
		Gatherer:       a.registry,
		Sessions:       a.sessions,
		Users:          a.users,
		Books:          a.books,
		Moderation:     a.moderation,
		Subscribers:    a.subscribers,
		Contacts:       a.contacts,
		Notify:         a.dispatch,
		Blobs:          a.blobs,
		Limiter:        middleware.NewRateLimiter(limiterCtx, a.cfg.RateLimitRPS, a.cfg.RateLimitBurst),
		CORSOrigins:    a.cfg.CORSOrigins,
		CookieSecure:   a.cfg.CookieSecure,
		MaxUploadBytes: a.cfg.MaxUploadMB << 20,
		Ping:           a.db.Ping,
	})

	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.log.Info("server listening", "addr", server.Addr, "env", a.cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		a.close(context.Background())
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.Error("http shutdown", "error", err)
	}
	a.close(shutdownCtx)
	return nil
}

func createAdminCmd() *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account if the email is not registered yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			u, created, err := a.users.EnsureAdmin(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			if created {
				a.log.Info("admin created", "email", u.Email, "id", u.ID.Hex())
			} else {
				a.log.Info("account already exists; nothing changed", "email", u.Email, "role", u.Role)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Admin", "display name")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password (at least 6 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
