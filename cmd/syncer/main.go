package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"announcement_syncer/internal/api/handler"
	"announcement_syncer/internal/api/router"
	"announcement_syncer/internal/auth"
	"announcement_syncer/internal/cafe"
	"announcement_syncer/internal/config"
	"announcement_syncer/internal/department"
	"announcement_syncer/internal/domain"
	"announcement_syncer/internal/lock"
	"announcement_syncer/internal/logging"
	"announcement_syncer/internal/publisher"
	"announcement_syncer/internal/scheduler"
	"announcement_syncer/internal/service"
	"announcement_syncer/internal/source/datagokr"
	"announcement_syncer/internal/storage/postgres"
	"announcement_syncer/internal/upload"
)

type options struct {
	configPath string
	once       bool
	department string
	startDate  string
	issueToken string
	tokenTTL   time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "config.yaml", "path to config file")
	flag.BoolVar(&opts.once, "once", false, "run a single sync and exit")
	flag.StringVar(&opts.department, "department", "", "department key for -once (default: all departments)")
	flag.StringVar(&opts.startDate, "start-date", "", "explicit start date for -once, YYYY-MM-DD")
	flag.StringVar(&opts.issueToken, "issue-token", "", "print an API bearer token for this user id and exit")
	flag.DurationVar(&opts.tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the token printed by -issue-token")
	flag.Parse()

	logger := logging.New("info", "json", os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("syncer stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	if opts.issueToken != "" {
		if cfg.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is required to issue tokens")
		}
		token, err := tokens.Issue(opts.issueToken, opts.tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("connected to database")

	if err := postgres.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// Optional collaborators stay nil interfaces when disabled.
	var events service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:           cfg.RabbitMQ.URL,
			Exchange:      cfg.RabbitMQ.Exchange,
			RoutingPrefix: cfg.RabbitMQ.RoutingPrefix,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		defer rabbitMQ.Close()
		events = rabbitMQ
	}

	var locker service.Locker
	if cfg.Redis.Addr != "" {
		redisLock, err := lock.NewRedis(ctx, lock.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.LockTTL,
		}, logger)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisLock.Close()
		locker = redisLock
	}

	registry := department.FromConfig(cfg.Departments)
	announcementStore := postgres.NewAnnouncementStore(db)

	source := datagokr.New(datagokr.Config{
		BaseURL:           cfg.API.BaseURL,
		ServiceKey:        cfg.API.ServiceKey,
		PageSize:          cfg.API.PageSize,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
	}, logger)

	syncService := service.NewSyncService(
		source,
		registry,
		announcementStore,
		postgres.NewSyncStateStore(db),
		events,
		locker,
		logger,
		cfg.Sync,
	)

	if opts.once {
		return runOnce(ctx, syncService, opts, cfg.Sync.Location(), logger)
	}

	sched, err := scheduler.NewScheduler(syncService, scheduler.Config{
		Schedule:   cfg.Sync.Schedule,
		RunOnStart: cfg.Sync.RunOnStart,
		Timeout:    cfg.Sync.Timeout,
		Location:   cfg.Sync.Location(),
	}, logger)
	if err != nil {
		return err
	}

	logger.Info("starting announcement syncer",
		"source", source.Name(),
		"schedule", cfg.Sync.Schedule,
		"departments", len(registry.All()),
		"http", cfg.HTTP.Enabled,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Start(ctx)
	})

	if cfg.HTTP.Enabled {
		var uploader handler.Uploader
		if cfg.Storage.Enabled() {
			s3, err := upload.NewS3(ctx, upload.Config{
				Region:          cfg.Storage.Region,
				Bucket:          cfg.Storage.Bucket,
				Endpoint:        cfg.Storage.Endpoint,
				AccessKeyID:     cfg.Storage.AccessKeyID,
				SecretAccessKey: cfg.Storage.SecretAccessKey,
				CDNBaseURL:      cfg.Storage.CDNBaseURL,
				KeyPrefix:       cfg.Storage.KeyPrefix,
			}, logger)
			if err != nil {
				return fmt.Errorf("configure object storage: %w", err)
			}
			uploader = s3
		}

		credentials := postgres.NewCredentialStore(db)
		cafePublisher := cafe.New(cafe.Config{
			BaseURL: cfg.Naver.BaseURL,
			CafeID:  cfg.Naver.CafeID,
			MenuID:  cfg.Naver.MenuID,
			Timeout: cfg.Naver.Timeout,
		}, credentials, logger)

		h := handler.New(
			registry,
			service.NewAnnouncementService(announcementStore, registry),
			syncService,
			cafePublisher,
			credentials,
			uploader,
		)
		engine := router.Setup(router.Config{MaxUploadBytes: cfg.HTTP.MaxUploadBytes}, h, tokens, logger)

		srv := &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      engine,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		}

		g.Go(func() error {
			logger.Info("http server listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	logger.Info("announcement syncer stopped")
	return err
}

func runOnce(ctx context.Context, syncService *service.SyncService, opts options, loc *time.Location, logger *slog.Logger) error {
	if opts.department == "" {
		if opts.startDate != "" {
			return errors.New("-start-date requires -department")
		}
		sweep, err := syncService.SyncAll(ctx)
		if err != nil {
			return err
		}
		logger.Info("one-shot sweep finished",
			"departments", len(sweep.Departments),
			"total_saved", sweep.TotalSaved,
		)
		return nil
	}

	var startDate *time.Time
	if opts.startDate != "" {
		t, err := time.ParseInLocation(domain.DateLayout, opts.startDate, loc)
		if err != nil {
			return fmt.Errorf("parse -start-date: %w", err)
		}
		startDate = &t
	}

	result, err := syncService.Sync(ctx, opts.department, startDate)
	if err != nil {
		return err
	}
	logger.Info("one-shot sync finished",
		"department", opts.department,
		"total_saved", result.TotalSaved,
		"processed_days", len(result.ProcessedDates),
		"failed_dates", result.FailedDates,
	)
	return nil
}
