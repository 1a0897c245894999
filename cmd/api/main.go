package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"Lee_Social/internal/broker"
	"Lee_Social/internal/config"
	"Lee_Social/internal/middleware"
	"Lee_Social/internal/observability"
	"Lee_Social/internal/pkg"
	"Lee_Social/internal/repository/mysql"
	"Lee_Social/internal/repository/redis"
	"Lee_Social/internal/router"
	"Lee_Social/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configDir string
	root := &cobra.Command{
		Use:           "lee-social",
		Short:         "Friendship, chat and live location backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configDir)
		},
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory containing the .env file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the outbox relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configDir)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configDir)
			if err != nil {
				return err
			}
			setupLogger(cfg.LogLevel)
			db, err := mysql.InitDB(cfg.DatabaseDSN, cfg.DBSlowThreshold)
			if err != nil {
				return err
			}
			if err := mysql.AutoMigrate(db); err != nil {
				return err
			}
			slog.Info("database migrated")
			return nil
		},
	})
	return root
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func serve(parent context.Context, configDir string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	setupLogger(cfg.LogLevel)

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	db, err := mysql.InitDB(cfg.DatabaseDSN, cfg.DBSlowThreshold)
	if err != nil {
		return err
	}

	userRepo := mysql.NewUserRepository(db)
	relRepo := mysql.NewRelationshipRepository(db)
	locRepo := mysql.NewLocationRepository(db)
	msgRepo := mysql.NewMessageRepository(db)
	outboxRepo := mysql.NewOutboxRepository(db)

	tokens := pkg.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret)
	images, err := pkg.NewImagePresigner(pkg.BlobConfig{
		Endpoint:     cfg.MinioEndpoint,
		AccessKey:    cfg.MinioAccessKey,
		SecretKey:    cfg.MinioSecretKey,
		Bucket:       cfg.MinioBucket,
		Region:       cfg.MinioRegion,
		UseSSL:       cfg.MinioUseSSL,
		Expiry:       cfg.PresignExpiry,
		DefaultImage: cfg.DefaultProfileImage,
	})
	if err != nil {
		return err
	}

	// 配置了 Redis 时用它做多实例广播和单点登录，否则退回进程内 Hub
	var (
		bus      broker.Broker
		userSvc  *service.UserService
		closeRDB func() error
	)
	if cfg.RedisAddr != "" {
		rdb, err := redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		closeRDB = rdb.Close
		bus = redis.NewPubSub(rdb)
		userSvc = service.NewUserService(userRepo, tokens, redis.NewTokenStore(rdb), images)
	} else {
		slog.Warn("REDIS_ADDR not set, using in-process broker and skipping session checks")
		hub := broker.NewHub(0)
		metrics.WatchBrokerDrops(hub.Dropped)
		bus = hub
		userSvc = service.NewUserService(userRepo, tokens, nil, images)
	}
	if closeRDB != nil {
		defer closeRDB()
	}

	friendSvc := service.NewFriendshipService(relRepo, userSvc, metrics)
	locationSvc := service.NewLocationService(locRepo, friendSvc, bus, cfg.LocationChannelPrefix, metrics)
	messageSvc := service.NewMessageService(msgRepo, friendSvc, bus, cfg.ChatChannelPrefix, metrics)

	senders := []service.Sender{service.LogSender}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			return err
		}
		defer producer.Close()
		senders = append(senders, service.KafkaSender(producer))
	}
	smtp := pkg.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Timeout:  cfg.SMTPTimeout,
	}
	if smtp.Enabled() {
		senders = append(senders, service.NewFriendRequestMailer(userRepo, smtp).Send)
	}
	relayer := service.NewOutboxRelayer(outboxRepo, service.MultiSender(senders...), metrics)
	go relayer.Run(ctx)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go func() {
		t := time.NewTicker(10 * time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				limiter.Cleanup()
			}
		}
	}()

	r := router.InitRouter(router.Deps{
		ServiceName: cfg.ServiceName,
		Tokens:      tokens,
		Users:       userSvc,
		Friendships: friendSvc,
		Locations:   locationSvc,
		Messages:    messageSvc,
		Metrics:     metrics,
		Gatherer:    reg,
		RateLimiter: limiter,
		WSRateLimit: cfg.WSRateLimitRPS,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
