package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/juvenxu/account-service/internal/core/port"
	captchainfra "github.com/juvenxu/account-service/internal/infra/captcha"
	"github.com/juvenxu/account-service/internal/infra/config"
	"github.com/juvenxu/account-service/internal/infra/database"
	"github.com/juvenxu/account-service/internal/infra/email"
	kafkainfra "github.com/juvenxu/account-service/internal/infra/kafka"
	"github.com/juvenxu/account-service/internal/infra/logger"
	redisinfra "github.com/juvenxu/account-service/internal/infra/redis"
	"github.com/juvenxu/account-service/internal/infra/telemetry"
	postgresrepo "github.com/juvenxu/account-service/internal/repository/postgres"
	redisrepo "github.com/juvenxu/account-service/internal/repository/redis"
	"github.com/juvenxu/account-service/internal/transport/http/middleware"
	"github.com/juvenxu/account-service/internal/transport/http/routes"
	"github.com/juvenxu/account-service/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	kafka  *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	telemetryProvider, err := telemetry.Attach(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	if err := database.RunMigrations(ctx, cfg.Postgres, log); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	captchaTTL := cfg.Redis.CaptchaTTL
	if captchaTTL <= 0 {
		captchaTTL = 10 * time.Minute
	}
	captchaStore := captchainfra.NewRedisStore(
		redisrepo.NewCaptchaRepository(redisClient.Client(), cfg.Redis.CaptchaPrefix),
	)
	captchaService := captchainfra.NewService(captchaStore, captchainfra.Options{
		Width:    cfg.Captcha.Width,
		Height:   cfg.Captcha.Height,
		Length:   cfg.Captcha.Length,
		Alphabet: cfg.Captcha.Alphabet,
		TTL:      captchaTTL,
	}, log)

	var mailer port.Mailer
	if cfg.SMTP.Enabled {
		smtpMailer, err := email.NewSMTPMailer(cfg.SMTP, log)
		if err != nil {
			_ = redisClient.Close()
			pool.Close()
			return nil, fmt.Errorf("init smtp mailer: %w", err)
		}
		mailer = smtpMailer
	} else {
		log.Info("smtp disabled, logging outbound mail instead")
		mailer = email.NewLoggingMailer(log)
	}

	var eventPublisher port.EventPublisher
	var kafkaProducer *kafkainfra.Producer
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	accountService := usecase.NewAccountService(
		repos.Accounts,
		repos.Activations,
		captchaService,
		mailer,
		eventPublisher,
	).WithLogger(log).WithActivationTTL(cfg.Activation.TokenTTL)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:    cfg,
		Logger:    log,
		Metrics:   metrics,
		Telemetry: telemetryProvider,
		Database:  pool,
		Cache:     redisClient,
		Services: routes.ServiceSet{
			Accounts: accountService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		kafka:  kafkaProducer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.kafka != nil {
			_ = a.kafka.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting account API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
