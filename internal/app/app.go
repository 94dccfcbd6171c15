// Package app wires configuration into the storage backend and services
// shared by the server and the admin CLI.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"discovery/internal/cache"
	"discovery/internal/catalog"
	"discovery/internal/config"
	"discovery/internal/notify"
	"discovery/internal/repository"
	"discovery/internal/service"
)

const pingTimeout = 5 * time.Second

type App struct {
	Config        *config.Config
	Logger        *zap.Logger
	Catalog       *catalog.Catalog
	ResponseRepo  repository.ResponseRepo
	Auth          *service.AuthService
	Questionnaire *service.QuestionnaireService
	Completion    *service.CompletionService

	closers []func(context.Context) error
}

// New loads the catalog, connects the configured backend and builds the services.
// Clients are created once here and shared for the process lifetime.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, Catalog: cat}

	switch cfg.Store.Backend {
	case config.BackendMongo:
		err = a.connectMongo(ctx)
	default:
		err = a.connectRedis(ctx)
	}
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	smtpCfg := notify.SMTPConfig{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.User,
		Password:   cfg.SMTP.Password,
		From:       cfg.SMTP.From,
		Recipients: cfg.Notify.Recipients,
	}
	notifier := notify.NewSMTPNotifier(smtpCfg, logger)

	a.Auth = service.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TrustHeaders, cfg.Auth.AdminDomains)
	a.Questionnaire = service.NewQuestionnaireService(a.ResponseRepo, cat, logger)
	a.Completion = service.NewCompletionService(a.Questionnaire, notifier, cfg.Notify.Timeout, logger)

	logger.Info("application initialised",
		zap.String("backend", cfg.Store.Backend),
		zap.Int("sections", cat.Len()),
		zap.Bool("smtp", smtpCfg.Configured()))
	return a, nil
}

// SetBroadcaster routes service events to the admin feed
func (a *App) SetBroadcaster(b service.Broadcaster) {
	a.Questionnaire.SetBroadcaster(b)
	a.Completion.SetBroadcaster(b)
}

// Close releases backend connections in reverse order
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

func (a *App) connectRedis(ctx context.Context) error {
	opts, err := redisOptions(a.Config.Redis)
	if err != nil {
		return err
	}
	rdb := redis.NewClient(opts)
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	a.Logger.Info("connected to redis", zap.String("addr", opts.Addr))

	a.ResponseRepo = cache.NewResponseCache(rdb, a.Catalog.Len(), a.Logger)
	return nil
}

func (a *App) connectMongo(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.Config.Mongo.URI))
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	a.closers = append(a.closers, client.Disconnect)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return fmt.Errorf("failed to ping mongodb: %w", err)
	}
	a.Logger.Info("connected to mongodb", zap.String("database", a.Config.Mongo.Database))

	a.ResponseRepo = repository.NewResponseRepo(client.Database(a.Config.Mongo.Database), a.Catalog.Len(), a.Logger)
	return nil
}

// redisOptions accepts either a redis:// URL or a bare host:port
func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if strings.Contains(cfg.URI, "://") {
		opts, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URI: %w", err)
		}
		if cfg.Password != "" {
			opts.Password = cfg.Password
		}
		return opts, nil
	}
	return &redis.Options{
		Addr:     cfg.URI,
		Password: cfg.Password,
		DB:       cfg.DB,
	}, nil
}
