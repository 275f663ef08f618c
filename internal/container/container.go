package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mariakisialiova/itechart-quiz/internal/auth"
	"github.com/mariakisialiova/itechart-quiz/internal/cache"
	"github.com/mariakisialiova/itechart-quiz/internal/config"
	"github.com/mariakisialiova/itechart-quiz/internal/messaging"
	"github.com/mariakisialiova/itechart-quiz/internal/quiz"
	"github.com/mariakisialiova/itechart-quiz/internal/router"
	"github.com/mariakisialiova/itechart-quiz/internal/user"
	"github.com/mariakisialiova/itechart-quiz/internal/view"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	UserContainer *user.UserContainer
	AuthContainer *auth.AuthContainer
	QuizContainer *quiz.QuizContainer
	Views         *view.Templates

	db       *gorm.DB
	redis    *redis.Client
	rabbitMQ *messaging.RabbitMQClient
}

// New connects every backing service named in cfg and wires the features.
// Redis and RabbitMQ are optional.
func New(ctx context.Context, cfg config.Config) (*Container, error) {
	if err := config.Connect(ctx, cfg.Database.Driver, cfg.Database.DSN); err != nil {
		return nil, err
	}

	c := &Container{db: config.DB}

	var revocations auth.RevocationStore = auth.NewMemoryRevocationStore()
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			c.Close()
			return nil, err
		}
		c.redis = client
		revocations = auth.NewRedisRevocationStore(client)
	}

	var events quiz.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		client, err := messaging.NewRabbitMQClient(cfg.RabbitMQ.URL)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.rabbitMQ = client
		events = client
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret)
	if err != nil {
		c.Close()
		return nil, err
	}

	if err := c.wire(config.DB, cfg, tokens, revocations, events); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewWithDB wires the features over a database owned by the caller.
func NewWithDB(db *gorm.DB, cfg config.Config, revocations auth.RevocationStore, events quiz.EventPublisher) (*Container, error) {
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}
	c := &Container{}
	if err := c.wire(db, cfg, tokens, revocations, events); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) wire(db *gorm.DB, cfg config.Config, tokens *auth.TokenManager, revocations auth.RevocationStore, events quiz.EventPublisher) error {
	views, err := view.New(func(ctx context.Context) any {
		identity, ok := auth.IdentityFromContext(ctx)
		if !ok {
			return nil
		}
		return identity
	})
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	cookie := auth.CookieConfig{
		Name:   auth.SessionCookieName,
		Secure: cfg.Auth.SecureCookie,
		TTL:    config.Duration(cfg.Auth.SessionTTL, defaultSessionTTL),
	}

	userContainer := user.NewUserContainer(db)
	quizContainer := quiz.NewQuizContainer(db, events, cfg.RabbitMQ.Queue, views)
	authContainer := auth.NewAuthContainer(
		db,
		userContainer.Repo,
		tokens,
		revocations,
		cookie,
		func(tx *gorm.DB, u *user.User) error {
			return quiz.CreateProfileTx(tx, u.ID)
		},
		cfg.Auth.BcryptCost,
		views,
	)

	c.UserContainer = userContainer
	c.QuizContainer = quizContainer
	c.AuthContainer = authContainer
	c.Views = views
	return nil
}

func (c *Container) Router() http.Handler {
	return router.New(router.RouterConfig{
		AuthHandler: c.AuthContainer.Handler,
		Sessions:    c.AuthContainer.Middleware,
		QuizHandler: c.QuizContainer.Handler,
		Views:       c.Views,
	})
}

func (c *Container) Close() {
	if c.rabbitMQ != nil {
		if err := c.rabbitMQ.Close(); err != nil {
			config.Logger.WithError(err).Warn("Failed to close RabbitMQ connection")
		}
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			config.Logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
