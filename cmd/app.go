package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"zubi/database"
	"zubi/internal/cache"
	"zubi/internal/config"
	"zubi/internal/controllers"
	"zubi/internal/logger"
	"zubi/internal/messaging"
	"zubi/internal/openai"
	"zubi/internal/repository"
	"zubi/internal/services"
)

// app holds the wired components shared by the serve and chat commands.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	db     *gorm.DB
	store  *services.ConversationStore
	chat   *services.ChatService
	repo   repository.ConversationRepository
	checks map[string]controllers.HealthCheck

	closers []func() error
}

func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logger.New("zubi", cfg.LogLevel, cfg.Environment != config.EnvProduction)
	return cfg, log, nil
}

// newApp connects the configured store and sender and builds the reply pipeline.
// sender overrides the configured driver when non-nil.
func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger, sender messaging.Sender) (*app, error) {
	a := &app{cfg: cfg, log: log, checks: map[string]controllers.HealthCheck{}}

	if err := a.openRepository(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if sender == nil {
		s, err := a.openSender()
		if err != nil {
			a.Close()
			return nil, err
		}
		sender = s
	}

	llm, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAITimeout)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store = services.NewConversationStore(a.repo, log, cfg.HistoryDays)
	extractor := services.NewFieldExtractor(llm, log)
	intake := services.NewIntakeFlow(a.store, extractor, llm, log)
	meals := services.NewMealLogger(a.store, llm, log)
	router := services.NewRouter(a.store, intake, meals, llm, log)
	a.chat = services.NewChatService(router, sender, cfg.PacingDelay, log)

	return a, nil
}

func (a *app) openRepository(ctx context.Context) error {
	switch a.cfg.StoreDriver {
	case "postgres":
		db, err := database.Connect(a.cfg.PostgresDSN(), a.log)
		if err != nil {
			return err
		}
		if err := database.Migrate(db, a.log); err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get database connection: %w", err)
		}
		a.db = db
		a.repo = repository.NewConversationRepository(db)
		a.checks["postgres"] = sqlDB.PingContext
		a.closers = append(a.closers, sqlDB.Close)

	case "redis":
		rc, err := cache.NewRedisClient(ctx, a.cfg.RedisURL, a.cfg.RedisTTL)
		if err != nil {
			return err
		}
		a.repo = rc
		a.checks["redis"] = func(ctx context.Context) error {
			_, err := rc.GetStatus(ctx)
			return err
		}
		a.closers = append(a.closers, rc.Close)

	case "sqlite":
		repo, err := repository.NewSQLiteConversationRepository(a.cfg.SQLitePath)
		if err != nil {
			return err
		}
		a.repo = repo
		a.checks["sqlite"] = func(ctx context.Context) error {
			_, err := repo.CountCompleted(ctx)
			return err
		}
		a.closers = append(a.closers, repo.Close)

	default:
		a.repo = repository.NewMemoryConversationRepository()
	}

	a.log.Info().Str("driver", a.cfg.StoreDriver).Msg("Conversation store ready")
	return nil
}

func (a *app) openSender() (messaging.Sender, error) {
	switch a.cfg.SenderDriver {
	case "zapi":
		return messaging.NewZAPISender(messaging.ZAPIConfig{
			BaseURL:     a.cfg.ZAPIBaseURL,
			InstanceID:  a.cfg.ZAPIInstanceID,
			Token:       a.cfg.ZAPIToken,
			ClientToken: a.cfg.ZAPIClientToken,
			Retries:     a.cfg.SendRetries,
			RetryWait:   a.cfg.SendRetryWait,
		})
	case "amqp":
		s, err := messaging.NewAMQPSender(a.cfg.AMQPURL, a.cfg.AMQPQueue)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return messaging.NewLogSender(a.log), nil
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("Failed to release resource")
		}
	}
	a.closers = nil
}
