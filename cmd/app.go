package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/tablebot/internal/config"
	"github.com/example/tablebot/internal/conversation"
	"github.com/example/tablebot/internal/db"
	"github.com/example/tablebot/internal/journal"
	"github.com/example/tablebot/internal/logger"
	"github.com/example/tablebot/internal/migrate"
	"github.com/example/tablebot/internal/session"
	"github.com/example/tablebot/internal/slots"
)

const sweepInterval = time.Minute

// app holds the wiring shared by the long-running commands.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	slots   *slots.Client
	runtime *conversation.Runtime
	memory  *session.MemoryStore

	closers []func()
}

type appOptions struct {
	migrate bool
	// journal connects DATABASE_URL when set.
	journal bool
}

func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func newApp(ctx context.Context, cfg config.Config, log *zap.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, log: log}

	sc, err := slots.New(slots.Options{
		BaseURL:     cfg.SlotsBaseURL,
		Timeout:     cfg.SlotsHTTPTimeout,
		MaxAttempts: cfg.SlotsMaxAttempts,
		RatePerSec:  cfg.SlotsRatePerSec,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	a.slots = sc

	var store conversation.Store
	switch cfg.SessionStore {
	case "redis":
		rdb, err := session.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		store = session.NewRedisStore(rdb, cfg.SessionTTL)
	default:
		a.memory = session.NewMemoryStore(cfg.SessionTTL)
		store = a.memory
	}

	engineOpts := []conversation.Option{conversation.WithLogger(log)}
	if opts.journal && cfg.DatabaseURL != "" {
		d, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, d.Close)
		if opts.migrate {
			if err := migrate.Up(ctx, d, log); err != nil {
				a.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		engineOpts = append(engineOpts, conversation.WithJournal(journal.NewRepo(d)))
		log.Info("booking journal enabled")
	}

	engine := conversation.NewEngine(sc, sc, engineOpts...)
	a.runtime = conversation.NewRuntime(engine, store, log)
	return a, nil
}

// startSweeper expires idle in-memory conversations; redis expires its own.
func (a *app) startSweeper(ctx context.Context) {
	if a.memory == nil {
		return
	}
	go func() { _ = a.memory.Run(ctx, sweepInterval, a.log) }()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}
