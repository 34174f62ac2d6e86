package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"gitlab.com/yelinaung/subnest/internal/api"
	"gitlab.com/yelinaung/subnest/internal/billing"
	"gitlab.com/yelinaung/subnest/internal/budget"
	"gitlab.com/yelinaung/subnest/internal/config"
	"gitlab.com/yelinaung/subnest/internal/database"
	"gitlab.com/yelinaung/subnest/internal/jobs"
	"gitlab.com/yelinaung/subnest/internal/logger"
	"gitlab.com/yelinaung/subnest/internal/models"
	"gitlab.com/yelinaung/subnest/internal/notify"
	"gitlab.com/yelinaung/subnest/internal/recommend"
	"gitlab.com/yelinaung/subnest/internal/repository"
	"gitlab.com/yelinaung/subnest/internal/telemetry"
	"gitlab.com/yelinaung/subnest/internal/trend"
)

// app holds the services shared by every command.
type app struct {
	cfg       *config.Config
	pool      *pgxpool.Pool
	store     *repository.Store
	notifier  *notify.Service
	engine    *recommend.Engine
	reminders *notify.ReminderJob
	reporter  *trend.Reporter
	budgets   *budget.Evaluator
	billing   *billing.Reporter
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	err = database.InTx(ctx, pool, func(tx database.PGXDB) error {
		if err := database.RunMigrations(ctx, tx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		if err := database.SeedCategories(ctx, tx); err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	logger.Log.Info().Msg("Database initialized successfully")
	return pool, nil
}

func newDispatcher(cfg *config.Config) (*notify.Dispatcher, error) {
	d := notify.NewDispatcher().
		Register(models.ChannelEmail, notify.LogSender{Channel: models.ChannelEmail}).
		Register(models.ChannelSMS, notify.LogSender{Channel: models.ChannelSMS})

	if cfg.PushEnabled() {
		b, err := notify.NewTelegramBot(cfg.TelegramBotToken)
		if err != nil {
			return nil, err
		}
		d.Register(models.ChannelPush, notify.NewTelegramSender(b))
	} else {
		logger.Log.Info().Msg("TELEGRAM_BOT_TOKEN not set, logging push notifications instead")
		d.Register(models.ChannelPush, notify.LogSender{Channel: models.ChannelPush})
	}
	return d, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	pool, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dispatcher, err := newDispatcher(cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	store := repository.NewStore(pool)
	notifier := notify.NewService(store, dispatcher)

	rules := recommend.DefaultRules()
	rules.DismissCooldown = cfg.DismissCooldown

	reporter := trend.New(store, trend.WithLocation(cfg.Location()))

	return &app{
		cfg:       cfg,
		pool:      pool,
		store:     store,
		notifier:  notifier,
		engine:    recommend.New(store, recommend.WithRules(rules), recommend.WithNotifier(notifier)),
		reminders: notify.NewReminderJob(store, notifier, cfg.Location()),
		reporter:  reporter,
		budgets:   budget.New(store, reporter, cfg.DefaultCurrency),
		billing:   billing.New(store, cfg.DefaultCurrency),
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

func withApp(run func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		shutdown, err := telemetry.Setup(ctx, cfg.OTelExporter, cfg.OTelServiceName)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
			}
		}()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return run(ctx, a)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled jobs",
		RunE: withApp(func(ctx context.Context, a *app) error {
			runner := jobs.NewRunner(a.cfg.JobTimeout)
			runner.Register(recommend.Job{Engine: a.engine}, a.cfg.RecommendationInterval)
			runner.Register(a.reminders, a.cfg.ReminderInterval)
			runner.Register(notify.PendingJob{Service: a.notifier}, a.cfg.PendingInterval)

			srv := api.NewHTTPServer(a.cfg.HTTPAddr,
				api.NewServer(a.store, a.budgets, a.reporter, a.billing, a.cfg.DefaultCurrency).Routes())

			ctx, stop := context.WithCancel(ctx)
			defer stop()

			jobsDone := make(chan struct{})
			go func() {
				runner.Start(ctx)
				close(jobsDone)
			}()

			serveErr := make(chan error, 1)
			go func() {
				logger.Log.Info().Str("addr", a.cfg.HTTPAddr).Msg("HTTP server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			var err error
			select {
			case <-ctx.Done():
			case err = <-serveErr:
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
				logger.Log.Warn().Err(shutdownErr).Msg("HTTP server shutdown failed")
			}
			stop()
			<-jobsDone
			return err
		}),
	}
}

func recommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend",
		Short: "Generate recommendations for every eligible user once",
		RunE: withApp(func(ctx context.Context, a *app) error {
			return jobs.NewRunner(a.cfg.JobTimeout).RunOnce(ctx, recommend.Job{Engine: a.engine})
		}),
	}
}

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send subscription and bill reminders once",
		RunE: withApp(func(ctx context.Context, a *app) error {
			return jobs.NewRunner(a.cfg.JobTimeout).RunOnce(ctx, a.reminders)
		}),
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := connect(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			pool.Close()
			return nil
		},
	}
}
