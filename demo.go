package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gitlab.com/yelinaung/subnest/internal/api"
	"gitlab.com/yelinaung/subnest/internal/billing"
	"gitlab.com/yelinaung/subnest/internal/budget"
	"gitlab.com/yelinaung/subnest/internal/logger"
	"gitlab.com/yelinaung/subnest/internal/memstore"
	"gitlab.com/yelinaung/subnest/internal/models"
	"gitlab.com/yelinaung/subnest/internal/notify"
	"gitlab.com/yelinaung/subnest/internal/recommend"
	"gitlab.com/yelinaung/subnest/internal/trend"
)

func demoCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the engine against sample data held in memory",
		Long: `Seeds an in-memory store with one user, a handful of subscriptions,
bills and budgets, runs the recommendation and reminder jobs and prints the
resulting statistics. With --addr the API is served over the same data.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store := memstore.New()
			userID, err := seedDemo(ctx, store, time.Now())
			if err != nil {
				return err
			}

			d := notify.NewDispatcher().
				Register(models.ChannelPush, notify.LogSender{Channel: models.ChannelPush}).
				Register(models.ChannelEmail, notify.LogSender{Channel: models.ChannelEmail}).
				Register(models.ChannelSMS, notify.LogSender{Channel: models.ChannelSMS})
			notifier := notify.NewService(store, d)

			engine := recommend.New(store, recommend.WithNotifier(notifier))
			if _, err := engine.GenerateAll(ctx); err != nil {
				return err
			}
			if err := notify.NewReminderJob(store, notifier, time.UTC).Run(ctx, time.Now()); err != nil {
				return err
			}

			reporter := trend.New(store)
			evaluator := budget.New(store, reporter, models.DefaultCurrency)
			stats, err := evaluator.Statistics(ctx, userID, time.Now(), 3)
			if err != nil {
				return err
			}
			billingStats := billing.New(store, models.DefaultCurrency)
			subStats, err := billingStats.SubscriptionStatistics(ctx, userID)
			if err != nil {
				return err
			}
			recs, _, err := store.ListRecommendations(ctx, userID, models.RecommendationFilter{})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(stats); err != nil {
				return err
			}
			fmt.Fprintf(out, "subscriptions: %d active, %s %s per month\n",
				subStats.ActiveSubscriptions, subStats.TotalMonthlyCost.StringFixed(2), subStats.Currency)
			for _, r := range recs {
				fmt.Fprintf(out, "- [%s] %s (saves %s %s)\n", r.Type, r.Title, r.PotentialSavings.StringFixed(2), r.Currency)
			}
			fmt.Fprintf(out, "notifications recorded: %d\n", len(store.Notifications()))

			if addr == "" {
				return nil
			}
			fmt.Fprintf(out, "serving API on %s, use %s: %s\n", addr, api.UserIDHeader, userID)
			return serveDemo(ctx, addr, api.NewServer(store, evaluator, reporter, billingStats, models.DefaultCurrency).Routes())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "serve the API on this address after the run")
	return cmd
}

func serveDemo(ctx context.Context, addr string, h http.Handler) error {
	srv := api.NewHTTPServer(addr, h)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func seedDemo(ctx context.Context, store *memstore.Store, now time.Time) (uuid.UUID, error) {
	streaming := store.AddCategory("Streaming")
	music := store.AddCategory("Music")
	software := store.AddCategory("Software")
	utilities := store.AddCategory("Utilities")

	user := &models.User{
		Email:      "demo@subnest.local",
		FirstName:  "Demo",
		IsActive:   true,
		IsVerified: true,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return uuid.Nil, err
	}

	year := now.AddDate(-1, 0, 0)
	subs := []*models.Subscription{
		{Name: "Netflix Premium", Amount: decimal.NewFromInt(230), CategoryID: &streaming.ID},
		{Name: "Disney+", Amount: decimal.NewFromInt(135), CategoryID: &streaming.ID},
		{Name: "Spotify", Amount: decimal.NewFromInt(60), CategoryID: &music.ID},
		{Name: "Cloud IDE", Amount: decimal.NewFromInt(350), CategoryID: &software.ID},
	}
	for i, s := range subs {
		s.UserID = user.ID
		s.StartDate = year
		s.NextBillingDate = now.AddDate(0, 0, models.DefaultDaysBefore+i)
		if err := store.CreateSubscription(ctx, s); err != nil {
			return uuid.Nil, err
		}
	}
	// Netflix and Spotify were charged recently; the rest look unused.
	for _, s := range []*models.Subscription{subs[0], subs[2]} {
		if err := store.CreateTransaction(ctx, &models.Transaction{
			UserID: user.ID, SubscriptionID: &s.ID, Amount: s.Amount, TransactionDate: now.AddDate(0, 0, -10),
		}); err != nil {
			return uuid.Nil, err
		}
	}

	electricity := &models.Bill{
		UserID: user.ID, Name: "Electricity", Amount: decimal.NewFromInt(640),
		CategoryID: &utilities.ID, DueDate: now.AddDate(0, 0, models.DefaultDaysBefore),
	}
	if err := store.CreateBill(ctx, electricity); err != nil {
		return uuid.Nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	budgets := []*models.Budget{
		{Name: "Streaming", Amount: decimal.NewFromInt(380), CategoryID: &streaming.ID},
		{Name: "Software", Amount: decimal.NewFromInt(1000), CategoryID: &software.ID},
	}
	for _, b := range budgets {
		b.UserID = user.ID
		b.Period = models.PeriodMonthly
		b.StartDate = monthStart
		b.IsActive = true
		if err := store.CreateBudget(ctx, b); err != nil {
			return uuid.Nil, err
		}
	}

	logger.Log.Info().Str("user_id", logger.HashUserID(user.ID)).Msg("Demo data seeded")
	return user.ID, nil
}
