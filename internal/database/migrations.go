package database

import (
	"context"
	"fmt"
)

// RunMigrations creates the database schema. Every statement is idempotent.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL DEFAULT '',
			last_name TEXT NOT NULL DEFAULT '',
			phone_number TEXT NOT NULL DEFAULT '',
			telegram_chat_id BIGINT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			preferences JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS user_categories (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, name)
		)`,

		`CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			amount DECIMAL(12, 2) NOT NULL CHECK (amount >= 0),
			currency TEXT NOT NULL DEFAULT 'TRY',
			billing_cycle TEXT NOT NULL DEFAULT 'monthly'
				CHECK (billing_cycle IN ('weekly', 'monthly', 'quarterly', 'yearly')),
			category_id UUID REFERENCES categories(id),
			user_category_id UUID REFERENCES user_categories(id),
			status TEXT NOT NULL DEFAULT 'active'
				CHECK (status IN ('active', 'cancelled', 'paused')),
			start_date DATE NOT NULL,
			next_billing_date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (category_id IS NULL OR user_category_id IS NULL)
		)`,

		`CREATE TABLE IF NOT EXISTS bills (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			amount DECIMAL(12, 2) NOT NULL CHECK (amount >= 0),
			currency TEXT NOT NULL DEFAULT 'TRY',
			due_date DATE NOT NULL,
			category_id UUID REFERENCES categories(id),
			user_category_id UUID REFERENCES user_categories(id),
			payment_status TEXT NOT NULL DEFAULT 'pending'
				CHECK (payment_status IN ('pending', 'paid', 'overdue')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (category_id IS NULL OR user_category_id IS NULL)
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			subscription_id UUID REFERENCES subscriptions(id) ON DELETE SET NULL,
			bill_id UUID REFERENCES bills(id) ON DELETE SET NULL,
			amount DECIMAL(12, 2) NOT NULL,
			currency TEXT NOT NULL DEFAULT 'TRY',
			transaction_date DATE NOT NULL,
			status TEXT NOT NULL DEFAULT 'completed',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS budgets (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			amount DECIMAL(12, 2) NOT NULL CHECK (amount >= 0),
			currency TEXT NOT NULL DEFAULT 'TRY',
			period TEXT NOT NULL DEFAULT 'monthly'
				CHECK (period IN ('monthly', 'quarterly', 'yearly')),
			start_date DATE NOT NULL,
			end_date DATE,
			category_id UUID REFERENCES categories(id),
			user_category_id UUID REFERENCES user_categories(id),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (category_id IS NULL OR user_category_id IS NULL),
			CHECK (end_date IS NULL OR end_date >= start_date)
		)`,

		`CREATE TABLE IF NOT EXISTS recommendations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL CHECK (type IN ('subscription_sharing', 'switch_plan',
				'cancel_unused', 'consolidate_services', 'budget_optimization')),
			related_id UUID,
			related_type TEXT,
			potential_savings DECIMAL(12, 2) NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT 'TRY',
			is_applied BOOLEAN NOT NULL DEFAULT FALSE,
			is_dismissed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (NOT (is_applied AND is_dismissed))
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			related_id UUID,
			related_type TEXT,
			channel TEXT NOT NULL CHECK (channel IN ('push', 'email', 'sms')),
			delivery_status TEXT NOT NULL DEFAULT 'pending'
				CHECK (delivery_status IN ('pending', 'sent', 'failed')),
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			sent_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_status ON subscriptions(user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_next_billing ON subscriptions(next_billing_date)`,
		`CREATE INDEX IF NOT EXISTS idx_bills_user_due ON bills(user_id, due_date)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, transaction_date)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_subscription ON transactions(subscription_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_bill ON transactions(bill_id)`,
		`CREATE INDEX IF NOT EXISTS idx_budgets_user_active ON budgets(user_id, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_user_type ON recommendations(user_id, type)`,
		`CREATE INDEX IF NOT EXISTS idx_recommendations_created_at ON recommendations(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user_related ON notifications(user_id, type, related_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications(created_at) WHERE delivery_status = 'pending'`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// DefaultCategories are the system categories seeded on startup. Streaming
// and Music drive the sharing and family plan recommendations.
var DefaultCategories = []string{
	"Streaming",
	"Music",
	"Gaming",
	"Software",
	"News & Magazines",
	"Cloud Storage",
	"Fitness",
	"Education",
	"Utilities",
	"Housing",
	"Insurance",
	"Communication",
	"Transportation",
	"Others",
}

// SeedCategories inserts the default system categories.
func SeedCategories(ctx context.Context, db PGXDB) error {
	for _, cat := range DefaultCategories {
		_, err := db.Exec(ctx,
			`INSERT INTO categories (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
			cat,
		)
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", cat, err)
		}
	}

	return nil
}
