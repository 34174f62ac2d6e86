package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/database"
	"gitlab.com/yelinaung/subnest/internal/models"
)

// RecommendationRepository handles recommendation database operations.
type RecommendationRepository struct {
	db database.PGXDB
}

// NewRecommendationRepository creates a new RecommendationRepository.
func NewRecommendationRepository(db database.PGXDB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

const recommendationColumns = `id, user_id, title, description, type, related_id, related_type,
	potential_savings, currency, is_applied, is_dismissed, created_at, updated_at`

// CreateRecommendationIfAbsent inserts rec unless a recommendation with the
// same identity already blocks it. Open and applied recommendations always
// block; dismissed ones block only while updated within dismissCooldown of
// now. The check and the insert are a single statement. Reports whether a
// row was inserted.
func (r *RecommendationRepository) CreateRecommendationIfAbsent(
	ctx context.Context,
	rec *models.Recommendation,
	now time.Time,
	dismissCooldown time.Duration,
) (bool, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Currency == "" {
		rec.Currency = models.DefaultCurrency
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = rec.CreatedAt

	tag, err := r.db.Exec(ctx, `
		INSERT INTO recommendations (id, user_id, title, description, type, related_id, related_type,
			potential_savings, currency, created_at, updated_at)
		SELECT $1::uuid, $2::uuid, $3::text, $4::text, $5::text, $6::uuid, $7::text,
			$8::numeric, $9::text, $10::timestamptz, $10::timestamptz
		WHERE NOT EXISTS (
			SELECT 1 FROM recommendations r
			WHERE r.user_id = $2::uuid AND r.type = $5::text
			  AND (
				($6::uuid IS NOT NULL AND r.related_id = $6::uuid)
				OR ($6::uuid IS NULL AND r.related_id IS NULL
					AND r.related_type IS NOT DISTINCT FROM $7::text AND r.title = $3::text)
			  )
			  AND (NOT r.is_dismissed OR ($11::boolean AND r.updated_at > $12::timestamptz))
		)
	`, rec.ID, rec.UserID, rec.Title, rec.Description, string(rec.Type), rec.RelatedID,
		nullString(rec.RelatedType), rec.PotentialSavings, rec.Currency, rec.CreatedAt,
		dismissCooldown > 0, now.Add(-dismissCooldown),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create recommendation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListRecommendations returns one page of a user's recommendations, newest
// first, and the total number matching the filter.
func (r *RecommendationRepository) ListRecommendations(
	ctx context.Context,
	userID uuid.UUID,
	filter models.RecommendationFilter,
) ([]models.Recommendation, int, error) {
	filter = filter.Normalize()

	conds := []string{"user_id = $1"}
	args := []any{userID}
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.IsApplied != nil {
		args = append(args, *filter.IsApplied)
		conds = append(conds, fmt.Sprintf("is_applied = $%d", len(args)))
	}
	if filter.IsDismissed != nil {
		args = append(args, *filter.IsDismissed)
		conds = append(conds, fmt.Sprintf("is_dismissed = $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM recommendations WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count recommendations: %w", err)
	}

	pageArgs := append(args, filter.Limit, filter.Offset())
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM recommendations
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, recommendationColumns, where, len(args)+1, len(args)+2), pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []models.Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating recommendations: %w", err)
	}
	return recs, total, nil
}

// SumOpenSavings totals the potential savings of recommendations that are
// neither applied nor dismissed.
func (r *RecommendationRepository) SumOpenSavings(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(potential_savings), 0) FROM recommendations
		WHERE user_id = $1 AND NOT is_applied AND NOT is_dismissed
	`, userID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum potential savings: %w", err)
	}
	return total, nil
}

// MarkApplied flags a recommendation as applied and clears any dismissal.
func (r *RecommendationRepository) MarkApplied(ctx context.Context, userID, id uuid.UUID) (*models.Recommendation, error) {
	return r.setState(ctx, userID, id, true, false)
}

// MarkDismissed flags a recommendation as dismissed and clears any
// application.
func (r *RecommendationRepository) MarkDismissed(ctx context.Context, userID, id uuid.UUID) (*models.Recommendation, error) {
	return r.setState(ctx, userID, id, false, true)
}

func (r *RecommendationRepository) setState(ctx context.Context, userID, id uuid.UUID, applied, dismissed bool) (*models.Recommendation, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE recommendations
		SET is_applied = $3, is_dismissed = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+recommendationColumns,
		id, userID, applied, dismissed)
	rec, err := scanRecommendation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update recommendation: %w", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update recommendation: %w", err)
	}
	return rec, nil
}

func scanRecommendation(row rowScanner) (*models.Recommendation, error) {
	var rec models.Recommendation
	var recType string
	var relatedType *string
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.Description, &recType,
		&rec.RelatedID, &relatedType, &rec.PotentialSavings, &rec.Currency,
		&rec.IsApplied, &rec.IsDismissed, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Type = models.RecommendationType(recType)
	if relatedType != nil {
		rec.RelatedType = *relatedType
	}
	return &rec, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
