package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

// RecommendationRepo persists catalog recommendations per user.
type RecommendationRepo struct{ Pool PgxPool }

var _ domain.RecommendationStore = (*RecommendationRepo)(nil)

// NewRecommendationRepo constructs a RecommendationRepo with the given pool.
func NewRecommendationRepo(p PgxPool) *RecommendationRepo { return &RecommendationRepo{Pool: p} }

// SaveRecommendations replaces the user's stored recommendations in one transaction.
func (r *RecommendationRepo) SaveRecommendations(ctx domain.Context, userID string, recs []domain.CatalogRecommendation) (err error) {
	ctx, span := otel.Tracer("repo.recommendations").Start(ctx, "recommendations.Save")
	defer span.End()
	if userID == "" {
		return fmt.Errorf("%w: user id required", domain.ErrInvalidArgument)
	}
	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=recommendations.save begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM scholarship_recommendations WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("op=recommendations.save delete: %w", err)
	}
	const ins = `INSERT INTO scholarship_recommendations (id, user_id, scholarship_id, match_score, priority_level, match_reasons, generated_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7)`
	for _, rec := range recs {
		if _, err = tx.Exec(ctx, ins, uuid.NewString(), userID, rec.ScholarshipID, rec.MatchScore,
			rec.PriorityLevel, nonNil(rec.MatchReasons), rec.GeneratedAt); err != nil {
			return fmt.Errorf("op=recommendations.save insert %s: %w", rec.ScholarshipID, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=recommendations.save commit: %w", err)
	}
	return nil
}
