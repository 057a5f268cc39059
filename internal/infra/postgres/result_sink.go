package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-engine-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultSink archives submitted attempt records for history and analytics.
type ResultSink struct {
	pool *pgxpool.Pool
}

func NewResultSink(pool *pgxpool.Pool) *ResultSink {
	return &ResultSink{pool: pool}
}

func (s *ResultSink) Record(ctx context.Context, quizID, userID string, rec domain.ResultRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO attempt_results (quiz_id, user_id, score, max_score, correct_count, wrong_count, blank_count, duration_seconds, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)`,
		quizID, userID, rec.Score, rec.MaxScore, rec.CorrectCount, rec.WrongCount, rec.BlankCount, rec.DurationSeconds, string(data),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}
