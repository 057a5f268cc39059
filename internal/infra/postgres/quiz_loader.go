package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-engine-service/internal/domain"
	"quiz-engine-service/internal/engine"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads raw quiz JSONB documents from Postgres and normalizes
// them into the canonical model.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var doc domain.RawQuiz
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	if doc.ID == "" {
		doc.ID = quizID
	}
	return engine.Normalize(doc), nil
}
