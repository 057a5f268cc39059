package engine

import (
	"testing"

	"quiz-engine-service/internal/domain"
)

func fractionConfig() domain.ScoringConfig {
	return domain.ScoringConfig{
		DefaultPoints: 1,
		Negative:      domain.NegativeMarking{Type: domain.NegativeFraction, Value: 0.25},
	}
}

func intPtr(v int) *int { return &v }

func TestScoreSingle(t *testing.T) {
	q := domain.Question{
		ID:          "q1",
		Type:        domain.QuestionSingle,
		Options:     []string{"a", "b", "c", "d"},
		AnswerIndex: 2,
	}
	cfg := fractionConfig()

	tests := []struct {
		name    string
		answer  *domain.Answer
		score   float64
		correct bool
		blank   bool
	}{
		{name: "correct index", answer: &domain.Answer{Selected: intPtr(2)}, score: 1, correct: true},
		{name: "wrong index penalized", answer: &domain.Answer{Selected: intPtr(0)}, score: -0.25},
		{name: "no answer is blank", answer: nil, blank: true},
		{name: "nil selection is blank", answer: &domain.Answer{}, blank: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreQuestion(q, tc.answer, cfg)
			if got.Score != tc.score || got.Correct != tc.correct || got.Blank != tc.blank {
				t.Fatalf("got %+v, want score=%v correct=%v blank=%v", got, tc.score, tc.correct, tc.blank)
			}
		})
	}
}

func TestScoreMultipleSetEquality(t *testing.T) {
	q := domain.Question{
		ID:            "q1",
		Type:          domain.QuestionMultiple,
		Options:       []string{"a", "b", "c", "d"},
		AnswerIndices: []int{0, 2},
	}
	cfg := fractionConfig()

	tests := []struct {
		name    string
		answer  *domain.Answer
		score   float64
		correct bool
		blank   bool
	}{
		{name: "order-insensitive match", answer: &domain.Answer{SelectedSet: []int{2, 0}}, score: 1, correct: true},
		{name: "subset is wrong", answer: &domain.Answer{SelectedSet: []int{0}}, score: -0.25},
		{name: "superset is wrong", answer: &domain.Answer{SelectedSet: []int{0, 2, 3}}, score: -0.25},
		{name: "empty set is blank", answer: &domain.Answer{SelectedSet: []int{}}, blank: true},
		{name: "missing is blank", answer: nil, blank: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreQuestion(q, tc.answer, cfg)
			if got.Score != tc.score || got.Correct != tc.correct || got.Blank != tc.blank {
				t.Fatalf("got %+v, want score=%v correct=%v blank=%v", got, tc.score, tc.correct, tc.blank)
			}
		})
	}
}

func TestScoreFill(t *testing.T) {
	q := domain.Question{
		ID:          "q1",
		Type:        domain.QuestionFill,
		AnswerTexts: []string{"Paris", "paris, france"},
	}
	cfg := fractionConfig()

	tests := []struct {
		name    string
		answer  *domain.Answer
		score   float64
		correct bool
		blank   bool
	}{
		{name: "exact", answer: &domain.Answer{Text: "Paris"}, score: 1, correct: true},
		{name: "case-insensitive trimmed", answer: &domain.Answer{Text: "  PARIS  "}, score: 1, correct: true},
		{name: "second accepted form", answer: &domain.Answer{Text: "paris, FRANCE"}, score: 1, correct: true},
		{name: "wrong penalized", answer: &domain.Answer{Text: "London"}, score: -0.25},
		{name: "whitespace only is blank", answer: &domain.Answer{Text: "   "}, blank: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreQuestion(q, tc.answer, cfg)
			if got.Score != tc.score || got.Correct != tc.correct || got.Blank != tc.blank {
				t.Fatalf("got %+v, want score=%v correct=%v blank=%v", got, tc.score, tc.correct, tc.blank)
			}
		})
	}
}

func TestUnattemptedSlotNeverPenalized(t *testing.T) {
	cfg := fractionConfig()
	cfg.OptionEEnabled = true
	cfg.NoNegativeForOptionE = true

	// Four real options plus the fixed slot at index 4.
	q := domain.Question{
		ID:          "q1",
		Type:        domain.QuestionSingle,
		Options:     []string{"a", "b", "c", "d", "Unattempted"},
		AnswerIndex: 1,
	}
	got := ScoreQuestion(q, &domain.Answer{Selected: intPtr(4)}, cfg)
	if got.Score != 0 || got.Correct || got.Blank {
		t.Fatalf("expected zero-score non-blank result, got %+v", got)
	}

	multi := domain.Question{
		ID:            "q2",
		Type:          domain.QuestionMultiple,
		Options:       []string{"a", "b", "c", "Unattempted"},
		AnswerIndices: []int{0, 1},
	}
	got = ScoreQuestion(multi, &domain.Answer{SelectedSet: []int{3}}, cfg)
	if got.Score != 0 || got.Correct || got.Blank {
		t.Fatalf("expected zero-score non-blank result, got %+v", got)
	}
}

func TestNegativeMarkingVariants(t *testing.T) {
	points := 4.0
	q := domain.Question{
		ID:          "q1",
		Type:        domain.QuestionSingle,
		Options:     []string{"a", "b"},
		AnswerIndex: 0,
		Points:      &points,
	}
	wrong := &domain.Answer{Selected: intPtr(1)}

	tests := []struct {
		name  string
		neg   domain.NegativeMarking
		score float64
	}{
		{name: "none", neg: domain.NegativeMarking{Type: domain.NegativeNone}, score: 0},
		{name: "fraction of points", neg: domain.NegativeMarking{Type: domain.NegativeFraction, Value: 0.25}, score: -1},
		{name: "flat custom", neg: domain.NegativeMarking{Type: domain.NegativeCustom, Value: 2}, score: -2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := domain.ScoringConfig{DefaultPoints: 1, Negative: tc.neg}
			got := ScoreQuestion(q, wrong, cfg)
			if got.Score != tc.score {
				t.Fatalf("expected score %v, got %v", tc.score, got.Score)
			}
			if got.Blank {
				t.Fatalf("wrong answer must not be blank")
			}
		})
	}
}

func TestScoringIsPure(t *testing.T) {
	q := domain.Question{ID: "q1", Type: domain.QuestionSingle, Options: []string{"a", "b"}, AnswerIndex: 1}
	ans := &domain.Answer{Selected: intPtr(0)}
	cfg := fractionConfig()

	first := ScoreQuestion(q, ans, cfg)
	for i := 0; i < 10; i++ {
		if got := ScoreQuestion(q, ans, cfg); got != first {
			t.Fatalf("scoring diverged on call %d: %+v vs %+v", i, got, first)
		}
	}
}

func TestGradeAggregates(t *testing.T) {
	cfg := fractionConfig()
	questions := []domain.Question{
		{ID: "q1", Type: domain.QuestionSingle, Options: []string{"a", "b"}, AnswerIndex: 0},
		{ID: "q2", Type: domain.QuestionSingle, Options: []string{"a", "b"}, AnswerIndex: 0},
		{ID: "q3", Type: domain.QuestionFill, AnswerTexts: []string{"x"}},
	}
	answers := map[string]domain.Answer{
		"q1": {Selected: intPtr(0)}, // correct
		"q2": {Selected: intPtr(1)}, // wrong
	}

	rec := Grade(questions, answers, cfg, 90)
	if rec.Score != 0.75 {
		t.Fatalf("expected score 0.75, got %v", rec.Score)
	}
	if rec.MaxScore != 3 {
		t.Fatalf("expected max score 3, got %v", rec.MaxScore)
	}
	if rec.CorrectCount != 1 || rec.WrongCount != 1 || rec.BlankCount != 1 {
		t.Fatalf("unexpected counts: %+v", rec)
	}
	if rec.DurationSeconds != 90 {
		t.Fatalf("expected duration 90, got %d", rec.DurationSeconds)
	}
	if len(rec.PerQuestion) != 3 {
		t.Fatalf("expected 3 per-question results, got %d", len(rec.PerQuestion))
	}
	if !rec.PerQuestion["q3"].Blank {
		t.Fatalf("expected q3 blank")
	}
}

func TestBlankNeverPenalized(t *testing.T) {
	cfg := domain.ScoringConfig{
		DefaultPoints: 2,
		Negative:      domain.NegativeMarking{Type: domain.NegativeCustom, Value: 5},
	}
	questions := []domain.Question{
		{ID: "q1", Type: domain.QuestionSingle, Options: []string{"a"}, AnswerIndex: 0},
		{ID: "q2", Type: domain.QuestionMultiple, Options: []string{"a", "b"}, AnswerIndices: []int{0}},
		{ID: "q3", Type: domain.QuestionFill, AnswerTexts: []string{"x"}},
	}
	rec := Grade(questions, map[string]domain.Answer{}, cfg, 0)
	if rec.Score != 0 || rec.BlankCount != 3 || rec.WrongCount != 0 {
		t.Fatalf("blank questions must score zero: %+v", rec)
	}
}
