package engine

import (
	"strings"

	"quiz-engine-service/internal/domain"
)

// ScoreQuestion grades a single question. It is a pure function of
// (question, answer, config): no shuffle order, timing, or call order leaks
// in. A nil answer means the question was never touched.
func ScoreQuestion(q domain.Question, ans *domain.Answer, cfg domain.ScoringConfig) domain.QuestionResult {
	points := questionPoints(q, cfg)

	if isBlank(q, ans) {
		return domain.QuestionResult{Score: 0, Correct: false, Blank: true}
	}

	switch q.Type {
	case domain.QuestionSingle:
		sel := *ans.Selected
		if unattemptedSelected(q, cfg, []int{sel}) {
			return domain.QuestionResult{}
		}
		if sel == q.AnswerIndex {
			return domain.QuestionResult{Score: points, Correct: true}
		}
		return domain.QuestionResult{Score: -penalty(points, cfg.Negative)}

	case domain.QuestionMultiple:
		if unattemptedSelected(q, cfg, ans.SelectedSet) {
			return domain.QuestionResult{}
		}
		// The correct set is derived from this question alone.
		if intSetEqual(ans.SelectedSet, q.AnswerIndices) {
			return domain.QuestionResult{Score: points, Correct: true}
		}
		return domain.QuestionResult{Score: -penalty(points, cfg.Negative)}

	case domain.QuestionFill:
		submitted := strings.TrimSpace(ans.Text)
		for _, accepted := range q.AnswerTexts {
			if strings.EqualFold(submitted, strings.TrimSpace(accepted)) {
				return domain.QuestionResult{Score: points, Correct: true}
			}
		}
		return domain.QuestionResult{Score: -penalty(points, cfg.Negative)}
	}

	return domain.QuestionResult{Blank: true}
}

// Grade evaluates the whole answer map into an immutable ResultRecord.
// MaxScore sums per-question point values and is never reduced by negative
// marking.
func Grade(questions []domain.Question, answers map[string]domain.Answer, cfg domain.ScoringConfig, durationSeconds int) domain.ResultRecord {
	rec := domain.ResultRecord{
		PerQuestion:     make(map[string]domain.QuestionResult, len(questions)),
		DurationSeconds: durationSeconds,
	}
	for _, q := range questions {
		res := ScoreQuestion(q, answerFor(answers, q.ID), cfg)
		rec.PerQuestion[q.ID] = res
		rec.Score += res.Score
		rec.MaxScore += questionPoints(q, cfg)
		switch {
		case res.Blank:
			rec.BlankCount++
		case res.Correct:
			rec.CorrectCount++
		case unattemptedResult(q, answers, cfg):
			// Explicitly marked unattempted: neither correct nor a standard
			// wrong answer.
		default:
			rec.WrongCount++
		}
	}
	return rec
}

// IsAnswered reports whether the recorded answer counts as non-blank, which
// feeds the minimum-attempt gate.
func IsAnswered(q domain.Question, answers map[string]domain.Answer) bool {
	return !isBlank(q, answerFor(answers, q.ID))
}

func answerFor(answers map[string]domain.Answer, id string) *domain.Answer {
	if ans, ok := answers[id]; ok {
		return &ans
	}
	return nil
}

func questionPoints(q domain.Question, cfg domain.ScoringConfig) float64 {
	if q.Points != nil {
		return *q.Points
	}
	return cfg.DefaultPoints
}

func isBlank(q domain.Question, ans *domain.Answer) bool {
	if ans == nil {
		return true
	}
	switch q.Type {
	case domain.QuestionSingle:
		return ans.Selected == nil
	case domain.QuestionMultiple:
		return len(ans.SelectedSet) == 0
	case domain.QuestionFill:
		return strings.TrimSpace(ans.Text) == ""
	}
	return true
}

// unattemptedSelected reports whether the fixed final unattempted slot was
// picked. Such answers never incur negative marking and are not counted as
// standard wrong answers.
func unattemptedSelected(q domain.Question, cfg domain.ScoringConfig, selected []int) bool {
	if !cfg.OptionEEnabled || !cfg.NoNegativeForOptionE || len(q.Options) == 0 {
		return false
	}
	slot := len(q.Options) - 1
	for _, idx := range selected {
		if idx == slot {
			return true
		}
	}
	return false
}

func unattemptedResult(q domain.Question, answers map[string]domain.Answer, cfg domain.ScoringConfig) bool {
	ans := answerFor(answers, q.ID)
	if ans == nil {
		return false
	}
	switch q.Type {
	case domain.QuestionSingle:
		if ans.Selected == nil {
			return false
		}
		return unattemptedSelected(q, cfg, []int{*ans.Selected})
	case domain.QuestionMultiple:
		return unattemptedSelected(q, cfg, ans.SelectedSet)
	}
	return false
}

func penalty(points float64, neg domain.NegativeMarking) float64 {
	switch neg.Type {
	case domain.NegativeFraction:
		return points * neg.Value
	case domain.NegativeCustom:
		return neg.Value
	default:
		return 0
	}
}

func intSetEqual(a, b []int) bool {
	as := make(map[int]struct{}, len(a))
	for _, v := range a {
		as[v] = struct{}{}
	}
	bs := make(map[int]struct{}, len(b))
	for _, v := range b {
		bs[v] = struct{}{}
	}
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if _, ok := bs[v]; !ok {
			return false
		}
	}
	return true
}
