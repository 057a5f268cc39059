package engine

import "quiz-engine-service/internal/domain"

// SectionBreakdown recomputes per-section subtotals by filtering questions to
// each section's id list and re-running the same per-question scoring. Because
// sections partition the quiz, the rows sum exactly to the overall
// ResultRecord totals.
func SectionBreakdown(quiz domain.Quiz, answers map[string]domain.Answer) []domain.SectionResult {
	rows := make([]domain.SectionResult, 0, len(quiz.Sections))
	for _, sec := range quiz.Sections {
		row := domain.SectionResult{SectionID: sec.ID, Title: sec.Title}
		for _, qid := range sec.QuestionIDs {
			q := quiz.QuestionByID(qid)
			if q == nil {
				continue
			}
			res := ScoreQuestion(*q, answerFor(answers, q.ID), quiz.Scoring)
			row.Score += res.Score
			row.MaxScore += questionPoints(*q, quiz.Scoring)
			switch {
			case res.Blank:
				row.BlankCount++
			case res.Correct:
				row.CorrectCount++
			case unattemptedResult(*q, answers, quiz.Scoring):
			default:
				row.WrongCount++
			}
		}
		rows = append(rows, row)
	}
	return rows
}
