package engine

import (
	"testing"
	"time"

	"quiz-engine-service/internal/domain"
)

func minutes(v int) *int { return &v }

func sectionedQuiz() domain.Quiz {
	return Normalize(domain.RawQuiz{
		ID:    "quiz-1",
		Title: "Mock Test",
		Rules: map[string]any{"useSections": true, "timingMode": "section", "optionEEnabled": true},
		Sections: []domain.RawSection{
			{ID: "phys", Title: "Physics", DurationMinutes: minutes(10), QuestionIDs: []string{"q1", "q2"}},
			{ID: "chem", Title: "Chemistry", DurationMinutes: minutes(5), QuestionIDs: []string{"q3"}},
		},
		Questions: []domain.RawQuestion{
			{ID: "q1", Type: "single", Options: rawJSON(`["a","b","c","d"]`), Answer: rawJSON(`0`), SectionID: "phys"},
			{ID: "q2", Type: "single", Options: rawJSON(`["a","b","c","d"]`), Answer: rawJSON(`1`), SectionID: "phys"},
			{ID: "q3", Type: "single", Options: rawJSON(`["a","b","c","d"]`), Answer: rawJSON(`2`), SectionID: "chem"},
		},
	})
}

func overallQuiz() domain.Quiz {
	quiz := Normalize(domain.RawQuiz{
		ID:        "quiz-2",
		Questions: []domain.RawQuestion{{ID: "q1", Type: "single", Options: rawJSON(`["a","b"]`), Answer: rawJSON(`0`)}},
	})
	quiz.DurationMinutes = minutes(30)
	return quiz
}

func rawJSON(s string) []byte { return []byte(s) }

func startedAttempt(t *testing.T, quiz domain.Quiz, now time.Time) *Attempt {
	t.Helper()
	a := NewAttempt(quiz)
	if !a.Begin() {
		t.Fatalf("begin failed")
	}
	if !a.AcceptRules(now) {
		t.Fatalf("accept rules failed")
	}
	return a
}

func TestLifecyclePhases(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := NewAttempt(sectionedQuiz())

	if a.Phase != PhaseNotStarted {
		t.Fatalf("fresh attempt must be not_started, got %s", a.Phase)
	}
	if a.AcceptRules(now) {
		t.Fatalf("accepting rules before begin must be a no-op")
	}
	if !a.Begin() || a.Phase != PhaseRulesPending {
		t.Fatalf("begin must reach rules_pending, got %s", a.Phase)
	}
	if !a.AcceptRules(now) || a.Phase != PhaseSectionSelect {
		t.Fatalf("multi-section attempt must reach section_select, got %s", a.Phase)
	}
	if !a.SelectSection(0, now) || a.Phase != PhaseSectionActive {
		t.Fatalf("selecting a section must activate it, got %s", a.Phase)
	}
	if !a.SectionLocked {
		t.Fatalf("entering a section must lock selection")
	}
	if a.SelectSection(1, now) {
		t.Fatalf("selection must be one-way once locked")
	}
}

func TestSingleSectionSkipsSelection(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := startedAttempt(t, overallQuiz(), now)
	if a.Phase != PhaseSectionActive {
		t.Fatalf("single-section quiz must go straight to section_active, got %s", a.Phase)
	}
	if a.OverallEnd == nil || !a.OverallEnd.Equal(now.Add(30*time.Minute)) {
		t.Fatalf("overall countdown must start at first section start: %v", a.OverallEnd)
	}
}

func TestAnswerMutationGating(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := NewAttempt(sectionedQuiz())
	a.Begin()

	if a.SetAnswer("q1", domain.Answer{Selected: intPtr(0)}) {
		t.Fatalf("answers must be rejected while rules are pending")
	}
	a.AcceptRules(now)
	if a.SetAnswer("q1", domain.Answer{Selected: intPtr(0)}) {
		t.Fatalf("answers must be rejected during section selection")
	}
	a.SelectSection(0, now)
	if !a.SetAnswer("q1", domain.Answer{Selected: intPtr(0)}) {
		t.Fatalf("answers must be accepted while a section is active")
	}
	if a.SetAnswer("nope", domain.Answer{Selected: intPtr(0)}) {
		t.Fatalf("unknown question ids must be ignored")
	}

	// Last write wins.
	a.SetAnswer("q1", domain.Answer{Selected: intPtr(3)})
	if *a.Answers["q1"].Selected != 3 {
		t.Fatalf("expected last write to win, got %+v", a.Answers["q1"])
	}

	if _, err := a.Submit(now.Add(time.Minute), false); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if a.SetAnswer("q2", domain.Answer{Selected: intPtr(1)}) {
		t.Fatalf("answers must be rejected after submission")
	}
}

func TestSectionTimeoutAutofillsAndAdvances(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := startedAttempt(t, sectionedQuiz(), now)
	a.SelectSection(0, now)
	a.SetAnswer("q1", domain.Answer{Selected: intPtr(0)})

	if events := a.Tick(now.Add(9 * time.Minute)); len(events) != 0 {
		t.Fatalf("tick before expiry must be quiet, got %v", events)
	}

	events := a.Tick(now.Add(10 * time.Minute))
	if len(events) != 2 || events[0].Kind != EventSectionExpired || events[1].Kind != EventSectionAdvanced {
		t.Fatalf("unexpected events: %v", events)
	}
	if events[0].SectionID != "phys" || events[1].SectionID != "chem" {
		t.Fatalf("unexpected section ids: %v", events)
	}

	// q2 was blank when physics expired: it gets the unattempted slot, which
	// for a 4-option question with the slot appended is index 4.
	if ans, ok := a.Answers["q2"]; !ok || ans.Selected == nil || *ans.Selected != 4 {
		t.Fatalf("expected q2 autofilled with slot 4, got %+v", a.Answers["q2"])
	}
	if ans := a.Answers["q1"]; *ans.Selected != 0 {
		t.Fatalf("answered question must not be overwritten: %+v", ans)
	}

	// The chemistry timer restarts from the advance time.
	if a.SectionEnd == nil || !a.SectionEnd.Equal(now.Add(10*time.Minute).Add(5*time.Minute)) {
		t.Fatalf("next section timer wrong: %v", a.SectionEnd)
	}
}

func TestLastSectionTimeoutForcesSubmission(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := startedAttempt(t, sectionedQuiz(), now)
	a.SelectSection(1, now) // start at the final section

	events := a.Tick(now.Add(5 * time.Minute))
	if len(events) != 2 || events[1].Kind != EventSubmitted || !events[1].Forced {
		t.Fatalf("expected forced submission, got %v", events)
	}
	if a.Phase != PhaseSubmitted || a.Result == nil {
		t.Fatalf("attempt must be submitted: phase=%s", a.Phase)
	}
	// Autofilled slot answers never count as standard wrong answers.
	if a.Result.WrongCount != 0 {
		t.Fatalf("expected no wrong answers, got %+v", a.Result)
	}
}

func TestOverallTimeoutForcesSubmission(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := startedAttempt(t, overallQuiz(), now)

	events := a.Tick(now.Add(30 * time.Minute))
	if len(events) != 1 || events[0].Kind != EventSubmitted || !events[0].Forced {
		t.Fatalf("expected immediate forced submission, got %v", events)
	}
	if a.Result == nil || a.Result.DurationSeconds != 1800 {
		t.Fatalf("unexpected result: %+v", a.Result)
	}

	// A later tick after submission is a no-op.
	if events := a.Tick(now.Add(31 * time.Minute)); events != nil {
		t.Fatalf("tick after submission must be quiet, got %v", events)
	}
}

func TestMinAttemptGate(t *testing.T) {
	quiz := sectionedQuiz()
	quiz.Rules.MinAttemptPercent = 50
	now := time.Unix(1700000000, 0)
	a := startedAttempt(t, quiz, now)
	a.SelectSection(0, now)

	if _, err := a.Submit(now.Add(time.Minute), false); err != domain.ErrMinAttemptNotMet {
		t.Fatalf("expected min-attempt rejection, got %v", err)
	}
	if a.Phase == PhaseSubmitted {
		t.Fatalf("rejected submission must leave the attempt open")
	}
	// Answering may continue after the rejection.
	if !a.SetAnswer("q1", domain.Answer{Selected: intPtr(0)}) {
		t.Fatalf("attempt must remain answerable")
	}
	a.SetAnswer("q2", domain.Answer{Selected: intPtr(1)})

	if _, err := a.Submit(now.Add(2*time.Minute), false); err != nil {
		t.Fatalf("expected submission to pass at 2/3 answered: %v", err)
	}

	// Forced submission bypasses the gate entirely.
	b := startedAttempt(t, quiz, now)
	b.SelectSection(0, now)
	if _, err := b.Submit(now, true); err != nil {
		t.Fatalf("forced submission must bypass the gate: %v", err)
	}
}

func TestSubmitRequiresActiveSection(t *testing.T) {
	now := time.Unix(1700000000, 0)

	// From the rules screen.
	a := NewAttempt(overallQuiz())
	a.Begin()
	if _, err := a.Submit(now, false); err != domain.ErrAttemptNotActive {
		t.Fatalf("expected rejection from rules screen, got %v", err)
	}
	if a.Phase != PhaseRulesPending || a.Result != nil {
		t.Fatalf("rejected submit must not change state: phase=%s", a.Phase)
	}

	// From section selection, even forced.
	b := startedAttempt(t, sectionedQuiz(), now)
	if b.Phase != PhaseSectionSelect {
		t.Fatalf("fixture must stop at section selection, got %s", b.Phase)
	}
	if _, err := b.Submit(now, true); err != domain.ErrAttemptNotActive {
		t.Fatalf("expected rejection before any section starts, got %v", err)
	}

	// Once a section is active the same call succeeds.
	b.SelectSection(0, now)
	if _, err := b.Submit(now, true); err != nil {
		t.Fatalf("submit from active section: %v", err)
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := startedAttempt(t, overallQuiz(), now)
	a.SetAnswer("q1", domain.Answer{Selected: intPtr(0)})

	first, err := a.Submit(now.Add(time.Minute), false)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := a.Submit(now.Add(2*time.Minute), true)
	if err != nil || second != first {
		t.Fatalf("second submit must return the original record")
	}
	if first.DurationSeconds != 60 {
		t.Fatalf("duration must be frozen at first submission, got %d", first.DurationSeconds)
	}
}

func TestRemainingRecomputedFromEndTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := startedAttempt(t, sectionedQuiz(), now)
	a.SelectSection(0, now)

	if r := a.Remaining(now.Add(9*time.Minute + 30*time.Second)); r == nil || *r != 30 {
		t.Fatalf("expected 30s remaining, got %v", r)
	}
	if r := a.Remaining(now.Add(11 * time.Minute)); r == nil || *r != 0 {
		t.Fatalf("remaining must clamp at zero, got %v", r)
	}
}

func TestNextSectionIsForwardOnly(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := startedAttempt(t, sectionedQuiz(), now)
	a.SelectSection(0, now)

	if !a.NextSection(now.Add(time.Minute)) {
		t.Fatalf("advancing to chemistry must work")
	}
	if a.currentSection().ID != "chem" {
		t.Fatalf("expected chemistry active, got %s", a.currentSection().ID)
	}
	if a.NextSection(now.Add(2 * time.Minute)) {
		t.Fatalf("advancing past the last section must be a no-op")
	}
}

func TestPaperReflectsPresentationOrder(t *testing.T) {
	now := time.Unix(1700000000, 0)
	a := startedAttempt(t, sectionedQuiz(), now)

	paper := a.Paper()
	if len(paper.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(paper.Sections))
	}
	total := 0
	for _, sec := range paper.Sections {
		total += len(sec.Questions)
		for _, q := range sec.Questions {
			if q.Number == 0 {
				t.Fatalf("question %s missing number", q.ID)
			}
			if len(q.Options) != 5 {
				t.Fatalf("expected 4 options plus slot, got %d", len(q.Options))
			}
		}
	}
	if total != 3 {
		t.Fatalf("expected 3 questions, got %d", total)
	}
}
