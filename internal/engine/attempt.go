package engine

import (
	"time"

	"quiz-engine-service/internal/domain"
)

// Phase is the attempt lifecycle state.
type Phase string

const (
	PhaseNotStarted    Phase = "not_started"
	PhaseRulesPending  Phase = "rules_pending"
	PhaseSectionSelect Phase = "section_select"
	PhaseSectionActive Phase = "section_active"
	PhaseSubmitted     Phase = "submitted"
)

// EventKind tags a transition produced by a timer tick.
type EventKind string

const (
	EventSectionExpired  EventKind = "section_expired"
	EventSectionAdvanced EventKind = "section_advanced"
	EventSubmitted       EventKind = "submitted"
)

// Event is a state transition that resulted from a Tick.
type Event struct {
	Kind      EventKind `json:"kind"`
	SectionID string    `json:"sectionId,omitempty"`
	Forced    bool      `json:"forced,omitempty"`
}

// Attempt is the explicit, serializable state of one test-taking session.
// It is mutated only through its transition methods; the host renders
// snapshots and calls Tick on a schedule. Invalid transitions are silent
// no-ops, so a confused caller can never corrupt the lifecycle.
type Attempt struct {
	Quiz           domain.Quiz              `json:"quiz"`
	Phase          Phase                    `json:"phase"`
	StartedAt      *time.Time               `json:"startedAt,omitempty"`
	Answers        map[string]domain.Answer `json:"answers"`
	CurrentSection int                      `json:"currentSection"`
	SectionLocked  bool                     `json:"sectionLocked"`
	OverallEnd     *time.Time               `json:"overallEnd,omitempty"`
	SectionEnd     *time.Time               `json:"sectionEnd,omitempty"`
	Presentation   Presentation             `json:"presentation"`
	Result         *domain.ResultRecord     `json:"result,omitempty"`
}

// NewAttempt creates an attempt in the NotStarted phase for a normalized quiz.
func NewAttempt(quiz domain.Quiz) *Attempt {
	return &Attempt{
		Quiz:    quiz,
		Phase:   PhaseNotStarted,
		Answers: make(map[string]domain.Answer),
	}
}

// Begin moves the attempt to the rules screen.
func (a *Attempt) Begin() bool {
	if a.Phase != PhaseNotStarted {
		return false
	}
	a.Phase = PhaseRulesPending
	return true
}

// AcceptRules records the attempt start, derives the presentation order from
// the start timestamp, and either opens section selection (multi-section) or
// starts the only section immediately.
func (a *Attempt) AcceptRules(now time.Time) bool {
	if a.Phase != PhaseRulesPending {
		return false
	}
	started := now
	a.StartedAt = &started
	a.Presentation = BuildPresentation(a.Quiz, started.Unix())

	if len(a.Quiz.Sections) > 1 {
		a.Phase = PhaseSectionSelect
		return true
	}
	a.startSection(0, now)
	return true
}

// SelectSection starts the attempt at the chosen position in presentation
// order. Entering a section is one-way: once any section has started the
// selection screen is unreachable.
func (a *Attempt) SelectSection(pos int, now time.Time) bool {
	if a.Phase != PhaseSectionSelect || a.SectionLocked {
		return false
	}
	if pos < 0 || pos >= len(a.Presentation.SectionOrder) {
		return false
	}
	a.startSection(pos, now)
	return true
}

// SetAnswer records an answer with last-write-wins semantics. Mutation is
// only permitted while a section is active.
func (a *Attempt) SetAnswer(questionID string, ans domain.Answer) bool {
	if a.Phase != PhaseSectionActive {
		return false
	}
	if a.Quiz.QuestionByID(questionID) == nil {
		return false
	}
	a.Answers[questionID] = ans
	return true
}

// NextSection voluntarily advances to the following section in presentation
// order, locking the current one. On the last section it is a no-op; the
// test-taker submits instead.
func (a *Attempt) NextSection(now time.Time) bool {
	if a.Phase != PhaseSectionActive {
		return false
	}
	if a.CurrentSection+1 >= len(a.Presentation.SectionOrder) {
		return false
	}
	a.startSection(a.CurrentSection+1, now)
	return true
}

// Tick recomputes remaining time from the absolute end timestamps and applies
// any due transition. The host calls it roughly once per second; the returned
// events describe what happened, in order.
func (a *Attempt) Tick(now time.Time) []Event {
	if a.Phase != PhaseSectionActive {
		return nil
	}

	if a.OverallEnd != nil && !now.Before(*a.OverallEnd) {
		a.forceSubmit(now)
		return []Event{{Kind: EventSubmitted, Forced: true}}
	}

	if a.SectionEnd != nil && !now.Before(*a.SectionEnd) {
		sec := a.currentSection()
		events := []Event{{Kind: EventSectionExpired, SectionID: sec.ID}}
		a.fillUnattempted(sec)
		if a.CurrentSection+1 < len(a.Presentation.SectionOrder) {
			a.startSection(a.CurrentSection+1, now)
			events = append(events, Event{Kind: EventSectionAdvanced, SectionID: a.currentSection().ID})
		} else {
			a.forceSubmit(now)
			events = append(events, Event{Kind: EventSubmitted, Forced: true})
		}
		return events
	}
	return nil
}

// Submit finalizes the attempt. Only an attempt with an active section can be
// submitted: a submit sent from the rules screen or section selection is
// rejected, so a confused client cannot finalize an all-blank record. Manual
// submissions below the minimum-attempt threshold are rejected and the
// attempt stays open; forced submissions skip only the threshold. A second
// call after submission is a no-op returning the existing record.
func (a *Attempt) Submit(now time.Time, forced bool) (*domain.ResultRecord, error) {
	if a.Result != nil {
		return a.Result, nil
	}
	if a.Phase != PhaseSectionActive {
		return nil, domain.ErrAttemptNotActive
	}
	if !forced && !a.minAttemptMet() {
		return nil, domain.ErrMinAttemptNotMet
	}
	rec := Grade(a.Quiz.Questions, a.Answers, a.Quiz.Scoring, a.elapsedSeconds(now))
	a.Result = &rec
	a.Phase = PhaseSubmitted
	return a.Result, nil
}

// Remaining reports the active countdown in whole seconds, or nil when no
// timer applies.
func (a *Attempt) Remaining(now time.Time) *int {
	if a.Phase != PhaseSectionActive {
		return nil
	}
	var end *time.Time
	switch a.Quiz.Rules.TimingMode {
	case domain.TimingSection:
		end = a.SectionEnd
	default:
		end = a.OverallEnd
	}
	if end == nil {
		return nil
	}
	secs := int(end.Sub(now).Seconds())
	if secs < 0 {
		secs = 0
	}
	return &secs
}

// Snapshot is the render-ready view of the attempt.
func (a *Attempt) Snapshot(now time.Time) domain.AttemptSnapshot {
	snap := domain.AttemptSnapshot{
		QuizID:           a.Quiz.ID,
		Phase:            string(a.Phase),
		SectionLocked:    a.SectionLocked,
		RemainingSeconds: a.Remaining(now),
		QuestionCount:    len(a.Quiz.Questions),
		Submitted:        a.Result != nil,
	}
	if a.Phase == PhaseSectionActive {
		snap.CurrentSection = a.currentSection().ID
	}
	for _, q := range a.Quiz.Questions {
		if IsAnswered(q, a.Answers) {
			snap.AnsweredCount++
		}
	}
	return snap
}

// Paper renders the quiz in this attempt's presentation order. Answer keys
// and explanations are not included.
func (a *Attempt) Paper() domain.PaperView {
	view := domain.PaperView{QuizID: a.Quiz.ID, Title: a.Quiz.Title}
	for _, si := range a.Presentation.SectionOrder {
		sec := a.Quiz.Sections[si]
		ps := domain.PaperSection{ID: sec.ID, Title: sec.Title, DurationMinutes: sec.DurationMinutes}
		for _, qid := range a.Presentation.QuestionOrder[sec.ID] {
			q := a.Quiz.QuestionByID(qid)
			if q == nil {
				continue
			}
			pq := domain.PaperQuestion{
				ID:     q.ID,
				Number: a.Presentation.Numbers[q.ID],
				Type:   q.Type,
				Prompt: q.Prompt,
			}
			for _, oi := range a.Presentation.OptionOrder[q.ID] {
				pq.Options = append(pq.Options, domain.PaperOption{Index: oi, Text: q.Options[oi]})
			}
			ps.Questions = append(ps.Questions, pq)
		}
		view.Sections = append(view.Sections, ps)
	}
	return view
}

func (a *Attempt) startSection(pos int, now time.Time) {
	a.CurrentSection = pos
	a.Phase = PhaseSectionActive
	a.SectionLocked = true
	a.SectionEnd = nil

	sec := a.currentSection()
	switch a.Quiz.Rules.TimingMode {
	case domain.TimingSection:
		if sec.DurationMinutes != nil {
			end := now.Add(time.Duration(*sec.DurationMinutes) * time.Minute)
			a.SectionEnd = &end
		}
	default:
		// The overall countdown starts at the first section start.
		if a.OverallEnd == nil && a.Quiz.DurationMinutes != nil {
			end := now.Add(time.Duration(*a.Quiz.DurationMinutes) * time.Minute)
			a.OverallEnd = &end
		}
	}
}

func (a *Attempt) currentSection() domain.Section {
	return a.Quiz.Sections[a.Presentation.SectionOrder[a.CurrentSection]]
}

// fillUnattempted marks every still-blank question of an expiring section
// with the no-penalty unattempted slot, when that slot exists.
func (a *Attempt) fillUnattempted(sec domain.Section) {
	if !a.Quiz.Rules.OptionEEnabled {
		return
	}
	for _, qid := range sec.QuestionIDs {
		q := a.Quiz.QuestionByID(qid)
		if q == nil || q.Type == domain.QuestionFill || len(q.Options) == 0 {
			continue
		}
		if IsAnswered(*q, a.Answers) {
			continue
		}
		slot := len(q.Options) - 1
		switch q.Type {
		case domain.QuestionSingle:
			a.Answers[qid] = domain.Answer{Selected: &slot}
		case domain.QuestionMultiple:
			a.Answers[qid] = domain.Answer{SelectedSet: []int{slot}}
		}
	}
}

func (a *Attempt) forceSubmit(now time.Time) {
	// Forced submission always succeeds.
	_, _ = a.Submit(now, true)
}

func (a *Attempt) minAttemptMet() bool {
	min := a.Quiz.Rules.MinAttemptPercent
	if min <= 0 || len(a.Quiz.Questions) == 0 {
		return true
	}
	answered := 0
	for _, q := range a.Quiz.Questions {
		if IsAnswered(q, a.Answers) {
			answered++
		}
	}
	return float64(answered)/float64(len(a.Quiz.Questions))*100 >= min
}

func (a *Attempt) elapsedSeconds(now time.Time) int {
	if a.StartedAt == nil {
		return 0
	}
	secs := int(now.Sub(*a.StartedAt).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
