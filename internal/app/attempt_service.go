package app

import (
	"context"
	"log"
	"sync"
	"time"

	"quiz-engine-service/internal/domain"
	"quiz-engine-service/internal/engine"
)

// AttemptRepository abstracts how live attempt sessions are stored
// (in-memory, Redis-backed, etc).
type AttemptRepository interface {
	GetOrCreate(key string, quiz domain.Quiz) *AttemptSession
	Get(key string) (*AttemptSession, bool)
	Delete(key string)
}

// QuizRepository loads normalized quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultSink receives the final record of a submitted attempt for archival.
type ResultSink interface {
	Record(ctx context.Context, quizID, userID string, rec domain.ResultRecord) error
}

// AttemptService contains the attempt-lifecycle use cases. The engine owns
// the rules; this layer owns loading, session storage, broadcasting, and
// result archival.
type AttemptService struct {
	attempts AttemptRepository
	quizzes  QuizRepository
	sink     ResultSink
	now      func() time.Time
}

func NewAttemptService(attempts AttemptRepository, quizzes QuizRepository, sink ResultSink) *AttemptService {
	return NewAttemptServiceWithClock(attempts, quizzes, sink, time.Now)
}

// NewAttemptServiceWithClock is test-only for deterministic timestamps.
func NewAttemptServiceWithClock(attempts AttemptRepository, quizzes QuizRepository, sink ResultSink, now func() time.Time) *AttemptService {
	return &AttemptService{attempts: attempts, quizzes: quizzes, sink: sink, now: now}
}

func attemptKey(quizID, userID string) string {
	return quizID + "/" + userID
}

// Start loads the quiz, creates (or resumes) the user's attempt session, and
// moves a fresh attempt to the rules screen.
func (s *AttemptService) Start(ctx context.Context, quizID, userID string) (domain.AttemptSnapshot, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.AttemptSnapshot{}, err
	}
	session := s.attempts.GetOrCreate(attemptKey(quizID, userID), quiz)
	return session.begin(s.now()), nil
}

// AcceptRules acknowledges the rules screen and derives the presentation order.
func (s *AttemptService) AcceptRules(ctx context.Context, quizID, userID string) (domain.AttemptSnapshot, error) {
	session, ok := s.attempts.Get(attemptKey(quizID, userID))
	if !ok {
		return domain.AttemptSnapshot{}, domain.ErrAttemptNotFound
	}
	return session.acceptRules(s.now()), nil
}

// SelectSection starts the attempt at a section position. One-way: ignored
// once any section is active.
func (s *AttemptService) SelectSection(ctx context.Context, quizID, userID string, pos int) (domain.AttemptSnapshot, error) {
	session, ok := s.attempts.Get(attemptKey(quizID, userID))
	if !ok {
		return domain.AttemptSnapshot{}, domain.ErrAttemptNotFound
	}
	return session.selectSection(pos, s.now()), nil
}

// SaveAnswer records an answer with last-write-wins semantics.
func (s *AttemptService) SaveAnswer(ctx context.Context, quizID, userID, questionID string, ans domain.Answer) (domain.AttemptSnapshot, error) {
	session, ok := s.attempts.Get(attemptKey(quizID, userID))
	if !ok {
		return domain.AttemptSnapshot{}, domain.ErrAttemptNotFound
	}
	return session.setAnswer(questionID, ans, s.now()), nil
}

// NextSection advances to the following section in presentation order.
func (s *AttemptService) NextSection(ctx context.Context, quizID, userID string) (domain.AttemptSnapshot, error) {
	session, ok := s.attempts.Get(attemptKey(quizID, userID))
	if !ok {
		return domain.AttemptSnapshot{}, domain.ErrAttemptNotFound
	}
	return session.nextSection(s.now()), nil
}

// Tick drives the attempt timers. The transport calls it about once per
// second; a forced submission triggered by expiry is archived here.
func (s *AttemptService) Tick(ctx context.Context, quizID, userID string) (domain.AttemptSnapshot, []engine.Event, error) {
	session, ok := s.attempts.Get(attemptKey(quizID, userID))
	if !ok {
		return domain.AttemptSnapshot{}, nil, domain.ErrAttemptNotFound
	}
	snap, events := session.tick(s.now())
	for _, ev := range events {
		if ev.Kind == engine.EventSubmitted {
			s.archive(ctx, quizID, userID, session)
		}
	}
	return snap, events, nil
}

// Submit finalizes the attempt. Manual submissions below the minimum-attempt
// threshold return domain.ErrMinAttemptNotMet and leave the attempt open.
func (s *AttemptService) Submit(ctx context.Context, quizID, userID string, forced bool) (domain.ResultRecord, error) {
	session, ok := s.attempts.Get(attemptKey(quizID, userID))
	if !ok {
		return domain.ResultRecord{}, domain.ErrAttemptNotFound
	}
	rec, err := session.submit(s.now(), forced)
	if err != nil {
		return domain.ResultRecord{}, err
	}
	s.archive(ctx, quizID, userID, session)
	return rec, nil
}

// Paper returns the shuffled, numbered rendering of the quiz for this attempt.
func (s *AttemptService) Paper(ctx context.Context, quizID, userID string) (domain.PaperView, error) {
	session, ok := s.attempts.Get(attemptKey(quizID, userID))
	if !ok {
		return domain.PaperView{}, domain.ErrAttemptNotFound
	}
	return session.paper(), nil
}

// Review recomputes the section-wise score table from the attempt's answers.
func (s *AttemptService) Review(ctx context.Context, quizID, userID string) ([]domain.SectionResult, error) {
	session, ok := s.attempts.Get(attemptKey(quizID, userID))
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	return session.review(), nil
}

// Result returns the final record of a submitted attempt.
func (s *AttemptService) Result(ctx context.Context, quizID, userID string) (domain.ResultRecord, bool, error) {
	session, ok := s.attempts.Get(attemptKey(quizID, userID))
	if !ok {
		return domain.ResultRecord{}, false, domain.ErrAttemptNotFound
	}
	return session.result()
}

// Subscribe returns a channel receiving attempt snapshots after every state
// change. The caller must invoke the cancel function to avoid leaks.
func (s *AttemptService) Subscribe(_ context.Context, quizID, userID string) (<-chan domain.AttemptSnapshot, func(), error) {
	session, ok := s.attempts.Get(attemptKey(quizID, userID))
	if !ok {
		return nil, nil, domain.ErrAttemptNotFound
	}
	ch, cancel := session.subscribe(s.now())
	return ch, cancel, nil
}

// Leave drops the session once the attempt is submitted and nobody is
// watching. An unfinished attempt stays resumable.
func (s *AttemptService) Leave(_ context.Context, quizID, userID string) {
	key := attemptKey(quizID, userID)
	session, ok := s.attempts.Get(key)
	if !ok {
		return
	}
	if session.isFinishedAndIdle() {
		s.attempts.Delete(key)
	}
}

func (s *AttemptService) archive(ctx context.Context, quizID, userID string, session *AttemptSession) {
	if s.sink == nil {
		return
	}
	rec, ok, err := session.result()
	if err != nil || !ok {
		return
	}
	if !session.markArchived() {
		return
	}
	if err := s.sink.Record(ctx, quizID, userID, rec); err != nil {
		log.Printf("archive result for %s/%s: %v", quizID, userID, err)
	}
}

// AttemptSession wraps one engine attempt behind a mutex, so the single
// writer (the test-taker's input) and the timer driver never race, and fans
// state snapshots out to subscribers.
type AttemptSession struct {
	key         string
	mu          sync.Mutex
	attempt     *engine.Attempt
	archived    bool
	subscribers map[chan domain.AttemptSnapshot]struct{}
}

// NewAttemptSession is exported for infrastructure layers that seed sessions.
func NewAttemptSession(key string, quiz domain.Quiz) *AttemptSession {
	return &AttemptSession{
		key:         key,
		attempt:     engine.NewAttempt(quiz),
		subscribers: make(map[chan domain.AttemptSnapshot]struct{}),
	}
}

func (s *AttemptSession) begin(now time.Time) domain.AttemptSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt.Begin()
	return s.broadcastLocked(now)
}

func (s *AttemptSession) acceptRules(now time.Time) domain.AttemptSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt.AcceptRules(now)
	return s.broadcastLocked(now)
}

func (s *AttemptSession) selectSection(pos int, now time.Time) domain.AttemptSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt.SelectSection(pos, now)
	return s.broadcastLocked(now)
}

func (s *AttemptSession) setAnswer(questionID string, ans domain.Answer, now time.Time) domain.AttemptSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt.SetAnswer(questionID, ans)
	return s.broadcastLocked(now)
}

func (s *AttemptSession) nextSection(now time.Time) domain.AttemptSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt.NextSection(now)
	return s.broadcastLocked(now)
}

func (s *AttemptSession) tick(now time.Time) (domain.AttemptSnapshot, []engine.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.attempt.Tick(now)
	if len(events) == 0 {
		// Remaining time changed even without a transition; keep clients fresh.
		return s.broadcastLocked(now), nil
	}
	return s.broadcastLocked(now), events
}

func (s *AttemptSession) submit(now time.Time, forced bool) (domain.ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.attempt.Submit(now, forced)
	if err != nil {
		return domain.ResultRecord{}, err
	}
	s.broadcastLocked(now)
	return *rec, nil
}

func (s *AttemptSession) paper() domain.PaperView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt.Paper()
}

func (s *AttemptSession) review() []domain.SectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return engine.SectionBreakdown(s.attempt.Quiz, s.attempt.Answers)
}

func (s *AttemptSession) result() (domain.ResultRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt.Result == nil {
		return domain.ResultRecord{}, false, nil
	}
	return *s.attempt.Result, true, nil
}

// markArchived flips the archive latch; only the first caller gets true, so
// a result is recorded at most once even when tick and submit race.
func (s *AttemptSession) markArchived() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.archived {
		return false
	}
	s.archived = true
	return true
}

func (s *AttemptSession) isFinishedAndIdle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt.Result != nil && len(s.subscribers) == 0
}

func (s *AttemptSession) subscribe(now time.Time) (<-chan domain.AttemptSnapshot, func()) {
	ch := make(chan domain.AttemptSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.attempt.Snapshot(now)
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *AttemptSession) broadcastLocked(now time.Time) domain.AttemptSnapshot {
	snap := s.attempt.Snapshot(now)
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so a slow client never blocks the tick.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}
