package domain

// QuestionType discriminates the shape of a question's answer key.
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionFill     QuestionType = "fill"
)

// TimingMode selects one overall countdown or independent per-section countdowns.
type TimingMode string

const (
	TimingOverall TimingMode = "overall"
	TimingSection TimingMode = "section"
)

// NumberingMode controls whether question numbers run across the whole paper
// or restart inside each section.
type NumberingMode string

const (
	NumberingGlobal  NumberingMode = "global"
	NumberingSection NumberingMode = "section"
)

// NegativeMarkingType selects how wrong answers are penalized.
type NegativeMarkingType string

const (
	NegativeNone     NegativeMarkingType = "none"
	NegativeFraction NegativeMarkingType = "fraction"
	NegativeCustom   NegativeMarkingType = "custom"
)

// NegativeMarking is the penalty rule for incorrect non-blank answers.
// Fraction deducts Value*points, Custom deducts a flat Value per question.
type NegativeMarking struct {
	Type  NegativeMarkingType `json:"type"`
	Value float64             `json:"value"`
}

// ScoringConfig is derived from the quiz rules at load time and stays
// immutable for the duration of an attempt.
type ScoringConfig struct {
	DefaultPoints        float64         `json:"defaultPoints"`
	Negative             NegativeMarking `json:"negativeMarking"`
	OptionEEnabled       bool            `json:"optionEEnabled"`
	NoNegativeForOptionE bool            `json:"noNegativeForOptionE"`
}

// Rules are the recognized quiz-level configuration switches.
type Rules struct {
	UseSections       bool          `json:"useSections"`
	ShuffleQuestions  bool          `json:"shuffleQuestions"`
	ShuffleOptions    bool          `json:"shuffleOptions"`
	ShuffleSections   bool          `json:"shuffleSections"`
	TimingMode        TimingMode    `json:"timingMode"`
	NumberingMode     NumberingMode `json:"numberingMode"`
	OptionEEnabled    bool          `json:"optionEEnabled"`
	MinAttemptPercent float64       `json:"minAttemptPercent"`
}

// Question is the canonical form of one question. Exactly one of the
// answer-key fields is meaningful, chosen by Type. When the unattempted slot
// is enabled the final entry of Options is that slot.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"prompt"`
	Options       []string     `json:"options"`
	Points        *float64     `json:"points,omitempty"`
	AnswerIndex   int          `json:"answerIndex"`
	AnswerIndices []int        `json:"answerIndices,omitempty"`
	AnswerTexts   []string     `json:"answerTexts,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
	SectionID     string       `json:"sectionId,omitempty"`
}

// Section is a named, ordered subset of the quiz's questions.
type Section struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	DurationMinutes *int     `json:"durationMinutes,omitempty"`
	QuestionIDs     []string `json:"questionIds"`
}

// Quiz is the canonical model produced by the normalizer.
type Quiz struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	DurationMinutes *int          `json:"durationMinutes,omitempty"`
	Rules           Rules         `json:"rules"`
	Scoring         ScoringConfig `json:"scoring"`
	Sections        []Section     `json:"sections"`
	Questions       []Question    `json:"questions"`
}

// QuestionByID returns the question with the given id, or nil.
func (q Quiz) QuestionByID(id string) *Question {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i]
		}
	}
	return nil
}

// Answer is the recorded response for one question. Absence from the answer
// map means blank; a present Answer may still be blank for its type (nil
// Selected, empty SelectedSet, whitespace-only Text).
type Answer struct {
	Selected    *int   `json:"selected,omitempty"`
	SelectedSet []int  `json:"selectedSet,omitempty"`
	Text        string `json:"text,omitempty"`
}

// QuestionResult is the graded outcome for a single question.
type QuestionResult struct {
	Score   float64 `json:"score"`
	Correct bool    `json:"correct"`
	Blank   bool    `json:"blank"`
}

// ResultRecord is created exactly once per attempt by the scoring engine and
// is immutable thereafter.
type ResultRecord struct {
	Score           float64                   `json:"score"`
	MaxScore        float64                   `json:"maxScore"`
	CorrectCount    int                       `json:"correctCount"`
	WrongCount      int                       `json:"wrongCount"`
	BlankCount      int                       `json:"blankCount"`
	PerQuestion     map[string]QuestionResult `json:"perQuestion"`
	DurationSeconds int                       `json:"durationSeconds"`
}

// SectionResult is one row of the section-wise score table. Rows summed over
// all sections reproduce the overall ResultRecord totals.
type SectionResult struct {
	SectionID    string  `json:"sectionId"`
	Title        string  `json:"title"`
	Score        float64 `json:"score"`
	MaxScore     float64 `json:"maxScore"`
	CorrectCount int     `json:"correctCount"`
	WrongCount   int     `json:"wrongCount"`
	BlankCount   int     `json:"blankCount"`
}

// AttemptSnapshot is the render-ready view of an in-flight attempt, pushed to
// subscribers after every state change.
type AttemptSnapshot struct {
	QuizID           string `json:"quizId"`
	Phase            string `json:"phase"`
	CurrentSection   string `json:"currentSection,omitempty"`
	SectionLocked    bool   `json:"sectionLocked"`
	RemainingSeconds *int   `json:"remainingSeconds,omitempty"`
	AnsweredCount    int    `json:"answeredCount"`
	QuestionCount    int    `json:"questionCount"`
	Submitted        bool   `json:"submitted"`
}

// PaperOption pairs a display position with the option's original index so
// answers are always recorded in the canonical index space.
type PaperOption struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// PaperQuestion is one question in presentation order.
type PaperQuestion struct {
	ID      string        `json:"id"`
	Number  int           `json:"number"`
	Type    QuestionType  `json:"type"`
	Prompt  string        `json:"prompt"`
	Options []PaperOption `json:"options"`
}

// PaperSection is one section in presentation order.
type PaperSection struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	DurationMinutes *int            `json:"durationMinutes,omitempty"`
	Questions       []PaperQuestion `json:"questions"`
}

// PaperView is the shuffled, numbered rendering of a quiz for one attempt.
// It is derived once at attempt start and is stable across re-renders.
type PaperView struct {
	QuizID   string         `json:"quizId"`
	Title    string         `json:"title"`
	Sections []PaperSection `json:"sections"`
}
