package domain

import "encoding/json"

// RawQuiz is the shape-tolerant quiz document as authored. Fields that vary in
// shape across authoring tools are kept as json.RawMessage and coerced by the
// normalizer; a partially authored document must still load.
type RawQuiz struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	DurationMinutes *int            `json:"durationMinutes"`
	Rules           map[string]any  `json:"rules"`
	Scoring         RawScoring      `json:"scoring"`
	Sections        []RawSection    `json:"sections"`
	Questions       []RawQuestion   `json:"questions"`
	Extra           json.RawMessage `json:"-"`
}

// RawQuestion tolerates missing id/type and arbitrary option/answer shapes.
type RawQuestion struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Prompt      string          `json:"prompt"`
	Options     json.RawMessage `json:"options"`
	Points      *float64        `json:"points"`
	Answer      json.RawMessage `json:"answer"`
	Explanation string          `json:"explanation"`
	SectionID   string          `json:"sectionId"`
}

// RawSection may omit questionIds; the normalizer then collects questions
// whose sectionId matches.
type RawSection struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	DurationMinutes *int     `json:"durationMinutes"`
	QuestionIDs     []string `json:"questionIds"`
}

// RawScoring is the authored scoring block; every field is optional.
type RawScoring struct {
	DefaultPoints        *float64         `json:"defaultPoints"`
	NegativeMarking      *NegativeMarking `json:"negativeMarking"`
	NoNegativeForOptionE *bool            `json:"noNegativeForOptionE"`
}
