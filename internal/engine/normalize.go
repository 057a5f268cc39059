package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"quiz-engine-service/internal/domain"
)

// Normalize turns a raw quiz document into the canonical model. It is total:
// malformed fields degrade to empty values, never to an error, so a partially
// authored quiz always renders.
func Normalize(raw domain.RawQuiz) domain.Quiz {
	rules := normalizeRules(raw.Rules)
	scoring := normalizeScoring(raw.Scoring, rules)

	// Explicit ids are reserved up front so a synthesized id can never
	// collide with one an author chose.
	used := make(map[string]bool, len(raw.Questions))
	for _, rq := range raw.Questions {
		if id := strings.TrimSpace(rq.ID); id != "" {
			used[id] = true
		}
	}

	questions := make([]domain.Question, 0, len(raw.Questions))
	next := 1
	for _, rq := range raw.Questions {
		q := normalizeQuestion(rq, rules)
		if q.ID == "" {
			for used[fmt.Sprintf("q%d", next)] {
				next++
			}
			q.ID = fmt.Sprintf("q%d", next)
			used[q.ID] = true
		}
		questions = append(questions, q)
	}

	quiz := domain.Quiz{
		ID:              raw.ID,
		Title:           raw.Title,
		Description:     raw.Description,
		DurationMinutes: raw.DurationMinutes,
		Rules:           rules,
		Scoring:         scoring,
		Questions:       questions,
	}
	quiz.Sections = normalizeSections(raw.Sections, questions, rules)
	return quiz
}

func normalizeQuestion(rq domain.RawQuestion, rules domain.Rules) domain.Question {
	q := domain.Question{
		ID:          strings.TrimSpace(rq.ID),
		Type:        coerceType(rq.Type),
		Prompt:      rq.Prompt,
		Options:     coerceOptions(rq.Options),
		Points:      rq.Points,
		Explanation: rq.Explanation,
		SectionID:   strings.TrimSpace(rq.SectionID),
		AnswerIndex: -1,
	}

	switch q.Type {
	case domain.QuestionSingle:
		if n, ok := coerceNumber(rq.Answer); ok {
			q.AnswerIndex = int(n)
		}
	case domain.QuestionMultiple:
		q.AnswerIndices = coerceIntList(rq.Answer)
	case domain.QuestionFill:
		q.AnswerTexts = coerceStringList(rq.Answer)
	}

	// The unattempted slot is materialized as a fixed final option so that
	// shuffling and scoring agree on its index.
	if rules.OptionEEnabled && q.Type != domain.QuestionFill {
		q.Options = append(q.Options, "Unattempted")
	}
	return q
}

func normalizeSections(raw []domain.RawSection, questions []domain.Question, rules domain.Rules) []domain.Section {
	if !rules.UseSections || len(raw) == 0 {
		ids := make([]string, 0, len(questions))
		for _, q := range questions {
			ids = append(ids, q.ID)
		}
		return []domain.Section{{ID: "all", Title: "All Questions", QuestionIDs: ids}}
	}

	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	sections := make([]domain.Section, 0, len(raw))
	for _, rs := range raw {
		sec := domain.Section{
			ID:              strings.TrimSpace(rs.ID),
			Title:           rs.Title,
			DurationMinutes: rs.DurationMinutes,
		}
		if len(rs.QuestionIDs) > 0 {
			for _, id := range rs.QuestionIDs {
				if known[id] {
					sec.QuestionIDs = append(sec.QuestionIDs, id)
				}
			}
		} else {
			for _, q := range questions {
				if q.SectionID == sec.ID {
					sec.QuestionIDs = append(sec.QuestionIDs, q.ID)
				}
			}
		}
		if sec.QuestionIDs == nil {
			sec.QuestionIDs = []string{}
		}
		sections = append(sections, sec)
	}
	return sections
}

func normalizeRules(raw map[string]any) domain.Rules {
	rules := domain.Rules{
		UseSections:   boolRule(raw, "useSections", false),
		TimingMode:    domain.TimingOverall,
		NumberingMode: domain.NumberingGlobal,
	}
	rules.ShuffleQuestions = boolRule(raw, "shuffleQuestions", false)
	rules.ShuffleOptions = boolRule(raw, "shuffleOptions", false)
	rules.ShuffleSections = boolRule(raw, "shuffleSections", false)
	rules.OptionEEnabled = boolRule(raw, "optionEEnabled", false)
	rules.MinAttemptPercent = clamp(numberRule(raw, "minAttemptPercent", 0), 0, 100)
	if stringRule(raw, "timingMode", "") == string(domain.TimingSection) {
		rules.TimingMode = domain.TimingSection
	}
	if stringRule(raw, "numberingMode", "") == string(domain.NumberingSection) {
		rules.NumberingMode = domain.NumberingSection
	}
	return rules
}

func normalizeScoring(raw domain.RawScoring, rules domain.Rules) domain.ScoringConfig {
	cfg := domain.ScoringConfig{
		DefaultPoints:        1,
		Negative:             domain.NegativeMarking{Type: domain.NegativeNone},
		OptionEEnabled:       rules.OptionEEnabled,
		NoNegativeForOptionE: rules.OptionEEnabled,
	}
	if raw.DefaultPoints != nil {
		cfg.DefaultPoints = *raw.DefaultPoints
	}
	if raw.NegativeMarking != nil {
		switch raw.NegativeMarking.Type {
		case domain.NegativeFraction, domain.NegativeCustom:
			cfg.Negative = *raw.NegativeMarking
		default:
			cfg.Negative = domain.NegativeMarking{Type: domain.NegativeNone}
		}
	}
	if raw.NoNegativeForOptionE != nil {
		cfg.NoNegativeForOptionE = *raw.NoNegativeForOptionE
	}
	return cfg
}

func coerceType(raw string) domain.QuestionType {
	switch domain.QuestionType(strings.TrimSpace(raw)) {
	case domain.QuestionMultiple:
		return domain.QuestionMultiple
	case domain.QuestionFill:
		return domain.QuestionFill
	default:
		return domain.QuestionSingle
	}
}

// coerceOptions accepts an array of strings, an array of {text} objects, or a
// keyed object; anything else becomes an empty sequence.
func coerceOptions(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			var s string
			if err := json.Unmarshal(item, &s); err == nil {
				out = append(out, s)
				continue
			}
			var obj struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(item, &obj); err == nil {
				out = append(out, obj.Text)
				continue
			}
			out = append(out, "")
		}
		return out
	}

	var keyed map[string]string
	if err := json.Unmarshal(raw, &keyed); err == nil {
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, keyed[k])
		}
		return out
	}

	return []string{}
}

func coerceNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	return 0, false
}

func coerceIntList(raw json.RawMessage) []int {
	if len(raw) == 0 {
		return nil
	}
	var list []float64
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]int, 0, len(list))
		for _, n := range list {
			out = append(out, int(n))
		}
		return out
	}
	if n, ok := coerceNumber(raw); ok {
		return []int{int(n)}
	}
	return nil
}

func coerceStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	return nil
}

func boolRule(rules map[string]any, key string, fallback bool) bool {
	v, ok := rules[key]
	if !ok {
		return fallback
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	default:
		return fallback
	}
}

func numberRule(rules map[string]any, key string, fallback float64) float64 {
	v, ok := rules[key]
	if !ok {
		return fallback
	}
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	default:
		return fallback
	}
}

func stringRule(rules map[string]any, key, fallback string) string {
	if v, ok := rules[key].(string); ok {
		return v
	}
	return fallback
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
