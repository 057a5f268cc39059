package engine

import (
	"fmt"

	"quiz-engine-service/internal/domain"
)

// SeedFromKey hashes a seed key into a 32-bit PRNG seed. The hash is an
// FNV-1a style xor/multiply mix, so the same key always yields the same seed
// on every platform.
func SeedFromKey(key string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(key); i++ {
		h ^= uint32(key[i])
		h *= 16777619
	}
	return h
}

// mulberry32 is a small deterministic PRNG. Its output for a given seed is
// identical across platforms, which the presentation order and the test suite
// rely on.
type mulberry32 struct {
	state uint32
}

func (r *mulberry32) next() float64 {
	r.state += 0x6D2B79F5
	z := r.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	return float64(z^(z>>14)) / 4294967296.0
}

// Permutation returns a Fisher-Yates permutation of [0,n) driven by the
// seeded PRNG. Identical (seed, n) inputs produce identical output.
func Permutation(seed uint32, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := mulberry32{state: seed}
	for i := n - 1; i >= 1; i-- {
		j := int(rng.next() * float64(i+1))
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx
}

// ShuffleStrings reorders items by a seeded permutation without mutating the
// input.
func ShuffleStrings(seed uint32, items []string) []string {
	perm := Permutation(seed, len(items))
	out := make([]string, len(items))
	for pos, src := range perm {
		out[pos] = items[src]
	}
	return out
}

// Presentation is the per-attempt display order for sections, questions and
// options, plus question numbering. It is derived once at attempt start from
// (quiz, startedAt) and never changes afterwards.
type Presentation struct {
	SectionOrder  []int               `json:"sectionOrder"`
	QuestionOrder map[string][]string `json:"questionOrder"`
	OptionOrder   map[string][]int    `json:"optionOrder"`
	Numbers       map[string]int      `json:"numbers"`
}

// BuildPresentation computes the presentation order for an attempt started at
// the given unix timestamp. A zero startedAt falls back to 1 so previews
// before the attempt starts are still deterministic.
func BuildPresentation(quiz domain.Quiz, startedAt int64) Presentation {
	if startedAt == 0 {
		startedAt = 1
	}

	p := Presentation{
		SectionOrder:  make([]int, len(quiz.Sections)),
		QuestionOrder: make(map[string][]string, len(quiz.Sections)),
		OptionOrder:   make(map[string][]int, len(quiz.Questions)),
		Numbers:       make(map[string]int, len(quiz.Questions)),
	}

	for i := range p.SectionOrder {
		p.SectionOrder[i] = i
	}
	if quiz.Rules.ShuffleSections && len(quiz.Sections) > 1 {
		p.SectionOrder = Permutation(SeedFromKey(fmt.Sprintf("sections-%d", startedAt)), len(quiz.Sections))
	}

	for _, si := range p.SectionOrder {
		sec := quiz.Sections[si]
		order := append([]string(nil), sec.QuestionIDs...)
		if quiz.Rules.ShuffleQuestions && len(order) > 1 {
			seed := SeedFromKey(fmt.Sprintf("questions-%s-%d", sec.ID, startedAt))
			order = ShuffleStrings(seed, order)
		}
		p.QuestionOrder[sec.ID] = order
	}

	for _, q := range quiz.Questions {
		p.OptionOrder[q.ID] = optionOrder(quiz, q, startedAt)
	}

	number := 0
	for _, si := range p.SectionOrder {
		sec := quiz.Sections[si]
		if quiz.Rules.NumberingMode == domain.NumberingSection {
			number = 0
		}
		for _, qid := range p.QuestionOrder[sec.ID] {
			number++
			p.Numbers[qid] = number
		}
	}
	return p
}

// optionOrder shuffles a question's options when enabled. The unattempted
// slot, when present, is always the final option: only the preceding options
// are shuffled and the slot index is appended unchanged.
func optionOrder(quiz domain.Quiz, q domain.Question, startedAt int64) []int {
	n := len(q.Options)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if !quiz.Rules.ShuffleOptions || n < 2 || q.Type == domain.QuestionFill {
		return order
	}

	seed := SeedFromKey(fmt.Sprintf("options-%s-%d", q.ID, startedAt))
	if quiz.Rules.OptionEEnabled {
		order = Permutation(seed, n-1)
		order = append(order, n-1)
		return order
	}
	return Permutation(seed, n)
}
