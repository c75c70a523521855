package extract

import (
	"strings"

	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/normalize"
)

// ConditionStandardizer maps free-text condition descriptions to the
// condition enumeration
type ConditionStandardizer struct {
	normalizer *normalize.Normalizer
	rules      []model.ConditionRule // Normalized phrases, priority order
}

// NewConditionStandardizer creates a standardizer over a priority-ordered
// rule table
func NewConditionStandardizer(rules []model.ConditionRule, n *normalize.Normalizer) *ConditionStandardizer {
	compiled := make([]model.ConditionRule, 0, len(rules))
	for _, r := range rules {
		phrase := n.Normalize(r.Phrase).Text
		if phrase == "" || !r.Condition.Valid() {
			continue
		}
		compiled = append(compiled, model.ConditionRule{Phrase: phrase, Condition: r.Condition})
	}
	return &ConditionStandardizer{normalizer: n, rules: compiled}
}

// Standardize returns the condition of the first rule whose phrase appears
// as whole words. Spans point into the normalized condition text.
func (s *ConditionStandardizer) Standardize(raw string) Result[model.Condition] {
	text := s.normalizer.Normalize(raw).Text
	if text == "" {
		return absent(model.ConditionUnknown, model.FlagConditionUnmatched)
	}

	padded := " " + text + " "
	for _, r := range s.rules {
		if pos := strings.Index(padded, " "+r.Phrase+" "); pos >= 0 {
			span := normalize.Span{Start: pos, End: pos + len(r.Phrase)}
			return found(r.Condition, span, false)
		}
	}
	return absent(model.ConditionUnknown, model.FlagConditionUnmatched)
}
