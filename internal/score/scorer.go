package score

import (
	"math"

	"github.com/ppiankov/gpuscout/internal/model"
)

// Confidence levels
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// FieldOutcome is the extraction outcome of one record field
type FieldOutcome struct {
	Field     string
	Present   bool
	Ambiguous bool
}

// Score is the confidence of one standardized record
type Score struct {
	Value     float64         // 0.0 - 1.0
	Level     string          // high / medium / low
	Penalties []model.Penalty // Every deduction that produced Value
}

// Scorer turns per-field outcomes into a confidence score
type Scorer struct {
	weights model.Weights
}

// NewScorer creates a new scorer
func NewScorer(weights model.Weights) *Scorer {
	return &Scorer{weights: weights}
}

// Calculate folds the outcomes into a score: start at 1.0, subtract the
// missing penalty of every absent field and the ambiguous penalty of every
// ambiguous one, clamp to [0, 1]. Only the outcomes matter; the result is the
// same for the same input.
func (s *Scorer) Calculate(outcomes []FieldOutcome) Score {
	value := 1.0
	var penalties []model.Penalty

	for _, o := range outcomes {
		w := s.weightFor(o.Field)
		switch {
		case !o.Present && w.Missing > 0:
			penalties = append(penalties, model.Penalty{Field: o.Field, Reason: "missing", Amount: w.Missing})
			value -= w.Missing
		case o.Present && o.Ambiguous && w.Ambiguous > 0:
			penalties = append(penalties, model.Penalty{Field: o.Field, Reason: "ambiguous", Amount: w.Ambiguous})
			value -= w.Ambiguous
		}
	}

	value = clamp(round4(value))
	return Score{
		Value:     value,
		Level:     determineLevel(value),
		Penalties: penalties,
	}
}

// weightFor returns the configured weight of a field (zero for unknown fields)
func (s *Scorer) weightFor(field string) model.FieldWeight {
	switch field {
	case model.FieldManufacturer:
		return s.weights.Manufacturer
	case model.FieldModel:
		return s.weights.Model
	case model.FieldPrice:
		return s.weights.Price
	case model.FieldVRAM:
		return s.weights.VRAM
	case model.FieldBoardPartner:
		return s.weights.BoardPartner
	case model.FieldCondition:
		return s.weights.Condition
	}
	return model.FieldWeight{}
}

// determineLevel buckets a confidence value
func determineLevel(value float64) string {
	if value >= 0.8 {
		return LevelHigh
	} else if value >= 0.6 {
		return LevelMedium
	}
	return LevelLow
}

// round4 removes float noise from repeated subtraction (1 - 0.3 - 0.35)
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
