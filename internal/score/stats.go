package score

import (
	"math"
	"sort"

	"github.com/ppiankov/gpuscout/internal/model"
)

// Summary describes how well a batch of listings was standardized
type Summary struct {
	Total int `json:"total_listings"`

	// Extraction rates in percent, one decimal
	ManufacturerRate float64 `json:"manufacturer_identification_rate"`
	ModelRate        float64 `json:"gpu_identification_rate"`
	VRAMRate         float64 `json:"vram_extraction_rate"`
	BoardPartnerRate float64 `json:"board_partner_identification_rate"`
	PriceRate        float64 `json:"price_extraction_rate"`
	ConditionRate    float64 `json:"condition_match_rate"`

	AverageConfidence float64        `json:"avg_confidence_score"`
	Levels            map[string]int `json:"confidence_levels"`

	ByMarketplace  map[string]int `json:"by_marketplace"`
	ByManufacturer map[string]int `json:"by_manufacturer"`
	Flags          map[string]int `json:"quality_flags"`
	TopModels      []ModelCount   `json:"top_models"`

	Price *PriceStats `json:"price,omitempty"` // Positive prices only, nil when none
}

// ModelCount is how often a model was offered
type ModelCount struct {
	Model string `json:"model"`
	Count int    `json:"count"`
}

// PriceStats summarizes positive standardized prices
type PriceStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

const topModels = 10

// Summarize computes standardization statistics over a batch of records
func Summarize(records []model.StandardizedRecord) Summary {
	s := Summary{
		Total:          len(records),
		Levels:         make(map[string]int),
		ByMarketplace:  make(map[string]int),
		ByManufacturer: make(map[string]int),
		Flags:          make(map[string]int),
	}
	if len(records) == 0 {
		return s
	}

	var manufacturers, models, vram, partners, prices, conditions int
	var confidence float64
	modelCounts := make(map[string]int)
	var priceSum float64
	var priced int

	for _, r := range records {
		if r.GPUManufacturer != model.ManufacturerUnknown {
			manufacturers++
		}
		if r.GPUModel != nil {
			models++
			modelCounts[*r.GPUModel]++
		}
		if r.VRAMGB != nil {
			vram++
		}
		if r.CardManufacturer != nil {
			partners++
		}
		if r.StandardizedPrice != nil {
			prices++
			if p := *r.StandardizedPrice; p > 0 {
				if s.Price == nil {
					s.Price = &PriceStats{Min: p, Max: p}
				}
				s.Price.Min = math.Min(s.Price.Min, p)
				s.Price.Max = math.Max(s.Price.Max, p)
				priceSum += p
				priced++
			}
		}
		if r.Condition != model.ConditionUnknown {
			conditions++
		}

		confidence += r.ConfidenceScore
		s.Levels[determineLevel(r.ConfidenceScore)]++

		marketplace := r.Marketplace
		if marketplace == "" {
			marketplace = "unknown"
		}
		s.ByMarketplace[marketplace]++
		s.ByManufacturer[string(r.GPUManufacturer)]++
		for _, f := range r.QualityFlags {
			s.Flags[f]++
		}
	}

	total := float64(len(records))
	s.ManufacturerRate = percent(manufacturers, total)
	s.ModelRate = percent(models, total)
	s.VRAMRate = percent(vram, total)
	s.BoardPartnerRate = percent(partners, total)
	s.PriceRate = percent(prices, total)
	s.ConditionRate = percent(conditions, total)
	s.AverageConfidence = math.Round(confidence/total*100) / 100
	if s.Price != nil {
		s.Price.Average = math.Round(priceSum/float64(priced)*100) / 100
	}

	for m, c := range modelCounts {
		s.TopModels = append(s.TopModels, ModelCount{Model: m, Count: c})
	}
	sort.Slice(s.TopModels, func(i, j int) bool {
		if s.TopModels[i].Count != s.TopModels[j].Count {
			return s.TopModels[i].Count > s.TopModels[j].Count
		}
		return s.TopModels[i].Model < s.TopModels[j].Model
	})
	if len(s.TopModels) > topModels {
		s.TopModels = s.TopModels[:topModels]
	}

	return s
}

func percent(n int, total float64) float64 {
	return math.Round(float64(n)/total*1000) / 10
}
