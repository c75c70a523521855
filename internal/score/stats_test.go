package score

import (
	"testing"

	"github.com/ppiankov/gpuscout/internal/model"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

func TestSummarize(t *testing.T) {
	records := []model.StandardizedRecord{
		{
			GPUManufacturer:   model.ManufacturerNVIDIA,
			GPUModel:          strPtr("4070"),
			VRAMGB:            intPtr(12),
			CardManufacturer:  strPtr("MSI"),
			StandardizedPrice: floatPtr(500),
			Condition:         model.ConditionUsedGood,
			ConfidenceScore:   1.0,
			Marketplace:       "ebay",
		},
		{
			GPUManufacturer:   model.ManufacturerNVIDIA,
			GPUModel:          strPtr("4070"),
			StandardizedPrice: floatPtr(300),
			Condition:         model.ConditionUnknown,
			ConfidenceScore:   0.8,
			QualityFlags:      []string{model.FlagNoVRAMMatch, model.FlagNoBoardPartner, model.FlagConditionUnmatched},
			Marketplace:       "ebay",
		},
		{
			GPUManufacturer:   model.ManufacturerUnknown,
			StandardizedPrice: floatPtr(0),
			Condition:         model.ConditionUnknown,
			ConfidenceScore:   0.3,
			QualityFlags:      []string{model.FlagNoManufacturerMatch, model.FlagNoModelMatch, model.FlagNonpositivePrice},
		},
	}

	s := Summarize(records)

	if s.Total != 3 {
		t.Errorf("Expected 3 listings, got %d", s.Total)
	}
	if s.ManufacturerRate != 66.7 {
		t.Errorf("Expected manufacturer rate 66.7, got %v", s.ManufacturerRate)
	}
	if s.VRAMRate != 33.3 {
		t.Errorf("Expected vram rate 33.3, got %v", s.VRAMRate)
	}
	if s.PriceRate != 100 {
		t.Errorf("Expected price rate 100, got %v", s.PriceRate)
	}
	if s.AverageConfidence != 0.7 {
		t.Errorf("Expected average confidence 0.7, got %v", s.AverageConfidence)
	}
	if s.Levels[LevelHigh] != 2 || s.Levels[LevelLow] != 1 {
		t.Errorf("Unexpected level counts: %v", s.Levels)
	}
	if s.ByMarketplace["ebay"] != 2 || s.ByMarketplace["unknown"] != 1 {
		t.Errorf("Unexpected marketplace counts: %v", s.ByMarketplace)
	}
	if s.Flags[model.FlagNoModelMatch] != 1 {
		t.Errorf("Expected one no_model_match flag, got %d", s.Flags[model.FlagNoModelMatch])
	}
	if len(s.TopModels) != 1 || s.TopModels[0].Model != "4070" || s.TopModels[0].Count != 2 {
		t.Errorf("Unexpected top models: %v", s.TopModels)
	}

	if s.Price == nil {
		t.Fatal("Expected price stats")
	}
	if s.Price.Min != 300 || s.Price.Max != 500 || s.Price.Average != 400 {
		t.Errorf("Unexpected price stats: %+v", *s.Price)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	if s.Total != 0 {
		t.Errorf("Expected 0 listings, got %d", s.Total)
	}
	if s.Price != nil {
		t.Error("Expected no price stats")
	}
}
