package model

import "time"

// RawListing is one marketplace offer as produced by a scraper
type RawListing struct {
	Title         string    `json:"title"`                    // Free-text listing title (required)
	PriceText     string    `json:"price_text,omitempty"`     // Raw price, may carry currency and qualifiers
	ConditionText string    `json:"condition_text,omitempty"` // Free-text condition description
	Marketplace   string    `json:"marketplace,omitempty"`    // Pass-through
	Location      string    `json:"location,omitempty"`       // Pass-through
	URL           string    `json:"url,omitempty"`            // Pass-through
	ScrapedAt     time.Time `json:"scraped_at,omitzero"`     // Pass-through
}

// StandardizedRecord is the structured description of one graphics card offer.
// It is a value: built once from exactly one RawListing and never mutated.
type StandardizedRecord struct {
	GPUManufacturer   Manufacturer `json:"gpu_manufacturer"`
	GPUSeries         *string      `json:"gpu_series"`
	GPUModel          *string      `json:"gpu_model"`
	VRAMGB            *int         `json:"vram_gb"`
	CardManufacturer  *string      `json:"card_manufacturer"`
	StandardizedPrice *float64     `json:"standardized_price"` // GBP assumed, currency-less
	Condition         Condition    `json:"condition"`

	ConfidenceScore     float64   `json:"confidence_score"`               // 0.0 - 1.0
	ConfidenceBreakdown []Penalty `json:"confidence_breakdown,omitempty"` // Penalties that produced the score
	QualityFlags        []string  `json:"quality_flags"`                  // Sorted, unique

	Title         string    `json:"title"`
	PriceText     string    `json:"price_text,omitempty"`
	ConditionText string    `json:"condition_text,omitempty"`
	Marketplace   string    `json:"marketplace,omitempty"`
	Location      string    `json:"location,omitempty"`
	URL           string    `json:"url,omitempty"`
	ScrapedAt     time.Time `json:"scraped_at,omitzero"`
}

// HasFlag reports whether the record carries the given quality flag
func (r StandardizedRecord) HasFlag(flag string) bool {
	for _, f := range r.QualityFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// Manufacturer is the GPU chip vendor
type Manufacturer string

const (
	ManufacturerNVIDIA  Manufacturer = "NVIDIA"
	ManufacturerAMD     Manufacturer = "AMD"
	ManufacturerIntel   Manufacturer = "INTEL"
	ManufacturerUnknown Manufacturer = "UNKNOWN"
)

// Condition is the standardized item condition
type Condition string

const (
	ConditionNew         Condition = "NEW"
	ConditionOpenBox     Condition = "OPEN_BOX"
	ConditionUsedLikeNew Condition = "USED_LIKE_NEW"
	ConditionUsedGood    Condition = "USED_GOOD"
	ConditionUsedFair    Condition = "USED_FAIR"
	ConditionForParts    Condition = "FOR_PARTS"
	ConditionUnknown     Condition = "UNKNOWN"
)

// Valid reports whether c is one of the enumerated conditions
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionOpenBox, ConditionUsedLikeNew, ConditionUsedGood,
		ConditionUsedFair, ConditionForParts, ConditionUnknown:
		return true
	}
	return false
}

// Quality flags. Each one names a specific extraction uncertainty or failure.
const (
	FlagNoManufacturerMatch       = "no_manufacturer_match"
	FlagAmbiguousManufacturer     = "ambiguous_manufacturer"
	FlagNoModelMatch              = "no_model_match"
	FlagAmbiguousModel            = "ambiguous_model"
	FlagFallbackExcludedCandidate = "fallback_excluded_candidate"
	FlagNoSeriesMapping           = "no_series_mapping"
	FlagNoVRAMMatch               = "no_vram_match"
	FlagAmbiguousVRAM             = "ambiguous_vram"
	FlagImplausibleVRAM           = "implausible_vram"
	FlagNoBoardPartner            = "no_board_partner"
	FlagPriceUnparsed             = "price_unparsed"
	FlagNonpositivePrice          = "nonpositive_price"
	FlagPriceRange                = "price_range"
	FlagNegotiable                = "negotiable"
	FlagConditionUnmatched        = "condition_unmatched"
)

// Field names used by the confidence breakdown
const (
	FieldManufacturer = "manufacturer"
	FieldModel        = "model"
	FieldPrice        = "price"
	FieldVRAM         = "vram"
	FieldBoardPartner = "board_partner"
	FieldCondition    = "condition"
)

// Penalty is one deduction applied by the confidence scorer
type Penalty struct {
	Field  string  `json:"field"`
	Reason string  `json:"reason"` // "missing" or "ambiguous"
	Amount float64 `json:"amount"`
}
