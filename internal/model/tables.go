package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Tables is the complete data surface consumed by the standardization engine.
// Everything here is vocabulary, not behavior: it can be edited in the config
// file without touching extraction logic.
type Tables struct {
	Manufacturers   []ManufacturerFamily `yaml:"manufacturers" mapstructure:"manufacturers"`
	Grammars        []Grammar            `yaml:"grammars" mapstructure:"grammars"`
	BoardPartners   []BoardPartner       `yaml:"board_partners" mapstructure:"board_partners"`
	Conditions      []ConditionRule      `yaml:"conditions" mapstructure:"conditions"` // Priority order, most specific first
	NegationMarkers []string             `yaml:"negation_markers" mapstructure:"negation_markers"`
	NegationWindow  int                  `yaml:"negation_window" mapstructure:"negation_window"` // Preceding words inspected
	Determiners     []string             `yaml:"determiners" mapstructure:"determiners"`         // May sit between a negation and the model it governs
	Comparison      ComparisonVocab      `yaml:"comparison" mapstructure:"comparison"`
	MemoryUnits     []string             `yaml:"memory_units" mapstructure:"memory_units"`
	PlausibleVRAM   []int                `yaml:"plausible_vram" mapstructure:"plausible_vram"`
	Weights         Weights              `yaml:"weights" mapstructure:"weights"`
}

// ManufacturerFamily is one disjoint keyword family of a chip vendor
type ManufacturerFamily struct {
	Manufacturer Manufacturer `yaml:"manufacturer" mapstructure:"manufacturer"`
	Keywords     []string     `yaml:"keywords" mapstructure:"keywords"`
}

// Grammar describes how one vendor writes its model numbers
type Grammar struct {
	Manufacturer Manufacturer `yaml:"manufacturer" mapstructure:"manufacturer"`
	Prefixes     []string     `yaml:"prefixes" mapstructure:"prefixes"` // Optional brand token before the number ("rtx")
	Number       string       `yaml:"number" mapstructure:"number"`     // Regexp fragment for the model number
	Suffixes     []Suffix     `yaml:"suffixes" mapstructure:"suffixes"` // Longest first
	Series       []SeriesRule `yaml:"series" mapstructure:"series"`     // First matching rule wins
}

// Suffix is a model variant token and its display form
type Suffix struct {
	Token   string `yaml:"token" mapstructure:"token"`
	Display string `yaml:"display" mapstructure:"display"`
}

// SeriesRule maps the leading characters of a model number to a series.
// Length 0 matches numbers of any length.
type SeriesRule struct {
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	Length int    `yaml:"length,omitempty" mapstructure:"length"`
	Series string `yaml:"series" mapstructure:"series"`
}

// BoardPartner is a card manufacturer and the names sellers use for it
type BoardPartner struct {
	Name    string   `yaml:"name" mapstructure:"name"`
	Aliases []string `yaml:"aliases" mapstructure:"aliases"`
}

// ConditionRule maps a phrase to a standardized condition
type ConditionRule struct {
	Phrase    string    `yaml:"phrase" mapstructure:"phrase"`
	Condition Condition `yaml:"condition" mapstructure:"condition"`
}

// ComparisonVocab holds the words that mark comparison phrasing
type ComparisonVocab struct {
	From        []string `yaml:"from" mapstructure:"from"`               // "from A to B"
	To          []string `yaml:"to" mapstructure:"to"`                   // connective after A
	Versus      []string `yaml:"versus" mapstructure:"versus"`           // "A vs B"
	Alternative []string `yaml:"alternative" mapstructure:"alternative"` // "A or B", resolved but ambiguous
}

// Weights are the confidence penalties per field
type Weights struct {
	Manufacturer FieldWeight `yaml:"manufacturer" mapstructure:"manufacturer"`
	Model        FieldWeight `yaml:"model" mapstructure:"model"`
	Price        FieldWeight `yaml:"price" mapstructure:"price"`
	VRAM         FieldWeight `yaml:"vram" mapstructure:"vram"`
	BoardPartner FieldWeight `yaml:"board_partner" mapstructure:"board_partner"`
	Condition    FieldWeight `yaml:"condition" mapstructure:"condition"`
}

// FieldWeight is the penalty for an absent and for an ambiguous field
type FieldWeight struct {
	Missing   float64 `yaml:"missing" mapstructure:"missing"`
	Ambiguous float64 `yaml:"ambiguous" mapstructure:"ambiguous"`
}

// Validate checks that all weights are within [0, 1]
func (w Weights) Validate() error {
	fields := []struct {
		name string
		fw   FieldWeight
	}{
		{FieldManufacturer, w.Manufacturer},
		{FieldModel, w.Model},
		{FieldPrice, w.Price},
		{FieldVRAM, w.VRAM},
		{FieldBoardPartner, w.BoardPartner},
		{FieldCondition, w.Condition},
	}
	for _, f := range fields {
		if f.fw.Missing < 0 || f.fw.Missing > 1 {
			return fmt.Errorf("weight %s.missing out of range: %v", f.name, f.fw.Missing)
		}
		if f.fw.Ambiguous < 0 || f.fw.Ambiguous > 1 {
			return fmt.Errorf("weight %s.ambiguous out of range: %v", f.name, f.fw.Ambiguous)
		}
	}
	return nil
}

// Validate checks that the tables can drive the engine
func (t Tables) Validate() error {
	if err := t.Weights.Validate(); err != nil {
		return err
	}
	if t.NegationWindow < 0 {
		return fmt.Errorf("negation_window must be >= 0, got %d", t.NegationWindow)
	}
	for _, f := range t.Manufacturers {
		if f.Manufacturer == "" || f.Manufacturer == ManufacturerUnknown {
			return fmt.Errorf("keyword family %v has no manufacturer", f.Keywords)
		}
	}
	for _, g := range t.Grammars {
		if g.Number == "" {
			return fmt.Errorf("grammar %s has no number pattern", g.Manufacturer)
		}
	}
	for _, r := range t.Conditions {
		if !r.Condition.Valid() || r.Condition == ConditionUnknown {
			return fmt.Errorf("condition rule %q maps to invalid condition %q", r.Phrase, r.Condition)
		}
	}
	return nil
}

// Fingerprint identifies the table contents. Records produced under the same
// fingerprint are comparable; the record cache keys on it.
func (t Tables) Fingerprint() string {
	data, err := yaml.Marshal(t)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// DefaultTables returns the built-in vocabulary for UK marketplaces
func DefaultTables() Tables {
	return Tables{
		Manufacturers: []ManufacturerFamily{
			{Manufacturer: ManufacturerNVIDIA, Keywords: []string{"nvidia", "geforce", "rtx", "gtx"}},
			{Manufacturer: ManufacturerAMD, Keywords: []string{"amd", "radeon", "rx"}},
			{Manufacturer: ManufacturerIntel, Keywords: []string{"intel", "arc"}},
		},
		Grammars: []Grammar{
			{
				Manufacturer: ManufacturerNVIDIA,
				Prefixes:     []string{"rtx", "gtx"},
				Number:       `\d{3,4}`,
				Suffixes: []Suffix{
					{Token: "ti super", Display: "Ti Super"},
					{Token: "super", Display: "Super"},
					{Token: "ti", Display: "Ti"},
				},
				Series: []SeriesRule{
					{Prefix: "50", Length: 4, Series: "RTX 50"},
					{Prefix: "40", Length: 4, Series: "RTX 40"},
					{Prefix: "30", Length: 4, Series: "RTX 30"},
					{Prefix: "20", Length: 4, Series: "RTX 20"},
					{Prefix: "16", Length: 4, Series: "GTX 16"},
					{Prefix: "10", Length: 4, Series: "GTX 10"},
					{Prefix: "9", Length: 3, Series: "GTX 900"},
					{Prefix: "7", Length: 3, Series: "GTX 700"},
				},
			},
			{
				Manufacturer: ManufacturerAMD,
				Prefixes:     []string{"rx"},
				Number:       `\d{3,4}`,
				Suffixes: []Suffix{
					{Token: "xtx", Display: "XTX"},
					{Token: "xt", Display: "XT"},
					{Token: "gre", Display: "GRE"},
				},
				Series: []SeriesRule{
					{Prefix: "9", Length: 4, Series: "RX 9000"},
					{Prefix: "7", Length: 4, Series: "RX 7000"},
					{Prefix: "6", Length: 4, Series: "RX 6000"},
					{Prefix: "5", Length: 4, Series: "RX 5000"},
					{Prefix: "5", Length: 3, Series: "RX 500"},
					{Prefix: "4", Length: 3, Series: "RX 400"},
				},
			},
			{
				Manufacturer: ManufacturerIntel,
				Prefixes:     []string{"arc"},
				Number:       `[ab]\d{3}`,
				Series: []SeriesRule{
					{Prefix: "a", Series: "Arc A"},
					{Prefix: "b", Series: "Arc B"},
				},
			},
		},
		BoardPartners: []BoardPartner{
			{Name: "MSI", Aliases: []string{"msi"}},
			{Name: "ASUS", Aliases: []string{"asus", "rog strix", "tuf gaming"}},
			{Name: "Gigabyte", Aliases: []string{"gigabyte", "aorus"}},
			{Name: "EVGA", Aliases: []string{"evga"}},
			{Name: "Zotac", Aliases: []string{"zotac"}},
			{Name: "Sapphire", Aliases: []string{"sapphire"}},
			{Name: "PowerColor", Aliases: []string{"powercolor", "power color"}},
			{Name: "XFX", Aliases: []string{"xfx"}},
			{Name: "Palit", Aliases: []string{"palit"}},
			{Name: "Gainward", Aliases: []string{"gainward"}},
			{Name: "PNY", Aliases: []string{"pny"}},
			{Name: "Inno3D", Aliases: []string{"inno3d"}},
			{Name: "Manli", Aliases: []string{"manli"}},
			{Name: "KFA2", Aliases: []string{"kfa2"}},
			{Name: "Galax", Aliases: []string{"galax"}},
			{Name: "ASRock", Aliases: []string{"asrock"}},
			{Name: "Sparkle", Aliases: []string{"sparkle"}},
			{Name: "Biostar", Aliases: []string{"biostar"}},
			{Name: "Colorful", Aliases: []string{"colorful"}},
		},
		Conditions: []ConditionRule{
			{Phrase: "for parts", Condition: ConditionForParts},
			{Phrase: "parts only", Condition: ConditionForParts},
			{Phrase: "spares or repair", Condition: ConditionForParts},
			{Phrase: "spares", Condition: ConditionForParts},
			{Phrase: "not working", Condition: ConditionForParts},
			{Phrase: "faulty", Condition: ConditionForParts},
			{Phrase: "broken", Condition: ConditionForParts},
			{Phrase: "no display", Condition: ConditionForParts},
			{Phrase: "as is", Condition: ConditionForParts},
			{Phrase: "open box", Condition: ConditionOpenBox},
			{Phrase: "opened box", Condition: ConditionOpenBox},
			{Phrase: "box opened", Condition: ConditionOpenBox},
			{Phrase: "opened", Condition: ConditionOpenBox},
			{Phrase: "like new", Condition: ConditionUsedLikeNew},
			{Phrase: "as new", Condition: ConditionUsedLikeNew},
			{Phrase: "mint", Condition: ConditionUsedLikeNew},
			{Phrase: "excellent", Condition: ConditionUsedLikeNew},
			{Phrase: "pristine", Condition: ConditionUsedLikeNew},
			{Phrase: "immaculate", Condition: ConditionUsedLikeNew},
			{Phrase: "barely used", Condition: ConditionUsedLikeNew},
			{Phrase: "brand new", Condition: ConditionNew},
			{Phrase: "sealed", Condition: ConditionNew},
			{Phrase: "unopened", Condition: ConditionNew},
			{Phrase: "bnib", Condition: ConditionNew},
			{Phrase: "unused", Condition: ConditionNew},
			{Phrase: "new", Condition: ConditionNew},
			{Phrase: "fair", Condition: ConditionUsedFair},
			{Phrase: "acceptable", Condition: ConditionUsedFair},
			{Phrase: "some wear", Condition: ConditionUsedFair},
			{Phrase: "worn", Condition: ConditionUsedFair},
			{Phrase: "scratches", Condition: ConditionUsedFair},
			{Phrase: "very good", Condition: ConditionUsedGood},
			{Phrase: "good", Condition: ConditionUsedGood},
			{Phrase: "fully working", Condition: ConditionUsedGood},
			{Phrase: "working", Condition: ConditionUsedGood},
			{Phrase: "tested", Condition: ConditionUsedGood},
			{Phrase: "refurbished", Condition: ConditionUsedGood},
			{Phrase: "pre owned", Condition: ConditionUsedGood},
			{Phrase: "second hand", Condition: ConditionUsedGood},
			{Phrase: "used", Condition: ConditionUsedGood},
		},
		NegationMarkers: []string{"not", "no", "non"},
		NegationWindow:  3,
		Determiners:     []string{"a", "an", "the"},
		Comparison: ComparisonVocab{
			From:        []string{"from"},
			To:          []string{"to", "into", "for"},
			Versus:      []string{"vs", "versus"},
			Alternative: []string{"or"},
		},
		MemoryUnits:   []string{"gb", "g"},
		PlausibleVRAM: []int{2, 3, 4, 6, 8, 10, 12, 16, 20, 24},
		Weights: Weights{
			Manufacturer: FieldWeight{Missing: 0.25, Ambiguous: 0.10},
			Model:        FieldWeight{Missing: 0.30, Ambiguous: 0.15},
			Price:        FieldWeight{Missing: 0.20, Ambiguous: 0.05},
			VRAM:         FieldWeight{Missing: 0.05},
			BoardPartner: FieldWeight{Missing: 0.05},
			Condition:    FieldWeight{Missing: 0.05},
		},
	}
}
