// Package engine assembles standardized records from raw marketplace
// listings. An Engine is built once from configuration tables and is safe for
// concurrent use: it holds no mutable state and performs no I/O.
package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/gpuscout/internal/extract"
	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/normalize"
	"github.com/ppiankov/gpuscout/internal/score"
)

// ErrMissingTitle is returned for a listing without a title
var ErrMissingTitle = errors.New("listing has no title")

// ListingError reports a listing that could not be standardized
type ListingError struct {
	Marketplace string
	URL         string
	Err         error
}

func (e *ListingError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("listing %s: %v", e.URL, e.Err)
	}
	if e.Marketplace != "" {
		return fmt.Sprintf("%s listing: %v", e.Marketplace, e.Err)
	}
	return fmt.Sprintf("listing: %v", e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// Engine turns raw listings into standardized records
type Engine struct {
	fingerprint string

	normalizer    *normalize.Normalizer
	manufacturers *extract.ManufacturerClassifier
	models        *extract.ModelExtractor
	memory        *extract.MemoryExtractor
	partners      *extract.PartnerExtractor
	prices        *extract.PriceNormalizer
	conditions    *extract.ConditionStandardizer
	scorer        *score.Scorer
}

// New compiles the tables into an engine
func New(tables model.Tables) (*Engine, error) {
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tables: %w", err)
	}

	n := normalize.New(tables.MemoryUnits)

	models, err := extract.NewModelExtractor(tables, n)
	if err != nil {
		return nil, fmt.Errorf("build model extractor: %w", err)
	}
	memory, err := extract.NewMemoryExtractor(tables.MemoryUnits, tables.PlausibleVRAM, n)
	if err != nil {
		return nil, fmt.Errorf("build memory extractor: %w", err)
	}

	return &Engine{
		fingerprint:   tables.Fingerprint(),
		normalizer:    n,
		manufacturers: extract.NewManufacturerClassifier(tables.Manufacturers, n),
		models:        models,
		memory:        memory,
		partners:      extract.NewPartnerExtractor(tables.BoardPartners, n),
		prices:        extract.NewPriceNormalizer(),
		conditions:    extract.NewConditionStandardizer(tables.Conditions, n),
		scorer:        score.NewScorer(tables.Weights),
	}, nil
}

// Fingerprint identifies the tables the engine was built from
func (e *Engine) Fingerprint() string {
	return e.fingerprint
}

// Standardize produces the record for one listing. Extraction problems are
// reported as quality flags; the only error is a listing without a title.
func (e *Engine) Standardize(l model.RawListing) (model.StandardizedRecord, error) {
	if strings.TrimSpace(l.Title) == "" {
		return model.StandardizedRecord{}, &ListingError{
			Marketplace: l.Marketplace,
			URL:         l.URL,
			Err:         ErrMissingTitle,
		}
	}

	title := e.normalizer.Normalize(l.Title)

	// Manufacturer first: it selects the model grammar
	maker := e.manufacturers.Classify(title)
	gpu := e.models.Extract(title, maker.Value)

	var consumed []normalize.Span
	if gpu.Found {
		consumed = append(consumed, *gpu.Span)
	}
	vram := e.memory.Extract(title, consumed, gpu.Span)
	partner := e.partners.Extract(title)
	price := e.prices.Parse(l.PriceText)
	condition := e.conditions.Standardize(l.ConditionText)

	sc := e.scorer.Calculate([]score.FieldOutcome{
		outcome(model.FieldManufacturer, maker),
		outcome(model.FieldModel, gpu),
		outcome(model.FieldPrice, price),
		outcome(model.FieldVRAM, vram),
		outcome(model.FieldBoardPartner, partner),
		outcome(model.FieldCondition, condition),
	})

	record := model.StandardizedRecord{
		GPUManufacturer:     maker.Value,
		Condition:           condition.Value,
		ConfidenceScore:     sc.Value,
		ConfidenceBreakdown: sc.Penalties,
		QualityFlags: collectFlags(
			maker.Flags, gpu.Flags, vram.Flags, partner.Flags, price.Flags, condition.Flags,
		),

		Title:         l.Title,
		PriceText:     l.PriceText,
		ConditionText: l.ConditionText,
		Marketplace:   l.Marketplace,
		Location:      l.Location,
		URL:           l.URL,
		ScrapedAt:     l.ScrapedAt,
	}
	if gpu.Found {
		record.GPUSeries = gpu.Value.Series
		record.GPUModel = &gpu.Value.Display
	}
	if vram.Found {
		record.VRAMGB = &vram.Value
	}
	if partner.Found {
		record.CardManufacturer = &partner.Value
	}
	if price.Found {
		record.StandardizedPrice = &price.Value
	}

	return record, nil
}

func outcome[T any](field string, r extract.Result[T]) score.FieldOutcome {
	return score.FieldOutcome{Field: field, Present: r.Found, Ambiguous: r.Ambiguous}
}

// collectFlags merges extractor flags into a sorted set
func collectFlags(groups ...[]string) []string {
	seen := make(map[string]bool)
	flags := []string{}
	for _, g := range groups {
		for _, f := range g {
			if !seen[f] {
				seen[f] = true
				flags = append(flags, f)
			}
		}
	}
	sort.Strings(flags)
	return flags
}
