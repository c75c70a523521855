package extract

import (
	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/normalize"
)

// ManufacturerClassifier detects the chip vendor from keyword families
type ManufacturerClassifier struct {
	index    *keywordIndex
	families []model.Manufacturer
}

// NewManufacturerClassifier creates a new manufacturer classifier
func NewManufacturerClassifier(families []model.ManufacturerFamily, n *normalize.Normalizer) *ManufacturerClassifier {
	groups := make([][]string, len(families))
	vendors := make([]model.Manufacturer, len(families))
	for i, f := range families {
		groups[i] = f.Keywords
		vendors[i] = f.Manufacturer
	}
	return &ManufacturerClassifier{
		index:    newKeywordIndex(groups, n, true),
		families: vendors,
	}
}

// Classify returns the vendor whose keyword occurs earliest. Matches from
// more than one family make the result ambiguous.
func (c *ManufacturerClassifier) Classify(text normalize.Normalized) Result[model.Manufacturer] {
	hits := c.index.find(text.Text)
	if len(hits) == 0 {
		return absent(model.ManufacturerUnknown, model.FlagNoManufacturerMatch)
	}

	first := hits[0]
	ambiguous := false
	for _, h := range hits[1:] {
		if c.families[h.owner] != c.families[first.owner] {
			ambiguous = true
			break
		}
	}

	if ambiguous {
		return found(c.families[first.owner], first.span, true, model.FlagAmbiguousManufacturer)
	}
	return found(c.families[first.owner], first.span, false)
}
