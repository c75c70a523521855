package extract

import (
	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/normalize"
)

// PartnerExtractor matches known board partner names
type PartnerExtractor struct {
	index *keywordIndex
	names []string
}

// NewPartnerExtractor creates a new board partner extractor
func NewPartnerExtractor(partners []model.BoardPartner, n *normalize.Normalizer) *PartnerExtractor {
	groups := make([][]string, len(partners))
	names := make([]string, len(partners))
	for i, p := range partners {
		groups[i] = append([]string{p.Name}, p.Aliases...)
		names[i] = p.Name
	}
	return &PartnerExtractor{
		index: newKeywordIndex(groups, n, false),
		names: names,
	}
}

// Extract returns the first partner named in the text
func (e *PartnerExtractor) Extract(text normalize.Normalized) Result[string] {
	hits := e.index.find(text.Text)
	if len(hits) == 0 {
		return absent("", model.FlagNoBoardPartner)
	}
	return found(e.names[hits[0].owner], hits[0].span, false)
}
