package extract

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/normalize"
)

// MemoryExtractor finds the VRAM capacity ("12gb")
type MemoryExtractor struct {
	re        *regexp.Regexp
	plausible map[int]bool
}

// NewMemoryExtractor creates a new memory extractor
func NewMemoryExtractor(units []string, plausible []int, n *normalize.Normalizer) (*MemoryExtractor, error) {
	alt := alternation(units, n)
	if alt == "" {
		return nil, fmt.Errorf("no memory units configured")
	}
	re, err := regexp.Compile(`\b(\d{1,3})(?:` + alt + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("compile memory pattern: %w", err)
	}

	set := make(map[int]bool, len(plausible))
	for _, v := range plausible {
		set[v] = true
	}
	return &MemoryExtractor{re: re, plausible: set}, nil
}

type memoryCandidate struct {
	gb   int
	span normalize.Span
}

// Extract returns the VRAM in GB. Candidates overlapping a consumed span (the
// model match) or written as a price are skipped. When several distinct
// values appear the one nearest to near wins.
func (e *MemoryExtractor) Extract(text normalize.Normalized, consumed []normalize.Span, near *normalize.Span) Result[int] {
	var cands []memoryCandidate
	for _, loc := range e.re.FindAllStringSubmatchIndex(text.Text, -1) {
		span := normalize.Span{Start: loc[0], End: loc[1]}
		if overlapsAny(span, consumed) || isCurrency(text.RawBefore(span)) {
			continue
		}
		gb, err := strconv.Atoi(text.Text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		cands = append(cands, memoryCandidate{gb: gb, span: span})
	}

	if len(cands) == 0 {
		return absent(0, model.FlagNoVRAMMatch)
	}

	winner := cands[0]
	ambiguous := false
	for _, c := range cands[1:] {
		if c.gb != winner.gb {
			ambiguous = true
			break
		}
	}
	if ambiguous && near != nil {
		best := winner.span.Distance(*near)
		for _, c := range cands[1:] {
			if d := c.span.Distance(*near); d < best {
				winner, best = c, d
			}
		}
	}

	var flags []string
	if ambiguous {
		flags = append(flags, model.FlagAmbiguousVRAM)
	}
	if !e.plausible[winner.gb] {
		flags = append(flags, model.FlagImplausibleVRAM)
	}
	return found(winner.gb, winner.span, ambiguous, flags...)
}

func overlapsAny(s normalize.Span, spans []normalize.Span) bool {
	for _, o := range spans {
		if s.Overlaps(o) {
			return true
		}
	}
	return false
}
