package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/normalize"
)

const (
	amount     = `\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`
	qualifiers = `o\.?n\.?o|o\.?v\.?n\.?o|o\.?b\.?o|or (?:best|nearest) offer|neg(?:otiable)?`
)

var (
	amountRe     = regexp.MustCompile(amount)
	priceRangeRe = regexp.MustCompile(`^(` + amount + `)\s*(?:-|–|to)\s*(?:£|\$|€|gbp)?\s*(` + amount + `)`)
	negotiableRe = regexp.MustCompile(`\b(?:` + qualifiers + `)\b`)

	// What may follow the upper bound of a range; a word such as "years"
	// makes the second number a quantity
	rangeTailRe = regexp.MustCompile(`^\s*(?:$|[^a-z\s]|(?:gbp|each|` + qualifiers + `)\b)`)
)

// PriceNormalizer parses raw price strings. Currency is assumed to be GBP and
// is stripped, not converted.
type PriceNormalizer struct{}

// NewPriceNormalizer creates a new price normalizer
func NewPriceNormalizer() *PriceNormalizer {
	return &PriceNormalizer{}
}

// Parse extracts the first well-formed amount. Spans are byte offsets into
// the lowercased price string. Offer qualifiers only add flags.
func (p *PriceNormalizer) Parse(raw string) Result[float64] {
	s := strings.ToLower(strings.TrimSpace(raw))

	var flags []string
	if negotiableRe.MatchString(s) {
		flags = append(flags, model.FlagNegotiable)
	}

	loc := amountRe.FindStringIndex(s)
	if loc == nil {
		return absent(0.0, append(flags, model.FlagPriceUnparsed)...)
	}

	// A range only counts when it starts at the first amount; later number
	// pairs ("2 years", "postage 5-10") are not prices
	if r := priceRangeRe.FindStringSubmatchIndex(s[loc[0]:]); r != nil && rangeTailRe.MatchString(s[loc[0]+r[1]:]) {
		low, errLow := parseAmount(s[loc[0]+r[2] : loc[0]+r[3]])
		high, errHigh := parseAmount(s[loc[0]+r[4] : loc[0]+r[5]])
		if errLow == nil && errHigh == nil {
			span := normalize.Span{Start: loc[0] + r[2], End: loc[0] + r[3]}
			if high < low {
				low = high
				span = normalize.Span{Start: loc[0] + r[4], End: loc[0] + r[5]}
			}
			flags = append(flags, model.FlagPriceRange)
			if low <= 0 {
				flags = append(flags, model.FlagNonpositivePrice)
			}
			return found(low, span, true, flags...)
		}
	}

	value, err := parseAmount(s[loc[0]:loc[1]])
	if err != nil {
		return absent(0.0, append(flags, model.FlagPriceUnparsed)...)
	}

	span := normalize.Span{Start: loc[0], End: loc[1]}
	if negativeSign(s[:loc[0]]) {
		value = -value
		span.Start = strings.LastIndex(s[:loc[0]], "-")
	}
	if value <= 0 {
		flags = append(flags, model.FlagNonpositivePrice)
	}
	return found(value, span, false, flags...)
}

func parseAmount(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// negativeSign reports whether the text before an amount ends with a minus
// sign, ignoring currency symbols and spaces between them
func negativeSign(before string) bool {
	before = strings.TrimRight(before, " £$€")
	before = strings.TrimSuffix(before, "gbp")
	before = strings.TrimRight(before, " ")
	return strings.HasSuffix(before, "-")
}
