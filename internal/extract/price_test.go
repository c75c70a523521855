package extract

import (
	"testing"

	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceNormalizer_Parse(t *testing.T) {
	p := NewPriceNormalizer()

	tests := []struct {
		raw       string
		want      float64
		ambiguous bool
		flags     []string
	}{
		{"£549.99 ono", 549.99, false, []string{model.FlagNegotiable}},
		{"£450 o.n.o.", 450, false, []string{model.FlagNegotiable}},
		{"300 or best offer", 300, false, []string{model.FlagNegotiable}},
		{"£1,200", 1200, false, nil},
		{"GBP 875.50", 875.50, false, nil},
		{"£50-£70", 50, true, []string{model.FlagPriceRange}},
		{"70 to 50", 50, true, []string{model.FlagPriceRange}},
		{"£0", 0, false, []string{model.FlagNonpositivePrice}},
		{"-£20", -20, false, []string{model.FlagNonpositivePrice}},
		{"  £ 250  ", 250, false, nil},
		{"£50 - 70 ono", 50, true, []string{model.FlagPriceRange, model.FlagNegotiable}},
		{"£450 - 2 years warranty left", 450, false, nil},
		{"£300 ono, postage 5-10", 300, false, []string{model.FlagNegotiable}},
		{"£120 inc. postage 3 to 5 days", 120, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			res := p.Parse(tt.raw)
			require.True(t, res.Found)
			assert.InDelta(t, tt.want, res.Value, 1e-9)
			assert.Equal(t, tt.ambiguous, res.Ambiguous)
			assert.ElementsMatch(t, tt.flags, res.Flags)
			require.NotNil(t, res.Span)
		})
	}
}

func TestPriceNormalizer_Span(t *testing.T) {
	res := NewPriceNormalizer().Parse("£549.99 ono")
	require.NotNil(t, res.Span)
	assert.Equal(t, normalize.Span{Start: 2, End: 8}, *res.Span)
}

func TestPriceNormalizer_Unparsed(t *testing.T) {
	p := NewPriceNormalizer()

	for _, raw := range []string{"no price listed", "", "free to collector", "POA"} {
		res := p.Parse(raw)
		assert.False(t, res.Found, raw)
		assert.Nil(t, res.Span, raw)
		assert.Equal(t, []string{model.FlagPriceUnparsed}, res.Flags, raw)
	}
}

func TestPriceNormalizer_NegotiableWithoutNumber(t *testing.T) {
	res := NewPriceNormalizer().Parse("offers, negotiable")
	assert.False(t, res.Found)
	assert.ElementsMatch(t, []string{model.FlagNegotiable, model.FlagPriceUnparsed}, res.Flags)
}
