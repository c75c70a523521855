package extract

import (
	"testing"

	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartnerExtractor_Extract(t *testing.T) {
	e := NewPartnerExtractor(model.DefaultTables().BoardPartners, testNormalizer)

	tests := []struct {
		title string
		want  string
	}{
		{"MSI RTX 4070 Gaming X Trio 12GB", "MSI"},
		{"Gaming PC RTX4070ti MSI 16gb ram NOT 4080", "MSI"},
		{"ASUS ROG Strix RTX 4090", "ASUS"},
		{"ROG Strix 4090 OC", "ASUS"},
		{"Aorus Master 4080", "Gigabyte"},
		{"Power Color Red Devil 6800 XT", "PowerColor"},
		{"Inno3D RTX 3070 iChill", "Inno3D"},
		{"Sapphire Nitro+ RX 7900 XTX, boxed like Zotac", "Sapphire"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			res := e.Extract(norm(tt.title))
			require.True(t, res.Found)
			assert.Equal(t, tt.want, res.Value)
			assert.False(t, res.Ambiguous)
			assert.Empty(t, res.Flags)
		})
	}
}

func TestPartnerExtractor_Span(t *testing.T) {
	e := NewPartnerExtractor(model.DefaultTables().BoardPartners, testNormalizer)

	res := e.Extract(norm("rtx 4070 msi"))
	require.NotNil(t, res.Span)
	assert.Equal(t, normalize.Span{Start: 9, End: 12}, *res.Span)
}

func TestPartnerExtractor_NoMatch(t *testing.T) {
	e := NewPartnerExtractor(model.DefaultTables().BoardPartners, testNormalizer)

	for _, title := range []string{"RTX 4070 Founders Edition", "msinvidia 3080", ""} {
		res := e.Extract(norm(title))
		assert.False(t, res.Found, title)
		assert.Equal(t, "", res.Value)
		assert.Equal(t, []string{model.FlagNoBoardPartner}, res.Flags)
	}
}
