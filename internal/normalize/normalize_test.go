package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Basic(t *testing.T) {
	n := New(DefaultUnits)

	tests := []struct {
		in   string
		want string
	}{
		{"MSI RTX 4070 Gaming X Trio 12GB", "msi rtx 4070 gaming x trio 12gb"},
		{"  Sapphire   Pulse  RX-7800-XT!! ", "sapphire pulse rx 7800 xt"},
		{"Gaming PC RTX4070ti MSI 16gb ram NOT 4080", "gaming pc rtx4070ti msi 16gb ram not 4080"},
		{"RTX 3060 12 GB", "rtx 3060 12gb"},
		{"8 g card", "8g card"},
		{"ＲＴＸ　４０９０", "rtx 4090"},
		{"", ""},
		{"!!! ---", ""},
	}

	for _, tt := range tests {
		got := n.Normalize(tt.in)
		assert.Equal(t, tt.want, got.Text, "input %q", tt.in)
	}
}

func TestNormalize_UnitSeparatorsNormalizeIdentically(t *testing.T) {
	n := New(DefaultUnits)
	assert.Equal(t, n.Normalize("16gb").Text, n.Normalize("16 gb").Text)
	assert.Equal(t, n.Normalize("16GB").Text, n.Normalize("16 GB").Text)
}

func TestNormalize_KeepsFusedTokens(t *testing.T) {
	n := New(DefaultUnits)
	assert.Equal(t, "rtx4070", n.Normalize("RTX4070").Text)
	assert.Equal(t, "rx7900xtx", n.Normalize("RX7900XTX").Text)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := New(DefaultUnits)
	inputs := []string{
		"MSI RTX 4070 Gaming X Trio 12GB",
		"Upgrade from 3060 to 4070",
		"£549.99 o.n.o.",
		"Straße GeForce® RTX™ 4080 SUPER 16 GB",
		"ﬁne İstanbul seller — ½ price",
		"1 2 gb gb",
		"\xff\xfe broken utf8 rtx 3080",
	}
	for _, in := range inputs {
		once := n.Normalize(in).Text
		twice := n.Normalize(once).Text
		assert.Equal(t, once, twice, "input %q", in)
	}
}

func TestNormalized_Original(t *testing.T) {
	n := New(DefaultUnits)
	raw := "MSI  RTX 4070, 12 GB"
	got := n.Normalize(raw)
	require.Equal(t, "msi rtx 4070 12gb", got.Text)

	idx := strings.Index(got.Text, "4070")
	orig := got.Original(Span{Start: idx, End: idx + 4})
	assert.Equal(t, "4070", raw[orig.Start:orig.End])

	idx = strings.Index(got.Text, "12gb")
	orig = got.Original(Span{Start: idx, End: idx + 4})
	assert.Equal(t, "12 GB", raw[orig.Start:orig.End])

	assert.Equal(t, Span{}, got.Original(Span{Start: 5, End: 5}))
	assert.Equal(t, Span{}, got.Original(Span{Start: 0, End: 500}))
}

func TestNormalized_RawBefore(t *testing.T) {
	n := New(DefaultUnits)
	got := n.Normalize("RTX 3070 £ 350")
	idx := strings.Index(got.Text, "350")
	assert.Equal(t, '£', got.RawBefore(Span{Start: idx, End: idx + 3}))

	idx = strings.Index(got.Text, "rtx")
	assert.Equal(t, rune(0), got.RawBefore(Span{Start: idx, End: idx + 3}))
}

func TestNormalized_Words(t *testing.T) {
	n := New(DefaultUnits)
	got := n.Normalize("not an RTX 4080")
	words := got.Words()
	require.Len(t, words, 4)
	assert.Equal(t, "not", words[0].Text)
	assert.Equal(t, "4080", words[3].Text)
	assert.Equal(t, Span{Start: 11, End: 15}, words[3].Span)
}

func TestSpan_Distance(t *testing.T) {
	a := Span{Start: 0, End: 4}
	b := Span{Start: 10, End: 14}
	assert.Equal(t, 6, a.Distance(b))
	assert.Equal(t, 6, b.Distance(a))
	assert.Equal(t, 0, a.Distance(Span{Start: 2, End: 8}))
	assert.True(t, a.Overlaps(Span{Start: 3, End: 5}))
	assert.False(t, a.Overlaps(Span{Start: 4, End: 5}))
}
