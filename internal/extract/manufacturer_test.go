package extract

import (
	"testing"

	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManufacturerClassifier_Classify(t *testing.T) {
	c := NewManufacturerClassifier(model.DefaultTables().Manufacturers, testNormalizer)

	tests := []struct {
		name      string
		title     string
		want      model.Manufacturer
		found     bool
		ambiguous bool
	}{
		{"nvidia brand token", "MSI RTX 4070 Gaming X Trio 12GB", model.ManufacturerNVIDIA, true, false},
		{"fused amd token", "Sapphire RX7800XT Pulse", model.ManufacturerAMD, true, false},
		{"several nvidia keywords", "nvidia geforce rtx four thousand seventy", model.ManufacturerNVIDIA, true, false},
		{"intel arc", "Intel Arc A770 16GB", model.ManufacturerIntel, true, false},
		{"earliest family wins", "Radeon RX 6800 not a GeForce", model.ManufacturerAMD, true, true},
		{"no keyword", "Graphics card 8GB", model.ManufacturerUnknown, false, false},
		{"keywords inside words ignored", "arcade proxy", model.ManufacturerUnknown, false, false},
		{"empty", "", model.ManufacturerUnknown, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(norm(tt.title))
			assert.Equal(t, tt.want, res.Value)
			assert.Equal(t, tt.found, res.Found)
			assert.Equal(t, tt.ambiguous, res.Ambiguous)
			if !tt.found {
				assert.Equal(t, []string{model.FlagNoManufacturerMatch}, res.Flags)
				assert.Nil(t, res.Span)
			}
			if tt.ambiguous {
				assert.Contains(t, res.Flags, model.FlagAmbiguousManufacturer)
			}
		})
	}
}

func TestManufacturerClassifier_Span(t *testing.T) {
	c := NewManufacturerClassifier(model.DefaultTables().Manufacturers, testNormalizer)

	res := c.Classify(norm("MSI RTX 4070"))
	require.NotNil(t, res.Span)
	assert.Equal(t, normalize.Span{Start: 4, End: 7}, *res.Span)
}
