package extract

import (
	"testing"

	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/normalize"
	"github.com/stretchr/testify/require"
)

var testNormalizer = normalize.New(normalize.DefaultUnits)

func norm(s string) normalize.Normalized {
	return testNormalizer.Normalize(s)
}

func newTestModelExtractor(t *testing.T) *ModelExtractor {
	t.Helper()
	e, err := NewModelExtractor(model.DefaultTables(), testNormalizer)
	require.NoError(t, err)
	return e
}

func newTestMemoryExtractor(t *testing.T) *MemoryExtractor {
	t.Helper()
	tables := model.DefaultTables()
	e, err := NewMemoryExtractor(tables.MemoryUnits, tables.PlausibleVRAM, testNormalizer)
	require.NoError(t, err)
	return e
}
