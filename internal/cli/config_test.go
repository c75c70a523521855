package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/gpuscout/internal/engine"
	"github.com/ppiankov/gpuscout/internal/model"
)

func TestDefaultConfigFile_LoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	viper.Reset()
	t.Cleanup(viper.Reset)
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })
	t.Setenv("GPUSCOUT_STORE_DSN", "records.db")
	t.Setenv("GPUSCOUT_SERVER_ADDR", ":9999")

	initConfig()
	require.Equal(t, path, viper.ConfigFileUsed())

	cfg, err := loadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	defaults := model.DefaultConfig()
	assert.Equal(t, 30*time.Minute, cfg.Cache.MemoryTTL)
	assert.Equal(t, defaults.HTTP, cfg.HTTP)
	assert.Len(t, cfg.Engine.Grammars, len(defaults.Engine.Grammars))
	assert.Len(t, cfg.Engine.Conditions, len(defaults.Engine.Conditions))
	assert.Equal(t, defaults.Engine.Weights, cfg.Engine.Weights)
	assert.Equal(t, "records.db", cfg.Store.DSN, "environment overrides the file")
	assert.Equal(t, ":9999", cfg.Server.Addr)

	_, err = engine.New(cfg.Engine)
	assert.NoError(t, err)
}
