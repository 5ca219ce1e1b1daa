package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv("POSTGRES_DSN", "postgres://localhost/test")
	t.Setenv("BOT_TOKEN", "123456:ABC-DEF")
	t.Setenv("TG_API_ID", "12345")
	t.Setenv("TG_API_HASH", "abcdef123456")
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("POSTGRES_DSN")
	os.Unsetenv("BOT_TOKEN")
	os.Unsetenv("TG_API_ID")
	os.Unsetenv("TG_API_HASH")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.AppEnv)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, "./tg.session", cfg.TGSessionPath)
	assert.InDelta(t, 0.8, cfg.LexicalThreshold, 1e-9)
	assert.InDelta(t, 0.82, cfg.SemanticThreshold, 1e-9)
	assert.Equal(t, 100, cfg.DedupCorpusSize)
	assert.Equal(t, 10, cfg.WorkerBatchSize)
	assert.True(t, cfg.RephraseEnabled)
}

func TestLoad_AdminIDs(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("ADMIN_IDS", "100,200,300")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int64{100, 200, 300}, cfg.AdminIDs)
}

func TestLoad_ThresholdOverride(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("LEXICAL_THRESHOLD", "0.9")
	t.Setenv("URGENT_KEYWORDS", "бпла,тревог")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.9, cfg.LexicalThreshold, 1e-9)
	assert.Equal(t, []string{"бпла", "тревог"}, cfg.UrgentKeywords)
}
