package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLegacyJSONConfig(t *testing.T) {
	path := writeConfig(t, "config.json", `{
    "path": "https://example.com/sources.json",
    "outpath": "out/",
    "workers": 32,
    "dedup": "y",
    "filter": "n",
    "keywords_to_filter": ["Adult", " test "]
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/sources.json", cfg.Path)
	assert.Equal(t, "out/", cfg.OutPath)
	assert.Equal(t, 32, cfg.Workers)
	assert.True(t, bool(cfg.Dedup))
	assert.False(t, bool(cfg.Filter))
	assert.False(t, bool(cfg.ExactKeywordMatch))
	assert.Equal(t, DefaultTimeout, cfg.RequestTimeout())
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Equal(t, []string{"Adult", " test "}, cfg.KeywordsToFilter)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAMLConfig(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
path: sources.json
workers: 4
dedup: true
filter: yes
exact_keyword_match: y
keywords_to_filter: [cat]
timeout: 2.5
user_agent: test-agent
browser:
  enabled: true
  wait_time: 500ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultOutPath, cfg.OutPath)
	assert.True(t, bool(cfg.Dedup))
	assert.True(t, bool(cfg.Filter))
	assert.True(t, bool(cfg.ExactKeywordMatch))
	assert.Equal(t, 2500*time.Millisecond, cfg.RequestTimeout())
	assert.Equal(t, "test-agent", cfg.UserAgent)
	assert.True(t, cfg.Browser.Enabled)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, Duration(500*time.Millisecond), cfg.Browser.WaitTime)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "bad.yaml", "dedup: maybe\n"))
	assert.ErrorContains(t, err, "invalid switch value")

	_, err = Load(writeConfig(t, "bad.yaml", "timeout: soon\n"))
	assert.ErrorContains(t, err, "invalid duration")
}

func TestValidate(t *testing.T) {
	cfg := CreateDefault()
	cfg.Workers = 0
	cfg.Proxies.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "path is required")
	assert.ErrorContains(t, err, "workers must be at least 1")
	assert.ErrorContains(t, err, "proxies enabled")

	cfg = CreateDefault()
	cfg.Path = "sources.json"
	cfg.Timeout = 0
	assert.ErrorContains(t, cfg.Validate(), "timeout must be positive")
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"5", 5 * time.Second},
		{"0.5", 500 * time.Millisecond},
		{"3s", 3 * time.Second},
		{" 250ms ", 250 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDuration("fast")
	assert.Error(t, err)
}
