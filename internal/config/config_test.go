package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "10-Q", cfg.FormType)
	assert.Equal(t, 16, cfg.EligibleFromHour)
	assert.Equal(t, 19, cfg.EligibleToHour)
	assert.Equal(t, 9, cfg.PairMinWeeks)
	assert.Equal(t, 17, cfg.PairMaxWeeks)
	assert.Equal(t, 85, cfg.MatchThreshold)
	assert.Equal(t, 3, cfg.DatasetBuckets)
	assert.Equal(t, "xbrli:", cfg.NamespacePrefix)
	assert.Equal(t, HostParallelism(), cfg.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edgardiff.yaml")
	yamlContent := `
data_dir: ` + filepath.Join(dir, "out") + `
form_type: 10-K
start_year: 2020
start_quarter: 2
end_year: 2021
end_quarter: 1
match_threshold: 90
http_timeout: 15s
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))

	t.Setenv("EDGARDIFF_MATCH_THRESHOLD", "70")
	t.Setenv("ALPACA_API_KEY", "key-from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "out"), cfg.DataDir)
	assert.Equal(t, "10-K", cfg.FormType)
	assert.Equal(t, 2020, cfg.StartYear)
	assert.Equal(t, 2, cfg.StartQuarter)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 70, cfg.MatchThreshold, "environment overrides the file")
	assert.Equal(t, "key-from-env", cfg.AlpacaAPIKey)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyFlags(t *testing.T) {
	t.Setenv("EDGARDIFF_DATA_DIR", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--form-type", "10-K", "--workers", "100000", "--buckets", "5"}))
	require.NoError(t, cfg.ApplyFlags(fs))

	assert.Equal(t, "10-K", cfg.FormType)
	assert.Equal(t, 5, cfg.DatasetBuckets)
	assert.Equal(t, HostParallelism(), cfg.Workers, "workers are clamped to host parallelism")
	assert.Equal(t, 85, cfg.MatchThreshold, "unchanged flags keep loaded values")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"quarter out of range", func(c *Config) { c.StartQuarter = 5 }},
		{"start after end", func(c *Config) { c.StartYear, c.EndYear = 2022, 2021 }},
		{"hours inverted", func(c *Config) { c.EligibleFromHour, c.EligibleToHour = 20, 16 }},
		{"hour past midnight", func(c *Config) { c.EligibleToHour = 24 }},
		{"weeks inverted", func(c *Config) { c.PairMinWeeks, c.PairMaxWeeks = 18, 9 }},
		{"threshold too high", func(c *Config) { c.MatchThreshold = 101 }},
		{"no buckets", func(c *Config) { c.DatasetBuckets = 0 }},
		{"empty form type", func(c *Config) { c.FormType = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	cfg := Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	require.NoError(t, cfg.EnsureDirs())

	for _, dir := range []string{cfg.CleanedDir(), cfg.LogDir(), filepath.Dir(cfg.DatabasePath()), filepath.Dir(cfg.DatasetPath())} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestR2Enabled(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.R2Enabled())

	cfg.R2Bucket = "b"
	cfg.R2AccountID = "a"
	cfg.R2AccessKeyID = "k"
	cfg.R2SecretAccessKey = "s"
	assert.True(t, cfg.R2Enabled())
}
