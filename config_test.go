package qfind

import (
	"errors"
	"testing"
	"time"
)

// TestDefaultConfig verifies the documented defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.BloomPrimaryBytes != 1<<25 {
		t.Errorf("BloomPrimaryBytes = %d, want %d", cfg.BloomPrimaryBytes, 1<<25)
	}
	if cfg.BloomSecondaryBytes != 1<<24 {
		t.Errorf("BloomSecondaryBytes = %d, want %d", cfg.BloomSecondaryBytes, 1<<24)
	}
	if cfg.BloomHashes != 8 {
		t.Errorf("BloomHashes = %d, want 8", cfg.BloomHashes)
	}
	if cfg.WorkerThreads != 16 {
		t.Errorf("WorkerThreads = %d, want 16", cfg.WorkerThreads)
	}
	if cfg.ResultsPerThread != 512 {
		t.Errorf("ResultsPerThread = %d, want 512", cfg.ResultsPerThread)
	}
	if cfg.MaxResults != 10000 {
		t.Errorf("MaxResults = %d, want 10000", cfg.MaxResults)
	}
	if cfg.LSMBatchSize != 5000 {
		t.Errorf("LSMBatchSize = %d, want 5000", cfg.LSMBatchSize)
	}
	if cfg.CommitInterval != 30*time.Second {
		t.Errorf("CommitInterval = %v, want 30s", cfg.CommitInterval)
	}
	if cfg.ScoreThreshold != 0.25 {
		t.Errorf("ScoreThreshold = %v, want 0.25", cfg.ScoreThreshold)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

// TestConfigValidate rejects out-of-range values
func TestConfigValidate(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero bloom", func(c *Config) { c.BloomPrimaryBytes = 0 }},
		{"negative secondary", func(c *Config) { c.BloomSecondaryBytes = -1 }},
		{"too many hashes", func(c *Config) { c.BloomHashes = 65 }},
		{"zero workers", func(c *Config) { c.WorkerThreads = 0 }},
		{"zero batch", func(c *Config) { c.LSMBatchSize = 0 }},
		{"zero interval", func(c *Config) { c.CommitInterval = 0 }},
	}

	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.validate(); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("validate = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

// TestLoadConfigDefaults loads with no file present
func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("LoadConfig(\"\") = %+v, want defaults", cfg)
	}
}

// TestLoadConfigEnvOverride verifies QFIND_* environment variables win
func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("QFIND_MAX_RESULTS", "25")
	t.Setenv("QFIND_SCORE_THRESHOLD", "0")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxResults != 25 {
		t.Errorf("MaxResults = %d, want 25", cfg.MaxResults)
	}
	if cfg.ScoreThreshold != 0 {
		t.Errorf("ScoreThreshold = %v, want 0", cfg.ScoreThreshold)
	}
}
