package qfind

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Engine defaults. Each one can be overridden through Config, a YAML config
// file, or a QFIND_* environment variable.
const (
	// DefaultWorkerThreads caps the resolver's parallelism.
	DefaultWorkerThreads = 16

	// DefaultResultsPerThread caps each resolver worker's local buffer.
	DefaultResultsPerThread = 512

	// DefaultMaxResults is the result cap when a query does not set one.
	DefaultMaxResults = 10000

	// DefaultLSMBatchSize is the pending-batch length that triggers an early
	// commit by the background committer.
	DefaultLSMBatchSize = 5000

	// DefaultCommitInterval is the deadline between unconditional commits.
	DefaultCommitInterval = 30 * time.Second

	// DefaultScoreThreshold discards low-relevance results. It is calibrated
	// for realistic corpus sizes; tiny test corpora should lower it.
	DefaultScoreThreshold = 0.25
)

// Config configures an Index. The zero value is not usable; start from
// DefaultConfig or LoadConfig.
type Config struct {
	// BloomPrimaryBytes and BloomSecondaryBytes size the Bloom pair.
	BloomPrimaryBytes   int `mapstructure:"bloom_primary_bytes"`
	BloomSecondaryBytes int `mapstructure:"bloom_secondary_bytes"`

	// BloomHashes is the number of hash functions per filter.
	BloomHashes int `mapstructure:"bloom_hashes"`

	// WorkerThreads caps resolver parallelism; the effective count is
	// min(WorkerThreads, GOMAXPROCS).
	WorkerThreads int `mapstructure:"worker_threads"`

	// ResultsPerThread caps each resolver worker's local result buffer.
	ResultsPerThread int `mapstructure:"results_per_thread"`

	// MaxResults bounds a single query's result set.
	MaxResults int `mapstructure:"max_results"`

	// LSMBatchSize is the pending-batch length that wakes the committer.
	LSMBatchSize int `mapstructure:"lsm_batch_size"`

	// CommitInterval is the background committer's unconditional deadline.
	CommitInterval time.Duration `mapstructure:"commit_interval"`

	// ScoreThreshold drops results scoring below it.
	ScoreThreshold float64 `mapstructure:"score_threshold"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		BloomPrimaryBytes:   DefaultBloomPrimaryBytes,
		BloomSecondaryBytes: DefaultBloomSecondaryBytes,
		BloomHashes:         DefaultBloomHashes,
		WorkerThreads:       DefaultWorkerThreads,
		ResultsPerThread:    DefaultResultsPerThread,
		MaxResults:          DefaultMaxResults,
		LSMBatchSize:        DefaultLSMBatchSize,
		CommitInterval:      DefaultCommitInterval,
		ScoreThreshold:      DefaultScoreThreshold,
	}
}

// LoadConfig reads configuration from an optional YAML file and from QFIND_*
// environment variables, on top of the defaults. An empty configPath searches
// the working directory for qfind.yaml; a missing file is not an error.
func LoadConfig(configPath string) (Config, error) {
	v := viper.New()

	v.SetDefault("bloom_primary_bytes", DefaultBloomPrimaryBytes)
	v.SetDefault("bloom_secondary_bytes", DefaultBloomSecondaryBytes)
	v.SetDefault("bloom_hashes", DefaultBloomHashes)
	v.SetDefault("worker_threads", DefaultWorkerThreads)
	v.SetDefault("results_per_thread", DefaultResultsPerThread)
	v.SetDefault("max_results", DefaultMaxResults)
	v.SetDefault("lsm_batch_size", DefaultLSMBatchSize)
	v.SetDefault("commit_interval", DefaultCommitInterval)
	v.SetDefault("score_threshold", DefaultScoreThreshold)

	v.SetEnvPrefix("QFIND")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("qfind")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.BloomPrimaryBytes <= 0 || c.BloomSecondaryBytes <= 0 {
		return fmt.Errorf("%w: bloom sizes must be positive", ErrInvalidArgument)
	}
	if c.BloomHashes <= 0 || c.BloomHashes > 64 {
		return fmt.Errorf("%w: bloom hashes must be in [1,64]", ErrInvalidArgument)
	}
	if c.WorkerThreads <= 0 || c.ResultsPerThread <= 0 {
		return fmt.Errorf("%w: worker configuration must be positive", ErrInvalidArgument)
	}
	if c.MaxResults <= 0 || c.LSMBatchSize <= 0 {
		return fmt.Errorf("%w: result and batch bounds must be positive", ErrInvalidArgument)
	}
	if c.CommitInterval <= 0 {
		return fmt.Errorf("%w: commit interval must be positive", ErrInvalidArgument)
	}
	return nil
}
