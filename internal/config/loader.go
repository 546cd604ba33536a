package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] layered over [Default]. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of the defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Anchor.NGram < 1 {
		errs = append(errs, fmt.Errorf("anchor.ngram %d must be >= 1", cfg.Anchor.NGram))
	}
	if cfg.Anchor.MinNGram < 1 || cfg.Anchor.MinNGram > cfg.Anchor.NGram {
		errs = append(errs, fmt.Errorf("anchor.min_ngram %d must be in [1, anchor.ngram]", cfg.Anchor.MinNGram))
	}
	if cfg.Anchor.TargetPerTokens < 1 {
		errs = append(errs, fmt.Errorf("anchor.target_per_tokens %d must be >= 1", cfg.Anchor.TargetPerTokens))
	}
	if cfg.Anchor.MinSeparation < 0 {
		errs = append(errs, fmt.Errorf("anchor.min_separation %d must be >= 0", cfg.Anchor.MinSeparation))
	}

	if cfg.Aligner.MaxDPCells < 4 {
		errs = append(errs, fmt.Errorf("aligner.max_dp_cells %d is too small to align anything", cfg.Aligner.MaxDPCells))
	}
	if cfg.Aligner.PhoneticThreshold < 0 || cfg.Aligner.PhoneticThreshold > 1 {
		errs = append(errs, fmt.Errorf("aligner.phonetic_threshold %.2f is out of range [0, 1]", cfg.Aligner.PhoneticThreshold))
	}
	if cfg.Aligner.TimeTolerance < 0 {
		errs = append(errs, fmt.Errorf("aligner.time_tolerance %.3f must be >= 0", cfg.Aligner.TimeTolerance))
	}

	if cfg.Rollup.MaxCER < 0 || cfg.Rollup.MaxCER > 1 {
		errs = append(errs, fmt.Errorf("rollup.max_cer %.2f is out of range [0, 1]", cfg.Rollup.MaxCER))
	}
	if cfg.Rollup.MinCoverage < 0 || cfg.Rollup.MinCoverage > 1 {
		errs = append(errs, fmt.Errorf("rollup.min_coverage %.2f is out of range [0, 1]", cfg.Rollup.MinCoverage))
	}

	if cfg.Timing.TimeTolerance < 0 {
		errs = append(errs, fmt.Errorf("timing.time_tolerance %.3f must be >= 0", cfg.Timing.TimeTolerance))
	}
	if cfg.Timing.WidenTolerance < 0 {
		errs = append(errs, fmt.Errorf("timing.widen_tolerance %.4f must be >= 0", cfg.Timing.WidenTolerance))
	}

	if cfg.Pipeline.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("pipeline.concurrency %d must be >= 0", cfg.Pipeline.Concurrency))
	}

	return errors.Join(errs...)
}
