package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/narralign/internal/config"
)

func TestLoadFromReader_Empty(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader(empty) error = %v", err)
	}
	want := config.Default()
	if cfg.LogLevel != want.LogLevel {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, want.LogLevel)
	}
	if cfg.Anchor != want.Anchor {
		t.Errorf("Anchor = %+v, want defaults %+v", cfg.Anchor, want.Anchor)
	}
	if cfg.Rollup != want.Rollup {
		t.Errorf("Rollup = %+v, want defaults %+v", cfg.Rollup, want.Rollup)
	}
	if cfg.Report.ListenAddr != ":8081" {
		t.Errorf("Report.ListenAddr = %q, want :8081", cfg.Report.ListenAddr)
	}
}

func TestLoadFromReader_Overrides(t *testing.T) {
	t.Parallel()

	yml := `
log_level: debug
anchor:
  ngram: 4
rollup:
  max_cer: 0.25
pipeline:
  concurrency: 3
`
	cfg, err := config.LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader() error = %v", err)
	}
	if cfg.LogLevel != config.LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Anchor.NGram != 4 {
		t.Errorf("Anchor.NGram = %d, want 4", cfg.Anchor.NGram)
	}
	// Untouched fields keep their defaults.
	if cfg.Anchor.MinSeparation != 200 {
		t.Errorf("Anchor.MinSeparation = %d, want default 200", cfg.Anchor.MinSeparation)
	}
	if cfg.Rollup.MaxCER != 0.25 {
		t.Errorf("Rollup.MaxCER = %f, want 0.25", cfg.Rollup.MaxCER)
	}
	if cfg.Rollup.MinCoverage != 0.50 {
		t.Errorf("Rollup.MinCoverage = %f, want default 0.50", cfg.Rollup.MinCoverage)
	}
	if cfg.Pipeline.Concurrency != 3 {
		t.Errorf("Pipeline.Concurrency = %d, want 3", cfg.Pipeline.Concurrency)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("alignment_mode: fancy\n"))
	if err == nil {
		t.Fatal("LoadFromReader(unknown field) = nil error, want decode failure")
	}
	if !strings.Contains(err.Error(), "alignment_mode") {
		t.Errorf("error %q does not name the unknown field", err)
	}
}

func TestValidate_JoinsAllFailures(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.LogLevel = "loud"
	cfg.Anchor.NGram = 0
	cfg.Rollup.MaxCER = 1.5
	cfg.Pipeline.Concurrency = -1

	err := config.Validate(&cfg)
	if err == nil {
		t.Fatal("Validate() = nil, want joined errors")
	}
	for _, want := range []string{"log_level", "anchor.ngram", "rollup.max_cer", "pipeline.concurrency"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	if err := config.Validate(&cfg); err != nil {
		t.Errorf("Validate(Default()) = %v, want nil", err)
	}
}
