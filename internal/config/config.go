// Package config provides the configuration schema and loader for the
// narralign alignment engine.
//
// Every algorithm tunable the engine exposes lives here as an explicit
// field with a documented default; nothing is kept as process-wide mutable
// state. The reliability thresholds in particular are empirically tuned
// product values and deliberately stay configuration rather than constants.
package config

// LogLevel controls log verbosity for the narralign tools.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Default "info".
	LogLevel LogLevel `yaml:"log_level"`

	Anchor   AnchorConfig   `yaml:"anchor"`
	Aligner  AlignerConfig  `yaml:"aligner"`
	Rollup   RollupConfig   `yaml:"rollup"`
	Timing   TimingConfig   `yaml:"timing"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Report   ReportConfig   `yaml:"report"`
}

// AnchorConfig holds the anchor discovery tunables.
type AnchorConfig struct {
	// NGram is the n-gram size discovery starts at. Default 3.
	NGram int `yaml:"ngram"`

	// MinNGram is the smallest n-gram size the fallback ladder may use.
	// Default 2.
	MinNGram int `yaml:"min_ngram"`

	// TargetPerTokens is the desired anchor density: roughly one anchor per
	// this many book tokens. Default 50.
	TargetPerTokens int `yaml:"target_per_tokens"`

	// MinSeparation is the minimum token distance between two occurrences of
	// a gram before relaxed candidates are trusted. Default 200.
	MinSeparation int `yaml:"min_separation"`

	// MinContentWords is the minimum number of non-stop-word tokens in an
	// n-gram of size >= 3. Default 2.
	MinContentWords int `yaml:"min_content_words"`
}

// AlignerConfig holds the window aligner tunables.
type AlignerConfig struct {
	// MaxDPCells bounds the dynamic-programming table size per window;
	// larger windows use the greedy scan. Default 250000.
	MaxDPCells int `yaml:"max_dp_cells"`

	// TimeTolerance is the overlap tolerance in seconds for the greedy
	// scan's stall-avoidance rule. Default 0.25.
	TimeTolerance float64 `yaml:"time_tolerance"`

	// MetaphoneFallback enables Double Metaphone homophone detection when no
	// phoneme dictionary is supplied. Default true.
	MetaphoneFallback bool `yaml:"metaphone_fallback"`

	// PhoneticThreshold is the minimum Jaro-Winkler similarity for a
	// metaphone-equivalent pair. Default 0.70.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`
}

// RollupConfig holds the sentence/paragraph reliability thresholds.
type RollupConfig struct {
	// MaxCER is the character error rate above which a sentence is flagged
	// unreliable. Default 0.30.
	MaxCER float64 `yaml:"max_cer"`

	// MinCoverage is the minimum aligned-token fraction for a reliable
	// range. Default 0.50.
	MinCoverage float64 `yaml:"min_coverage"`
}

// TimingConfig holds the timing reconciler tunables.
type TimingConfig struct {
	// TimeTolerance is the overlap tolerance in seconds for the
	// token-to-interval scan. Default 0.25.
	TimeTolerance float64 `yaml:"time_tolerance"`

	// WidenTolerance is the minimum extension in seconds before a fallback
	// span widens the primary span. Default 0.001.
	WidenTolerance float64 `yaml:"widen_tolerance"`

	// Placeholders lists interval texts marking unrecognized spans.
	// Default ["<unk>", "<skip>", "[unk]"].
	Placeholders []string `yaml:"placeholders"`
}

// PipelineConfig holds the chapter pipeline settings.
type PipelineConfig struct {
	// Concurrency caps the number of chapters aligned in parallel.
	// 0 means the number of CPUs.
	Concurrency int `yaml:"concurrency"`
}

// ReportConfig holds the validation-report viewer settings.
type ReportConfig struct {
	// ListenAddr is the TCP address the viewer listens on. Default ":8081".
	ListenAddr string `yaml:"listen_addr"`

	// BaseDir is the directory scanned for per-chapter report files.
	BaseDir string `yaml:"base_dir"`
}

// Default returns a Config populated with every documented default.
func Default() Config {
	return Config{
		LogLevel: LogInfo,
		Anchor: AnchorConfig{
			NGram:           3,
			MinNGram:        2,
			TargetPerTokens: 50,
			MinSeparation:   200,
			MinContentWords: 2,
		},
		Aligner: AlignerConfig{
			MaxDPCells:        250000,
			TimeTolerance:     0.25,
			MetaphoneFallback: true,
			PhoneticThreshold: 0.70,
		},
		Rollup: RollupConfig{
			MaxCER:      0.30,
			MinCoverage: 0.50,
		},
		Timing: TimingConfig{
			TimeTolerance:  0.25,
			WidenTolerance: 0.001,
			Placeholders:   []string{"<unk>", "<skip>", "[unk]"},
		},
		Report: ReportConfig{
			ListenAddr: ":8081",
		},
	}
}
