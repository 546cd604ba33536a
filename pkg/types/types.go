// Package types defines the shared value records used across all narralign
// packages.
//
// These types form the lingua franca between anchor discovery, window
// alignment, the rollup classifier, and the timing reconciler. Each package
// defines its own internal working types, but cross-cutting data structures
// live here to avoid circular imports. All records are plain values owned by
// the caller; the engine never retains them between calls.
package types

// BookToken is one manuscript word with its structural position. Tokens are
// produced once by the external tokenizer; WordIndex values are 0-based,
// contiguous and globally ordered.
type BookToken struct {
	// Text is the word as it appears in the manuscript, punctuation included.
	Text string `json:"text"`

	// WordIndex is the token's position in the manuscript word stream.
	WordIndex int `json:"wordIndex"`

	// SentenceIndex is the id of the sentence containing this token.
	SentenceIndex int `json:"sentenceIndex"`

	// ParagraphIndex is the id of the paragraph containing this token.
	ParagraphIndex int `json:"paragraphIndex"`
}

// ScriptToken is one recognized-speech word with its coarse audio timing.
// Tokens are ordered by array position; start times are non-decreasing in
// that order (an upstream invariant this engine relies on but does not
// enforce).
type ScriptToken struct {
	// Word is the recognized word text.
	Word string `json:"word"`

	// Start is the word's start time in seconds from chapter audio start.
	Start float64 `json:"start"`

	// Duration is the word's spoken duration in seconds.
	Duration float64 `json:"duration"`
}

// End returns the token's end time in seconds.
func (t ScriptToken) End() float64 { return t.Start + t.Duration }

// Anchor is a verified, order-preserving correspondence between a manuscript
// position and a recognized-speech position. Across a selected anchor set
// both coordinates are strictly increasing.
type Anchor struct {
	// BookPos is the manuscript word index the anchored n-gram starts at.
	BookPos int `json:"bookPos"`

	// ScriptPos is the recognized word index the anchored n-gram starts at.
	ScriptPos int `json:"scriptPos"`

	// Length is the n-gram length the anchor was verified on.
	Length int `json:"length"`
}

// Window is one anchor-bounded sub-range of both token streams, aligned
// independently of its neighbours. Windows tile contiguously: window k+1
// starts one token after window k ends, on both coordinates. The end
// coordinates of the final window in a tiling are one past the outer bounds
// (they come from the synthetic closing anchor); the aligner clamps when
// slicing.
type Window struct {
	BookStart   int `json:"bookStart"`
	BookEnd     int `json:"bookEnd"`
	ScriptStart int `json:"scriptStart"`
	ScriptEnd   int `json:"scriptEnd"`
}

// OpKind is the alignment decision taken for one word position.
type OpKind int

const (
	// OpMatch pairs a book token with an equivalent script token.
	OpMatch OpKind = iota

	// OpSubstitute pairs a book token with a different script token.
	OpSubstitute

	// OpInsert consumes a script token with no book counterpart.
	OpInsert

	// OpDelete consumes a book token with no script counterpart.
	OpDelete
)

// String returns the lowercase name of the kind.
func (k OpKind) String() string {
	switch k {
	case OpMatch:
		return "match"
	case OpSubstitute:
		return "substitute"
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// OpClass refines an OpKind with the quality bucket the decision falls in.
type OpClass int

const (
	// ClassAnchor marks a match at a position backed by a selected anchor.
	ClassAnchor OpClass = iota

	// ClassEqual marks an exact, homophone, or confusable-spelling match.
	ClassEqual

	// ClassNear marks a substitution between similar but distinct words.
	ClassNear

	// ClassExtra marks a script token absent from the book.
	ClassExtra

	// ClassMissing marks a book token absent from the script.
	ClassMissing
)

// String returns the report label of the class.
func (c OpClass) String() string {
	switch c {
	case ClassAnchor:
		return "anchor"
	case ClassEqual:
		return "equal_or_equiv"
	case ClassNear:
		return "near_or_diff"
	case ClassExtra:
		return "extra"
	case ClassMissing:
		return "missing_book"
	}
	return "unknown"
}

// WordOp is one word-level alignment decision. BookIndex is -1 for inserts;
// ScriptIndex is -1 for deletes. Ops are produced per window and concatenated
// in window order, so the stream is ordered by book position with inserts
// interleaved at their script position.
type WordOp struct {
	BookIndex   int     `json:"bookIndex"`
	ScriptIndex int     `json:"scriptIndex"`
	Kind        OpKind  `json:"kind"`
	Class       OpClass `json:"class"`
	Cost        float64 `json:"cost"`
}

// SentenceRange is an externally supplied sentence boundary over the book
// token stream. Ranges must be contiguous, non-overlapping, and cover the
// full token space; the rollup validates this and fails fast when violated.
type SentenceRange struct {
	ID        int `json:"id"`
	BookStart int `json:"bookStart"`
	BookEnd   int `json:"bookEnd"`
}

// ParagraphRange is the paragraph-level analogue of SentenceRange, listing
// its member sentences.
type ParagraphRange struct {
	ID          int   `json:"id"`
	BookStart   int   `json:"bookStart"`
	BookEnd     int   `json:"bookEnd"`
	SentenceIDs []int `json:"sentenceIds"`
}

// SentenceMetrics aggregates one sentence's word-level alignment quality.
type SentenceMetrics struct {
	// WER is the cost-weighted word error rate: summed op cost over
	// non-punctuation ops divided by the sentence's book token count.
	WER float64 `json:"wer"`

	// CER is the character error rate after punctuation/whitespace
	// normalization.
	CER float64 `json:"cer"`

	// SpanWER is the legacy unweighted error ratio, kept for backward
	// comparability with older reports.
	SpanWER float64 `json:"spanWer"`

	// ExtraRuns counts maximal runs of inserted script tokens inside the
	// sentence's guard span.
	ExtraRuns int `json:"extraRuns"`

	// MissingRuns counts maximal runs of deleted book tokens inside the
	// sentence's guard span.
	MissingRuns int `json:"missingRuns"`
}

// Status classifies whether a sentence or paragraph alignment is trustworthy
// for downstream timing and mastering decisions.
type Status string

const (
	StatusOK         Status = "ok"
	StatusUnreliable Status = "unreliable"
)

// SentenceAlign is the per-sentence alignment record. Created once per rollup
// pass and immutable thereafter; a re-run re-creates records rather than
// mutating them.
type SentenceAlign struct {
	ID        int `json:"id"`
	BookStart int `json:"bookStart"`
	BookEnd   int `json:"bookEnd"`

	// ScriptStart/ScriptEnd bound the recognized tokens attributed to the
	// sentence. Both are -1 when no script token matched.
	ScriptStart int `json:"scriptStart"`
	ScriptEnd   int `json:"scriptEnd"`

	Metrics SentenceMetrics `json:"metrics"`
	Status  Status          `json:"status"`
}

// HasScript reports whether any recognized token was attributed to the
// sentence.
func (s SentenceAlign) HasScript() bool { return s.ScriptStart >= 0 }

// ParagraphAlign is the per-paragraph rollup record.
type ParagraphAlign struct {
	ID        int `json:"id"`
	BookStart int `json:"bookStart"`
	BookEnd   int `json:"bookEnd"`

	Metrics SentenceMetrics `json:"metrics"`

	// Coverage is the fraction of the paragraph's book tokens that aligned
	// to a script token (matched or substituted).
	Coverage float64 `json:"coverage"`

	Status Status `json:"status"`

	// FlaggedSentenceIDs lists member sentences whose status is unreliable.
	FlaggedSentenceIDs []int `json:"flaggedSentenceIds"`
}

// Interval is one forced-alignment word interval: externally computed audio
// timing for a single spoken word. Intervals are ordered by start time and
// generally, but not strictly, cover the audio (silence gaps and skip markers
// appear between words).
type Interval struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// SentenceTiming is a refined sentence time span produced by the timing
// reconciler. It replaces the coarse timing implied by script token ranges.
type SentenceTiming struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}
