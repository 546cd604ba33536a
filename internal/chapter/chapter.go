// Package chapter orchestrates the per-chapter alignment pipeline: anchor
// discovery, window tiling, window alignment, rollup, and timing
// reconciliation.
//
// Each chapter run is a pure function of its inputs; the engine holds only
// configuration and shared read-only lookups, so independent chapters may be
// aligned concurrently without coordination. Cancellation is checked between
// windows, never inside one: an interrupted window would leave an
// incomplete, unusable op stream.
package chapter

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/narralign/internal/anchor"
	"github.com/MrWong99/narralign/internal/config"
	"github.com/MrWong99/narralign/internal/observe"
	"github.com/MrWong99/narralign/internal/rollup"
	"github.com/MrWong99/narralign/internal/textnorm"
	"github.com/MrWong99/narralign/internal/timing"
	"github.com/MrWong99/narralign/internal/window"
	"github.com/MrWong99/narralign/internal/wordalign"
	"github.com/MrWong99/narralign/pkg/types"
)

// Input is everything needed to align one chapter. All slices are read-only
// to the engine.
type Input struct {
	// Name identifies the chapter in logs, metrics, and reports.
	Name string

	Book       []types.BookToken
	Script     []types.ScriptToken
	Sentences  []types.SentenceRange
	Paragraphs []types.ParagraphRange

	// Intervals is the forced-alignment word timing for the chapter's audio.
	// May be empty; sentence timing then stays coarse.
	Intervals []types.Interval

	// Scope optionally restricts anchor discovery to a manuscript sub-range,
	// as produced by an external section locator.
	Scope *anchor.Scope

	// Phonemes optionally supplies phoneme transcriptions for homophone
	// detection. Nil degrades quality, never correctness.
	Phonemes textnorm.PhonemeLookup
}

// Result is the alignment index for one chapter.
type Result struct {
	Name       string
	Anchors    []types.Anchor
	Ops        []types.WordOp
	Sentences  []types.SentenceAlign
	Paragraphs []types.ParagraphAlign

	// Timings holds the refined sentence time spans keyed by sentence id.
	// Sentences absent from the map keep their coarse script-range timing.
	Timings map[int]types.SentenceTiming

	Stats Stats
}

// Stats summarises a chapter's alignment quality for report headers.
type Stats struct {
	SentenceCount   int
	FlaggedCount    int
	AvgWER          float64
	MaxWER          float64
	ParagraphCount  int
	ParagraphAvgWER float64
	AvgCoverage     float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches observability instruments. Nil (the default) disables
// metric recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithStopwords overrides the built-in stop-word set used by anchor
// discovery.
func WithStopwords(s textnorm.Stopwords) Option {
	return func(e *Engine) { e.stop = s }
}

// WithSpellingTable overrides the built-in confusable-spelling table.
func WithSpellingTable(t textnorm.SpellingTable) Option {
	return func(e *Engine) { e.spell = t }
}

// Engine runs the alignment pipeline. Safe for concurrent use: all state is
// read-only after construction.
type Engine struct {
	cfg     config.Config
	stop    textnorm.Stopwords
	spell   textnorm.SpellingTable
	metrics *observe.Metrics
	log     *slog.Logger
}

// NewEngine builds an Engine from cfg and options.
func NewEngine(cfg config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:   cfg,
		stop:  textnorm.DefaultStopwords(),
		spell: textnorm.DefaultSpellingTable(),
		log:   slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// AlignChapter aligns one chapter end to end. Malformed sentence/paragraph
// ranges fail fast; sparse anchors and partial timing coverage degrade into
// the output's quality signals instead.
func (e *Engine) AlignChapter(ctx context.Context, in Input) (*Result, error) {
	if len(in.Book) == 0 {
		return nil, fmt.Errorf("chapter %q: no book tokens", in.Name)
	}
	started := time.Now()
	if e.metrics != nil {
		e.metrics.ActiveChapters.Add(ctx, 1)
		defer e.metrics.ActiveChapters.Add(ctx, -1)
	}

	bookWords := make([]string, len(in.Book))
	for i, t := range in.Book {
		bookWords[i] = t.Text
	}
	scriptWords := make([]string, len(in.Script))
	for i, t := range in.Script {
		scriptWords[i] = t.Word
	}

	anchorCfg := anchor.Config{
		NGram:           e.cfg.Anchor.NGram,
		MinNGram:        e.cfg.Anchor.MinNGram,
		TargetPerTokens: e.cfg.Anchor.TargetPerTokens,
		MinSeparation:   e.cfg.Anchor.MinSeparation,
		MinContentWords: e.cfg.Anchor.MinContentWords,
	}
	anchors := anchor.Discover(bookWords, scriptWords, e.stop, anchorCfg, in.Scope)
	if e.metrics != nil {
		e.metrics.AnchorsSelected.Add(ctx, int64(len(anchors)))
	}
	if len(anchors) == 0 {
		e.log.Warn("no anchors found; aligning chapter as a single window", "chapter", in.Name)
	}

	bounds := window.Bounds{
		BookStart:   0,
		BookEnd:     len(in.Book) - 1,
		ScriptStart: 0,
		ScriptEnd:   len(in.Script) - 1,
	}
	if in.Scope != nil {
		bounds.BookStart = max(in.Scope.BookStart, 0)
		bounds.BookEnd = min(in.Scope.BookEnd, len(in.Book)-1)
	}
	windows := window.Build(anchors, bounds)

	alignOpts := wordalign.Options{
		Phonemes:          in.Phonemes,
		Spellings:         e.spell,
		MetaphoneFallback: e.cfg.Aligner.MetaphoneFallback,
		PhoneticThreshold: e.cfg.Aligner.PhoneticThreshold,
		MaxDPCells:        e.cfg.Aligner.MaxDPCells,
		TimeTolerance:     e.cfg.Aligner.TimeTolerance,
	}

	var ops []types.WordOp
	for _, w := range windows {
		// Cancellation is only honoured between windows.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("chapter %q: %w", in.Name, err)
		}
		if e.metrics != nil {
			// Clamp exactly as the aligner does when slicing tokens, so the
			// fallback counter matches the path actually taken (the closing
			// window's end coordinates are one past the streams).
			bookTokens := min(w.BookEnd, len(in.Book)-1) - w.BookStart + 1
			scriptTokens := min(w.ScriptEnd, len(in.Script)-1) - w.ScriptStart + 1
			e.metrics.WindowTokens.Record(ctx, int64(max(bookTokens, 0)))
			if (max(bookTokens, 0)+1)*(max(scriptTokens, 0)+1) > alignOpts.MaxDPCells {
				e.metrics.GreedyFallbacks.Add(ctx, 1)
			}
		}
		ops = append(ops, wordalign.Align(in.Book, in.Script, w, alignOpts)...)
	}

	anchorPos := make(map[int]struct{}, len(anchors))
	for _, a := range anchors {
		for i := 0; i < a.Length; i++ {
			anchorPos[a.BookPos+i] = struct{}{}
		}
	}
	wordalign.MarkAnchors(ops, anchorPos)

	sents, paras, err := rollup.Roll(ops, in.Book, in.Script, in.Sentences, in.Paragraphs, rollup.Thresholds{
		MaxCER:      e.cfg.Rollup.MaxCER,
		MinCoverage: e.cfg.Rollup.MinCoverage,
	})
	if err != nil {
		return nil, fmt.Errorf("chapter %q: %w", in.Name, err)
	}

	timings := timing.Reconcile(sents, in.Book, in.Script, in.Intervals, timing.Config{
		TimeTolerance:  e.cfg.Timing.TimeTolerance,
		WidenTolerance: e.cfg.Timing.WidenTolerance,
		Placeholders:   e.cfg.Timing.Placeholders,
	}, e.log)

	res := &Result{
		Name:       in.Name,
		Anchors:    anchors,
		Ops:        ops,
		Sentences:  sents,
		Paragraphs: paras,
		Timings:    timings,
		Stats:      computeStats(sents, paras),
	}

	if e.metrics != nil {
		e.metrics.AlignDuration.Record(ctx, time.Since(started).Seconds())
		e.metrics.SentencesFlagged.Add(ctx, int64(res.Stats.FlaggedCount))
		e.metrics.TimingUnresolved.Add(ctx, int64(len(sents)-len(timings)))
	}
	e.log.Info("chapter aligned",
		"chapter", in.Name,
		"anchors", len(anchors),
		"windows", len(windows),
		"sentences", len(sents),
		"flagged", res.Stats.FlaggedCount,
		"timed", len(timings),
		"took", time.Since(started),
	)
	return res, nil
}

// AlignBook aligns many chapters under a bounded concurrency limit.
// Results are returned in input order. The first chapter error cancels the
// remaining work.
func (e *Engine) AlignBook(ctx context.Context, chapters []Input) ([]*Result, error) {
	limit := e.cfg.Pipeline.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	results := make([]*Result, len(chapters))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, in := range chapters {
		i, in := i, in
		g.Go(func() error {
			res, err := e.AlignChapter(gctx, in)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func computeStats(sents []types.SentenceAlign, paras []types.ParagraphAlign) Stats {
	st := Stats{SentenceCount: len(sents), ParagraphCount: len(paras)}
	for _, s := range sents {
		st.AvgWER += s.Metrics.WER
		if s.Metrics.WER > st.MaxWER {
			st.MaxWER = s.Metrics.WER
		}
		if s.Status == types.StatusUnreliable {
			st.FlaggedCount++
		}
	}
	if len(sents) > 0 {
		st.AvgWER /= float64(len(sents))
	}
	for _, p := range paras {
		st.ParagraphAvgWER += p.Metrics.WER
		st.AvgCoverage += p.Coverage
	}
	if len(paras) > 0 {
		st.ParagraphAvgWER /= float64(len(paras))
		st.AvgCoverage /= float64(len(paras))
	}
	return st
}
