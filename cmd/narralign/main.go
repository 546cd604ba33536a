// Command narralign aligns an audiobook chapter's recognized-speech
// transcript against its manuscript and writes a validation report, or
// serves previously written reports through the viewer API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/MrWong99/narralign/internal/chapter"
	"github.com/MrWong99/narralign/internal/config"
	"github.com/MrWong99/narralign/internal/observe"
	"github.com/MrWong99/narralign/internal/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "narralign.yaml", "path to the YAML configuration file")
	bookPath := flag.String("book", "", "path to the book index JSON (tokens, sentences, paragraphs)")
	scriptPath := flag.String("script", "", "path to the recognized transcript JSON")
	intervalsPath := flag.String("intervals", "", "path to the forced-alignment intervals JSON (optional)")
	chapterName := flag.String("chapter", "", "chapter name used in the report (default: book file stem)")
	outPath := flag.String("out", "", "report output path (default: <chapter>"+report.ReportSuffix+")")
	serve := flag.Bool("serve", false, "serve validation reports instead of aligning")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// All tunables have defaults; a missing config file is fine.
			def := config.Default()
			cfg = &def
		} else {
			fmt.Fprintf(os.Stderr, "narralign: %v\n", err)
			return 1
		}
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "narralign"})
	if err != nil {
		slog.Error("failed to initialise metrics provider", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown", "err", err)
		}
	}()

	if *serve {
		return runServe(ctx, cfg)
	}
	return runAlign(ctx, cfg, *bookPath, *scriptPath, *intervalsPath, *chapterName, *outPath)
}

func runAlign(ctx context.Context, cfg *config.Config, bookPath, scriptPath, intervalsPath, chapterName, outPath string) int {
	if bookPath == "" || scriptPath == "" {
		fmt.Fprintln(os.Stderr, "narralign: -book and -script are required (or use -serve)")
		return 2
	}
	if chapterName == "" {
		chapterName = stem(bookPath)
	}
	if outPath == "" {
		outPath = chapterName + report.ReportSuffix
	}

	in, err := loadInput(chapterName, bookPath, scriptPath, intervalsPath)
	if err != nil {
		slog.Error("failed to load input artifacts", "err", err)
		return 1
	}

	metrics, err := observe.DefaultMetrics()
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	engine := chapter.NewEngine(*cfg, chapter.WithMetrics(metrics), chapter.WithLogger(slog.Default()))
	res, err := engine.AlignChapter(ctx, *in)
	if err != nil {
		slog.Error("alignment failed", "chapter", chapterName, "err", err)
		return 1
	}

	rep := report.Build(res, in.Book, in.Script, report.Meta{
		AudioPath:     intervalsPath,
		ScriptPath:    scriptPath,
		BookIndexPath: bookPath,
	}, time.Now())

	f, err := os.Create(outPath)
	if err != nil {
		slog.Error("failed to create report file", "path", outPath, "err", err)
		return 1
	}
	defer f.Close()
	if err := report.Render(f, rep); err != nil {
		slog.Error("failed to write report", "path", outPath, "err", err)
		return 1
	}

	slog.Info("report written",
		"chapter", chapterName,
		"path", outPath,
		"sentences", res.Stats.SentenceCount,
		"flagged", res.Stats.FlaggedCount,
	)
	return 0
}

func runServe(ctx context.Context, cfg *config.Config) int {
	if cfg.Report.BaseDir == "" {
		fmt.Fprintln(os.Stderr, "narralign: report.base_dir must be configured for -serve")
		return 2
	}

	srv := &http.Server{
		Addr:    cfg.Report.ListenAddr,
		Handler: report.NewServer(cfg.Report.BaseDir, slog.Default()),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	slog.Info("report viewer listening", "addr", cfg.Report.ListenAddr, "base_dir", cfg.Report.BaseDir)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown", "err", err)
		}
		return 0
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			return 1
		}
		return 0
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
