package report

import (
	"fmt"
	"io"
	"sort"
)

// ReportSuffix is the file name suffix the toolchain uses for chapter
// validation reports: <chapter>/<chapter>.validate.report.txt.
const ReportSuffix = ".validate.report.txt"

// timeLayout is the header timestamp format.
const timeLayout = "2006-01-02 15:04:05"

// sortByWER orders sentences and paragraphs by descending WER, ties by id,
// so re-rendering an unchanged result is byte-identical.
func sortByWER(r *Report) {
	sort.SliceStable(r.Sentences, func(i, j int) bool {
		if r.Sentences[i].WER != r.Sentences[j].WER {
			return r.Sentences[i].WER > r.Sentences[j].WER
		}
		return r.Sentences[i].ID < r.Sentences[j].ID
	})
	sort.SliceStable(r.Paragraphs, func(i, j int) bool {
		if r.Paragraphs[i].WER != r.Paragraphs[j].WER {
			return r.Paragraphs[i].WER > r.Paragraphs[j].WER
		}
		return r.Paragraphs[i].ID < r.Paragraphs[j].ID
	})
}

// Render writes the text form of r to w.
func Render(w io.Writer, r *Report) error {
	var err error
	p := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	p("Audio      : %s\n", r.AudioPath)
	p("Script     : %s\n", r.ScriptPath)
	p("Book Index : %s\n", r.BookIndex)
	p("Created    : %s\n", r.Created.Format(timeLayout))
	p("Sentences  : %d (Avg WER %.2f%%, Max WER %.2f%%, Flagged %d)\n",
		r.Stats.SentenceCount, r.Stats.AvgWER, r.Stats.MaxWER, r.Stats.FlaggedCount)
	p("Paragraphs : %d (Avg WER %.2f%%, Avg Coverage %.2f%%)\n",
		r.Stats.ParagraphCount, r.Stats.ParagraphAvgWER, r.Stats.AvgCoverage)
	p("\nAll sentences by WER:\n")

	for _, s := range r.Sentences {
		p("  #%d | WER %.1f%% | CER %.1f%% | Status %s\n", s.ID, s.WER, s.CER, s.Status)
		p("       Book range: %d-%d\n", s.BookStart, s.BookEnd)
		if s.ScriptStart >= 0 {
			p("       Script range: %d-%d\n", s.ScriptStart, s.ScriptEnd)
		} else {
			p("       Script range: none\n")
		}
		if s.StartTime != nil && s.EndTime != nil {
			p("       Timing: %.3fs → %.3fs (Δ %.3fs)\n", *s.StartTime, *s.EndTime, *s.EndTime-*s.StartTime)
		} else {
			p("       Timing: unresolved\n")
		}
		p("       Book   : %s\n", s.BookText)
		if s.ScriptText != "" {
			p("       Script : %s\n", s.ScriptText)
		}
		p("\n")
	}

	p("All paragraphs by WER:\n")
	for _, pr := range r.Paragraphs {
		p("  #%d | WER %.1f%% | Coverage %.1f%% | Status %s\n", pr.ID, pr.WER, pr.Coverage, pr.Status)
		p("       Book range: %d-%d\n", pr.BookStart, pr.BookEnd)
		p("       Book   : %s\n", pr.BookText)
		p("\n")
	}

	return err
}
