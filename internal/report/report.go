// Package report renders chapter alignment results as validation reports
// and serves them through a small HTTP viewer.
//
// The text format is the one the rest of the audiobook toolchain consumes:
// a metadata header, then all sentences and paragraphs ordered by descending
// WER with their ranges, timing, and texts. Parse is the exact inverse of
// Render so the viewer can serve reports produced by earlier runs.
package report

import (
	"strings"
	"time"

	"github.com/MrWong99/narralign/internal/chapter"
	"github.com/MrWong99/narralign/pkg/types"
)

// Meta carries the artifact paths recorded in a report header.
type Meta struct {
	AudioPath     string
	ScriptPath    string
	BookIndexPath string
}

// Report is the renderable/parseable form of a chapter validation report.
type Report struct {
	ChapterName string    `json:"chapterName"`
	AudioPath   string    `json:"audioPath"`
	ScriptPath  string    `json:"scriptPath"`
	BookIndex   string    `json:"bookIndex"`
	Created     time.Time `json:"created"`

	Stats      StatsLine         `json:"stats"`
	Sentences  []SentenceReport  `json:"sentences"`
	Paragraphs []ParagraphReport `json:"paragraphs"`
}

// StatsLine is the header summary block.
type StatsLine struct {
	SentenceCount   int     `json:"sentenceCount"`
	AvgWER          float64 `json:"avgWer"`
	MaxWER          float64 `json:"maxWer"`
	FlaggedCount    int     `json:"flaggedCount"`
	ParagraphCount  int     `json:"paragraphCount"`
	ParagraphAvgWER float64 `json:"paragraphAvgWer"`
	AvgCoverage     float64 `json:"avgCoverage"`
}

// SentenceReport is one sentence entry. WER/CER are percentages.
type SentenceReport struct {
	ID     int          `json:"id"`
	WER    float64      `json:"wer"`
	CER    float64      `json:"cer"`
	Status types.Status `json:"status"`

	BookStart   int `json:"bookStart"`
	BookEnd     int `json:"bookEnd"`
	ScriptStart int `json:"scriptStart"`
	ScriptEnd   int `json:"scriptEnd"`

	// StartTime/EndTime are the refined audio bounds in seconds; nil when
	// the sentence's timing stayed unresolved.
	StartTime *float64 `json:"startTime"`
	EndTime   *float64 `json:"endTime"`

	BookText   string `json:"bookText"`
	ScriptText string `json:"scriptText"`
}

// ParagraphReport is one paragraph entry. WER/Coverage are percentages.
type ParagraphReport struct {
	ID       int          `json:"id"`
	WER      float64      `json:"wer"`
	Coverage float64      `json:"coverage"`
	Status   types.Status `json:"status"`

	BookStart int    `json:"bookStart"`
	BookEnd   int    `json:"bookEnd"`
	BookText  string `json:"bookText"`
}

// Build assembles a Report from a chapter result and its source tokens.
func Build(res *chapter.Result, book []types.BookToken, script []types.ScriptToken, meta Meta, created time.Time) *Report {
	r := &Report{
		ChapterName: res.Name,
		AudioPath:   meta.AudioPath,
		ScriptPath:  meta.ScriptPath,
		BookIndex:   meta.BookIndexPath,
		Created:     created,
		Stats: StatsLine{
			SentenceCount:   res.Stats.SentenceCount,
			AvgWER:          res.Stats.AvgWER * 100,
			MaxWER:          res.Stats.MaxWER * 100,
			FlaggedCount:    res.Stats.FlaggedCount,
			ParagraphCount:  res.Stats.ParagraphCount,
			ParagraphAvgWER: res.Stats.ParagraphAvgWER * 100,
			AvgCoverage:     res.Stats.AvgCoverage * 100,
		},
	}

	for _, s := range res.Sentences {
		sr := SentenceReport{
			ID:          s.ID,
			WER:         s.Metrics.WER * 100,
			CER:         s.Metrics.CER * 100,
			Status:      s.Status,
			BookStart:   s.BookStart,
			BookEnd:     s.BookEnd,
			ScriptStart: s.ScriptStart,
			ScriptEnd:   s.ScriptEnd,
			BookText:    joinBook(book, s.BookStart, s.BookEnd),
			ScriptText:  joinScript(script, s.ScriptStart, s.ScriptEnd),
		}
		if t, ok := res.Timings[s.ID]; ok {
			start, end := t.Start, t.End
			sr.StartTime, sr.EndTime = &start, &end
		}
		r.Sentences = append(r.Sentences, sr)
	}

	for _, p := range res.Paragraphs {
		r.Paragraphs = append(r.Paragraphs, ParagraphReport{
			ID:        p.ID,
			WER:       p.Metrics.WER * 100,
			Coverage:  p.Coverage * 100,
			Status:    p.Status,
			BookStart: p.BookStart,
			BookEnd:   p.BookEnd,
			BookText:  joinBook(book, p.BookStart, p.BookEnd),
		})
	}

	sortByWER(r)
	return r
}

func joinBook(book []types.BookToken, start, end int) string {
	var parts []string
	for i := start; i <= end && i < len(book); i++ {
		if i >= 0 {
			parts = append(parts, book[i].Text)
		}
	}
	return strings.Join(parts, " ")
}

func joinScript(script []types.ScriptToken, start, end int) string {
	if start < 0 {
		return ""
	}
	var parts []string
	for i := start; i <= end && i < len(script); i++ {
		parts = append(parts, script[i].Word)
	}
	return strings.Join(parts, " ")
}
