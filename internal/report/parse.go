package report

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/narralign/pkg/types"
)

var (
	sentenceHeaderRe  = regexp.MustCompile(`^#(\d+) \| WER ([\d.]+)% \| CER ([\d.]+)% \| Status (\w+)$`)
	paragraphHeaderRe = regexp.MustCompile(`^#(\d+) \| WER ([\d.]+)% \| Coverage ([\d.]+)% \| Status (\w+)$`)
	statsSentencesRe  = regexp.MustCompile(`^(\d+) \(Avg WER ([\d.]+)%, Max WER ([\d.]+)%, Flagged (\d+)\)$`)
	statsParagraphsRe = regexp.MustCompile(`^(\d+) \(Avg WER ([\d.]+)%, Avg Coverage ([\d.]+)%\)$`)
	timingRe          = regexp.MustCompile(`^([\d.]+)s \x{2192} ([\d.]+)s`)
	rangeRe           = regexp.MustCompile(`^(\d+)-(\d+)$`)
)

// Parse reads the text form of a report back into a Report. It accepts
// exactly the output of Render; unknown lines are ignored so older report
// variants still load in the viewer.
func Parse(r io.Reader, chapterName string) (*Report, error) {
	rep := &Report{ChapterName: chapterName}

	const (
		inHeader = iota
		inSentences
		inParagraphs
	)
	section := inHeader
	var curSent *SentenceReport
	var curPara *ParagraphReport

	flush := func() {
		if curSent != nil {
			rep.Sentences = append(rep.Sentences, *curSent)
			curSent = nil
		}
		if curPara != nil {
			rep.Paragraphs = append(rep.Paragraphs, *curPara)
			curPara = nil
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))

		switch line {
		case "All sentences by WER:":
			flush()
			section = inSentences
			continue
		case "All paragraphs by WER:":
			flush()
			section = inParagraphs
			continue
		case "":
			continue
		}

		if section == inHeader {
			parseHeaderLine(rep, line)
			continue
		}

		if section == inSentences {
			if m := sentenceHeaderRe.FindStringSubmatch(line); m != nil {
				flush()
				curSent = &SentenceReport{
					ID:          atoi(m[1]),
					WER:         atof(m[2]),
					CER:         atof(m[3]),
					Status:      types.Status(m[4]),
					ScriptStart: -1,
					ScriptEnd:   -1,
				}
				continue
			}
			if curSent != nil {
				parseSentenceDetail(curSent, line)
			}
			continue
		}

		if m := paragraphHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			curPara = &ParagraphReport{
				ID:       atoi(m[1]),
				WER:      atof(m[2]),
				Coverage: atof(m[3]),
				Status:   types.Status(m[4]),
			}
			continue
		}
		if curPara != nil {
			parseParagraphDetail(curPara, line)
		}
	}
	flush()

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("report: scan: %w", err)
	}
	return rep, nil
}

func parseHeaderLine(rep *Report, line string) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	switch key {
	case "Audio":
		rep.AudioPath = value
	case "Script":
		rep.ScriptPath = value
	case "Book Index":
		rep.BookIndex = value
	case "Created":
		// Created lines contain further colons; re-cut with the full value.
		full := strings.TrimSpace(strings.TrimPrefix(line, "Created    :"))
		if t, err := time.Parse(timeLayout, full); err == nil {
			rep.Created = t
		}
	case "Sentences":
		if m := statsSentencesRe.FindStringSubmatch(value); m != nil {
			rep.Stats.SentenceCount = atoi(m[1])
			rep.Stats.AvgWER = atof(m[2])
			rep.Stats.MaxWER = atof(m[3])
			rep.Stats.FlaggedCount = atoi(m[4])
		}
	case "Paragraphs":
		if m := statsParagraphsRe.FindStringSubmatch(value); m != nil {
			rep.Stats.ParagraphCount = atoi(m[1])
			rep.Stats.ParagraphAvgWER = atof(m[2])
			rep.Stats.AvgCoverage = atof(m[3])
		}
	}
}

func parseSentenceDetail(s *SentenceReport, line string) {
	switch {
	case strings.HasPrefix(line, "Book range:"):
		if m := rangeRe.FindStringSubmatch(strings.TrimSpace(line[len("Book range:"):])); m != nil {
			s.BookStart, s.BookEnd = atoi(m[1]), atoi(m[2])
		}
	case strings.HasPrefix(line, "Script range:"):
		if m := rangeRe.FindStringSubmatch(strings.TrimSpace(line[len("Script range:"):])); m != nil {
			s.ScriptStart, s.ScriptEnd = atoi(m[1]), atoi(m[2])
		}
	case strings.HasPrefix(line, "Timing:"):
		if m := timingRe.FindStringSubmatch(strings.TrimSpace(line[len("Timing:"):])); m != nil {
			start, end := atof(m[1]), atof(m[2])
			s.StartTime, s.EndTime = &start, &end
		}
	case strings.HasPrefix(line, "Book   :"):
		s.BookText = strings.TrimSpace(line[len("Book   :"):])
	case strings.HasPrefix(line, "Script :"):
		s.ScriptText = strings.TrimSpace(line[len("Script :"):])
	}
}

func parseParagraphDetail(p *ParagraphReport, line string) {
	switch {
	case strings.HasPrefix(line, "Book range:"):
		if m := rangeRe.FindStringSubmatch(strings.TrimSpace(line[len("Book range:"):])); m != nil {
			p.BookStart, p.BookEnd = atoi(m[1]), atoi(m[2])
		}
	case strings.HasPrefix(line, "Book   :"):
		p.BookText = strings.TrimSpace(line[len("Book   :"):])
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
