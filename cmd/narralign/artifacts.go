package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/MrWong99/narralign/internal/chapter"
	"github.com/MrWong99/narralign/pkg/types"
)

// bookIndex is the JSON shape of the manuscript index artifact produced by
// the tokenizer stage.
type bookIndex struct {
	Tokens     []types.BookToken      `json:"tokens"`
	Sentences  []types.SentenceRange  `json:"sentences"`
	Paragraphs []types.ParagraphRange `json:"paragraphs"`
}

// transcript is the JSON shape of the recognized-speech artifact.
type transcript struct {
	Tokens []types.ScriptToken `json:"tokens"`
}

// alignment is the JSON shape of the forced-alignment artifact; fragments
// carry one interval per spoken word.
type alignment struct {
	Fragments []types.Interval `json:"fragments"`
}

// loadInput decodes the three JSON artifacts into a chapter input.
// intervalsPath may be empty: sentence timing then stays coarse.
func loadInput(name, bookPath, scriptPath, intervalsPath string) (*chapter.Input, error) {
	var book bookIndex
	if err := decodeFile(bookPath, &book); err != nil {
		return nil, fmt.Errorf("book index: %w", err)
	}
	var script transcript
	if err := decodeFile(scriptPath, &script); err != nil {
		return nil, fmt.Errorf("transcript: %w", err)
	}

	in := &chapter.Input{
		Name:       name,
		Book:       book.Tokens,
		Script:     script.Tokens,
		Sentences:  book.Sentences,
		Paragraphs: book.Paragraphs,
	}

	if intervalsPath != "" {
		var al alignment
		if err := decodeFile(intervalsPath, &al); err != nil {
			return nil, fmt.Errorf("intervals: %w", err)
		}
		in.Intervals = al.Fragments
	}
	return in, nil
}

func decodeFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %q: %w", path, err)
	}
	return nil
}
