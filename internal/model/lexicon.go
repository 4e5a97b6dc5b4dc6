package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/veil-io/veil/internal/pii"
)

// lexiconData is the on-disk lexicon.json shape: every surface form seen in
// the training spans, tagged with its category.
type lexiconData struct {
	Entries []lexiconEntry `json:"entries"`
}

type lexiconEntry struct {
	Surface  string `json:"surface"`
	Category string `json:"category"`
}

// LexiconLabeler labels text by matching surface forms learned from training
// examples, longest surface first, on word boundaries. Read-only after
// construction and safe for concurrent use.
type LexiconLabeler struct {
	entries []lexiconEntry
}

// NewLexiconLabeler loads the lexicon from a validated artifact handle.
func NewLexiconLabeler(h Handle) (*LexiconLabeler, error) {
	path := filepath.Join(h.Dir, lexiconFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon %s: %w", path, err)
	}
	var lex lexiconData
	if err := json.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parsing lexicon %s: %w", path, err)
	}

	entries := make([]lexiconEntry, 0, len(lex.Entries))
	for _, e := range lex.Entries {
		if e.Surface == "" {
			continue
		}
		if _, ok := pii.ParseCategory(e.Category); !ok {
			continue
		}
		entries = append(entries, e)
	}
	// Longest surface first so "John Smith" wins over a "John" entry.
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].Surface) > len(entries[j].Surface)
	})

	return &LexiconLabeler{entries: entries}, nil
}

// Label returns a span for every word-bounded occurrence of a known surface
// form. Occurrences that overlap an already-claimed region are skipped.
func (l *LexiconLabeler) Label(text string) []pii.Span {
	claimed := make([]bool, len(text))
	var spans []pii.Span

	for _, e := range l.entries {
		category, _ := pii.ParseCategory(e.Category)
		from := 0
		for {
			idx := strings.Index(text[from:], e.Surface)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(e.Surface)
			from = start + 1

			if !wordBounded(text, start, end) || regionClaimed(claimed, start, end) {
				continue
			}
			for i := start; i < end; i++ {
				claimed[i] = true
			}
			spans = append(spans, pii.Span{Start: start, End: end, Category: category})
		}
	}

	pii.SortForLabeling(spans)
	return spans
}

func wordBounded(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func regionClaimed(claimed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if claimed[i] {
			return true
		}
	}
	return false
}

// LexiconTrainer builds a lexicon artifact from training examples. It is the
// built-in Trainer: it collects the exact surface form of every labeled span
// and writes the artifact under OutputDir/model-last.
type LexiconTrainer struct {
	// OutputDir is the artifact root; the trained model lands in its
	// model-last subdirectory.
	OutputDir string

	// MinSurfaceLen drops degenerate one-character surfaces. Zero means
	// the default of 2.
	MinSurfaceLen int
}

// Train implements Trainer.
func (t *LexiconTrainer) Train(ctx context.Context, examples []pii.TrainingExample) (Handle, error) {
	minLen := t.MinSurfaceLen
	if minLen <= 0 {
		minLen = 2
	}

	seen := make(map[lexiconEntry]bool)
	var lex lexiconData
	for _, ex := range examples {
		if err := ctx.Err(); err != nil {
			return Handle{}, err
		}
		for _, s := range ex.Spans {
			if !s.Valid(len(ex.Text)) {
				continue
			}
			surface := strings.TrimSpace(ex.Text[s.Start:s.End])
			if len(surface) < minLen {
				continue
			}
			entry := lexiconEntry{Surface: surface, Category: string(s.Category)}
			if seen[entry] {
				continue
			}
			seen[entry] = true
			lex.Entries = append(lex.Entries, entry)
		}
	}

	dir := filepath.Join(t.OutputDir, trainedSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Handle{}, fmt.Errorf("creating model directory: %w", err)
	}

	meta := Meta{
		Name:         "veil-lexicon",
		Version:      "1",
		Categories:   categoryNames(),
		TrainedAt:    time.Now().UTC(),
		ExampleCount: len(examples),
	}
	if err := writeJSON(filepath.Join(dir, metaFile), meta); err != nil {
		return Handle{}, err
	}
	if err := writeJSON(filepath.Join(dir, lexiconFile), lex); err != nil {
		return Handle{}, err
	}

	log.Info().
		Int("examples", len(examples)).
		Int("surfaces", len(lex.Entries)).
		Str("dir", dir).
		Msg("trained lexicon model")

	return Handle{Dir: dir, Meta: meta}, nil
}

func categoryNames() []string {
	names := make([]string, len(pii.Categories))
	for i, c := range pii.Categories {
		names[i] = string(c)
	}
	return names
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
