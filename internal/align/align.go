// Package align recovers the original-text offsets of PII from a pair of
// (original text, placeholder-redacted text). It is the label bootstrapper:
// given human-redacted examples, it reconstructs the exact spans that were
// replaced by "[CATEGORY]" tokens, without needing the entity text itself.
package align

import (
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/veil-io/veil/internal/pii"
)

// MatchingBlock is a maximal run of identical characters shared between the
// redacted and original texts, starting at PosRedacted in the redacted text
// and PosOriginal in the original. The block sequence is monotonic in both
// coordinate spaces and ends with a zero-length sentinel at the end of both
// strings.
type MatchingBlock struct {
	PosRedacted int
	PosOriginal int
	Length      int
}

// placeholderOccurrence is a literal "[CATEGORY]" token found in redacted text.
type placeholderOccurrence struct {
	start    int
	end      int
	category pii.Category
}

// placeholderRe matches the redaction placeholder tokens for the fixed
// category set, e.g. "[EMAIL]" or "[PHONE_NUMBER]".
var placeholderRe = func() *regexp.Regexp {
	names := make([]string, len(pii.Categories))
	for i, c := range pii.Categories {
		names[i] = regexp.QuoteMeta(string(c))
	}
	return regexp.MustCompile(`\[(` + strings.Join(names, "|") + `)\]`)
}()

// findPlaceholders returns every placeholder token in redacted, ordered by
// ascending start offset.
func findPlaceholders(redacted string) []placeholderOccurrence {
	var out []placeholderOccurrence
	for _, m := range placeholderRe.FindAllStringSubmatchIndex(redacted, -1) {
		category, ok := pii.ParseCategory(redacted[m[2]:m[3]])
		if !ok {
			continue
		}
		out = append(out, placeholderOccurrence{start: m[0], end: m[1], category: category})
	}
	return out
}

// MatchingBlocks aligns redacted against original with a character-level
// diff and returns the shared runs as matching blocks. Adjacent blocks that
// are contiguous in both texts are merged so every block is maximal. The
// final element is always the zero-length sentinel block.
func MatchingBlocks(redacted, original string) []MatchingBlock {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(redacted, original, false)

	var blocks []MatchingBlock
	posRedacted, posOriginal := 0, 0
	for _, d := range diffs {
		n := len(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if last := len(blocks) - 1; last >= 0 &&
				blocks[last].PosRedacted+blocks[last].Length == posRedacted &&
				blocks[last].PosOriginal+blocks[last].Length == posOriginal {
				blocks[last].Length += n
			} else {
				blocks = append(blocks, MatchingBlock{PosRedacted: posRedacted, PosOriginal: posOriginal, Length: n})
			}
			posRedacted += n
			posOriginal += n
		case diffmatchpatch.DiffDelete:
			posRedacted += n
		case diffmatchpatch.DiffInsert:
			posOriginal += n
		}
	}

	blocks = append(blocks, MatchingBlock{PosRedacted: len(redacted), PosOriginal: len(original), Length: 0})
	return blocks
}

// RecoverSpans reconstructs the original-text spans that the placeholders in
// redacted replaced. For each placeholder it locates the nearest matching
// block on each side and derives the span from offset geometry alone:
//
//	offsetBefore = pStart - (before.PosRedacted + before.Length)
//	origStart    = before.PosOriginal + before.Length + offsetBefore
//	entityLength = (after.PosOriginal - (before.PosOriginal + before.Length)) - offsetBefore
//
// A placeholder with no anchoring block on either side, or whose computed
// offsets fall outside the original text, is dropped silently; that is a
// recall loss, not an error. Two valid maximal-block decompositions of the
// same pair can disagree when the surrounding context is short or repetitive,
// so recovered offsets are only exact when the context around a placeholder
// is unique. Spans are returned in placeholder order.
func RecoverSpans(original, redacted string) []pii.Span {
	placeholders := findPlaceholders(redacted)
	if len(placeholders) == 0 {
		return nil
	}

	blocks := MatchingBlocks(redacted, original)

	var spans []pii.Span
	for _, p := range placeholders {
		var before, after *MatchingBlock
		for i := range blocks {
			b := &blocks[i]
			if b.PosRedacted <= p.start {
				before = b
			}
			if b.PosRedacted >= p.end && after == nil {
				after = b
				break
			}
		}
		if before == nil || after == nil {
			continue
		}

		offsetBefore := p.start - (before.PosRedacted + before.Length)
		origStart := before.PosOriginal + before.Length + offsetBefore
		entityLength := (after.PosOriginal - (before.PosOriginal + before.Length)) - offsetBefore
		origEnd := origStart + entityLength

		span := pii.Span{Start: origStart, End: origEnd, Category: p.category}
		if !span.Valid(len(original)) {
			continue
		}
		spans = append(spans, span)
	}

	return spans
}
