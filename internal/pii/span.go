package pii

import "sort"

// Span is a half-open character range [Start, End) in a text, tagged with a
// category. Spans are value types; once produced by a detector or the aligner
// they are never mutated.
type Span struct {
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Category Category `json:"category"`
}

// Valid reports whether the span satisfies 0 <= Start < End <= textLen.
func (s Span) Valid(textLen int) bool {
	return s.Start >= 0 && s.Start < s.End && s.End <= textLen
}

// Overlaps reports whether the two half-open ranges intersect.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// TrainingExample is a text with its labeled PII spans in reading order.
// Built once from a (text, redacted_text) corpus record and consumed by the
// trainer; not mutated afterward.
type TrainingExample struct {
	Text  string `json:"text"`
	Spans []Span `json:"spans"`
}

// SortForLabeling sorts spans in place, stable ascending by start, the order
// the training-example builder presents spans in.
func SortForLabeling(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})
}

// SortForRedaction sorts spans in place, stable descending by start with ties
// broken by descending end, so replacements never corrupt the offsets of
// spans not yet applied.
func SortForRedaction(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start > spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
}

// ResolveOverlaps reduces a candidate span set to a non-overlapping one using
// greedy selection: candidates are considered in category priority order,
// then by ascending start, then longer span first, and any candidate that
// overlaps an already-accepted span is rejected whole. The detectors define
// no conflict policy between categories, so this is the single place that
// guarantees well-formed redaction input. The result is sorted ascending by
// start.
func ResolveOverlaps(spans []Span) []Span {
	if len(spans) <= 1 {
		out := make([]Span, len(spans))
		copy(out, spans)
		return out
	}

	candidates := make([]Span, len(spans))
	copy(candidates, spans)
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := candidates[i].Category.Priority(), candidates[j].Category.Priority()
		if pi != pj {
			return pi < pj
		}
		if candidates[i].Start != candidates[j].Start {
			return candidates[i].Start < candidates[j].Start
		}
		return candidates[i].End > candidates[j].End
	})

	accepted := make([]Span, 0, len(candidates))
	for _, c := range candidates {
		conflict := false
		for _, a := range accepted {
			if c.Overlaps(a) {
				conflict = true
				break
			}
		}
		if !conflict {
			accepted = append(accepted, c)
		}
	}

	SortForLabeling(accepted)
	return accepted
}
