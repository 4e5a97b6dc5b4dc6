package pii

// Redact replaces each span of text with its category placeholder, e.g.
// "[EMAIL]". Every character outside the spans appears unchanged, in its
// original relative order, in the output. Spans must be non-overlapping
// (see ResolveOverlaps); overlapping spans produce undefined output because
// an earlier-starting replacement can consume characters already replaced.
// Input order does not matter: spans are applied descending by start.
func Redact(text string, spans []Span) string {
	if len(spans) == 0 {
		return text
	}

	ordered := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Valid(len(text)) {
			ordered = append(ordered, s)
		}
	}
	SortForRedaction(ordered)

	result := text
	for _, s := range ordered {
		result = result[:s.Start] + s.Category.Placeholder() + result[s.End:]
	}
	return result
}
