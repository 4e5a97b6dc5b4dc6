package dataset

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/veil-io/veil/internal/align"
	"github.com/veil-io/veil/internal/detect"
	veilotel "github.com/veil-io/veil/internal/otel"
	"github.com/veil-io/veil/internal/pii"
)

var tracer = veilotel.Tracer("github.com/veil-io/veil/internal/dataset")

// Builder turns corpus records into labeled training examples. When
// alignment recovers nothing for a record, the structured EMAIL and
// PHONE_NUMBER rules run over the original text as a labeling fallback, so
// records whose redaction the aligner cannot anchor still contribute the
// unambiguous entity types.
type Builder struct {
	fallbackRules []detect.Rule
}

// NewBuilder creates a Builder with the EMAIL and PHONE_NUMBER rules from
// the embedded default rule set as its alignment fallback.
func NewBuilder() (*Builder, error) {
	rules, err := detect.DefaultRules()
	if err != nil {
		return nil, fmt.Errorf("loading fallback rules: %w", err)
	}
	var fallback []detect.Rule
	for _, r := range rules {
		if r.Category == pii.CategoryEmail || r.Category == pii.CategoryPhoneNumber {
			fallback = append(fallback, r)
		}
	}
	return &Builder{fallbackRules: fallback}, nil
}

// Build converts records into training examples. Every record yields an
// example, possibly with zero spans; span order is reading order.
func (b *Builder) Build(ctx context.Context, records []Record) []pii.TrainingExample {
	_, span := tracer.Start(ctx, "dataset.build")
	defer span.End()

	examples := make([]pii.TrainingExample, 0, len(records))
	labeled := 0
	for _, r := range records {
		ex := b.buildOne(r)
		if len(ex.Spans) > 0 {
			labeled++
		}
		examples = append(examples, ex)
	}

	span.SetAttributes(
		attribute.Int("dataset.records", len(records)),
		attribute.Int("dataset.labeled", labeled),
	)
	log.Info().Int("records", len(records)).Int("labeled", labeled).Msg("built training examples")
	return examples
}

func (b *Builder) buildOne(r Record) pii.TrainingExample {
	spans := align.RecoverSpans(r.Text, r.RedactedText)
	if len(spans) == 0 {
		spans = b.fallbackSpans(r.Text)
	}
	pii.SortForLabeling(spans)
	return pii.TrainingExample{Text: r.Text, Spans: spans}
}

func (b *Builder) fallbackSpans(text string) []pii.Span {
	var spans []pii.Span
	for _, r := range b.fallbackRules {
		for _, m := range r.Matches(text) {
			spans = append(spans, pii.Span{Start: m[0], End: m[1], Category: r.Category})
		}
	}
	return spans
}
