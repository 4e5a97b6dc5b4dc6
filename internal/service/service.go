// Package service composes the redaction pipeline: detect candidate spans,
// resolve them to a non-overlapping set, and apply the placeholders.
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/veil-io/veil/internal/detect"
	veilotel "github.com/veil-io/veil/internal/otel"
	"github.com/veil-io/veil/internal/pii"
)

var tracer = veilotel.Tracer("github.com/veil-io/veil/internal/service")

// Service redacts PII from text using a fixed detector instance. The
// detector is shared and read-only, so one Service handles concurrent
// callers.
type Service struct {
	detector *detect.Detector
}

// New creates a redaction service around the given detector.
func New(d *detect.Detector) *Service {
	return &Service{detector: d}
}

// Mode exposes the underlying detector mode for health reporting.
func (s *Service) Mode() detect.Mode { return s.detector.Mode() }

// Redact masks every detected PII span in text with its category
// placeholder. Text with no detected spans is returned unchanged.
func (s *Service) Redact(ctx context.Context, text string) (string, error) {
	ctx, span := tracer.Start(ctx, "service.redact")
	defer span.End()

	candidates, err := s.detector.Detect(ctx, text)
	if err != nil {
		return "", fmt.Errorf("detecting entities: %w", err)
	}

	resolved := pii.ResolveOverlaps(candidates)
	redacted := pii.Redact(text, resolved)

	span.SetAttributes(
		attribute.Int("pii.candidate_count", len(candidates)),
		attribute.Int("pii.redacted_count", len(resolved)),
	)
	log.Debug().
		Int("candidates", len(candidates)).
		Int("redacted", len(resolved)).
		Func(veilotel.LogTraceFields(ctx)).
		Msg("redacted text")

	return redacted, nil
}

// RedactBatch redacts each text in input order. The first failure aborts the
// whole batch and no partial results are returned; callers wanting partial
// success must retry per item.
func (s *Service) RedactBatch(ctx context.Context, texts []string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "service.redact_batch")
	defer span.End()
	span.SetAttributes(attribute.Int("pii.batch_size", len(texts)))

	out := make([]string, 0, len(texts))
	for i, text := range texts {
		redacted, err := s.Redact(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("redacting batch item %d: %w", i, err)
		}
		out = append(out, redacted)
	}
	return out, nil
}
