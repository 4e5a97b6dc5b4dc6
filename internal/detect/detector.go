// Package detect produces candidate PII spans for a text. Two detector
// variants exist: rule-based (the ordered pattern table) and model-based
// (a trained labeler). The mode is decided once at construction and never
// changes for the detector's lifetime.
package detect

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/veil-io/veil/internal/model"
	veilotel "github.com/veil-io/veil/internal/otel"
	"github.com/veil-io/veil/internal/pii"
)

var tracer = veilotel.Tracer("github.com/veil-io/veil/internal/detect")

// ErrInvalidInput is returned when the input is not text (not valid UTF-8).
var ErrInvalidInput = errors.New("invalid input: not valid UTF-8 text")

// Mode is the detector's fixed operating mode.
type Mode int

const (
	// ModeRuleOnly runs only the rule table; chosen when no valid trained
	// model artifact could be loaded at construction.
	ModeRuleOnly Mode = iota

	// ModeModelWithFallback runs the trained labeler first and appends
	// rule spans whenever the model returns nothing for a text.
	ModeModelWithFallback
)

func (m Mode) String() string {
	switch m {
	case ModeRuleOnly:
		return "rule_only"
	case ModeModelWithFallback:
		return "model_with_fallback"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Detector produces candidate spans for a text. It holds compiled patterns
// and, in model mode, the loaded labeler; both are read-only after
// construction, so a single Detector is safe for concurrent callers as long
// as the labeler's inference is.
type Detector struct {
	mode    Mode
	rules   []Rule
	labeler model.Labeler
}

// Option configures a Detector via the functional options pattern.
type Option func(*detectorConfig)

type detectorConfig struct {
	modelPath string
	ruleFile  string
	labeler   model.Labeler
}

// WithModelPath points the detector at a trained model artifact. A missing
// or malformed artifact degrades the detector to rule-only mode with a
// logged warning, never an error.
func WithModelPath(path string) Option {
	return func(c *detectorConfig) { c.modelPath = path }
}

// WithRuleFile replaces the embedded default rules with a rule YAML file.
func WithRuleFile(path string) Option {
	return func(c *detectorConfig) { c.ruleFile = path }
}

// WithLabeler injects a labeler directly, bypassing artifact loading.
// The detector runs in model mode when the labeler is non-nil.
func WithLabeler(l model.Labeler) Option {
	return func(c *detectorConfig) { c.labeler = l }
}

// NewDetector builds a detector. Without options it compiles the embedded
// rules and runs rule-only.
func NewDetector(opts ...Option) (*Detector, error) {
	var cfg detectorConfig
	for _, o := range opts {
		o(&cfg)
	}

	var rules []Rule
	if cfg.ruleFile != "" {
		rf, err := LoadRuleFile(cfg.ruleFile)
		if err != nil {
			return nil, fmt.Errorf("loading rule file: %w", err)
		}
		if rf == nil {
			return nil, fmt.Errorf("rule file %s does not exist", cfg.ruleFile)
		}
		rules, err = CompileRules(rf.Rules)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		rules, err = DefaultRules()
		if err != nil {
			return nil, err
		}
	}

	d := &Detector{mode: ModeRuleOnly, rules: rules}

	if cfg.labeler != nil {
		d.labeler = cfg.labeler
		d.mode = ModeModelWithFallback
		return d, nil
	}

	if cfg.modelPath != "" {
		h, err := model.Load(cfg.modelPath)
		if err != nil {
			log.Warn().Err(err).Str("model_path", cfg.modelPath).
				Msg("model unavailable, falling back to rule-based detection")
			return d, nil
		}
		labeler, err := model.NewLexiconLabeler(h)
		if err != nil {
			log.Warn().Err(err).Str("model_dir", h.Dir).
				Msg("model artifact unreadable, falling back to rule-based detection")
			return d, nil
		}
		d.labeler = labeler
		d.mode = ModeModelWithFallback
		log.Info().Str("model_dir", h.Dir).Str("model", h.Meta.Name).Msg("loaded trained model")
	}

	return d, nil
}

// MustNewDetector is like NewDetector but panics on error. Useful for
// zero-config startup where the embedded rules are expected to compile.
func MustNewDetector(opts ...Option) *Detector {
	d, err := NewDetector(opts...)
	if err != nil {
		panic(fmt.Sprintf("detect.NewDetector: %v", err))
	}
	return d
}

// Mode returns the detector's fixed operating mode.
func (d *Detector) Mode() Mode { return d.mode }

// Detect returns candidate spans for text, sorted ascending by start.
// In model mode the labeler runs first; rule spans are appended when the
// detector is rule-only or the model found nothing, so rules act as a
// fallback rather than an override. Candidates from different categories are
// not deduplicated here; pii.ResolveOverlaps owns the conflict policy.
func (d *Detector) Detect(ctx context.Context, text string) ([]pii.Span, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidInput
	}

	_, span := tracer.Start(ctx, "detect.entities")
	defer span.End()

	var spans []pii.Span
	if d.mode == ModeModelWithFallback {
		for _, s := range d.labeler.Label(text) {
			if _, ok := pii.ParseCategory(string(s.Category)); !ok {
				continue
			}
			if s.Valid(len(text)) {
				spans = append(spans, s)
			}
		}
	}

	if d.mode == ModeRuleOnly || len(spans) == 0 {
		spans = append(spans, d.ruleSpans(text)...)
	}

	pii.SortForLabeling(spans)

	span.SetAttributes(
		attribute.Int("pii.span_count", len(spans)),
		attribute.String("pii.detector_mode", d.mode.String()),
	)
	return spans, nil
}

// ruleSpans runs every rule, in table order, over the full text.
func (d *Detector) ruleSpans(text string) []pii.Span {
	var spans []pii.Span
	for _, r := range d.rules {
		for _, m := range r.Matches(text) {
			spans = append(spans, pii.Span{Start: m[0], End: m[1], Category: r.Category})
		}
	}
	return spans
}
