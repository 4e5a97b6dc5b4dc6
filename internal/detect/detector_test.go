package detect

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-io/veil/internal/pii"
)

// stubLabeler returns a fixed span set regardless of input.
type stubLabeler struct {
	spans []pii.Span
}

func (s stubLabeler) Label(string) []pii.Span { return s.spans }

func TestModeString(t *testing.T) {
	assert.Equal(t, "rule_only", ModeRuleOnly.String())
	assert.Equal(t, "model_with_fallback", ModeModelWithFallback.String())
}

func TestNewDetectorDefaults(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)
	assert.Equal(t, ModeRuleOnly, d.Mode())
}

func TestNewDetectorMissingModelFallsBack(t *testing.T) {
	d, err := NewDetector(WithModelPath(filepath.Join(t.TempDir(), "no-such-model")))
	require.NoError(t, err, "a missing artifact must degrade, not fail")
	assert.Equal(t, ModeRuleOnly, d.Mode())
}

func TestNewDetectorMissingRuleFile(t *testing.T) {
	_, err := NewDetector(WithRuleFile(filepath.Join(t.TempDir(), "no-such-rules.yaml")))
	require.Error(t, err)
}

func TestNewDetectorWithLabeler(t *testing.T) {
	d, err := NewDetector(WithLabeler(stubLabeler{}))
	require.NoError(t, err)
	assert.Equal(t, ModeModelWithFallback, d.Mode())
}

func TestDetectInvalidUTF8(t *testing.T) {
	d := MustNewDetector()
	_, err := d.Detect(context.Background(), "hello \xff\xfe world")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDetectRuleOnly(t *testing.T) {
	d := MustNewDetector()
	text := "Contact John Smith at john@example.com or 555-123-4567."

	spans, err := d.Detect(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, spans, 3)

	// Ascending by start regardless of rule table order.
	assert.Equal(t, pii.Span{Start: 8, End: 18, Category: pii.CategoryName}, spans[0])
	assert.Equal(t, "John Smith", text[spans[0].Start:spans[0].End])
	assert.Equal(t, pii.CategoryEmail, spans[1].Category)
	assert.Equal(t, "john@example.com", text[spans[1].Start:spans[1].End])
	assert.Equal(t, pii.CategoryPhoneNumber, spans[2].Category)
	assert.Equal(t, "555-123-4567", text[spans[2].Start:spans[2].End])
}

func TestDetectModelSpansSuppressRules(t *testing.T) {
	text := "Contact Jane Doe at jane@example.com."
	labeler := stubLabeler{spans: []pii.Span{{Start: 8, End: 16, Category: pii.CategoryName}}}

	d := MustNewDetector(WithLabeler(labeler))
	spans, err := d.Detect(context.Background(), text)
	require.NoError(t, err)

	// The model found something, so rules do not run and the email is
	// deliberately absent.
	require.Len(t, spans, 1)
	assert.Equal(t, "Jane Doe", text[spans[0].Start:spans[0].End])
}

func TestDetectEmptyModelFallsBackToRules(t *testing.T) {
	text := "Reach out at jane@example.com."
	d := MustNewDetector(WithLabeler(stubLabeler{}))

	spans, err := d.Detect(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, pii.CategoryEmail, spans[0].Category)
	assert.Equal(t, "jane@example.com", text[spans[0].Start:spans[0].End])
}

func TestDetectFiltersBogusModelSpans(t *testing.T) {
	text := "hello world"
	labeler := stubLabeler{spans: []pii.Span{
		{Start: 0, End: 5, Category: "SHOE_SIZE"},
		{Start: 4, End: 2, Category: pii.CategoryName},
		{Start: 0, End: 500, Category: pii.CategoryName},
		{Start: 6, End: 11, Category: pii.CategoryName},
	}}

	d := MustNewDetector(WithLabeler(labeler))
	spans, err := d.Detect(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, pii.Span{Start: 6, End: 11, Category: pii.CategoryName}, spans[0])
}

func TestDetectEmptyText(t *testing.T) {
	d := MustNewDetector()
	spans, err := d.Detect(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, spans)
}
