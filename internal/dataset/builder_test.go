package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-io/veil/internal/pii"
)

func TestBuildRecoversSpansFromRedaction(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	records := []Record{{
		Text:         "Contact Jane Doe at jane@example.com.",
		RedactedText: "Contact [NAME] at [EMAIL].",
	}}

	examples := b.Build(context.Background(), records)
	require.Len(t, examples, 1)
	require.Len(t, examples[0].Spans, 2)
	assert.Equal(t, pii.Span{Start: 8, End: 16, Category: pii.CategoryName}, examples[0].Spans[0])
	assert.Equal(t, pii.Span{Start: 20, End: 36, Category: pii.CategoryEmail}, examples[0].Spans[1])
	assert.Equal(t, records[0].Text, examples[0].Text)
}

func TestBuildFallbackLabelsStructuredEntities(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	// The redacted text carries no placeholders, so alignment recovers
	// nothing and the EMAIL and PHONE_NUMBER rules label the text instead.
	text := "Ping bob@example.com or 555-123-4567 about the invoice from Dana White."
	records := []Record{{Text: text, RedactedText: text}}

	examples := b.Build(context.Background(), records)
	require.Len(t, examples, 1)

	spans := examples[0].Spans
	require.Len(t, spans, 2)
	assert.Equal(t, pii.CategoryEmail, spans[0].Category)
	assert.Equal(t, "bob@example.com", text[spans[0].Start:spans[0].End])
	assert.Equal(t, pii.CategoryPhoneNumber, spans[1].Category)
	assert.Equal(t, "555-123-4567", text[spans[1].Start:spans[1].End])
}

func TestBuildKeepsUnlabeledRecords(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	records := []Record{{Text: "nothing sensitive here", RedactedText: "nothing sensitive here"}}

	examples := b.Build(context.Background(), records)
	require.Len(t, examples, 1)
	assert.Empty(t, examples[0].Spans)
}
