package model

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-io/veil/internal/pii"
)

func TestLoadMissing(t *testing.T) {
	_, err := Load("")
	assert.ErrorIs(t, err, ErrNoModel)

	_, err = Load(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrNoModel)
}

func TestLoadMalformedMeta(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meta.json"), []byte("{not json"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoModel, "a broken artifact is not a missing one")
}

func TestLoadProbesTrainedSubdir(t *testing.T) {
	root := t.TempDir()
	trainer := &LexiconTrainer{OutputDir: root}
	_, err := trainer.Train(context.Background(), nil)
	require.NoError(t, err)

	h, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "model-last"), h.Dir)
	assert.Equal(t, "veil-lexicon", h.Meta.Name)
	assert.Contains(t, h.Meta.Categories, "EMAIL")
}

func TestTrainLoadLabelRoundTrip(t *testing.T) {
	examples := []pii.TrainingExample{
		{
			Text: "Contact John Smith at john@example.com.",
			Spans: []pii.Span{
				{Start: 8, End: 18, Category: pii.CategoryName},
				{Start: 22, End: 38, Category: pii.CategoryEmail},
			},
		},
		{
			Text:  "Acme Corp shipped the order.",
			Spans: []pii.Span{{Start: 0, End: 9, Category: pii.CategoryOrganization}},
		},
		// Invalid span and short surface must both be dropped.
		{
			Text: "J sent it.",
			Spans: []pii.Span{
				{Start: 0, End: 1, Category: pii.CategoryName},
				{Start: 5, End: 3, Category: pii.CategoryName},
			},
		},
	}

	root := t.TempDir()
	trainer := &LexiconTrainer{OutputDir: root}
	h, err := trainer.Train(context.Background(), examples)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Meta.ExampleCount)

	labeler, err := NewLexiconLabeler(h)
	require.NoError(t, err)

	text := "Ask John Smith whether Acme Corp replied."
	spans := labeler.Label(text)
	require.Len(t, spans, 2)
	assert.Equal(t, pii.Span{Start: 4, End: 14, Category: pii.CategoryName}, spans[0])
	assert.Equal(t, "Acme Corp", text[spans[1].Start:spans[1].End])
	assert.Equal(t, pii.CategoryOrganization, spans[1].Category)
}

func TestTrainRespectsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trainer := &LexiconTrainer{OutputDir: t.TempDir()}
	_, err := trainer.Train(ctx, []pii.TrainingExample{{Text: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLabelWordBoundaries(t *testing.T) {
	dir := t.TempDir()
	writeLexicon(t, dir, lexiconData{Entries: []lexiconEntry{
		{Surface: "Ann", Category: "NAME"},
		{Surface: "Ann Lee", Category: "NAME"},
	}})

	labeler, err := NewLexiconLabeler(Handle{Dir: dir})
	require.NoError(t, err)

	t.Run("longest surface wins", func(t *testing.T) {
		text := "Ann Lee called."
		spans := labeler.Label(text)
		require.Len(t, spans, 1)
		assert.Equal(t, "Ann Lee", text[spans[0].Start:spans[0].End])
	})

	t.Run("no match inside a word", func(t *testing.T) {
		assert.Empty(t, labeler.Label("Annual Planner report"))
	})

	t.Run("multibyte letter is a word neighbor", func(t *testing.T) {
		// The rune before the match is Ż; a byte-wise check would see a
		// continuation byte and wrongly accept the boundary.
		assert.Empty(t, labeler.Label("ŻAnn wrote in"))
		assert.Empty(t, labeler.Label("met AnnŻ there"))
	})

	t.Run("multibyte punctuation is not a word neighbor", func(t *testing.T) {
		text := "say «Ann» now"
		spans := labeler.Label(text)
		require.Len(t, spans, 1)
		assert.Equal(t, "Ann", text[spans[0].Start:spans[0].End])
	})

	t.Run("repeated occurrences all labeled", func(t *testing.T) {
		spans := labeler.Label("Ann met Ann.")
		require.Len(t, spans, 2)
		assert.Equal(t, 0, spans[0].Start)
		assert.Equal(t, 8, spans[1].Start)
	})
}

func TestNewLexiconLabelerSkipsBadEntries(t *testing.T) {
	dir := t.TempDir()
	writeLexicon(t, dir, lexiconData{Entries: []lexiconEntry{
		{Surface: "", Category: "NAME"},
		{Surface: "Widget", Category: "SHOE_SIZE"},
		{Surface: "Jane", Category: "NAME"},
	}})

	labeler, err := NewLexiconLabeler(Handle{Dir: dir})
	require.NoError(t, err)
	assert.Len(t, labeler.entries, 1)
}

func writeLexicon(t *testing.T, dir string, lex lexiconData) {
	t.Helper()
	require.NoError(t, writeJSON(filepath.Join(dir, lexiconFile), lex))
}
