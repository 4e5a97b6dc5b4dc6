package align

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veil-io/veil/internal/pii"
)

func TestFindPlaceholders(t *testing.T) {
	redacted := "Hi [NAME], mail [EMAIL] or call [PHONE_NUMBER]."
	got := findPlaceholders(redacted)
	require.Len(t, got, 3)
	assert.Equal(t, pii.CategoryName, got[0].category)
	assert.Equal(t, 3, got[0].start)
	assert.Equal(t, 9, got[0].end)
	assert.Equal(t, pii.CategoryEmail, got[1].category)
	assert.Equal(t, pii.CategoryPhoneNumber, got[2].category)

	assert.Empty(t, findPlaceholders("no placeholders at all"))
	assert.Empty(t, findPlaceholders("[SSN] is not a supported token"))
}

func TestMatchingBlocks(t *testing.T) {
	redacted := "abc XYZ def"
	original := "abc 12345 def"
	blocks := MatchingBlocks(redacted, original)

	require.Len(t, blocks, 3)
	assert.Equal(t, MatchingBlock{PosRedacted: 0, PosOriginal: 0, Length: 4}, blocks[0])
	assert.Equal(t, MatchingBlock{PosRedacted: 7, PosOriginal: 9, Length: 4}, blocks[1])
	assert.Equal(t, MatchingBlock{PosRedacted: 11, PosOriginal: 13, Length: 0}, blocks[2],
		"sequence ends with the zero-length sentinel")
}

func TestMatchingBlocksMonotonic(t *testing.T) {
	redacted := "Dear [NAME], your order from Acme Corp ships to [ADDRESS] tomorrow."
	original := "Dear Jane Doe, your order from Acme Corp ships to 12 Oak Road, Springfield 04523 tomorrow."
	blocks := MatchingBlocks(redacted, original)

	require.NotEmpty(t, blocks)
	last := blocks[len(blocks)-1]
	assert.Equal(t, MatchingBlock{PosRedacted: len(redacted), PosOriginal: len(original), Length: 0}, last)
	for i := 1; i < len(blocks); i++ {
		prev, cur := blocks[i-1], blocks[i]
		assert.GreaterOrEqual(t, cur.PosRedacted, prev.PosRedacted+prev.Length)
		assert.GreaterOrEqual(t, cur.PosOriginal, prev.PosOriginal+prev.Length)
	}
}

func TestRecoverSpansSingleEmail(t *testing.T) {
	original := "Email me at jane@x.com please"
	redacted := "Email me at [EMAIL] please"

	spans := RecoverSpans(original, redacted)
	require.Len(t, spans, 1)
	assert.Equal(t, pii.Span{Start: 12, End: 22, Category: pii.CategoryEmail}, spans[0])
	assert.Equal(t, "jane@x.com", original[spans[0].Start:spans[0].End])
}

func TestRecoverSpansMultiple(t *testing.T) {
	original := "Contact John Smith at john@x.com."
	redacted := "Contact [NAME] at [EMAIL]."

	spans := RecoverSpans(original, redacted)
	require.Len(t, spans, 2)
	assert.Equal(t, "John Smith", original[spans[0].Start:spans[0].End])
	assert.Equal(t, pii.CategoryName, spans[0].Category)
	assert.Equal(t, "john@x.com", original[spans[1].Start:spans[1].End])
	assert.Equal(t, pii.CategoryEmail, spans[1].Category)
}

func TestRecoverSpansNoPlaceholders(t *testing.T) {
	assert.Empty(t, RecoverSpans("some text", "some text"))
}

func TestRecoverSpansPlaceholderAtStartDropped(t *testing.T) {
	// No matching block precedes a placeholder at offset 0, so it cannot
	// be anchored and is dropped rather than erroring.
	original := "bob@x.com wrote this"
	redacted := "[EMAIL] wrote this"
	assert.Empty(t, RecoverSpans(original, redacted))
}

func TestRecoverSpansRepeatedShortContext(t *testing.T) {
	// The entity text equals its neighboring token; the diff matches the
	// placeholder's letters against the first occurrence and leaves no
	// anchor block before the placeholder. Accepted recovery imprecision.
	original := "NAME NAME"
	redacted := "[NAME] NAME"
	assert.Empty(t, RecoverSpans(original, redacted))
}

func TestRecoverSpansRepeatedSurroundings(t *testing.T) {
	original := "Ann Ann Ann"
	redacted := "Ann [NAME] Ann"
	spans := RecoverSpans(original, redacted)
	require.Len(t, spans, 1)
	assert.Equal(t, "Ann", original[spans[0].Start:spans[0].End])
}

func TestRecoverSpansSharedCharactersWithPlaceholder(t *testing.T) {
	// "Anna Kowalski" shares the letter A with "[NAME]"; blocks inside the
	// placeholder range must not shift the anchors.
	original := "Call Anna Kowalski now"
	redacted := "Call [NAME] now"
	spans := RecoverSpans(original, redacted)
	require.Len(t, spans, 1)
	assert.Equal(t, "Anna Kowalski", original[spans[0].Start:spans[0].End])
}

func TestAlignmentRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
		pii  map[string]pii.Category
	}{
		{
			name: "name and email",
			text: "Call Anna Kowalski at anna.k@corp.example for details",
			pii: map[string]pii.Category{
				"Anna Kowalski":       pii.CategoryName,
				"anna.k@corp.example": pii.CategoryEmail,
			},
		},
		{
			// Every entity needs left context: a placeholder at offset 0
			// has no before-anchor and is dropped, see
			// TestRecoverSpansPlaceholderAtStartDropped.
			name: "all five categories",
			text: "Our client Zofia Lis of Initech Ltd lives at 12 Oak Road, Springfield 04523; mail z@lis.io or dial 555-123-4567 today",
			pii: map[string]pii.Category{
				"Zofia Lis":                      pii.CategoryName,
				"Initech Ltd":                    pii.CategoryOrganization,
				"12 Oak Road, Springfield 04523": pii.CategoryAddress,
				"z@lis.io":                       pii.CategoryEmail,
				"555-123-4567":                   pii.CategoryPhoneNumber,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var want []pii.Span
			for surface, category := range tt.pii {
				idx := strings.Index(tt.text, surface)
				require.GreaterOrEqual(t, idx, 0)
				want = append(want, pii.Span{Start: idx, End: idx + len(surface), Category: category})
			}
			pii.SortForLabeling(want)

			redacted := pii.Redact(tt.text, want)
			got := RecoverSpans(tt.text, redacted)
			assert.Equal(t, want, got)
		})
	}
}
