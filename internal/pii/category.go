// Package pii holds the shared span types and the span resolution and
// redaction primitives used by the aligner, the detectors, and the service.
package pii

// Category is a PII entity category. The string value is the exact token used
// inside redaction placeholders, e.g. "[EMAIL]" for CategoryEmail.
type Category string

const (
	CategoryName         Category = "NAME"
	CategoryOrganization Category = "ORGANIZATION"
	CategoryAddress      Category = "ADDRESS"
	CategoryEmail        Category = "EMAIL"
	CategoryPhoneNumber  Category = "PHONE_NUMBER"
)

// Categories lists every supported category in detection priority order:
// structured patterns (addresses, emails, phone numbers) before the looser
// NAME and ORGANIZATION patterns that would otherwise misclassify their
// fragments. Overlap resolution uses this order; never rely on map iteration
// order for priority.
var Categories = []Category{
	CategoryAddress,
	CategoryEmail,
	CategoryPhoneNumber,
	CategoryName,
	CategoryOrganization,
}

// priorityRank maps each category to its position in Categories.
var priorityRank = func() map[Category]int {
	m := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		m[c] = i
	}
	return m
}()

// ParseCategory returns the Category for a token like "EMAIL", and false
// when the token is not a supported category.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	_, ok := priorityRank[c]
	return c, ok
}

// Priority returns the category's rank in the fixed priority order
// (0 = highest). Unknown categories sort last.
func (c Category) Priority() int {
	if r, ok := priorityRank[c]; ok {
		return r
	}
	return len(Categories)
}

// Placeholder returns the bracketed redaction token for the category,
// e.g. "[PHONE_NUMBER]".
func (c Category) Placeholder() string {
	return "[" + string(c) + "]"
}
