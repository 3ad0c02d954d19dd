package patient

import (
	"strconv"
	"strings"
)

// SearchMode selects how Search matches a query.
type SearchMode string

// Search modes, named as they are shown to users.
const (
	ExactName   SearchMode = "Exact Name"
	PartialName SearchMode = "Partial Name"
	PatientID   SearchMode = "Patient ID"
)

// Modes returns the search modes in display order.
func Modes() []SearchMode {
	return []SearchMode{ExactName, PartialName, PatientID}
}

// ParseSearchMode accepts a display name (case-insensitive) or one of the
// short aliases "exact", "partial" and "id".
func ParseSearchMode(s string) (SearchMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact name", "exact":
		return ExactName, true
	case "partial name", "partial":
		return PartialName, true
	case "patient id", "id":
		return PatientID, true
	}
	return "", false
}

// Search returns the records matching query under mode, in table order and
// with their table IDs. An empty query, a malformed ID or an unknown mode
// matches nothing; Search never fails.
func Search(t Table, mode SearchMode, query string) []Record {
	out := []Record{}
	if query == "" {
		return out
	}

	var match func(Record) bool
	switch mode {
	case ExactName:
		q := fold(query)
		match = func(r Record) bool { return fold(r.Name) == q }
	case PartialName:
		// Literal substring; the query is never interpreted as a pattern.
		q := fold(query)
		match = func(r Record) bool { return strings.Contains(fold(r.Name), q) }
	case PatientID:
		id, ok := parseID(query)
		if !ok {
			return out
		}
		match = func(r Record) bool { return r.ID == id }
	default:
		return out
	}

	for _, r := range t.rows {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}

// parseID accepts only a non-empty run of ASCII digits.
func parseID(s string) (int, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return id, true
}
