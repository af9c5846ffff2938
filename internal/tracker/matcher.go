package tracker

import "branch-tracker/internal/domain"

// MatchKind ranks how closely an earlier entry matches a description.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchPrefix
	MatchExact
)

// DefaultPrefixLength is the number of leading characters PrefixMatcher compares.
const DefaultPrefixLength = 30

// Matcher finds an earlier entry for the same task, so its project and tags
// can be carried over to a new entry.
type Matcher interface {
	Match(description string, entries []domain.TimeEntry) (domain.TimeEntry, MatchKind)
}

// PrefixMatcher prefers an exact description match and falls back to
// comparing the first PrefixLength characters. Within each kind, entries with
// a project or tags win over entries without, regardless of order.
//
// The prefix rule can pair distinct tasks that share a long common prefix.
type PrefixMatcher struct {
	PrefixLength int
}

func (m PrefixMatcher) Match(description string, entries []domain.TimeEntry) (domain.TimeEntry, MatchKind) {
	n := m.PrefixLength
	if n <= 0 {
		n = DefaultPrefixLength
	}
	want := truncateRunes(description, n)

	var exact, exactAssigned, prefix, prefixAssigned *domain.TimeEntry
	for i := range entries {
		e := &entries[i]
		if e.Description == "" {
			continue
		}
		switch {
		case e.Description == description:
			if exact == nil {
				exact = e
			}
			if exactAssigned == nil && e.HasAssignment() {
				exactAssigned = e
			}
		case truncateRunes(e.Description, n) == want:
			if prefix == nil {
				prefix = e
			}
			if prefixAssigned == nil && e.HasAssignment() {
				prefixAssigned = e
			}
		}
	}

	for _, c := range []struct {
		entry *domain.TimeEntry
		kind  MatchKind
	}{
		{exactAssigned, MatchExact},
		{exact, MatchExact},
		{prefixAssigned, MatchPrefix},
		{prefix, MatchPrefix},
	} {
		if c.entry != nil {
			return *c.entry, c.kind
		}
	}
	return domain.TimeEntry{}, MatchNone
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
