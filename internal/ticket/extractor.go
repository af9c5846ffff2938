// Package ticket pulls task identifiers out of branch names.
package ticket

import (
	"regexp"

	"branch-tracker/internal/config"
	"branch-tracker/internal/errors"
)

// Extractor applies a single-capture-group pattern to branch names.
type Extractor struct {
	pattern *regexp.Regexp
}

// NewExtractor compiles pattern. An empty pattern selects the default of six
// or more consecutive digits.
func NewExtractor(pattern string) (*Extractor, error) {
	if pattern == "" {
		pattern = config.DefaultTicketPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.NewInvalidInputError("ticket_pattern", pattern, err.Error())
	}
	return &Extractor{pattern: re}, nil
}

// Extract returns the first capture group of the pattern. A pattern without
// capture groups never finds a ticket.
func (e *Extractor) Extract(branch string) (string, bool) {
	if e.pattern.NumSubexp() == 0 {
		return "", false
	}
	match := e.pattern.FindStringSubmatch(branch)
	if len(match) < 2 || match[1] == "" {
		return "", false
	}
	return match[1], true
}

// Pattern returns the source of the compiled pattern.
func (e *Extractor) Pattern() string {
	return e.pattern.String()
}
