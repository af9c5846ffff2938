// Package validation checks requests before they leave the process.
package validation

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"branch-tracker/internal/domain"
)

// MaxDescriptionLength is the longest description the time-tracking service accepts.
const MaxDescriptionLength = 3000

var taskIDPattern = regexp.MustCompile(`^\d+$`)

// Validator checks outbound entries and association records.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a validator using the wall clock
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// ValidateNewEntry checks a create request.
func (v *Validator) ValidateNewEntry(entry domain.NewEntry) error {
	ve := NewValidationError()

	if entry.WorkspaceID <= 0 {
		ve.AddInvalidValueError("workspace_id", entry.WorkspaceID, "must be a positive integer")
	}
	v.checkDescription(ve, entry.Description)
	if entry.ProjectID != nil && *entry.ProjectID <= 0 {
		ve.AddInvalidValueError("project_id", *entry.ProjectID, "must be a positive integer")
	}
	if entry.Start.IsZero() {
		ve.AddRequiredError("start")
	} else if !v.isReasonableDate(entry.Start) {
		ve.AddInvalidValueError("start", entry.Start, "must be within a day of now")
	}
	for _, tag := range entry.Tags {
		if strings.TrimSpace(tag) == "" {
			ve.AddInvalidValueError("tags", entry.Tags, "must not contain empty tags")
			break
		}
	}

	return ve.orNil()
}

// ValidateEntryID checks an id before it is used in a request path.
func (v *Validator) ValidateEntryID(id int64) error {
	if id <= 0 {
		ve := NewValidationError()
		ve.AddInvalidValueError("entry_id", id, "must be a positive integer")
		return ve
	}
	return nil
}

// ValidateAssociation checks a branch-task record before it is saved.
func (v *Validator) ValidateAssociation(branch string, assoc domain.BranchTaskAssociation) error {
	ve := NewValidationError()

	if strings.TrimSpace(branch) == "" {
		ve.AddRequiredError("branch")
	} else if strings.ContainsAny(branch, " \t\n") {
		ve.AddInvalidFormatError("branch", branch, "a git ref name without whitespace")
	}
	if assoc.TaskID == "" {
		ve.AddRequiredError("task_id")
	} else if !taskIDPattern.MatchString(assoc.TaskID) {
		ve.AddInvalidFormatError("task_id", assoc.TaskID, "digits only")
	}

	return ve.orNil()
}

func (v *Validator) checkDescription(ve *ValidationError, description string) {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		ve.AddRequiredError("description")
		return
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		ve.AddInvalidLengthError("description", description, MaxDescriptionLength)
	}
}

// isReasonableDate guards against a broken clock producing entries far from now
func (v *Validator) isReasonableDate(t time.Time) bool {
	now := v.now()
	return t.After(now.Add(-24*time.Hour)) && t.Before(now.Add(24*time.Hour))
}
