package toggl

import (
	"time"

	"branch-tracker/internal/domain"
)

type timeEntryPayload struct {
	ID          int64      `json:"id"`
	WorkspaceID int64      `json:"workspace_id"`
	ProjectID   *int64     `json:"project_id"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Billable    bool       `json:"billable"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop"`
	Duration    int64      `json:"duration"`
}

func (p timeEntryPayload) toDomain() domain.TimeEntry {
	return domain.TimeEntry{
		ID:          p.ID,
		WorkspaceID: p.WorkspaceID,
		ProjectID:   p.ProjectID,
		Description: p.Description,
		Tags:        p.Tags,
		Billable:    p.Billable,
		Start:       p.Start,
		Stop:        p.Stop,
		DurationSec: p.Duration,
	}
}

type createPayload struct {
	Description string   `json:"description"`
	WorkspaceID int64    `json:"workspace_id"`
	ProjectID   *int64   `json:"project_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Billable    bool     `json:"billable"`
	Start       string   `json:"start"`
	Duration    int64    `json:"duration"`
	CreatedWith string   `json:"created_with"`
}

type updatePayload struct {
	Start    string  `json:"start"`
	Stop     *string `json:"stop"`
	Duration int64   `json:"duration"`
}
