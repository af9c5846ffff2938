package domain

// BranchTaskAssociation links a branch that was created from a task to that
// task. Written once when the branch is created, read-only afterwards.
type BranchTaskAssociation struct {
	TaskID   string `json:"taskId"`
	TaskName string `json:"taskName"`
	BoardID  string `json:"boardId"`
	URL      string `json:"url"`
}

// IsValid checks that the association names a task.
func (a BranchTaskAssociation) IsValid() bool {
	return a.TaskID != ""
}
