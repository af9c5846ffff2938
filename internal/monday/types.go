package monday

import "strings"

// Item is the minimal item shape needed to name a time entry.
type Item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItemDetails is the extended shape shown by the task command.
type ItemDetails struct {
	Item
	State       string
	BoardID     string
	BoardName   string
	GroupTitle  string
	Status      string
	URL         string
	UpdateCount int
}

type itemDetailsResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
	URL   string `json:"url"`
	Board struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"board"`
	Group struct {
		Title string `json:"title"`
	} `json:"group"`
	ColumnValues []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"column_values"`
	Updates []struct {
		ID string `json:"id"`
	} `json:"updates"`
}

func (r itemDetailsResponse) toDetails() *ItemDetails {
	d := &ItemDetails{
		Item:        Item{ID: r.ID, Name: r.Name},
		State:       r.State,
		BoardID:     r.Board.ID,
		BoardName:   r.Board.Name,
		GroupTitle:  r.Group.Title,
		URL:         r.URL,
		UpdateCount: len(r.Updates),
	}
	for _, cv := range r.ColumnValues {
		if cv.Type == "status" || strings.HasPrefix(cv.ID, "status") {
			d.Status = cv.Text
			break
		}
	}
	return d
}
