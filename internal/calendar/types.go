package calendar

// Event is a calendar event as read back from Calendar. Dates use the
// "YYYY-MM-DD HH:MM" layout in the Mac's local time.
type Event struct {
	UID         string `json:"uid,omitempty"`
	Calendar    string `json:"calendar"`
	Title       string `json:"title"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

// EventInput represents the input for creating a calendar event.
type EventInput struct {
	Title       string `json:"title"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

// Correction moves events whose title contains Keyword to new times of day.
type Correction struct {
	Keyword      string `json:"keyword"`
	NewStartTime string `json:"newStartTime"`
	NewEndTime   string `json:"newEndTime"`
}
