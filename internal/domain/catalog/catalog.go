// Package catalog defines the persisted campus data rows: class sections,
// academic calendar entries, and campus events.
package catalog

// ClassRecord is one section of the structured class catalog. A record is
// identified by (Term, CourseCode, Section).
type ClassRecord struct {
	ClassID     string `json:"class_id"`
	Term        string `json:"term"`
	Department  string `json:"department"`
	CourseCode  string `json:"course_code"`
	CourseTitle string `json:"course_title"`
	Section     string `json:"section"`
	Instructor  string `json:"instructor"`
	MeetingDays string `json:"meeting_days"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Building    string `json:"building"`
	Room        string `json:"room"`
	Modality    string `json:"modality"`
}

// CalendarEntry is one academic calendar row, e.g. an add/drop deadline.
type CalendarEntry struct {
	EntryID   string `json:"entry_id"`
	Term      string `json:"term"`
	DateText  string `json:"date_text"`
	Detail    string `json:"detail"`
	SourceURL string `json:"source_url,omitempty"`
}

// Event is one campus event.
type Event struct {
	EventID     string `json:"event_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location"`
	URL         string `json:"url,omitempty"`
}
