package applescript

import (
	"strings"

	"github.com/teemow/macos-calendar-mcp/internal/failure"
)

// Request is one calendar operation with its parameters. The set of
// implementations is closed; Build is the only way to turn one into a Script.
type Request interface {
	// Operation names the operation for logging and metrics.
	Operation() string
	// Validate checks the parameters without building anything.
	Validate() error

	render() string
}

// Build validates req and renders its script. It is pure and deterministic:
// equal requests produce byte-identical scripts.
func Build(req Request) (Script, error) {
	if err := req.Validate(); err != nil {
		return Script{}, err
	}
	return Script{Operation: req.Operation(), Body: req.render()}, nil
}

func required(param, value string) error {
	if strings.TrimSpace(value) == "" {
		return failure.Missing(param)
	}
	return nil
}

func dateTimeParam(param, value string) (DateTime, error) {
	if err := required(param, value); err != nil {
		return DateTime{}, err
	}
	dt, ok := parseDateTime(value)
	if !ok {
		return DateTime{}, failure.InvalidDateTime(param, value)
	}
	return dt, nil
}

func dateParam(param, value string) (DateTime, error) {
	if err := required(param, value); err != nil {
		return DateTime{}, err
	}
	dt, ok := parseDateTime(value + " 00:00")
	if !ok {
		return DateTime{}, failure.InvalidDate(param, value)
	}
	return dt, nil
}

// ListCalendars lists the names of every calendar.
type ListCalendars struct{}

func (ListCalendars) Operation() string { return OpListCalendars }
func (ListCalendars) Validate() error   { return nil }

// Build renders the script.
func (r ListCalendars) Build() (Script, error) { return Build(r) }

func (ListCalendars) render() string {
	w := newScriptWriter(false)
	w.open(`tell application "Calendar"`)
	w.line(`set calNames to name of every calendar`)
	w.close(`end tell`)
	w.line(`set AppleScript's text item delimiters to character id 30`)
	w.line(`set res to calNames as text`)
	w.line(`set AppleScript's text item delimiters to ""`)
	w.line(`return res`)
	return w.String()
}

// CreateEvent creates one event. The script returns the new event's uid.
type CreateEvent struct {
	Calendar    string
	Title       string
	StartDate   string
	EndDate     string
	Description string
	Location    string
}

func (CreateEvent) Operation() string { return OpCreateEvent }

func (r CreateEvent) Validate() error {
	_, _, err := r.times()
	return err
}

// Build validates the request and renders the script.
func (r CreateEvent) Build() (Script, error) { return Build(r) }

func (r CreateEvent) times() (DateTime, DateTime, error) {
	if err := required("calendar", r.Calendar); err != nil {
		return DateTime{}, DateTime{}, err
	}
	if err := required("title", r.Title); err != nil {
		return DateTime{}, DateTime{}, err
	}
	start, err := dateTimeParam("startDate", r.StartDate)
	if err != nil {
		return DateTime{}, DateTime{}, err
	}
	end, err := dateTimeParam("endDate", r.EndDate)
	if err != nil {
		return DateTime{}, DateTime{}, err
	}
	if end.Before(start) {
		return DateTime{}, DateTime{}, failure.Validationf("endDate",
			"endDate %s is before startDate %s", r.EndDate, r.StartDate)
	}
	return start, end, nil
}

func (r CreateEvent) render() string {
	start, end, _ := r.times()

	props := []string{
		"summary:" + Quote(r.Title),
		"start date:startTime",
		"end date:endTime",
	}
	if r.Description != "" {
		props = append(props, "description:"+Quote(r.Description))
	}
	if r.Location != "" {
		props = append(props, "location:"+Quote(r.Location))
	}

	w := newScriptWriter(true)
	w.line(`set startTime to `, start.literal())
	w.line(`set endTime to `, end.literal())
	w.open(`tell application "Calendar"`)
	w.open(`tell calendar `, Quote(r.Calendar))
	w.line(`set newEvent to make new event with properties {`, strings.Join(props, ", "), `}`)
	w.line(`return uid of newEvent`)
	w.close(`end tell`)
	w.close(`end tell`)
	return w.String()
}

// DeleteEvents deletes every event whose title contains Keyword.
// The script returns the number of deleted events.
type DeleteEvents struct {
	Calendar string
	Keyword  string
}

func (DeleteEvents) Operation() string { return OpDeleteEvents }

func (r DeleteEvents) Validate() error {
	if err := required("calendar", r.Calendar); err != nil {
		return err
	}
	return required("keyword", r.Keyword)
}

// Build validates the request and renders the script.
func (r DeleteEvents) Build() (Script, error) { return Build(r) }

func (r DeleteEvents) render() string {
	w := newScriptWriter(false)
	w.open(`tell application "Calendar"`)
	w.open(`tell calendar `, Quote(r.Calendar))
	w.line(`set doomed to every event whose summary contains `, Quote(r.Keyword))
	w.line(`set deletedCount to count of doomed`)
	w.open(`if deletedCount > 0 then`)
	w.line(`delete (every event whose summary contains `, Quote(r.Keyword), `)`)
	w.close(`end if`)
	w.line(`return deletedCount`)
	w.close(`end tell`)
	w.close(`end tell`)
	return w.String()
}

// ListToday lists the events starting today in one calendar.
type ListToday struct {
	Calendar string
}

func (ListToday) Operation() string { return OpListToday }

func (r ListToday) Validate() error {
	return required("calendar", r.Calendar)
}

// Build validates the request and renders the script.
func (r ListToday) Build() (Script, error) { return Build(r) }

func (r ListToday) render() string {
	w := newScriptWriter(true)
	w.line(`set rangeStart to current date`)
	w.line(`set time of rangeStart to 0`)
	w.line(`set rangeEnd to rangeStart + (1 * days)`)
	writeRangeQuery(w, r.Calendar)
	return w.String()
}

// ListRange lists the events starting in the seven days from WeekStart.
type ListRange struct {
	Calendar  string
	WeekStart string
}

func (ListRange) Operation() string { return OpListRange }

func (r ListRange) Validate() error {
	if err := required("calendar", r.Calendar); err != nil {
		return err
	}
	_, err := dateParam("weekStart", r.WeekStart)
	return err
}

// Build validates the request and renders the script.
func (r ListRange) Build() (Script, error) { return Build(r) }

// Bounds returns the first instant of the range and the first instant after it.
func (r ListRange) Bounds() (DateTime, DateTime, error) {
	start, err := dateParam("weekStart", r.WeekStart)
	if err != nil {
		return DateTime{}, DateTime{}, err
	}
	return start, start.AddDays(7), nil
}

func (r ListRange) render() string {
	start, end, _ := r.Bounds()

	w := newScriptWriter(true)
	w.line(`set rangeStart to `, start.literal())
	w.line(`set rangeEnd to `, end.literal())
	writeRangeQuery(w, r.Calendar)
	return w.String()
}

// Search lists events whose title or description contains Query.
type Search struct {
	Calendar string
	Query    string
}

func (Search) Operation() string { return OpSearch }

func (r Search) Validate() error {
	if err := required("calendar", r.Calendar); err != nil {
		return err
	}
	return required("query", r.Query)
}

// Build validates the request and renders the script.
func (r Search) Build() (Script, error) { return Build(r) }

func (r Search) render() string {
	q := Quote(r.Query)

	w := newScriptWriter(true)
	w.open(`tell application "Calendar"`)
	w.line(`set cal to calendar `, Quote(r.Calendar))
	w.line(`set calName to name of cal`)
	w.line(`set found to every event of cal whose summary contains `, q, ` or description contains `, q)
	w.close(`end tell`)
	w.line(`return my eventRecords(found, calName)`)
	return w.String()
}

// FixTime moves every event on DatePattern whose title contains Keyword to
// NewStartTime-NewEndTime on the same day. The script returns the number of
// events changed.
type FixTime struct {
	Calendar     string
	DatePattern  string
	Keyword      string
	NewStartTime string
	NewEndTime   string
}

func (FixTime) Operation() string { return OpFixTime }

func (r FixTime) Validate() error {
	_, _, _, err := r.times()
	return err
}

// Build validates the request and renders the script.
func (r FixTime) Build() (Script, error) { return Build(r) }

func (r FixTime) times() (day, start, end DateTime, err error) {
	if err = required("calendar", r.Calendar); err != nil {
		return
	}
	if day, err = dateParam("datePattern", r.DatePattern); err != nil {
		return
	}
	if err = required("keyword", r.Keyword); err != nil {
		return
	}
	if start, err = clockParam("newStartTime", r.DatePattern, r.NewStartTime); err != nil {
		return
	}
	if end, err = clockParam("newEndTime", r.DatePattern, r.NewEndTime); err != nil {
		return
	}
	if end.Before(start) {
		err = failure.Validationf("newEndTime",
			"newEndTime %s is before newStartTime %s", r.NewEndTime, r.NewStartTime)
	}
	return
}

func clockParam(param, day, clock string) (DateTime, error) {
	if err := required(param, clock); err != nil {
		return DateTime{}, err
	}
	dt, ok := parseDateTime(day + " " + clock)
	if !ok {
		return DateTime{}, failure.InvalidDateTime(param, clock)
	}
	return dt, nil
}

func (r FixTime) render() string {
	day, start, end, _ := r.times()

	w := newScriptWriter(true)
	w.line(`set rangeStart to `, day.literal())
	w.line(`set rangeEnd to rangeStart + (1 * days)`)
	w.line(`set newStart to `, start.literal())
	w.line(`set newEnd to `, end.literal())
	w.open(`tell application "Calendar"`)
	w.open(`tell calendar `, Quote(r.Calendar))
	w.line(`set found to every event whose start date ≥ rangeStart and start date < rangeEnd and summary contains `, Quote(r.Keyword))
	w.open(`repeat with e in found`)
	w.line(`set start date of e to newStart`)
	w.line(`set end date of e to newEnd`)
	w.close(`end repeat`)
	w.line(`return count of found`)
	w.close(`end tell`)
	w.close(`end tell`)
	return w.String()
}

// writeRangeQuery emits the lookup of events starting in [rangeStart, rangeEnd).
func writeRangeQuery(w *scriptWriter, calendar string) {
	w.open(`tell application "Calendar"`)
	w.line(`set cal to calendar `, Quote(calendar))
	w.line(`set calName to name of cal`)
	w.line(`set found to every event of cal whose start date ≥ rangeStart and start date < rangeEnd`)
	w.close(`end tell`)
	w.line(`return my eventRecords(found, calName)`)
}
