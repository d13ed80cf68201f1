package applescript

import (
	"strings"
)

// Operation names, used as metric and span labels.
const (
	OpListCalendars = "list_calendars"
	OpCreateEvent   = "create_event"
	OpDeleteEvents  = "delete_events"
	OpListToday     = "list_today"
	OpListRange     = "list_range"
	OpSearch        = "search"
	OpFixTime       = "fix_time"
)

// Operations lists every operation a Script can carry.
func Operations() []string {
	return []string{OpListCalendars, OpCreateEvent, OpDeleteEvents, OpListToday, OpListRange, OpSearch, OpFixTime}
}

// Separators used by list scripts. Neither can appear in a value typed into
// Calendar, so titles containing commas or pipes survive parsing.
const (
	RecordSeparator = "\x1e"
	FieldSeparator  = "\x1f"
)

// EventFields is the number of fields in one event record:
// uid, calendar, summary, start, end, description, location.
const EventFields = 7

// Script is a complete AppleScript program together with the operation it
// performs. Values are immutable once built.
type Script struct {
	Operation string
	Body      string
}

// prelude holds handlers shared by scripts that build dates or emit events.
// Dates are formatted arithmetically so output does not depend on the
// user's locale settings.
const prelude = `on pad(n)
	return text -2 thru -1 of ("0" & (n as integer))
end pad

on fmtDate(d)
	return ((year of d) as text) & "-" & my pad(month of d as integer) & "-" & my pad(day of d) & " " & my pad((time of d) div hours) & ":" & my pad(((time of d) mod hours) div minutes)
end fmtDate

on mkDate(y, mo, d, h, mi)
	set t to current date
	set day of t to 1
	set year of t to y
	set month of t to mo
	set day of t to d
	set time of t to (h * hours + mi * minutes)
	return t
end mkDate

on txt(v)
	if v is missing value then return ""
	return v as text
end txt

on joined(vals, sep)
	set saved to AppleScript's text item delimiters
	set AppleScript's text item delimiters to sep
	set res to vals as text
	set AppleScript's text item delimiters to saved
	return res
end joined

on eventRecords(evts, calName)
	set out to {}
	tell application "Calendar"
		repeat with e in evts
			set rec to {my txt(uid of e), calName, my txt(summary of e), my fmtDate(start date of e), my fmtDate(end date of e), my txt(description of e), my txt(location of e)}
			set end of out to my joined(rec, character id 31)
		end repeat
	end tell
	return my joined(out, character id 30)
end eventRecords
`

// scriptWriter assembles a script body line by line with tab indentation.
type scriptWriter struct {
	b     strings.Builder
	depth int
}

func newScriptWriter(withPrelude bool) *scriptWriter {
	w := &scriptWriter{}
	if withPrelude {
		w.b.WriteString(prelude)
		w.b.WriteByte('\n')
	}
	return w
}

func (w *scriptWriter) line(parts ...string) {
	w.b.WriteString(strings.Repeat("\t", w.depth))
	for _, p := range parts {
		w.b.WriteString(p)
	}
	w.b.WriteByte('\n')
}

func (w *scriptWriter) open(parts ...string) {
	w.line(parts...)
	w.depth++
}

func (w *scriptWriter) close(parts ...string) {
	w.depth--
	w.line(parts...)
}

func (w *scriptWriter) String() string {
	return w.b.String()
}
