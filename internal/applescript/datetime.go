package applescript

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/macos-calendar-mcp/internal/failure"
)

// Layout is the wall-clock format accepted from clients and emitted by list scripts.
const Layout = "2006-01-02 15:04"

// DateLayout is the day format used by weekStart and datePattern.
const DateLayout = "2006-01-02"

// DateTime is a local wall-clock time with minute precision. It carries no
// zone: Calendar interprets it in the zone of the logged-in user.
type DateTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

// ParseDateTime parses "YYYY-MM-DD HH:MM". The error is a
// *failure.Error of kind ValidationError that carries s.
func ParseDateTime(s string) (DateTime, error) {
	dt, ok := parseDateTime(s)
	if !ok {
		return DateTime{}, failure.InvalidDateTime("date", s)
	}
	return dt, nil
}

// ParseDate parses "YYYY-MM-DD" as midnight of that day.
func ParseDate(s string) (DateTime, error) {
	dt, ok := parseDateTime(s + " 00:00")
	if !ok {
		return DateTime{}, failure.InvalidDate("date", s)
	}
	return dt, nil
}

func parseDateTime(s string) (DateTime, bool) {
	datePart, timePart, ok := strings.Cut(s, " ")
	if !ok {
		return DateTime{}, false
	}

	d := strings.Split(datePart, "-")
	c := strings.Split(timePart, ":")
	if len(d) != 3 || len(c) != 2 {
		return DateTime{}, false
	}

	var (
		dt  DateTime
		err error
	)
	fields := []struct {
		dst *int
		src string
	}{
		{&dt.Year, d[0]},
		{&dt.Month, d[1]},
		{&dt.Day, d[2]},
		{&dt.Hour, c[0]},
		{&dt.Minute, c[1]},
	}
	for _, f := range fields {
		if *f.dst, err = atoi(f.src); err != nil {
			return DateTime{}, false
		}
	}

	return dt, dt.valid()
}

// atoi accepts only ASCII digits; strconv.Atoi would also take signs.
func atoi(s string) (int, error) {
	if s == "" || len(s) > 4 {
		return 0, strconv.ErrSyntax
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}

func (dt DateTime) valid() bool {
	if dt.Year == 0 || dt.Month == 0 || dt.Day == 0 {
		return false
	}
	if dt.Month > 12 || dt.Hour > 23 || dt.Minute > 59 {
		return false
	}
	// rejects days past the end of the month, e.g. 2025-02-30
	return dt.Time().Day() == dt.Day
}

// Time returns the DateTime as a time.Time in UTC. Only the wall-clock
// fields are meaningful.
func (dt DateTime) Time() time.Time {
	return time.Date(dt.Year, time.Month(dt.Month), dt.Day, dt.Hour, dt.Minute, 0, 0, time.UTC)
}

// AddDays returns dt shifted by n calendar days.
func (dt DateTime) AddDays(n int) DateTime {
	t := dt.Time().AddDate(0, 0, n)
	return DateTime{Year: t.Year(), Month: int(t.Month()), Day: t.Day(), Hour: t.Hour(), Minute: t.Minute()}
}

// Before reports whether dt is strictly earlier than other.
func (dt DateTime) Before(other DateTime) bool {
	return dt.Time().Before(other.Time())
}

func (dt DateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute)
}

// literal renders dt as a call to the mkDate handler of the script prelude.
func (dt DateTime) literal() string {
	return fmt.Sprintf("my mkDate(%d, %d, %d, %d, %d)", dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute)
}
