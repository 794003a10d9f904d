package inspection

import (
	"strings"
	"time"

	"inspectline/internal/domain"
)

const dateLayout = "2006-01-02"

// Resolution is a computed status plus whether the reference date could be
// read at all. An unreadable date resolves to overdue with DateKnown=false.
type Resolution struct {
	Status    domain.Status
	DateKnown bool
}

// Resolve derives a mission status from its reference date and tasks. today
// is compared at day granularity in its own location.
func Resolve(referenceDate string, tasks []domain.Task, today time.Time) Resolution {
	if len(tasks) > 0 && domain.CountCompleted(tasks) == len(tasks) {
		_, ok := ParseReferenceDate(referenceDate, today.Location())
		return Resolution{Status: domain.StatusCompleted, DateKnown: ok}
	}
	ref, ok := ParseReferenceDate(referenceDate, today.Location())
	if !ok {
		return Resolution{Status: domain.StatusOverdue, DateKnown: false}
	}
	day := truncateDay(today)
	switch {
	case ref.After(day):
		return Resolution{Status: domain.StatusNotDueYet, DateKnown: true}
	case ref.Equal(day):
		return Resolution{Status: domain.StatusDueToday, DateKnown: true}
	default:
		return Resolution{Status: domain.StatusOverdue, DateKnown: true}
	}
}

// timestampLayouts are the full timestamps accepted as reference dates. Only
// their calendar day is used.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseReferenceDate reads "YYYY-MM-DD", a timestamp starting with it, or a
// "YYYY-MM" month key (first day of the month). Anything else is unknown.
func ParseReferenceDate(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(raw)
	switch {
	case len(s) == len(dateLayout):
		if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
			return t, true
		}
	case len(s) > len(dateLayout):
		if sep := s[len(dateLayout)]; sep != 'T' && sep != ' ' {
			return time.Time{}, false
		}
		if !isTimestamp(s) {
			return time.Time{}, false
		}
		if t, err := time.ParseInLocation(dateLayout, s[:len(dateLayout)], loc); err == nil {
			return t, true
		}
	default:
		if t, err := time.ParseInLocation("2006-01", s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isTimestamp(s string) bool {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// MonthKey formats the first day of t's month, e.g. "2025-03-01".
func MonthKey(t time.Time) string {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location()).Format(dateLayout)
}

// Resolver binds Resolve to a clock and the site's time zone.
type Resolver struct {
	Now      func() time.Time
	Location *time.Location
}

func (r Resolver) Today() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	t := now()
	if r.Location != nil {
		t = t.In(r.Location)
	}
	return t
}

func (r Resolver) Resolve(referenceDate string, tasks []domain.Task) Resolution {
	return Resolve(referenceDate, tasks, r.Today())
}

// Apply returns m with its status recomputed.
func (r Resolver) Apply(m domain.Mission) domain.Mission {
	m.Status = r.Resolve(m.ReferenceDate, m.Tasks).Status
	return m
}
