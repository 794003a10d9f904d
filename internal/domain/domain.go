package domain

import (
	"fmt"
	"strings"
)

// Kind tags which checklist and synchronization rules a mission follows.
type Kind string

const (
	KindExit     Kind = "exit"
	KindCleaning Kind = "cleaning"
	KindMonthly  Kind = "monthly"
)

// Kinds lists every mission kind in display order.
var Kinds = []Kind{KindExit, KindCleaning, KindMonthly}

// ParseKind validates a kind tag.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindExit, KindCleaning, KindMonthly:
		return k, nil
	default:
		return "", fmt.Errorf("invalid mission kind %q (want exit, cleaning or monthly)", s)
	}
}

// Status is always derived; see inspection.Resolve.
type Status string

const (
	StatusNotDueYet Status = "not_due_yet"
	StatusDueToday  Status = "due_today"
	StatusOverdue   Status = "overdue"
	StatusCompleted Status = "completed"
)

// Label returns the display label used by the field teams.
func (s Status) Label() string {
	switch s {
	case StatusNotDueYet:
		return "זמן הביקורות טרם הגיע"
	case StatusDueToday:
		return "דורש ביקורת היום"
	case StatusOverdue:
		return "זמן הביקורת עבר"
	case StatusCompleted:
		return "הביקורת הושלמה"
	default:
		return string(s)
	}
}

type Task struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

type Mission struct {
	ID            string `json:"id"`
	Kind          Kind   `json:"kind" enum:"exit,cleaning,monthly"`
	OrderID       string `json:"orderId,omitempty"`
	UnitID        string `json:"unitId"`
	GuestName     string `json:"guestName,omitempty"`
	ReferenceDate string `json:"referenceDate"`
	Status        Status `json:"status" enum:"not_due_yet,due_today,overdue,completed"`
	Tasks         []Task `json:"tasks"`
}

// Clone returns a deep copy so callers never share task slices.
func (m Mission) Clone() Mission {
	out := m
	out.Tasks = CloneTasks(m.Tasks)
	return out
}

// CompletedCount returns how many tasks are checked.
func (m Mission) CompletedCount() int {
	return CountCompleted(m.Tasks)
}

func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

func CountCompleted(tasks []Task) int {
	n := 0
	for _, t := range tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

// SaveResult is the gateway's answer to a mission save.
type SaveResult struct {
	Mission
	SavedTasksCount     int `json:"savedTasksCount"`
	TotalTasksCount     int `json:"totalTasksCount"`
	FailedTasksCount    int `json:"failedTasksCount"`
	CompletedTasksCount int `json:"completedTasksCount"`
}

// SyncResult summarizes one synchronization run.
type SyncResult struct {
	Created int `json:"created"`
	Pruned  int `json:"pruned"`
	Total   int `json:"total"`
}

const (
	OrderStatusNew       = "חדש"
	OrderStatusCancelled = "בוטל"
)

type Order struct {
	ID            string `json:"id"`
	UnitNumber    string `json:"unitNumber" yaml:"unit_number"`
	GuestName     string `json:"guestName" yaml:"guest_name"`
	DepartureDate string `json:"departureDate" yaml:"departure_date"`
	Status        string `json:"status" yaml:"status"`
}

// Active reports whether the order still drives inspections.
func (o Order) Active() bool {
	s := strings.TrimSpace(o.Status)
	return s != OrderStatusCancelled && !strings.EqualFold(s, "cancelled") && !strings.EqualFold(s, "canceled")
}

type Unit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
