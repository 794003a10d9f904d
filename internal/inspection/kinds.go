package inspection

import (
	"fmt"
	"strings"
	"time"

	"inspectline/internal/domain"
)

// Source is the external world a synchronization run looks at.
type Source struct {
	Orders []domain.Order
	Units  []domain.Unit
	Today  time.Time
}

// KindSpec parameterizes the generic mission engine for one kind.
type KindSpec struct {
	Kind domain.Kind
	// Desired enumerates the missions that should exist for src, without tasks.
	Desired func(src Source) []domain.Mission
	// SyncPath is the gateway sync endpoint, relative to the API base path.
	SyncPath string
	// PruneOrphans removes missions whose source disappeared.
	PruneOrphans bool
}

// Template returns a fresh canonical checklist for the kind.
func (s KindSpec) Template() []domain.Task {
	return Template(s.Kind)
}

// NewMission builds a mission from a desired skeleton with unchecked tasks.
func (s KindSpec) NewMission(skel domain.Mission, today time.Time) domain.Mission {
	m := skel
	m.Kind = s.Kind
	m.Tasks = s.Template()
	m.Status = Resolve(m.ReferenceDate, m.Tasks, today).Status
	return m
}

var specs = map[domain.Kind]KindSpec{
	domain.KindExit: {
		Kind:     domain.KindExit,
		Desired:  orderMissions(ExitMissionID),
		SyncPath: "/inspections/sync?kind=exit",
	},
	domain.KindCleaning: {
		Kind:         domain.KindCleaning,
		Desired:      orderMissions(CleaningMissionID),
		SyncPath:     "/inspections/sync?kind=cleaning",
		PruneOrphans: true,
	},
	domain.KindMonthly: {
		Kind:     domain.KindMonthly,
		Desired:  monthlyMissions,
		SyncPath: "/inspections/sync?kind=monthly",
	},
}

// SpecFor returns the engine parameters for kind.
func SpecFor(kind domain.Kind) (KindSpec, error) {
	s, ok := specs[kind]
	if !ok {
		return KindSpec{}, fmt.Errorf("unknown mission kind %q", kind)
	}
	return s, nil
}

// MustSpec is SpecFor for kinds known at compile time.
func MustSpec(kind domain.Kind) KindSpec {
	s, err := SpecFor(kind)
	if err != nil {
		panic(err)
	}
	return s
}

func ExitMissionID(orderID string) string     { return "INSP-" + orderID }
func CleaningMissionID(orderID string) string { return "CLEAN-" + orderID }

// MonthlyMissionID keys a unit's inspection for the month containing month.
func MonthlyMissionID(unitID string, month time.Time) string {
	return fmt.Sprintf("MONTHLY-%s-%s", unitID, month.Format("2006-01"))
}

func orderMissions(idFor func(string) string) func(Source) []domain.Mission {
	return func(src Source) []domain.Mission {
		var out []domain.Mission
		for _, o := range src.Orders {
			id := strings.TrimSpace(o.ID)
			if id == "" || !o.Active() {
				continue
			}
			out = append(out, domain.Mission{
				ID:            idFor(id),
				OrderID:       id,
				UnitID:        o.UnitNumber,
				GuestName:     o.GuestName,
				ReferenceDate: departureDay(o.DepartureDate),
			})
		}
		return out
	}
}

func departureDay(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > len(dateLayout) && isTimestamp(s) {
		return s[:len(dateLayout)]
	}
	return s
}

func monthlyMissions(src Source) []domain.Mission {
	y, m, _ := src.Today.Date()
	loc := src.Today.Location()
	months := []time.Time{
		time.Date(y, m, 1, 0, 0, 0, 0, loc),
		time.Date(y, m+1, 1, 0, 0, 0, 0, loc),
	}
	var out []domain.Mission
	for _, u := range src.Units {
		if strings.TrimSpace(u.ID) == "" {
			continue
		}
		for _, month := range months {
			out = append(out, domain.Mission{
				ID:            MonthlyMissionID(u.ID, month),
				UnitID:        u.ID,
				ReferenceDate: MonthKey(month),
			})
		}
	}
	return out
}
