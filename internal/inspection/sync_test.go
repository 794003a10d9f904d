package inspection

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inspectline/internal/domain"
)

var syncToday = time.Date(2025, 12, 15, 9, 0, 0, 0, time.UTC)

func testOrders() []domain.Order {
	return []domain.Order{
		{ID: "1001", UnitNumber: "1", GuestName: "Dana", DepartureDate: "2025-12-15", Status: domain.OrderStatusNew},
		{ID: "1002", UnitNumber: "2", GuestName: "Avi", DepartureDate: "2025-12-20T11:00:00", Status: domain.OrderStatusNew},
		{ID: "1003", UnitNumber: "3", GuestName: "Noa", DepartureDate: "2025-12-10", Status: domain.OrderStatusCancelled},
	}
}

func TestExitPlanCreatesForActiveOrders(t *testing.T) {
	s, err := NewSynchronizer(domain.KindExit)
	require.NoError(t, err)

	plan := s.Plan(nil, Source{Orders: testOrders(), Today: syncToday})
	require.Len(t, plan.Create, 2)
	assert.Empty(t, plan.Prune)

	first := plan.Create[0]
	assert.Equal(t, "INSP-1001", first.ID)
	assert.Equal(t, "1001", first.OrderID)
	assert.Equal(t, "1", first.UnitID)
	assert.Equal(t, domain.KindExit, first.Kind)
	assert.Equal(t, domain.StatusDueToday, first.Status)
	assert.Len(t, first.Tasks, 8)

	assert.Equal(t, "2025-12-20", plan.Create[1].ReferenceDate)
	assert.Equal(t, domain.StatusNotDueYet, plan.Create[1].Status)
}

func TestApplyIsIdempotent(t *testing.T) {
	src := Source{Orders: testOrders(), Units: []domain.Unit{{ID: "1"}, {ID: "2"}}, Today: syncToday}
	for _, kind := range domain.Kinds {
		s, err := NewSynchronizer(kind)
		require.NoError(t, err)

		once, plan := s.Apply(nil, src)
		require.False(t, plan.Empty(), kind)
		twice, plan := s.Apply(once, src)
		assert.True(t, plan.Empty(), kind)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("%s: second run changed missions (-once +twice):\n%s", kind, diff)
		}
	}
}

func TestApplyNeverOverwritesExisting(t *testing.T) {
	s, _ := NewSynchronizer(domain.KindExit)
	tasks := Template(domain.KindExit)
	tasks[0].Completed = true
	existing := []domain.Mission{{
		ID:            "legacy-id",
		Kind:          domain.KindExit,
		OrderID:       "1001",
		ReferenceDate: "2025-12-15",
		Tasks:         tasks,
	}}

	got, plan := s.Apply(existing, Source{Orders: testOrders()[:1], Today: syncToday})
	assert.True(t, plan.Empty(), "matching order id means the mission exists")
	require.Len(t, got, 1)
	assert.True(t, got[0].Tasks[0].Completed)
	assert.Equal(t, "legacy-id", got[0].ID)
}

func TestPrunePolicyPerKind(t *testing.T) {
	orphan := func(kind domain.Kind, id string) domain.Mission {
		return domain.Mission{ID: id, Kind: kind, OrderID: "1003", ReferenceDate: "2025-12-10"}
	}
	src := Source{Orders: testOrders(), Today: syncToday}

	cleaning, _ := NewSynchronizer(domain.KindCleaning)
	plan := cleaning.Plan([]domain.Mission{orphan(domain.KindCleaning, "CLEAN-1003")}, src)
	assert.Equal(t, []string{"CLEAN-1003"}, plan.Prune)

	exit, _ := NewSynchronizer(domain.KindExit)
	plan = exit.Plan([]domain.Mission{orphan(domain.KindExit, "INSP-1003")}, src)
	assert.Empty(t, plan.Prune)
}

func TestMonthlyCoversCurrentAndNextMonth(t *testing.T) {
	s, _ := NewSynchronizer(domain.KindMonthly)
	units := []domain.Unit{{ID: "1", Name: "וילה 1"}, {ID: "2", Name: "וילה 2"}}

	plan := s.Plan(nil, Source{Units: units, Today: syncToday})
	var ids, refs []string
	for _, m := range plan.Create {
		ids = append(ids, m.ID)
		refs = append(refs, m.ReferenceDate)
		assert.Len(t, m.Tasks, 20)
		assert.Empty(t, m.OrderID)
	}
	assert.Equal(t, []string{"MONTHLY-1-2025-12", "MONTHLY-1-2026-01", "MONTHLY-2-2025-12", "MONTHLY-2-2026-01"}, ids)
	assert.Equal(t, []string{"2025-12-01", "2026-01-01", "2025-12-01", "2026-01-01"}, refs)

	// last month's mission stays, nothing is pruned
	old := domain.Mission{ID: "MONTHLY-1-2025-11", Kind: domain.KindMonthly, UnitID: "1", ReferenceDate: "2025-11-01"}
	got, plan := s.Apply(append([]domain.Mission{old}, plan.Create...), Source{Units: units, Today: syncToday})
	assert.True(t, plan.Empty())
	assert.Len(t, got, 5)
}

func TestSpecForUnknownKind(t *testing.T) {
	_, err := SpecFor("weekly")
	assert.Error(t, err)
}
