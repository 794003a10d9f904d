package inspection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"inspectline/internal/domain"
)

var storeNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func testResolver() Resolver {
	return Resolver{Now: func() time.Time { return storeNow }, Location: time.UTC}
}

type staticDirectory struct {
	orders []domain.Order
	units  []domain.Unit
	err    error
}

func (d staticDirectory) ListOrders(context.Context) ([]domain.Order, error) {
	return d.orders, d.err
}

func (d staticDirectory) ListUnits(context.Context) ([]domain.Unit, error) {
	return d.units, d.err
}

// memBackend behaves like the server: upserts each task, refuses the ids in
// refuse, and removes orphan rows only when every task saved.
type memBackend struct {
	mu       sync.Mutex
	dir      staticDirectory
	missions []domain.Mission
	refuse   map[string]bool
}

func (b *memBackend) ListMissions(_ context.Context, kind domain.Kind) ([]domain.Mission, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Mission
	for _, m := range b.missions {
		if m.Kind == kind {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

func (b *memBackend) SyncMissions(_ context.Context, kind domain.Kind) (domain.SyncResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, err := NewSynchronizer(kind)
	if err != nil {
		return domain.SyncResult{}, err
	}
	var res domain.SyncResult
	b.missions, _ = s.Apply(b.missions, Source{Orders: b.dir.orders, Units: b.dir.units, Today: storeNow})
	for _, m := range b.missions {
		if m.Kind == kind {
			res.Total++
		}
	}
	return res, nil
}

func (b *memBackend) SaveMission(_ context.Context, m domain.Mission) (domain.SaveResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := -1
	for i := range b.missions {
		if b.missions[i].ID == m.ID {
			idx = i
		}
	}
	if idx < 0 {
		b.missions = append(b.missions, domain.Mission{ID: m.ID, Kind: m.Kind, OrderID: m.OrderID, UnitID: m.UnitID, ReferenceDate: m.ReferenceDate})
		idx = len(b.missions) - 1
	}
	stored := b.missions[idx].Tasks
	var saved []domain.Task
	failed := 0
	for _, t := range m.Tasks {
		if b.refuse[t.ID] {
			failed++
			continue
		}
		saved = append(saved, t)
		replaced := false
		for i := range stored {
			if stored[i].ID == t.ID {
				stored[i] = t
				replaced = true
			}
		}
		if !replaced {
			stored = append(stored, t)
		}
	}
	if failed == 0 {
		stored = domain.CloneTasks(saved)
	}
	b.missions[idx].Tasks = stored
	return domain.SaveResult{
		Mission:             domain.Mission{ID: m.ID, Kind: m.Kind, Tasks: domain.CloneTasks(saved)},
		SavedTasksCount:     len(saved),
		TotalTasksCount:     len(m.Tasks),
		FailedTasksCount:    failed,
		CompletedTasksCount: domain.CountCompleted(saved),
	}, nil
}

func exitFixture() (*memBackend, staticDirectory) {
	dir := staticDirectory{
		orders: []domain.Order{{ID: "1001", UnitNumber: "4", GuestName: "Dana", DepartureDate: "2025-06-01", Status: domain.OrderStatusNew}},
		units:  []domain.Unit{{ID: "4", Name: "וילה 4"}},
	}
	return &memBackend{dir: dir, refuse: map[string]bool{}}, dir
}

func toggleAll(t *testing.T, s *Store, missionID string) {
	t.Helper()
	m, err := s.Mission(missionID)
	require.NoError(t, err)
	for _, task := range m.Tasks {
		if !task.Completed {
			_, err := s.Toggle(missionID, task.ID)
			require.NoError(t, err)
		}
	}
}

func TestExitMissionEndToEnd(t *testing.T) {
	ctx := context.Background()
	backend, dir := exitFixture()
	store, err := NewStore(domain.KindExit, backend, dir, WithResolver(testResolver()))
	require.NoError(t, err)

	rep, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, LoadedFromBackend, rep.State)
	assert.Equal(t, 1, rep.Sync.Total)

	m, err := store.Mission("INSP-1001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDueToday, m.Status)
	require.Len(t, m.Tasks, 8)

	toggleAll(t, store, "INSP-1001")
	m, _ = store.Mission("INSP-1001")
	assert.Equal(t, domain.StatusCompleted, m.Status)
	assert.Equal(t, []string{"INSP-1001"}, store.Dirty())

	out, err := store.Save(ctx, "INSP-1001")
	require.NoError(t, err)
	assert.Equal(t, SaveComplete, out.Condition)
	assert.Equal(t, 8, out.Result.SavedTasksCount)
	assert.Equal(t, 8, out.Result.CompletedTasksCount)
	assert.NoError(t, out.ReloadErr)
	assert.Empty(t, out.Reload.Discarded)
	assert.Empty(t, store.Dirty())

	m, _ = store.Mission("INSP-1001")
	assert.Equal(t, domain.StatusCompleted, m.Status)
	assert.Equal(t, 8, m.CompletedCount())
}

func TestPartialSaveReloadsPersistedState(t *testing.T) {
	ctx := context.Background()
	backend, dir := exitFixture()
	backend.refuse = map[string]bool{"7": true, "8": true}
	store, err := NewStore(domain.KindExit, backend, dir, WithResolver(testResolver()))
	require.NoError(t, err)
	_, err = store.Load(ctx)
	require.NoError(t, err)

	toggleAll(t, store, "INSP-1001")
	out, err := store.Save(ctx, "INSP-1001")
	require.Error(t, err)

	var partial *PartialPersistenceError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, ReasonFailed, partial.Reason)
	assert.Equal(t, 6, partial.Saved)
	assert.Equal(t, 8, partial.Total)
	assert.Equal(t, 2, partial.Failed)
	assert.Equal(t, SaveFailed, out.Condition)
	assert.False(t, IsNetwork(err))

	m, _ := store.Mission("INSP-1001")
	require.Len(t, m.Tasks, 8)
	assert.Equal(t, 6, m.CompletedCount())
	assert.False(t, m.Tasks[6].Completed)
	assert.False(t, m.Tasks[7].Completed)
	assert.NotEqual(t, domain.StatusCompleted, m.Status)

	// retrying after the backend recovers completes the mission
	backend.refuse = nil
	toggleAll(t, store, "INSP-1001")
	_, err = store.Save(ctx, "INSP-1001")
	require.NoError(t, err)
	m, _ = store.Mission("INSP-1001")
	assert.Equal(t, domain.StatusCompleted, m.Status)
}

func TestReloadReportsDiscardedToggles(t *testing.T) {
	ctx := context.Background()
	backend, dir := exitFixture()
	store, err := NewStore(domain.KindExit, backend, dir, WithResolver(testResolver()))
	require.NoError(t, err)
	_, err = store.Load(ctx)
	require.NoError(t, err)

	_, err = store.Toggle("INSP-1001", "1")
	require.NoError(t, err)

	rep, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"INSP-1001"}, rep.Discarded)
	m, _ := store.Mission("INSP-1001")
	assert.Equal(t, 0, m.CompletedCount())
}

func TestToggleUnknown(t *testing.T) {
	backend, dir := exitFixture()
	store, err := NewStore(domain.KindExit, backend, dir, WithResolver(testResolver()))
	require.NoError(t, err)
	_, err = store.Load(context.Background())
	require.NoError(t, err)

	_, err = store.Toggle("INSP-404", "1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Toggle("INSP-1001", "404")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Save(context.Background(), "INSP-404")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.Dirty())
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) ListMissions(ctx context.Context, kind domain.Kind) ([]domain.Mission, error) {
	args := m.Called(ctx, kind)
	missions, _ := args.Get(0).([]domain.Mission)
	return missions, args.Error(1)
}

func (m *mockGateway) SyncMissions(ctx context.Context, kind domain.Kind) (domain.SyncResult, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(domain.SyncResult), args.Error(1)
}

func (m *mockGateway) SaveMission(ctx context.Context, mission domain.Mission) (domain.SaveResult, error) {
	args := m.Called(ctx, mission)
	return args.Get(0).(domain.SaveResult), args.Error(1)
}

func persistedExit(completed ...string) domain.Mission {
	tasks := Template(domain.KindExit)
	for i := range tasks {
		for _, id := range completed {
			if tasks[i].ID == id {
				tasks[i].Completed = true
			}
		}
	}
	return domain.Mission{ID: "INSP-1001", Kind: domain.KindExit, OrderID: "1001", UnitID: "4", ReferenceDate: "2025-06-01", Tasks: tasks}
}

func TestListFailureDerivesOnlyBeforeFirstLoad(t *testing.T) {
	ctx := context.Background()
	_, dir := exitFixture()
	gw := &mockGateway{}
	down := errors.New("connection refused")

	gw.On("SyncMissions", mock.Anything, domain.KindExit).Return(domain.SyncResult{}, down)
	gw.On("ListMissions", mock.Anything, domain.KindExit).Return(nil, down).Once()

	store, err := NewStore(domain.KindExit, gw, dir, WithResolver(testResolver()))
	require.NoError(t, err)

	rep, err := store.Load(ctx)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, DerivedLocally, rep.State)
	assert.Equal(t, 1, rep.Created)
	assert.Error(t, rep.SyncErr)
	require.Len(t, store.Missions(), 1)

	gw.On("ListMissions", mock.Anything, domain.KindExit).Return([]domain.Mission{persistedExit("1", "2")}, nil).Once()
	rep, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, LoadedFromBackend, rep.State)
	m, _ := store.Mission("INSP-1001")
	assert.Equal(t, 2, m.CompletedCount())

	gw.On("ListMissions", mock.Anything, domain.KindExit).Return(nil, down).Once()
	rep, err = store.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, LoadedFromBackend, rep.State)
	assert.Equal(t, LoadedFromBackend, store.State())
	m, _ = store.Mission("INSP-1001")
	assert.Equal(t, 2, m.CompletedCount(), "loaded missions must survive a failed refresh")

	gw.AssertExpectations(t)
}

func TestDirectoryFailureLeavesStateUntouched(t *testing.T) {
	gw := &mockGateway{}
	store, err := NewStore(domain.KindExit, gw, staticDirectory{err: errors.New("timeout")})
	require.NoError(t, err)

	rep, err := store.Load(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, Unloaded, rep.State)
	assert.Empty(t, store.Missions())
	gw.AssertNotCalled(t, "ListMissions", mock.Anything, mock.Anything)
}

func TestSaveConditions(t *testing.T) {
	cases := []struct {
		name      string
		result    domain.SaveResult
		condition SaveCondition
		reason    PartialReason
	}{
		{"incomplete", domain.SaveResult{SavedTasksCount: 5, TotalTasksCount: 8, CompletedTasksCount: 1}, SaveIncomplete, ReasonIncomplete},
		{"mismatch", domain.SaveResult{SavedTasksCount: 8, TotalTasksCount: 8, CompletedTasksCount: 0}, SaveMismatch, ""},
		{"complete", domain.SaveResult{SavedTasksCount: 8, TotalTasksCount: 8, CompletedTasksCount: 1}, SaveComplete, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			_, dir := exitFixture()
			gw := &mockGateway{}
			gw.On("SyncMissions", mock.Anything, domain.KindExit).Return(domain.SyncResult{Total: 1}, nil)
			gw.On("ListMissions", mock.Anything, domain.KindExit).Return([]domain.Mission{persistedExit()}, nil)
			gw.On("SaveMission", mock.Anything, mock.MatchedBy(func(m domain.Mission) bool {
				return m.ID == "INSP-1001" && len(m.Tasks) == 8 && m.CompletedCount() == 1
			})).Return(tc.result, nil).Once()

			store, err := NewStore(domain.KindExit, gw, dir, WithResolver(testResolver()))
			require.NoError(t, err)
			_, err = store.Load(ctx)
			require.NoError(t, err)
			_, err = store.Toggle("INSP-1001", "3")
			require.NoError(t, err)

			out, err := store.Save(ctx, "INSP-1001")
			assert.Equal(t, tc.condition, out.Condition)
			assert.Equal(t, 1, out.SentCompleted)
			if tc.reason == "" {
				assert.NoError(t, err)
			} else {
				var partial *PartialPersistenceError
				require.ErrorAs(t, err, &partial)
				assert.Equal(t, tc.reason, partial.Reason)
			}
			gw.AssertExpectations(t)
		})
	}
}

func TestSaveRequestFailureKeepsLocalState(t *testing.T) {
	ctx := context.Background()
	_, dir := exitFixture()
	gw := &mockGateway{}
	gw.On("SyncMissions", mock.Anything, domain.KindExit).Return(domain.SyncResult{}, nil)
	gw.On("ListMissions", mock.Anything, domain.KindExit).Return([]domain.Mission{persistedExit()}, nil).Once()
	gw.On("SaveMission", mock.Anything, mock.Anything).Return(domain.SaveResult{}, errors.New("502 bad gateway"))

	store, err := NewStore(domain.KindExit, gw, dir, WithResolver(testResolver()))
	require.NoError(t, err)
	_, err = store.Load(ctx)
	require.NoError(t, err)
	_, err = store.Toggle("INSP-1001", "1")
	require.NoError(t, err)

	_, err = store.Save(ctx, "INSP-1001")
	require.Error(t, err)
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "save mission", netErr.Op)
	assert.False(t, IsPartial(err))

	m, _ := store.Mission("INSP-1001")
	assert.True(t, m.Tasks[0].Completed)
	assert.Equal(t, []string{"INSP-1001"}, store.Dirty())
	gw.AssertNumberOfCalls(t, "ListMissions", 1)
}

func TestFailedSaveAndFailedReloadKeepMissionDirty(t *testing.T) {
	ctx := context.Background()
	_, dir := exitFixture()
	gw := &mockGateway{}
	gw.On("SyncMissions", mock.Anything, domain.KindExit).Return(domain.SyncResult{}, nil)
	gw.On("ListMissions", mock.Anything, domain.KindExit).Return([]domain.Mission{persistedExit()}, nil).Once()

	store, err := NewStore(domain.KindExit, gw, dir, WithResolver(testResolver()))
	require.NoError(t, err)
	_, err = store.Load(ctx)
	require.NoError(t, err)
	toggleAll(t, store, "INSP-1001")

	// every task failed; the gateway echoes the unsaved payload
	echo := persistedExit("1", "2", "3", "4", "5", "6", "7", "8")
	gw.On("SaveMission", mock.Anything, mock.Anything).Return(domain.SaveResult{
		Mission: echo, TotalTasksCount: 8, FailedTasksCount: 8, CompletedTasksCount: 8,
	}, nil).Once()
	gw.On("ListMissions", mock.Anything, domain.KindExit).Return(nil, errors.New("connection reset")).Once()

	out, err := store.Save(ctx, "INSP-1001")
	var partial *PartialPersistenceError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 0, partial.Saved)
	assert.Error(t, out.ReloadErr)
	assert.Equal(t, []string{"INSP-1001"}, store.Dirty(), "unsaved changes must stay visible")

	gw.On("ListMissions", mock.Anything, domain.KindExit).Return([]domain.Mission{persistedExit()}, nil).Once()
	rep, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"INSP-1001"}, rep.Discarded)
	m, _ := store.Mission("INSP-1001")
	assert.Equal(t, 0, m.CompletedCount())
	assert.Equal(t, domain.StatusDueToday, m.Status)
	assert.Empty(t, store.Dirty())
	gw.AssertExpectations(t)
}

func TestPartialEchoNeverReplacesLocalTasks(t *testing.T) {
	ctx := context.Background()
	backend, dir := exitFixture()
	backend.refuse = map[string]bool{"8": true}
	store, err := NewStore(domain.KindExit, backend, dir, WithResolver(testResolver()))
	require.NoError(t, err)
	_, err = store.Load(ctx)
	require.NoError(t, err)

	toggleAll(t, store, "INSP-1001")
	out, err := store.Save(ctx, "INSP-1001")
	require.True(t, IsPartial(err))
	require.NoError(t, out.ReloadErr)
	assert.Equal(t, []string{"INSP-1001"}, out.Reload.Discarded)

	m, _ := store.Mission("INSP-1001")
	assert.Equal(t, 7, m.CompletedCount())
	assert.False(t, m.Tasks[7].Completed)
}

func TestLoadReconcilesPersistedTasks(t *testing.T) {
	ctx := context.Background()
	_, dir := exitFixture()
	legacy := domain.Mission{
		ID: "INSP-1001", Kind: domain.KindExit, OrderID: "1001", ReferenceDate: "2025-06-01",
		Tasks: []domain.Task{
			{ID: "99", Name: "ניקיון חדרים", Completed: true},
			{ID: "old", Name: "removed task", Completed: true},
		},
	}
	gw := &mockGateway{}
	gw.On("SyncMissions", mock.Anything, domain.KindExit).Return(domain.SyncResult{}, nil)
	gw.On("ListMissions", mock.Anything, domain.KindExit).Return([]domain.Mission{legacy}, nil)

	store, err := NewStore(domain.KindExit, gw, dir, WithResolver(testResolver()))
	require.NoError(t, err)
	rep, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Created)

	missions := store.Missions()
	require.Len(t, missions, 1)
	require.Len(t, missions[0].Tasks, 8)
	assert.True(t, missions[0].Tasks[2].Completed)
	assert.Equal(t, 1, missions[0].CompletedCount())
}
