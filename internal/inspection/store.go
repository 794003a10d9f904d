package inspection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"inspectline/internal/domain"
)

// Gateway is the persistence backend for missions.
type Gateway interface {
	ListMissions(ctx context.Context, kind domain.Kind) ([]domain.Mission, error)
	SyncMissions(ctx context.Context, kind domain.Kind) (domain.SyncResult, error)
	SaveMission(ctx context.Context, m domain.Mission) (domain.SaveResult, error)
}

// Directory serves the externally owned orders and units.
type Directory interface {
	ListOrders(ctx context.Context) ([]domain.Order, error)
	ListUnits(ctx context.Context) ([]domain.Unit, error)
}

type LoadState int

const (
	Unloaded LoadState = iota
	LoadedFromBackend
	DerivedLocally
)

func (s LoadState) String() string {
	switch s {
	case LoadedFromBackend:
		return "loaded"
	case DerivedLocally:
		return "derived"
	default:
		return "unloaded"
	}
}

// LoadReport describes what one Load did.
type LoadReport struct {
	State LoadState
	// Sync is the gateway's sync answer; SyncErr is set instead when it failed.
	Sync    domain.SyncResult
	SyncErr error
	// Created and Pruned count local synchronizer changes.
	Created int
	Pruned  int
	// Discarded lists missions whose unsaved toggles the reload dropped.
	Discarded []string
}

// SaveCondition classifies a save response.
type SaveCondition string

const (
	SaveComplete   SaveCondition = "complete"
	SaveFailed     SaveCondition = "failed"
	SaveIncomplete SaveCondition = "incomplete"
	SaveMismatch   SaveCondition = "mismatch"
)

type SaveOutcome struct {
	MissionID     string
	Condition     SaveCondition
	Result        domain.SaveResult
	SentCompleted int
	Reload        LoadReport
	ReloadErr     error
}

// Store holds the missions of one kind for a single consumer. Toggles stay
// local until Save; every load and save replaces local state with backend
// truth.
type Store struct {
	spec     KindSpec
	sync     Synchronizer
	rec      Reconciler
	gw       Gateway
	dir      Directory
	resolver Resolver
	log      zerolog.Logger

	mu       sync.Mutex
	state    LoadState
	missions []domain.Mission
	dirty    map[string]bool
}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithResolver(r Resolver) Option {
	return func(s *Store) { s.resolver = r }
}

func WithReconciler(r Reconciler) Option {
	return func(s *Store) { s.rec = r }
}

func NewStore(kind domain.Kind, gw Gateway, dir Directory, opts ...Option) (*Store, error) {
	spec, err := SpecFor(kind)
	if err != nil {
		return nil, err
	}
	if gw == nil || dir == nil {
		return nil, errors.New("store needs a gateway and a directory")
	}
	s := &Store{
		spec:  spec,
		sync:  Synchronizer{Spec: spec},
		rec:   DefaultReconciler(),
		gw:    gw,
		dir:   dir,
		log:   zerolog.Nop(),
		dirty: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("kind", string(kind)).Logger()
	return s, nil
}

func (s *Store) Kind() domain.Kind { return s.spec.Kind }

func (s *Store) State() LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load refreshes the mission set. Orders and units are read first, then the
// gateway is asked to sync and list. Local derivation only happens when the
// list call failed and nothing was ever loaded from the gateway.
func (s *Store) Load(ctx context.Context) (LoadReport, error) {
	orders, err := s.dir.ListOrders(ctx)
	if err != nil {
		return s.report(), wrapNetwork("list orders", err)
	}
	units, err := s.dir.ListUnits(ctx)
	if err != nil {
		return s.report(), wrapNetwork("list units", err)
	}
	src := Source{Orders: orders, Units: units, Today: s.resolver.Today()}

	var rep LoadReport
	if res, err := s.gw.SyncMissions(ctx, s.spec.Kind); err != nil {
		rep.SyncErr = err
		s.log.Warn().Err(err).Msg("gateway sync failed")
	} else {
		rep.Sync = res
	}

	listed, listErr := s.gw.ListMissions(ctx, s.spec.Kind)

	s.mu.Lock()
	defer s.mu.Unlock()

	if listErr != nil {
		rep.State = s.state
		if s.state == LoadedFromBackend {
			s.log.Warn().Err(listErr).Msg("list missions failed, keeping loaded state")
			return rep, wrapNetwork("list missions", listErr)
		}
		missions, plan := s.sync.Apply(s.missions, src)
		s.missions = missions
		s.state = DerivedLocally
		rep.State = DerivedLocally
		rep.Created = len(plan.Create)
		rep.Pruned = len(plan.Prune)
		s.log.Warn().Err(listErr).Int("missions", len(missions)).Msg("list missions failed, derived locally")
		return rep, wrapNetwork("list missions", listErr)
	}

	template := s.spec.Template()
	reconciled := make([]domain.Mission, 0, len(listed))
	for _, m := range listed {
		if m.Kind != "" && m.Kind != s.spec.Kind {
			continue
		}
		m = m.Clone()
		m.Kind = s.spec.Kind
		m.Tasks = s.rec.Reconcile(template, m.Tasks)
		reconciled = append(reconciled, m)
	}
	missions, plan := s.sync.Apply(reconciled, src)
	rep.Created = len(plan.Create)
	rep.Pruned = len(plan.Prune)
	rep.Discarded = s.takeDirty()
	if len(rep.Discarded) > 0 {
		s.log.Warn().Strs("missions", rep.Discarded).Msg("reload discarded unsaved changes")
	}
	s.missions = missions
	s.state = LoadedFromBackend
	rep.State = LoadedFromBackend
	s.log.Debug().Int("missions", len(missions)).Int("created", rep.Created).Msg("missions loaded")
	return rep, nil
}

func (s *Store) report() LoadReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LoadReport{State: s.state}
}

// takeDirty must be called with mu held.
func (s *Store) takeDirty() []string {
	if len(s.dirty) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		out = append(out, id)
	}
	sort.Strings(out)
	s.dirty = make(map[string]bool)
	return out
}

// Missions returns copies of all missions with their status recomputed.
func (s *Store) Missions() []domain.Mission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Mission, len(s.missions))
	for i, m := range s.missions {
		out[i] = s.resolver.Apply(m.Clone())
	}
	return out
}

func (s *Store) Mission(id string) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Mission{}, fmt.Errorf("mission %s: %w", id, ErrNotFound)
	}
	return s.resolver.Apply(s.missions[i].Clone()), nil
}

// Dirty lists missions with unsaved toggles.
func (s *Store) Dirty() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Toggle flips one task locally. Nothing is sent until Save.
func (s *Store) Toggle(missionID, taskID string) (domain.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(missionID)
	if i < 0 {
		return domain.Mission{}, fmt.Errorf("mission %s: %w", missionID, ErrNotFound)
	}
	m := s.missions[i].Clone()
	found := false
	for j := range m.Tasks {
		if m.Tasks[j].ID == taskID {
			m.Tasks[j].Completed = !m.Tasks[j].Completed
			found = true
			break
		}
	}
	if !found {
		return domain.Mission{}, fmt.Errorf("task %s in mission %s: %w", taskID, missionID, ErrNotFound)
	}
	m = s.resolver.Apply(m)
	s.missions[i] = m
	s.dirty[missionID] = true
	return m.Clone(), nil
}

// Save pushes the full mission to the gateway and reloads everything. The
// returned tasks are applied only when every task was persisted. A request
// failure leaves local state untouched.
func (s *Store) Save(ctx context.Context, missionID string) (SaveOutcome, error) {
	m, err := s.Mission(missionID)
	if err != nil {
		return SaveOutcome{}, err
	}
	template := s.spec.Template()
	m.Tasks = s.rec.Canonicalize(template, m.Tasks)
	out := SaveOutcome{MissionID: missionID, SentCompleted: m.CompletedCount()}

	res, err := s.gw.SaveMission(ctx, m)
	if err != nil {
		s.log.Warn().Err(err).Str("mission", missionID).Msg("save failed")
		return out, wrapNetwork("save mission", err)
	}
	out.Result = res

	// Only a fully persisted save may replace local tasks. Otherwise the
	// mission stays dirty until a reload brings the gateway's state.
	fullySaved := res.FailedTasksCount == 0 && res.TotalTasksCount > 0 && res.SavedTasksCount == res.TotalTasksCount
	if fullySaved {
		s.mu.Lock()
		if i := s.indexOf(missionID); i >= 0 && len(res.Tasks) > 0 {
			s.missions[i].Tasks = s.rec.Reconcile(template, res.Tasks)
			s.missions[i] = s.resolver.Apply(s.missions[i])
		}
		delete(s.dirty, missionID)
		s.mu.Unlock()
	}

	switch {
	case res.FailedTasksCount > 0:
		out.Condition = SaveFailed
	case res.SavedTasksCount < res.TotalTasksCount:
		out.Condition = SaveIncomplete
	case res.CompletedTasksCount != out.SentCompleted:
		out.Condition = SaveMismatch
	default:
		out.Condition = SaveComplete
	}

	out.Reload, out.ReloadErr = s.Load(ctx)
	if out.ReloadErr != nil {
		s.log.Warn().Err(out.ReloadErr).Str("mission", missionID).Msg("reload after save failed")
	}

	ev := s.log.Info()
	if out.Condition != SaveComplete {
		ev = s.log.Warn()
	}
	ev.Str("mission", missionID).
		Str("condition", string(out.Condition)).
		Int("saved", res.SavedTasksCount).
		Int("total", res.TotalTasksCount).
		Int("failed", res.FailedTasksCount).
		Int("completed", res.CompletedTasksCount).
		Int("sent_completed", out.SentCompleted).
		Msg("mission saved")

	switch out.Condition {
	case SaveFailed:
		return out, &PartialPersistenceError{MissionID: missionID, Reason: ReasonFailed,
			Saved: res.SavedTasksCount, Total: res.TotalTasksCount, Failed: res.FailedTasksCount}
	case SaveIncomplete:
		return out, &PartialPersistenceError{MissionID: missionID, Reason: ReasonIncomplete,
			Saved: res.SavedTasksCount, Total: res.TotalTasksCount, Failed: res.FailedTasksCount}
	}
	return out, nil
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id string) int {
	for i, m := range s.missions {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func wrapNetwork(op string, err error) error {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return err
	}
	return &NetworkError{Op: op, Err: err}
}
