package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inspectline/internal/config"
	"inspectline/internal/domain"
	"inspectline/internal/events"
	"inspectline/internal/inspection"
	"inspectline/internal/repo"
)

// ErrInvalid marks requests the engine refuses to process.
var ErrInvalid = errors.New("invalid request")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
	Log    zerolog.Logger
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{Now: time.Now},
		Config: cfg,
		Now:    time.Now,
		Log:    zerolog.Nop(),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) events() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

// Resolver computes statuses in the site time zone with the engine clock.
func (e Engine) Resolver() inspection.Resolver {
	return inspection.Resolver{Now: e.now, Location: e.Config.Location()}
}

// Units returns the configured unit catalog.
func (e Engine) Units() []domain.Unit {
	return e.Config.UnitList()
}

func (e Engine) ListOrders(ctx context.Context) ([]domain.Order, error) {
	orders, err := e.Repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// UpsertOrder creates or replaces an order. Missions follow on the next sync.
func (e Engine) UpsertOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	o.ID = strings.TrimSpace(o.ID)
	if o.ID == "" {
		return domain.Order{}, invalidf("order id is required")
	}
	if strings.TrimSpace(o.Status) == "" {
		o.Status = domain.OrderStatusNew
	}
	if o.DepartureDate != "" {
		if _, ok := inspection.ParseReferenceDate(o.DepartureDate, time.UTC); !ok {
			return domain.Order{}, invalidf("order %s has invalid departure date %q", o.ID, o.DepartureDate)
		}
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Order{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertOrderTx(ctx, tx, o, e.stamp()); err != nil {
		return domain.Order{}, fmt.Errorf("upsert order: %w", err)
	}
	if err := e.events().Append(ctx, tx, events.OrderUpserted, "order", o.ID, events.EventPayload{
		"status": o.Status, "departure_date": o.DepartureDate, "unit_number": o.UnitNumber,
	}); err != nil {
		return domain.Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (e Engine) DeleteOrder(ctx context.Context, id string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteOrderTx(ctx, tx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("order %s: %w", id, err)
		}
		return err
	}
	if err := e.events().Append(ctx, tx, events.OrderDeleted, "order", id, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// ListMissions returns persisted missions of kind with freshly derived status.
func (e Engine) ListMissions(ctx context.Context, kind domain.Kind) ([]domain.Mission, error) {
	if _, err := domain.ParseKind(string(kind)); err != nil {
		return nil, invalidf("%v", err)
	}
	missions, err := e.Repo.ListMissions(ctx, kind)
	if err != nil {
		return nil, err
	}
	r := e.Resolver()
	for i := range missions {
		missions[i] = e.present(missions[i], r)
	}
	if missions == nil {
		missions = []domain.Mission{}
	}
	return missions, nil
}

func (e Engine) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	m, err := e.Repo.GetMission(ctx, id)
	if err != nil {
		return domain.Mission{}, fmt.Errorf("mission %s: %w", id, err)
	}
	return e.present(m, e.Resolver()), nil
}

// SyncMissions creates missing missions of kind and prunes orphans where the
// kind allows it, in one transaction. Running it twice changes nothing.
func (e Engine) SyncMissions(ctx context.Context, kind domain.Kind) (domain.SyncResult, error) {
	s, err := inspection.NewSynchronizer(kind)
	if err != nil {
		return domain.SyncResult{}, invalidf("%v", err)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SyncResult{}, err
	}
	defer tx.Rollback()

	orders, err := e.Repo.ListOrdersTx(ctx, tx)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("list orders: %w", err)
	}
	existing, err := e.Repo.ListMissionsTx(ctx, tx, kind)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("list missions: %w", err)
	}
	plan := s.Plan(existing, inspection.Source{Orders: orders, Units: e.Units(), Today: e.Resolver().Today()})

	now := e.stamp()
	w := e.events()
	for _, m := range plan.Create {
		if err := e.Repo.UpsertMissionTx(ctx, tx, m, now); err != nil {
			return domain.SyncResult{}, fmt.Errorf("create mission %s: %w", m.ID, err)
		}
		for i, t := range m.Tasks {
			if err := e.Repo.UpsertTaskTx(ctx, tx, m.ID, t, i, now); err != nil {
				return domain.SyncResult{}, fmt.Errorf("create task %s/%s: %w", m.ID, t.ID, err)
			}
		}
		if err := w.Append(ctx, tx, events.InspectionCreated, string(kind), m.ID, events.EventPayload{
			"order_id": m.OrderID, "unit_id": m.UnitID, "reference_date": m.ReferenceDate,
		}); err != nil {
			return domain.SyncResult{}, err
		}
	}
	for _, id := range plan.Prune {
		if err := e.Repo.DeleteMissionTx(ctx, tx, id); err != nil {
			return domain.SyncResult{}, fmt.Errorf("prune mission %s: %w", id, err)
		}
		if err := w.Append(ctx, tx, events.InspectionPruned, string(kind), id, nil); err != nil {
			return domain.SyncResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.SyncResult{}, err
	}
	res := domain.SyncResult{
		Created: len(plan.Create),
		Pruned:  len(plan.Prune),
		Total:   len(existing) + len(plan.Create) - len(plan.Prune),
	}
	if !plan.Empty() {
		e.Log.Info().Str("kind", string(kind)).Int("created", res.Created).Int("pruned", res.Pruned).Msg("missions synced")
	}
	return res, nil
}

// SaveMission upserts the mission row and then every task in its own
// savepoint, so one bad task does not sink the rest. The payload is
// reconciled onto the kind's template first: unknown tasks are dropped,
// duplicates collapse, and template tasks the payload omits keep their stored
// state. Stored rows outside the template are removed only when every task
// saved.
func (e Engine) SaveMission(ctx context.Context, m domain.Mission) (domain.SaveResult, error) {
	kind, err := domain.ParseKind(string(m.Kind))
	if err != nil {
		return domain.SaveResult{}, invalidf("%v", err)
	}
	m.Kind = kind
	m.ID = strings.TrimSpace(m.ID)
	m.OrderID = strings.TrimSpace(m.OrderID)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SaveResult{}, err
	}
	defer tx.Rollback()

	if m.OrderID != "" {
		id, err := e.Repo.MissionIDByOrderTx(ctx, tx, kind, m.OrderID)
		switch {
		case err == nil:
			m.ID = id
		case !errors.Is(err, repo.ErrNotFound):
			return domain.SaveResult{}, err
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	prev, err := e.Repo.GetMissionTx(ctx, tx, m.ID)
	switch {
	case err == nil:
		if prev.Kind != kind {
			return domain.SaveResult{}, invalidf("mission %s is %s, not %s", m.ID, prev.Kind, kind)
		}
		m.OrderID = prev.OrderID
		if strings.TrimSpace(m.ReferenceDate) == "" {
			m.ReferenceDate = prev.ReferenceDate
		}
		if m.UnitID == "" {
			m.UnitID = prev.UnitID
		}
		if m.GuestName == "" {
			m.GuestName = prev.GuestName
		}
	case !errors.Is(err, repo.ErrNotFound):
		return domain.SaveResult{}, err
	}

	m.Tasks = reconcileSave(kind, prev.Tasks, m.Tasks)

	now := e.stamp()
	if err := e.Repo.UpsertMissionTx(ctx, tx, m, now); err != nil {
		return domain.SaveResult{}, fmt.Errorf("upsert mission: %w", err)
	}

	saved := make([]domain.Task, 0, len(m.Tasks))
	failed := 0
	for i, t := range m.Tasks {
		if err := e.saveTask(ctx, tx, m.ID, t, i, now); err != nil {
			failed++
			e.Log.Warn().Err(err).Str("mission", m.ID).Str("task", t.ID).Msg("task save failed")
			continue
		}
		saved = append(saved, t)
	}

	if len(saved) > 0 && len(saved) == len(m.Tasks) && failed == 0 {
		if err := e.pruneTasks(ctx, tx, m.ID, saved); err != nil {
			return domain.SaveResult{}, err
		}
	} else if failed > 0 {
		e.Log.Warn().Str("mission", m.ID).Int("saved", len(saved)).Int("total", len(m.Tasks)).Msg("skipping task cleanup")
	}

	returned := saved
	if len(saved) == 0 {
		returned = domain.CloneTasks(m.Tasks)
	}
	completed := domain.CountCompleted(returned)
	if err := e.events().Append(ctx, tx, events.InspectionSaved, string(kind), m.ID, events.EventPayload{
		"saved": len(saved), "total": len(m.Tasks), "failed": failed, "completed": completed,
	}); err != nil {
		return domain.SaveResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SaveResult{}, err
	}

	echo := m
	echo.Tasks = returned
	echo = e.Resolver().Apply(echo)
	return domain.SaveResult{
		Mission:             echo,
		SavedTasksCount:     len(saved),
		TotalTasksCount:     len(m.Tasks),
		FailedTasksCount:    failed,
		CompletedTasksCount: completed,
	}, nil
}

// reconcileSave maps a save payload onto the template of kind. Payload
// entries win over stored ones; later payload duplicates win over earlier.
func reconcileSave(kind domain.Kind, stored, payload []domain.Task) []domain.Task {
	template := inspection.Template(kind)
	rec := inspection.DefaultReconciler()
	merged := append(domain.CloneTasks(stored), rec.Canonicalize(template, payload)...)
	return rec.Reconcile(template, merged)
}

// present reconciles stored tasks onto the template and derives the status.
func (e Engine) present(m domain.Mission, r inspection.Resolver) domain.Mission {
	m.Tasks = inspection.Reconcile(inspection.Template(m.Kind), m.Tasks)
	return r.Apply(m)
}

func (e Engine) saveTask(ctx context.Context, tx *sql.Tx, missionID string, t domain.Task, position int, now string) error {
	sp := fmt.Sprintf("task_%d", position)
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
		return err
	}
	if err := e.Repo.UpsertTaskTx(ctx, tx, missionID, t, position, now); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO "+sp); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		_, _ = tx.ExecContext(ctx, "RELEASE "+sp)
		return err
	}
	_, err := tx.ExecContext(ctx, "RELEASE "+sp)
	return err
}

func (e Engine) pruneTasks(ctx context.Context, tx *sql.Tx, missionID string, keep []domain.Task) error {
	current, err := e.Repo.ListTasksTx(ctx, tx, missionID)
	if err != nil {
		return err
	}
	keepIDs := make(map[string]bool, len(keep))
	for _, t := range keep {
		keepIDs[t.ID] = true
	}
	for _, t := range current {
		if keepIDs[t.ID] {
			continue
		}
		if err := e.Repo.DeleteTaskTx(ctx, tx, missionID, t.ID); err != nil {
			return fmt.Errorf("delete orphan task %s: %w", t.ID, err)
		}
	}
	return nil
}

// ListEvents pages through the event log after cursor.
func (e Engine) ListEvents(ctx context.Context, after int64, limit int, evtType string) ([]domain.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	evts, err := e.Repo.EventsAfter(ctx, limit, after, evtType)
	if err != nil {
		return nil, err
	}
	if evts == nil {
		evts = []domain.Event{}
	}
	return evts, nil
}
