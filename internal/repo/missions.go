package repo

import (
	"context"
	"database/sql"

	"inspectline/internal/domain"
)

const missionColumns = `id,kind,COALESCE(order_id,''),unit_id,guest_name,reference_date`

func scanMission(sc interface{ Scan(...any) error }) (domain.Mission, error) {
	var m domain.Mission
	var kind string
	err := sc.Scan(&m.ID, &kind, &m.OrderID, &m.UnitID, &m.GuestName, &m.ReferenceDate)
	m.Kind = domain.Kind(kind)
	return m, err
}

// UpsertMissionTx writes the mission row. Tasks are written separately.
func (r Repo) UpsertMissionTx(ctx context.Context, tx *sql.Tx, m domain.Mission, now string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO missions(id,kind,order_id,unit_id,guest_name,reference_date,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET unit_id=excluded.unit_id, guest_name=excluded.guest_name,
  reference_date=excluded.reference_date, updated_at=excluded.updated_at`,
		m.ID, string(m.Kind), nullable(m.OrderID), m.UnitID, m.GuestName, m.ReferenceDate, now, now)
	return err
}

func (r Repo) GetMission(ctx context.Context, id string) (domain.Mission, error) {
	return getMission(ctx, r.DB, id)
}

func (r Repo) GetMissionTx(ctx context.Context, tx *sql.Tx, id string) (domain.Mission, error) {
	return getMission(ctx, tx, id)
}

func getMission(ctx context.Context, q querier, id string) (domain.Mission, error) {
	m, err := scanMission(q.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	m.Tasks, err = listTasks(ctx, q, id)
	return m, err
}

// MissionIDByOrderTx finds the mission of kind attached to an order.
func (r Repo) MissionIDByOrderTx(ctx context.Context, tx *sql.Tx, kind domain.Kind, orderID string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM missions WHERE kind=? AND order_id=?`, string(kind), orderID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return id, err
}

// ListMissions returns missions of kind with their tasks in checklist order.
func (r Repo) ListMissions(ctx context.Context, kind domain.Kind) ([]domain.Mission, error) {
	return listMissions(ctx, r.DB, kind)
}

func (r Repo) ListMissionsTx(ctx context.Context, tx *sql.Tx, kind domain.Kind) ([]domain.Mission, error) {
	return listMissions(ctx, tx, kind)
}

func listMissions(ctx context.Context, q querier, kind domain.Kind) ([]domain.Mission, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE kind=? ORDER BY reference_date, id`, string(kind))
	if err != nil {
		return nil, err
	}
	var res []domain.Mission
	index := map[string]int{}
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		m.Tasks = []domain.Task{}
		index[m.ID] = len(res)
		res = append(res, m)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return res, nil
	}

	taskRows, err := q.QueryContext(ctx, `SELECT t.mission_id,t.id,t.name,t.completed FROM mission_tasks t
JOIN missions m ON m.id=t.mission_id WHERE m.kind=? ORDER BY t.mission_id, t.position, t.id`, string(kind))
	if err != nil {
		return nil, err
	}
	defer taskRows.Close()
	for taskRows.Next() {
		var missionID string
		var t domain.Task
		var completed int
		if err := taskRows.Scan(&missionID, &t.ID, &t.Name, &completed); err != nil {
			return nil, err
		}
		t.Completed = completed != 0
		if i, ok := index[missionID]; ok {
			res[i].Tasks = append(res[i].Tasks, t)
		}
	}
	return res, taskRows.Err()
}

func (r Repo) DeleteMissionTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM missions WHERE id=?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// UpsertTaskTx writes one task row at position.
func (r Repo) UpsertTaskTx(ctx context.Context, tx *sql.Tx, missionID string, t domain.Task, position int, now string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO mission_tasks(mission_id,id,name,position,completed,updated_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(mission_id,id) DO UPDATE SET name=excluded.name, position=excluded.position,
  completed=excluded.completed, updated_at=excluded.updated_at`,
		missionID, t.ID, t.Name, position, boolInt(t.Completed), now)
	return err
}

func (r Repo) ListTasksTx(ctx context.Context, tx *sql.Tx, missionID string) ([]domain.Task, error) {
	return listTasks(ctx, tx, missionID)
}

func listTasks(ctx context.Context, q querier, missionID string) ([]domain.Task, error) {
	rows, err := q.QueryContext(ctx, `SELECT id,name,completed FROM mission_tasks WHERE mission_id=? ORDER BY position, id`, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		var t domain.Task
		var completed int
		if err := rows.Scan(&t.ID, &t.Name, &completed); err != nil {
			return nil, err
		}
		t.Completed = completed != 0
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) DeleteTaskTx(ctx context.Context, tx *sql.Tx, missionID, id string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM mission_tasks WHERE mission_id=? AND id=?`, missionID, id)
	return err
}
