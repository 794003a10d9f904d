package repo

import (
	"context"
	"database/sql"

	"inspectline/internal/domain"
)

const orderColumns = `id,unit_number,guest_name,departure_date,status`

func scanOrder(sc interface{ Scan(...any) error }) (domain.Order, error) {
	var o domain.Order
	err := sc.Scan(&o.ID, &o.UnitNumber, &o.GuestName, &o.DepartureDate, &o.Status)
	return o, err
}

func (r Repo) UpsertOrderTx(ctx context.Context, tx *sql.Tx, o domain.Order, now string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO orders(id,unit_number,guest_name,departure_date,status,updated_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET unit_number=excluded.unit_number, guest_name=excluded.guest_name,
  departure_date=excluded.departure_date, status=excluded.status, updated_at=excluded.updated_at`,
		o.ID, o.UnitNumber, o.GuestName, o.DepartureDate, o.Status, now)
	return err
}

func (r Repo) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	o, err := scanOrder(r.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=?`, id))
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	return o, err
}

func (r Repo) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return listOrders(ctx, r.DB)
}

func (r Repo) ListOrdersTx(ctx context.Context, tx *sql.Tx) ([]domain.Order, error) {
	return listOrders(ctx, tx)
}

func listOrders(ctx context.Context, q querier) ([]domain.Order, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY departure_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func (r Repo) DeleteOrderTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id=?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
