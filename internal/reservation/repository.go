package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)

	// ListActiveInRange returns pending and confirmed reservations of the resource
	// that intersect window, ordered by start time.
	ListActiveInRange(ctx context.Context, resourceID string, window Interval) ([]*Reservation, error)
	HasActiveReservations(ctx context.Context, resourceID string) (bool, error)

	// WithinResource runs fn as one unit of work on the given resource.
	// Writes made through tx are committed only if fn returns nil.
	WithinResource(ctx context.Context, resourceID string, fn func(tx Tx) error) error
}

// Tx is the write side of a unit of work. It is bound to a single resource.
type Tx interface {
	GetForUpdate(ctx context.Context, id string) (*Reservation, error)
	// ListActiveInRange is the conflict query. excludeID skips one reservation (used when rescheduling).
	ListActiveInRange(ctx context.Context, window Interval, excludeID string) ([]*Reservation, error)
	Insert(ctx context.Context, r *Reservation) error
	Update(ctx context.Context, r *Reservation) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var reservationColumns = []string{
	"id", "resource_id", "holder_id", "start_time", "end_time", "total_price_cents", "status", "created_at", "updated_at",
}

func scanReservation(row pgx.Row, extra ...any) (*Reservation, error) {
	var r Reservation
	dest := []any{
		&r.ID, &r.ResourceID, &r.HolderID, &r.StartTime, &r.EndTime, &r.TotalPrice, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &r, nil
}

// activeInRange builds the intersection query: start < window.End AND end > window.Start.
func activeInRange(resourceID string, window Interval) squirrel.SelectBuilder {
	return psql.Select(reservationColumns...).
		From("public.reservations").
		Where(squirrel.Eq{"resource_id": resourceID}).
		Where(squirrel.Eq{"status": []string{string(StatusPending), string(StatusConfirmed)}}).
		Where(squirrel.Lt{"start_time": window.End}).
		Where(squirrel.Gt{"end_time": window.Start}).
		OrderBy("start_time ASC")
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func queryReservations(ctx context.Context, q querier, b squirrel.SelectBuilder) ([]*Reservation, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reservations query failed: %w", err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations failed: %w", err)
	}
	defer rows.Close()

	var out []*Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation failed: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations failed: %w", err)
	}
	return out, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	query, args, err := psql.Select(reservationColumns...).
		From("public.reservations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	res, err := scanReservation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation failed: %w", err)
	}
	return res, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	query := psql.Select(append(reservationColumns, "count(*) OVER() AS total_count")...).
		From("public.reservations")

	if filter.HolderID != "" {
		query = query.Where(squirrel.Eq{"holder_id": filter.HolderID})
	}
	if filter.ResourceID != "" {
		query = query.Where(squirrel.Eq{"resource_id": filter.ResourceID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	// Window filtering uses the same intersection rule as conflict checks
	if filter.From != nil {
		query = query.Where(squirrel.Gt{"end_time": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.Lt{"start_time": *filter.To})
	}

	orderBy := "start_time"
	if col, ok := sortColumns[filter.SortBy]; ok {
		orderBy = col
	}
	orderDir := "DESC"
	if filter.SortOrder == "ASC" {
		orderDir = "ASC"
	}
	query = query.OrderBy(orderBy+" "+orderDir, "id ASC")

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reservations failed: %w", err)
	}
	defer rows.Close()

	var items []*Reservation
	var total int
	for rows.Next() {
		res, err := scanReservation(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan reservation failed: %w", err)
		}
		items = append(items, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reservations failed: %w", err)
	}

	return items, total, nil
}

func (r *pgxRepository) ListActiveInRange(ctx context.Context, resourceID string, window Interval) ([]*Reservation, error) {
	return queryReservations(ctx, r.pool, activeInRange(resourceID, window))
}

func (r *pgxRepository) HasActiveReservations(ctx context.Context, resourceID string) (bool, error) {
	sub, args, err := psql.Select("1").
		From("public.reservations").
		Where(squirrel.Eq{"resource_id": resourceID}).
		Where(squirrel.Eq{"status": []string{string(StatusPending), string(StatusConfirmed)}}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build active reservations query failed: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active reservations failed: %w", err)
	}
	return exists, nil
}

// WithinResource locks the resource row for the lifetime of the transaction, so writers of
// the same resource serialize even across processes. The exclusion constraint on
// reservations is the last line: a violation surfaces as ErrSlotUnavailable.
func (r *pgxRepository) WithinResource(ctx context.Context, resourceID string, fn func(tx Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, "SELECT id FROM public.resources WHERE id = $1 FOR UPDATE", resourceID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrResourceNotFound
		}
		return fmt.Errorf("lock resource failed: %w", err)
	}

	if err := fn(&pgxTx{tx: tx, resourceID: resourceID}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapWriteError(err, "commit reservation")
	}
	return nil
}

func mapWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.ExclusionViolation:
			return ErrSlotUnavailable
		case pgerrcode.ForeignKeyViolation:
			return ErrResourceNotFound
		}
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

type pgxTx struct {
	tx         pgx.Tx
	resourceID string
}

func (t *pgxTx) GetForUpdate(ctx context.Context, id string) (*Reservation, error) {
	query, args, err := psql.Select(reservationColumns...).
		From("public.reservations").
		Where(squirrel.Eq{"id": id, "resource_id": t.resourceID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	res, err := scanReservation(t.tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation failed: %w", err)
	}
	return res, nil
}

func (t *pgxTx) ListActiveInRange(ctx context.Context, window Interval, excludeID string) ([]*Reservation, error) {
	b := activeInRange(t.resourceID, window)
	if excludeID != "" {
		b = b.Where(squirrel.NotEq{"id": excludeID})
	}
	return queryReservations(ctx, t.tx, b)
}

func (t *pgxTx) Insert(ctx context.Context, r *Reservation) error {
	query, args, err := psql.Insert("public.reservations").
		Columns("resource_id", "holder_id", "start_time", "end_time", "total_price_cents", "status").
		Values(t.resourceID, r.HolderID, r.StartTime, r.EndTime, int64(r.TotalPrice), string(r.Status)).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create reservation query failed: %w", err)
	}

	if err := t.tx.QueryRow(ctx, query, args...).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return mapWriteError(err, "create reservation")
	}
	r.ResourceID = t.resourceID
	return nil
}

func (t *pgxTx) Update(ctx context.Context, r *Reservation) error {
	query, args, err := psql.Update("public.reservations").
		Set("start_time", r.StartTime).
		Set("end_time", r.EndTime).
		Set("total_price_cents", int64(r.TotalPrice)).
		Set("status", string(r.Status)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": r.ID, "resource_id": t.resourceID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update reservation query failed: %w", err)
	}

	if err := t.tx.QueryRow(ctx, query, args...).Scan(&r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapWriteError(err, "update reservation")
	}
	return nil
}
