package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id string) (*Payment, error)
	ListByReservation(ctx context.Context, reservationID string) ([]*Payment, error)

	// UpdateStatus moves the payment from one status to another atomically.
	// It returns ErrInvalidState when the payment is no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to Status) (*Payment, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var paymentColumns = []string{
	"id", "reservation_id", "amount_cents", "external_ref", "status", "created_at", "updated_at",
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	if err := row.Scan(&p.ID, &p.ReservationID, &p.Amount, &p.ExternalRef, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pgxRepository) Create(ctx context.Context, p *Payment) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.payments").
		Columns("reservation_id", "amount_cents", "external_ref", "status").
		Values(p.ReservationID, int64(p.Amount), p.ExternalRef, string(p.Status)).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create payment query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				// partial unique index over open payments
				return ErrAlreadyOpen
			case pgerrcode.ForeignKeyViolation:
				return ErrReservationNotFound
			}
		}
		return fmt.Errorf("create payment failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Payment, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(paymentColumns...).
		From("public.payments").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get payment query failed: %w", err)
	}

	p, err := scanPayment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment failed: %w", err)
	}
	return p, nil
}

func (r *pgxRepository) ListByReservation(ctx context.Context, reservationID string) ([]*Payment, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(paymentColumns...).
		From("public.payments").
		Where(squirrel.Eq{"reservation_id": reservationID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list payments query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments failed: %w", err)
	}
	defer rows.Close()

	var payments []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment failed: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments failed: %w", err)
	}
	return payments, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, from, to Status) (*Payment, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.payments").
		Set("status", string(to)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": string(from)}).
		Suffix("RETURNING " + strings.Join(paymentColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update payment query failed: %w", err)
	}

	p, err := scanPayment(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrInvalidState
		}
		return nil, fmt.Errorf("update payment failed: %w", err)
	}
	return p, nil
}
