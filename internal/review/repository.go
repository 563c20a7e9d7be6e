package review

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
	Create(ctx context.Context, rv *Review) error
	GetByID(ctx context.Context, id string) (*Review, error)
	List(ctx context.Context, filter Filter) ([]*Review, int, error)
	Update(ctx context.Context, rv *Review) error
	Delete(ctx context.Context, id string) error
	Summarize(ctx context.Context, resourceID string) (Summary, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var reviewColumns = []string{
	"id", "reservation_id", "resource_id", "holder_id", "rating", "comment", "created_at", "updated_at",
}

func (r *pgxRepository) Create(ctx context.Context, rv *Review) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.reviews").
		Columns("reservation_id", "resource_id", "holder_id", "rating", "comment").
		Values(rv.ReservationID, rv.ResourceID, rv.HolderID, rv.Rating, rv.Comment).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create review query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return ErrAlreadyExists
			case pgerrcode.ForeignKeyViolation:
				return ErrReservationNotFound
			}
		}
		return fmt.Errorf("create review failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Review, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(reviewColumns...).
		From("public.reviews").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get review query failed: %w", err)
	}

	var rv Review
	err = r.pool.QueryRow(ctx, query, args...).Scan(
		&rv.ID, &rv.ReservationID, &rv.ResourceID, &rv.HolderID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get review failed: %w", err)
	}
	return &rv, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Review, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(reviewColumns, "count(*) OVER() AS total_count")...).
		From("public.reviews")

	if filter.ResourceID != "" {
		query = query.Where(squirrel.Eq{"resource_id": filter.ResourceID})
	}
	if filter.HolderID != "" {
		query = query.Where(squirrel.Eq{"holder_id": filter.HolderID})
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	sql, args, err := query.OrderBy("created_at DESC", "id ASC").
		Limit(uint64(filter.PageSize)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reviews query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews failed: %w", err)
	}
	defer rows.Close()

	var reviews []*Review
	var total int
	for rows.Next() {
		var rv Review
		if err := rows.Scan(
			&rv.ID, &rv.ReservationID, &rv.ResourceID, &rv.HolderID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review failed: %w", err)
		}
		reviews = append(reviews, &rv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reviews failed: %w", err)
	}

	return reviews, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, rv *Review) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.reviews").
		Set("rating", rv.Rating).
		Set("comment", rv.Comment).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": rv.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update review query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rv.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update review failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, "DELETE FROM public.reviews WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete review failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) Summarize(ctx context.Context, resourceID string) (Summary, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT rating, count(*) FROM public.reviews WHERE resource_id = $1 GROUP BY rating", resourceID)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize reviews failed: %w", err)
	}
	defer rows.Close()

	var s Summary
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return Summary{}, fmt.Errorf("scan review summary failed: %w", err)
		}
		if rating >= MinRating && rating <= MaxRating {
			s.Distribution[rating] = count
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate review summary failed: %w", err)
	}

	s.finish()
	return s, nil
}

// finish derives Total and Average from Distribution.
func (s *Summary) finish() {
	sum := 0
	s.Total = 0
	for rating := MinRating; rating <= MaxRating; rating++ {
		s.Total += s.Distribution[rating]
		sum += rating * s.Distribution[rating]
	}
	if s.Total > 0 {
		s.Average = float64(sum) / float64(s.Total)
	}
}
