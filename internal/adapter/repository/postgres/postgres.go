// Package postgres implements the URL repository on top of PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shorty/internal/entity"
)

const (
	uniqueViolationErrCode = "23505"
	defaultQueryTimeout    = 5 * time.Second
)

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
}

// wrapError wraps err with op and msg. Deadline errors are reported as entity.ErrStoreUnavailable,
// since they mean the pool or the database could not serve the request within the query timeout.
func wrapError(op, msg string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %s: %w", op, entity.ErrStoreUnavailable, msg, err)
	}

	return fmt.Errorf("%s: %s: %w", op, msg, err)
}

type urlDB struct {
	ID          int64     `db:"id"`
	ShortCode   string    `db:"short_code"`
	OriginalURL string    `db:"original_url"`
	AccessCount int64     `db:"access_count"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (u *urlDB) toEntity() *entity.URL {
	return &entity.URL{
		ID:          u.ID,
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		URLStats: entity.URLStats{
			AccessCount: u.AccessCount,
		},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// URLRepository stores URL records in the urls table.
type URLRepository struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

// Option configures a URLRepository.
type Option func(*URLRepository)

// WithQueryTimeout bounds every repository call, including the wait for a pooled connection.
func WithQueryTimeout(d time.Duration) Option {
	return func(r *URLRepository) {
		if d > 0 {
			r.queryTimeout = d
		}
	}
}

func NewURLRepository(db *sqlx.DB, opts ...Option) *URLRepository {
	r := &URLRepository{
		db:           db,
		queryTimeout: defaultQueryTimeout,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *URLRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.queryTimeout)
}

// Save inserts a new record. The unique index on short_code is what guarantees uniqueness:
// a code taken between the existence check and the insert yields entity.ErrShortCodeExists.
func (r *URLRepository) Save(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Save"
	const query = `INSERT INTO urls(short_code, original_url) VALUES ($1, $2) RETURNING *`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, shortCode, originalURL); err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, wrapError(op, "failed to insert into urls table", err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) Exists(ctx context.Context, shortCode string) (bool, error) {
	const op = "adapter.repository.postgres.URLRepository.Exists"
	const query = `SELECT EXISTS(SELECT 1 FROM urls WHERE short_code = $1)`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var exists bool

	if err := r.db.GetContext(ctx, &exists, query, shortCode); err != nil {
		return false, wrapError(op, "failed to check short code in urls table", err)
	}

	return exists, nil
}

func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveByShortCode"
	const query = `SELECT * FROM urls WHERE short_code = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, wrapError(op, "failed to get row from urls table", err)
	}

	return url.toEntity(), nil
}

// RetrieveAndUpdateStats locks the row of shortCode, increments its access count and
// returns the updated record in one transaction. If anything fails before the commit,
// including cancellation of ctx, the transaction is rolled back and the row is unchanged.
func (r *URLRepository) RetrieveAndUpdateStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveAndUpdateStats"
	const lockQuery = `SELECT id FROM urls WHERE short_code = $1 FOR UPDATE`
	const updateQuery = `UPDATE urls SET access_count = access_count + 1, updated_at = NOW() WHERE id = $1 RETURNING *`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapError(op, "failed to begin transaction", err)
	}
	defer func() {
		// No-op once the transaction has been committed.
		_ = tx.Rollback()
	}()

	var id int64

	if err := tx.GetContext(ctx, &id, lockQuery, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, wrapError(op, "failed to lock urls table row", err)
	}

	var url urlDB

	if err := tx.GetContext(ctx, &url, updateQuery, id); err != nil {
		return nil, wrapError(op, "failed to update urls table row stats", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapError(op, "failed to commit transaction", err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) Update(ctx context.Context, shortCode, originalURL string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Update"
	const query = `UPDATE urls SET original_url = $1, updated_at = NOW() WHERE short_code = $2 RETURNING *`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var url urlDB

	if err := r.db.GetContext(ctx, &url, query, originalURL, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, wrapError(op, "failed to update urls table row", err)
	}

	return url.toEntity(), nil
}

func (r *URLRepository) Remove(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.postgres.URLRepository.Remove"
	const query = `DELETE FROM urls WHERE short_code = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, query, shortCode)
	if err != nil {
		return wrapError(op, "failed to delete from urls table", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return nil
}
