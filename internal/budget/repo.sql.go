package budget

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nummix/backoffice/internal/platform/db"
)

const uniqueViolation = "23505"

// Repository persists budgets in Postgres. Months are stored as JSONB.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertBudget(ctx context.Context, b Budget) (Budget, error)
	GetBudget(ctx context.Context, owner, id uuid.UUID) (Budget, error)
	GetBudgetForUpdate(ctx context.Context, owner, id uuid.UUID) (Budget, error)
	UpdateBudget(ctx context.Context, b Budget, expectedVersion int64) (Budget, error)
	DeleteBudget(ctx context.Context, owner, id uuid.UUID) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("budget repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const budgetColumns = `id, owner_id, department, year, months, version, created_at, updated_at`

// FindBudgets lists the owner's budgets matching filter in one statement.
func (r *Repository) FindBudgets(ctx context.Context, owner uuid.UUID, filter Filter) ([]Budget, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+budgetColumns+`
FROM budgets
WHERE owner_id = $1
  AND ($2 = '' OR department = $2)
  AND ($3 = 0 OR year = $3)
ORDER BY year, department`, owner, filter.Department, filter.Year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBudget(row pgx.Row) (Budget, error) {
	var b Budget
	err := row.Scan(&b.ID, &b.Owner, &b.Department, &b.Year, &b.Months, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *txRepository) InsertBudget(ctx context.Context, b Budget) (Budget, error) {
	_, err := r.tx.Exec(ctx, `INSERT INTO budgets (`+budgetColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.Owner, b.Department, b.Year, b.Months, b.Version, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return Budget{}, mapWriteError(err)
	}
	return b, nil
}

func (r *txRepository) GetBudget(ctx context.Context, owner, id uuid.UUID) (Budget, error) {
	return r.getBudget(ctx, owner, id, "")
}

func (r *txRepository) GetBudgetForUpdate(ctx context.Context, owner, id uuid.UUID) (Budget, error) {
	return r.getBudget(ctx, owner, id, " FOR UPDATE")
}

func (r *txRepository) getBudget(ctx context.Context, owner, id uuid.UUID, lock string) (Budget, error) {
	b, err := scanBudget(r.tx.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id=$1 AND owner_id=$2`+lock, id, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return Budget{}, ErrBudgetNotFound
	}
	return b, err
}

func (r *txRepository) UpdateBudget(ctx context.Context, b Budget, expectedVersion int64) (Budget, error) {
	err := r.tx.QueryRow(ctx, `UPDATE budgets SET department=$3, year=$4, months=$5, version=version+1, updated_at=$6
WHERE id=$1 AND owner_id=$2 AND version=$7 RETURNING version`, b.ID, b.Owner, b.Department, b.Year, b.Months, b.UpdatedAt, expectedVersion).
		Scan(&b.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, ErrVersionConflict
		}
		return Budget{}, mapWriteError(err)
	}
	return b, nil
}

func (r *txRepository) DeleteBudget(ctx context.Context, owner, id uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM budgets WHERE id=$1 AND owner_id=$2`, id, owner)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrBudgetNotFound
	}
	return nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateBudget
	}
	return err
}
