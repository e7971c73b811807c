package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/nummix/backoffice/internal/platform/db"
)

// Repository persists ledger transactions in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	GetTransaction(ctx context.Context, owner, id uuid.UUID) (Transaction, error)
	GetTransactionForUpdate(ctx context.Context, owner, id uuid.UUID) (Transaction, error)
	UpdateTransaction(ctx context.Context, tx Transaction, expectedVersion int64) (Transaction, error)
	DeleteTransaction(ctx context.Context, owner, id uuid.UUID) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("accounting repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const selectTransactionsSQL = `SELECT t.id, t.owner_id, t.date, t.reference, t.description, t.version, t.created_at, t.updated_at,
       e.account, e.side, e.amount::text
FROM transactions t
JOIN transaction_entries e ON e.transaction_id = t.id
WHERE t.owner_id = $1
  AND ($2::timestamptz IS NULL OR t.date >= $2)
  AND ($3::timestamptz IS NULL OR t.date <= $3)
ORDER BY t.date, t.created_at, t.id, e.position`

// FindTransactionsByOwner loads the owner's transactions with their entries in a
// single statement, ordered by effective date.
func (r *Repository) FindTransactionsByOwner(ctx context.Context, owner uuid.UUID, period *DateRange) ([]Transaction, error) {
	var from, to *time.Time
	if period != nil {
		from = optionalTime(period.From)
		to = optionalTime(period.To)
	}
	rows, err := r.pool.Query(ctx, selectTransactionsSQL, owner, from, to)
	if err != nil {
		return nil, fmt.Errorf("accounting: query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		var (
			t      Transaction
			entry  Entry
			side   string
			amount string
		)
		if err := rows.Scan(&t.ID, &t.Owner, &t.Date, &t.Reference, &t.Description, &t.Version, &t.CreatedAt, &t.UpdatedAt,
			&entry.Account, &side, &amount); err != nil {
			return nil, err
		}
		entry.Side = Side(side)
		if entry.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("accounting: transaction %s: malformed amount %q: %w", t.ID, amount, err)
		}
		if n := len(out); n > 0 && out[n-1].ID == t.ID {
			out[n-1].Entries = append(out[n-1].Entries, entry)
			continue
		}
		t.Entries = []Entry{entry}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListOwners returns every owner that has at least one transaction.
func (r *Repository) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT owner_id FROM transactions ORDER BY owner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var owners []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

func (r *txRepository) InsertTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	_, err := r.tx.Exec(ctx, `INSERT INTO transactions (id, owner_id, date, reference, description, version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`, t.ID, t.Owner, t.Date, t.Reference, t.Description, t.Version, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return Transaction{}, err
	}
	if err := r.insertEntries(ctx, t.ID, t.Entries); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (r *txRepository) insertEntries(ctx context.Context, id uuid.UUID, entries []Entry) error {
	batch := &pgx.Batch{}
	for pos, e := range entries {
		batch.Queue(`INSERT INTO transaction_entries (transaction_id, position, account, side, amount) VALUES ($1,$2,$3,$4,$5)`,
			id, pos, e.Account, string(e.Side), e.Amount.StringFixed(2))
	}
	return r.tx.SendBatch(ctx, batch).Close()
}

func (r *txRepository) GetTransaction(ctx context.Context, owner, id uuid.UUID) (Transaction, error) {
	return r.getTransaction(ctx, owner, id, "")
}

func (r *txRepository) GetTransactionForUpdate(ctx context.Context, owner, id uuid.UUID) (Transaction, error) {
	return r.getTransaction(ctx, owner, id, " FOR UPDATE")
}

func (r *txRepository) getTransaction(ctx context.Context, owner, id uuid.UUID, lock string) (Transaction, error) {
	var t Transaction
	err := r.tx.QueryRow(ctx, `SELECT id, owner_id, date, reference, description, version, created_at, updated_at
FROM transactions WHERE id=$1 AND owner_id=$2`+lock, id, owner).
		Scan(&t.ID, &t.Owner, &t.Date, &t.Reference, &t.Description, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT account, side, amount::text FROM transaction_entries WHERE transaction_id=$1 ORDER BY position`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			entry  Entry
			side   string
			amount string
		)
		if err := rows.Scan(&entry.Account, &side, &amount); err != nil {
			return Transaction{}, err
		}
		entry.Side = Side(side)
		if entry.Amount, err = decimal.NewFromString(amount); err != nil {
			return Transaction{}, fmt.Errorf("accounting: transaction %s: malformed amount %q: %w", id, amount, err)
		}
		t.Entries = append(t.Entries, entry)
	}
	return t, rows.Err()
}

func (r *txRepository) UpdateTransaction(ctx context.Context, t Transaction, expectedVersion int64) (Transaction, error) {
	err := r.tx.QueryRow(ctx, `UPDATE transactions SET date=$3, reference=$4, description=$5, version=version+1, updated_at=$6
WHERE id=$1 AND owner_id=$2 AND version=$7 RETURNING version`, t.ID, t.Owner, t.Date, t.Reference, t.Description, t.UpdatedAt, expectedVersion).
		Scan(&t.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrVersionConflict
		}
		return Transaction{}, err
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM transaction_entries WHERE transaction_id=$1`, t.ID); err != nil {
		return Transaction{}, err
	}
	if err := r.insertEntries(ctx, t.ID, t.Entries); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (r *txRepository) DeleteTransaction(ctx context.Context, owner, id uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM transactions WHERE id=$1 AND owner_id=$2`, id, owner)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
