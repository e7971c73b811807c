package payments

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

// Repository persists payments in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	GetPayment(ctx context.Context, owner, id uuid.UUID) (Payment, error)
	GetPaymentForUpdate(ctx context.Context, owner, id uuid.UUID) (Payment, error)
	UpdatePayment(ctx context.Context, p Payment, expectedVersion int64) (Payment, error)
	DeletePayment(ctx context.Context, owner, id uuid.UUID) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil || r.pool == nil {
		return errors.New("payments repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const paymentColumns = `id, owner_id, kind, counterparty, description, amount::text, due_date, status, version, created_at, updated_at`

// FindPayments lists the owner's payments matching filter, ordered by due date.
func (r *Repository) FindPayments(ctx context.Context, owner uuid.UUID, filter Filter) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+`
FROM payments
WHERE owner_id = $1
  AND ($2 = '' OR kind = $2)
  AND ($3 = '' OR lower(status) = $3)
ORDER BY due_date, created_at, id`, owner, string(filter.Kind), string(filter.Status))
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// ListOpen returns every payment, across owners, whose status is not terminal.
func (r *Repository) ListOpen(ctx context.Context) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+`
FROM payments
WHERE lower(status) NOT IN ('completed', 'cancelled')
ORDER BY owner_id, due_date`)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// SetStatus stores a re-derived status unless the row changed to a terminal one meanwhile.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status Status, now time.Time) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `UPDATE payments SET status=$2, updated_at=$3
WHERE id=$1 AND lower(status) NOT IN ('completed', 'cancelled') AND status <> $2`, id, string(status), now)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func collectPayments(rows pgx.Rows) ([]Payment, error) {
	defer rows.Close()
	out := make([]Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (Payment, error) {
	var (
		p            Payment
		kind, status string
		amount       string
	)
	if err := row.Scan(&p.ID, &p.Owner, &kind, &p.Counterparty, &p.Description, &amount, &p.DueDate, &status, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Payment{}, err
	}
	p.Kind = Kind(kind)
	p.Status = Status(status)
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return Payment{}, fmt.Errorf("payments: payment %s: malformed amount %q: %w", p.ID, amount, err)
	}
	p.Amount = value
	return p, nil
}

func (r *txRepository) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	_, err := r.tx.Exec(ctx, `INSERT INTO payments (id, owner_id, kind, counterparty, description, amount, due_date, status, version, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.Owner, string(p.Kind), p.Counterparty, p.Description, p.Amount.StringFixed(2), p.DueDate, string(p.Status), p.Version, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (r *txRepository) GetPayment(ctx context.Context, owner, id uuid.UUID) (Payment, error) {
	return r.getPayment(ctx, owner, id, "")
}

func (r *txRepository) GetPaymentForUpdate(ctx context.Context, owner, id uuid.UUID) (Payment, error) {
	return r.getPayment(ctx, owner, id, " FOR UPDATE")
}

func (r *txRepository) getPayment(ctx context.Context, owner, id uuid.UUID, lock string) (Payment, error) {
	p, err := scanPayment(r.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1 AND owner_id=$2`+lock, id, owner))
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrPaymentNotFound
	}
	return p, err
}

func (r *txRepository) UpdatePayment(ctx context.Context, p Payment, expectedVersion int64) (Payment, error) {
	err := r.tx.QueryRow(ctx, `UPDATE payments SET kind=$3, counterparty=$4, description=$5, amount=$6, due_date=$7, status=$8,
    version=version+1, updated_at=$9
WHERE id=$1 AND owner_id=$2 AND version=$10 RETURNING version`,
		p.ID, p.Owner, string(p.Kind), p.Counterparty, p.Description, p.Amount.StringFixed(2), p.DueDate, string(p.Status), p.UpdatedAt, expectedVersion).
		Scan(&p.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrVersionConflict
		}
		return Payment{}, err
	}
	return p, nil
}

func (r *txRepository) DeletePayment(ctx context.Context, owner, id uuid.UUID) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM payments WHERE id=$1 AND owner_id=$2`, id, owner)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}
