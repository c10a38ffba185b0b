package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo-erp/facturo-erp/internal/platform/db"
	"github.com/facturo-erp/facturo-erp/internal/platform/httpx"
	"github.com/facturo-erp/facturo-erp/internal/sales/invoices"
)

// SaleFinancials is the slice of a sale the ledger needs for balance
// checks and status refreshes.
type SaleFinancials struct {
	ID    int64
	Total float64
}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Payment, error)
	List(ctx context.Context, req ListPaymentsRequest) ([]Payment, int, error)
	Insert(ctx context.Context, p Payment) (int64, error)
	Move(ctx context.Context, id, saleID int64) error
	Delete(ctx context.Context, id int64) error
	SumForSale(ctx context.Context, saleID int64) (float64, error)
	GetSaleFinancials(ctx context.Context, saleID int64) (*SaleFinancials, error)
	UpdateSalePaid(ctx context.Context, saleID int64, paid float64, status invoices.SaleStatus) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const paymentColumns = `id, sale_id, amount, method, paid_at, reference, notes, created_at`

func (r *repository) Get(ctx context.Context, id int64) (*Payment, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM payments WHERE id = $1", paymentColumns), id)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, req ListPaymentsRequest) ([]Payment, int, error) {
	whereClause := ""
	var args []interface{}
	argPos := 1

	if req.SaleID != nil {
		whereClause = fmt.Sprintf("WHERE sale_id = $%d", argPos)
		args = append(args, *req.SaleID)
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM payments %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM payments
		%s
		ORDER BY paid_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, paymentColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (r *repository) Insert(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (sale_id, amount, method, paid_at, reference, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, p.SaleID, p.Amount, textOrNil(p.Method), p.PaidAt, p.Reference, textOrNil(p.Notes)).Scan(&id)
	if err != nil && db.IsUniqueViolation(err) {
		return 0, fmt.Errorf("%w: payment reference already used", httpx.ErrDuplicate)
	}
	return id, err
}

func (r *repository) Move(ctx context.Context, id, saleID int64) error {
	tag, err := r.db.Exec(ctx, "UPDATE payments SET sale_id = $1 WHERE id = $2", saleID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM payments WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) SumForSale(ctx context.Context, saleID int64) (float64, error) {
	var sum float64
	err := r.db.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE sale_id = $1", saleID).Scan(&sum)
	return sum, err
}

func (r *repository) GetSaleFinancials(ctx context.Context, saleID int64) (*SaleFinancials, error) {
	var sf SaleFinancials
	err := r.db.QueryRow(ctx, "SELECT id, total FROM sales WHERE id = $1", saleID).Scan(&sf.ID, &sf.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	return &sf, nil
}

func (r *repository) UpdateSalePaid(ctx context.Context, saleID int64, paid float64, status invoices.SaleStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales SET paid_amount = $1, status = $2, updated_at = NOW() WHERE id = $3
	`, paid, status, saleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	var method, notes pgtype.Text
	var paidAt, createdAt pgtype.Timestamptz

	err := row.Scan(&p.ID, &p.SaleID, &p.Amount, &method, &paidAt, &p.Reference, &notes, &createdAt)
	if err != nil {
		return nil, err
	}

	if method.Valid {
		p.Method = &method.String
	}
	if notes.Valid {
		p.Notes = &notes.String
	}
	if paidAt.Valid {
		p.PaidAt = paidAt.Time
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	return &p, nil
}

func textOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
