package quotations

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
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error)
	Create(ctx context.Context, q Quotation) (int64, error)
	UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdateStatus(ctx context.Context, id int64, status QuotationStatus) error
	Delete(ctx context.Context, id int64) error
	NextNumber(ctx context.Context) (string, error)
	InsertItem(ctx context.Context, item QuotationItem) (int64, error)
	DeleteItems(ctx context.Context, quotationID int64) error
	ListItems(ctx context.Context, quotationID int64) ([]QuotationItem, error)
	ExpireOverdue(ctx context.Context, asOf pgtype.Date) (int64, error)
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

const quotationColumns = `
	q.id, q.number, q.customer_id, c.name, q.quote_date, q.valid_until,
	q.status, q.tax_included, q.subtotal, q.discount_total, q.tax_total,
	q.total, q.notes, q.created_at, q.updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM quotations q
		JOIN customers c ON c.id = q.customer_id
		WHERE q.id = $1
	`, quotationColumns), id)

	q, err := scanQuotation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}

	items, err := r.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Items = items
	return q, nil
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("q.status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("q.customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	var total int
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM quotations q %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM quotations q
		JOIN customers c ON c.id = q.customer_id
		%s
		ORDER BY q.id DESC
		LIMIT $%d OFFSET $%d
	`, quotationColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *q)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotations (number, customer_id, quote_date, valid_until, status,
			tax_included, subtotal, discount_total, tax_total, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		q.Number, q.CustomerID, q.QuoteDate, q.ValidUntil, q.Status,
		q.TaxIncluded, q.Subtotal, q.DiscountTotal, q.TaxTotal, q.Total,
		textOrNil(q.Notes),
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: quotation number already taken", httpx.ErrDuplicate)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE quotations SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	cols := []string{
		"customer_id", "quote_date", "valid_until", "tax_included", "notes",
		"subtotal", "discount_total", "tax_total", "total",
	}
	for _, col := range cols {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status QuotationStatus) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE quotations SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	if err := r.DeleteItems(ctx, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, "DELETE FROM quotations WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// NextNumber derives the next COT sequence number. Callers must invoke
// it inside the creation transaction so concurrent creates serialize on
// the unique index instead of racing.
func (r *repository) NextNumber(ctx context.Context) (string, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(SUBSTRING(number FROM 5)::bigint), 0) + 1 FROM quotations
	`).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("COT-%04d", seq), nil
}

func (r *repository) InsertItem(ctx context.Context, item QuotationItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO quotation_items (quotation_id, product_id, description, quantity,
			unit_price, discount_percent, tax_rate, discount_amount, tax_amount,
			line_total, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		item.QuotationID, item.ProductID, item.Description, item.Quantity,
		item.UnitPrice, item.DiscountPercent, item.TaxRate, item.DiscountAmount,
		item.TaxAmount, item.LineTotal, item.Position,
	).Scan(&id)
	return id, err
}

func (r *repository) DeleteItems(ctx context.Context, quotationID int64) error {
	_, err := r.db.Exec(ctx, "DELETE FROM quotation_items WHERE quotation_id = $1", quotationID)
	return err
}

func (r *repository) ListItems(ctx context.Context, quotationID int64) ([]QuotationItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, quotation_id, product_id, description, quantity, unit_price,
		       discount_percent, tax_rate, discount_amount, tax_amount, line_total, position
		FROM quotation_items
		WHERE quotation_id = $1
		ORDER BY position, id
	`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []QuotationItem
	for rows.Next() {
		var it QuotationItem
		var productID pgtype.Int8
		if err := rows.Scan(
			&it.ID, &it.QuotationID, &productID, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.DiscountPercent, &it.TaxRate, &it.DiscountAmount,
			&it.TaxAmount, &it.LineTotal, &it.Position,
		); err != nil {
			return nil, err
		}
		if productID.Valid {
			it.ProductID = &productID.Int64
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ExpireOverdue flips SENT quotations past their valid_until date to
// EXPIRED. Returns the number of rows touched for the sweep log line.
func (r *repository) ExpireOverdue(ctx context.Context, asOf pgtype.Date) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE quotations
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND valid_until < $3
	`, QuotationStatusExpired, QuotationStatusSent, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	var notes pgtype.Text
	var quoteDate, validUntil pgtype.Date
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&q.ID, &q.Number, &q.CustomerID, &q.CustomerName, &quoteDate, &validUntil,
		&q.Status, &q.TaxIncluded, &q.Subtotal, &q.DiscountTotal, &q.TaxTotal,
		&q.Total, &notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if notes.Valid {
		q.Notes = &notes.String
	}
	if quoteDate.Valid {
		q.QuoteDate = quoteDate.Time
	}
	if validUntil.Valid {
		q.ValidUntil = validUntil.Time
	}
	if createdAt.Valid {
		q.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		q.UpdatedAt = updatedAt.Time
	}
	return &q, nil
}

func textOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
