package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturo-erp/facturo-erp/internal/platform/db"
	"github.com/facturo-erp/facturo-erp/internal/platform/httpx"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Sale, error)
	List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error)
	Create(ctx context.Context, sale Sale) (int64, error)
	UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdatePaid(ctx context.Context, id int64, paid float64, status SaleStatus) error
	Delete(ctx context.Context, id int64) error
	NextNumber(ctx context.Context, series string) (string, error)
	InsertItem(ctx context.Context, item SaleItem) (int64, error)
	DeleteItems(ctx context.Context, saleID int64) error
	ListItems(ctx context.Context, saleID int64) ([]SaleItem, error)
	SumPayments(ctx context.Context, saleID int64) (float64, error)
	InsertPayment(ctx context.Context, saleID int64, amount float64, method *string, paidAt time.Time, reference string) (int64, error)
	DeletePayments(ctx context.Context, saleID int64) error
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

const saleColumns = `
	s.id, s.number, s.customer_id, c.name, s.quotation_id, s.issue_date,
	s.due_date, s.status, s.subtotal, s.discount_total, s.tax_total,
	s.total, s.paid_amount, s.notes, s.created_at, s.updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Sale, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT %s
		FROM sales s
		JOIN customers c ON c.id = s.customer_id
		WHERE s.id = $1
	`, saleColumns), id)

	sale, err := scanSale(row)
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
	sale.Items = items
	return sale, nil
}

func (r *repository) List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if statuses := ExpandStatusFilter(req.Status); len(statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("s.status = ANY($%d)", argPos))
		args = append(args, statuses)
		argPos++
	}
	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("s.customer_id = $%d", argPos))
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
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM sales s %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM sales s
		JOIN customers c ON c.id = s.customer_id
		%s
		ORDER BY s.id DESC
		LIMIT $%d OFFSET $%d
	`, saleColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *sale)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO sales (number, customer_id, quotation_id, issue_date, due_date,
			status, subtotal, discount_total, tax_total, total, paid_amount, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		sale.Number, sale.CustomerID, sale.QuotationID, sale.IssueDate, sale.DueDate,
		sale.Status, sale.Subtotal, sale.DiscountTotal, sale.TaxTotal, sale.Total,
		sale.PaidAmount, textOrNil(sale.Notes),
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: invoice number already taken", httpx.ErrDuplicate)
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE sales SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	cols := []string{
		"customer_id", "issue_date", "due_date", "notes",
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

func (r *repository) UpdatePaid(ctx context.Context, id int64, paid float64, status SaleStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales SET paid_amount = $1, status = $2, updated_at = NOW() WHERE id = $3
	`, paid, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	if err := r.DeletePayments(ctx, id); err != nil {
		return err
	}
	if err := r.DeleteItems(ctx, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, "DELETE FROM sales WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// NextNumber derives the next invoice number within a series. Must run
// inside the creation transaction; the unique index on number backstops
// concurrent creates.
func (r *repository) NextNumber(ctx context.Context, series string) (string, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(SUBSTRING(number FROM LENGTH($1) + 2)::bigint), 0) + 1
		FROM sales
		WHERE number LIKE $1 || '-%'
	`, series).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", series, seq), nil
}

func (r *repository) InsertItem(ctx context.Context, item SaleItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO sale_items (sale_id, product_id, description, quantity, unit_price,
			discount_amount, tax_percent, tax_amount, line_total, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		item.SaleID, item.ProductID, item.Description, item.Quantity, item.UnitPrice,
		item.DiscountAmount, item.TaxPercent, item.TaxAmount, item.LineTotal, item.Position,
	).Scan(&id)
	return id, err
}

func (r *repository) DeleteItems(ctx context.Context, saleID int64) error {
	_, err := r.db.Exec(ctx, "DELETE FROM sale_items WHERE sale_id = $1", saleID)
	return err
}

func (r *repository) ListItems(ctx context.Context, saleID int64) ([]SaleItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, sale_id, product_id, description, quantity, unit_price,
		       discount_amount, tax_percent, tax_amount, line_total, position
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY position, id
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SaleItem
	for rows.Next() {
		var it SaleItem
		var productID pgtype.Int8
		if err := rows.Scan(
			&it.ID, &it.SaleID, &productID, &it.Description, &it.Quantity, &it.UnitPrice,
			&it.DiscountAmount, &it.TaxPercent, &it.TaxAmount, &it.LineTotal, &it.Position,
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

func (r *repository) SumPayments(ctx context.Context, saleID int64) (float64, error) {
	var sum float64
	err := r.db.QueryRow(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE sale_id = $1", saleID).Scan(&sum)
	return sum, err
}

func (r *repository) InsertPayment(ctx context.Context, saleID int64, amount float64, method *string, paidAt time.Time, reference string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO payments (sale_id, amount, method, paid_at, reference)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, saleID, amount, textOrNil(method), paidAt, reference).Scan(&id)
	return id, err
}

func (r *repository) DeletePayments(ctx context.Context, saleID int64) error {
	_, err := r.db.Exec(ctx, "DELETE FROM payments WHERE sale_id = $1", saleID)
	return err
}

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	var quotationID pgtype.Int8
	var issueDate, dueDate pgtype.Date
	var notes pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&s.ID, &s.Number, &s.CustomerID, &s.CustomerName, &quotationID, &issueDate,
		&dueDate, &s.Status, &s.Subtotal, &s.DiscountTotal, &s.TaxTotal,
		&s.Total, &s.PaidAmount, &notes, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if quotationID.Valid {
		s.QuotationID = &quotationID.Int64
	}
	if issueDate.Valid {
		s.IssueDate = issueDate.Time
	}
	if dueDate.Valid {
		s.DueDate = &dueDate.Time
	}
	if notes.Valid {
		s.Notes = &notes.String
	}
	if createdAt.Valid {
		s.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		s.UpdatedAt = updatedAt.Time
	}
	return &s, nil
}

func textOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
