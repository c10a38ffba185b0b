package receivables

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	OpenSales(ctx context.Context) ([]OpenSale, error)
	RevenueTotals(ctx context.Context, from, to time.Time) (revenue, tax, taxable float64, count int, err error)
	CollectedTotal(ctx context.Context, from, to time.Time) (float64, error)
	UnitsSold(ctx context.Context, from, to time.Time) (float64, error)
	PayingCustomers(ctx context.Context, from, to time.Time) (int, error)
	DailyRevenue(ctx context.Context, from, to time.Time) (map[string]float64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// OpenSales returns every sale still owing money. Balance comes from
// the persisted paid_amount, which the ledger keeps in sync.
func (r *repository) OpenSales(ctx context.Context) ([]OpenSale, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, due_date, total - paid_amount
		FROM sales
		WHERE status IN ('ISSUED', 'PARTIAL')
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OpenSale
	for rows.Next() {
		var s OpenSale
		var due pgtype.Date
		if err := rows.Scan(&s.SaleID, &due, &s.Balance); err != nil {
			return nil, err
		}
		if due.Valid {
			s.DueDate = &due.Time
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) RevenueTotals(ctx context.Context, from, to time.Time) (float64, float64, float64, int, error) {
	var revenue, tax, taxable float64
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0), COALESCE(SUM(tax_total), 0),
		       COALESCE(SUM(subtotal) FILTER (WHERE tax_total > 0), 0), COUNT(*)
		FROM sales
		WHERE issue_date >= $1 AND issue_date < $2
	`, from, to).Scan(&revenue, &tax, &taxable, &count)
	return revenue, tax, taxable, count, err
}

func (r *repository) CollectedTotal(ctx context.Context, from, to time.Time) (float64, error) {
	var collected float64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE paid_at >= $1 AND paid_at < $2
	`, from, to).Scan(&collected)
	return collected, err
}

func (r *repository) UnitsSold(ctx context.Context, from, to time.Time) (float64, error) {
	var units float64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(si.quantity), 0)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.issue_date >= $1 AND s.issue_date < $2
	`, from, to).Scan(&units)
	return units, err
}

// PayingCustomers counts distinct customers with a sale issued in the
// window, regardless of whether money has arrived yet.
func (r *repository) PayingCustomers(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT customer_id)
		FROM sales
		WHERE issue_date >= $1 AND issue_date < $2
	`, from, to).Scan(&count)
	return count, err
}

// DailyRevenue returns issued totals keyed by ISO date. Days without
// sales are absent; the service zero-fills the series.
func (r *repository) DailyRevenue(ctx context.Context, from, to time.Time) (map[string]float64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT issue_date, COALESCE(SUM(total), 0)
		FROM sales
		WHERE issue_date >= $1 AND issue_date < $2
		GROUP BY issue_date
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var day pgtype.Date
		var total float64
		if err := rows.Scan(&day, &total); err != nil {
			return nil, err
		}
		if day.Valid {
			out[day.Time.Format("2006-01-02")] = total
		}
	}
	return out, rows.Err()
}
