package receivables

import "time"

// Bucket summarises open sales that fall on one side of the due date.
type Bucket struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// Snapshot is the accounts receivable position at a point in time.
// Payables mirror the shape but always report zero: supplier invoices
// are not tracked here yet.
type Snapshot struct {
	AsOf        time.Time `json:"as_of"`
	Current     Bucket    `json:"current"`
	Overdue     Bucket    `json:"overdue"`
	Outstanding float64   `json:"outstanding"`
	Payables    Bucket    `json:"payables"`
}

// OpenSale is one unsettled sale as the aggregator sees it. DueDate is
// nil for sales issued without payment terms; those never go overdue.
type OpenSale struct {
	SaleID  int64      `json:"sale_id"`
	DueDate *time.Time `json:"due_date,omitempty"`
	Balance float64    `json:"balance"`
}

// DailyPoint is one day of the month-to-date revenue series.
type DailyPoint struct {
	Date    time.Time `json:"date"`
	Revenue float64   `json:"revenue"`
}

// MonthToDate carries the dashboard KPI card for the current month.
type MonthToDate struct {
	From            time.Time    `json:"from"`
	To              time.Time    `json:"to"`
	Revenue         float64      `json:"revenue"`
	Collected       float64      `json:"collected"`
	TaxCollected    float64      `json:"tax_collected"`
	TaxableBase     float64      `json:"taxable_base"`
	InvoiceCount    int          `json:"invoice_count"`
	UnitsSold       float64      `json:"units_sold"`
	PayingCustomers int          `json:"paying_customers"`
	DailyRevenue    []DailyPoint `json:"daily_revenue"`
}
