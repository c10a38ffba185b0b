package invoices

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"

	"github.com/facturo-erp/facturo-erp/internal/finance"
	"github.com/facturo-erp/facturo-erp/internal/platform/httpx"
	"github.com/facturo-erp/facturo-erp/internal/sales/customers"
	"github.com/facturo-erp/facturo-erp/internal/sales/quotations"
)

type memoryPayment struct {
	id        int64
	saleID    int64
	amount    float64
	reference string
}

type memoryRepo struct {
	sales       map[int64]*Sale
	items       map[int64][]SaleItem
	payments    map[int64]*memoryPayment
	nextID      int64
	nextItemID  int64
	nextPayID   int64
	seqBySeries map[string]int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		sales:       make(map[int64]*Sale),
		items:       make(map[int64][]SaleItem),
		payments:    make(map[int64]*memoryPayment),
		seqBySeries: make(map[string]int64),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	clone := *s
	clone.Items = append([]SaleItem(nil), r.items[id]...)
	return &clone, nil
}

func (r *memoryRepo) List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	statuses := ExpandStatusFilter(req.Status)
	var out []Sale
	for _, s := range r.sales {
		if len(statuses) > 0 {
			match := false
			for _, st := range statuses {
				if s.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(ctx context.Context, sale Sale) (int64, error) {
	r.nextID++
	sale.ID = r.nextID
	r.sales[sale.ID] = &sale
	return sale.ID, nil
}

func (r *memoryRepo) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	s, ok := r.sales[id]
	if !ok {
		return httpx.ErrNotFound
	}
	if v, ok := updates["subtotal"]; ok {
		s.Subtotal = v.(float64)
	}
	if v, ok := updates["discount_total"]; ok {
		s.DiscountTotal = v.(float64)
	}
	if v, ok := updates["tax_total"]; ok {
		s.TaxTotal = v.(float64)
	}
	if v, ok := updates["total"]; ok {
		s.Total = v.(float64)
	}
	if v, ok := updates["notes"]; ok {
		n := v.(string)
		s.Notes = &n
	}
	return nil
}

func (r *memoryRepo) UpdatePaid(ctx context.Context, id int64, paid float64, status SaleStatus) error {
	s, ok := r.sales[id]
	if !ok {
		return httpx.ErrNotFound
	}
	s.PaidAmount = paid
	s.Status = status
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.sales[id]; !ok {
		return httpx.ErrNotFound
	}
	_ = r.DeletePayments(ctx, id)
	delete(r.items, id)
	delete(r.sales, id)
	return nil
}

func (r *memoryRepo) NextNumber(ctx context.Context, series string) (string, error) {
	r.seqBySeries[series]++
	return fmt.Sprintf("%s-%06d", series, r.seqBySeries[series]), nil
}

func (r *memoryRepo) InsertItem(ctx context.Context, item SaleItem) (int64, error) {
	r.nextItemID++
	item.ID = r.nextItemID
	r.items[item.SaleID] = append(r.items[item.SaleID], item)
	return item.ID, nil
}

func (r *memoryRepo) DeleteItems(ctx context.Context, saleID int64) error {
	delete(r.items, saleID)
	return nil
}

func (r *memoryRepo) ListItems(ctx context.Context, saleID int64) ([]SaleItem, error) {
	return r.items[saleID], nil
}

func (r *memoryRepo) SumPayments(ctx context.Context, saleID int64) (float64, error) {
	var sum float64
	for _, p := range r.payments {
		if p.saleID == saleID {
			sum += p.amount
		}
	}
	return sum, nil
}

func (r *memoryRepo) InsertPayment(ctx context.Context, saleID int64, amount float64, method *string, paidAt time.Time, reference string) (int64, error) {
	r.nextPayID++
	r.payments[r.nextPayID] = &memoryPayment{id: r.nextPayID, saleID: saleID, amount: amount, reference: reference}
	return r.nextPayID, nil
}

func (r *memoryRepo) DeletePayments(ctx context.Context, saleID int64) error {
	for id, p := range r.payments {
		if p.saleID == saleID {
			delete(r.payments, id)
		}
	}
	return nil
}

type memoryCustomerRepo struct{}

func (r *memoryCustomerRepo) WithTx(ctx context.Context, fn func(context.Context, customers.Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryCustomerRepo) Get(ctx context.Context, id int64) (*customers.Customer, error) {
	if id != 1 {
		return nil, httpx.ErrNotFound
	}
	return &customers.Customer{ID: 1, Name: "Acme SAC"}, nil
}

func (r *memoryCustomerRepo) List(ctx context.Context, req customers.ListCustomersRequest) ([]customers.Customer, int, error) {
	return nil, 0, nil
}

func (r *memoryCustomerRepo) Create(ctx context.Context, c customers.Customer) (int64, error) {
	return 0, nil
}

func (r *memoryCustomerRepo) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	return nil
}

func (r *memoryCustomerRepo) Delete(ctx context.Context, id int64) error {
	return nil
}

type memoryQuotationRepo struct {
	quotations map[int64]*quotations.Quotation
}

func (r *memoryQuotationRepo) WithTx(ctx context.Context, fn func(context.Context, quotations.Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryQuotationRepo) Get(ctx context.Context, id int64) (*quotations.Quotation, error) {
	q, ok := r.quotations[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return q, nil
}

func (r *memoryQuotationRepo) List(ctx context.Context, req quotations.ListQuotationsRequest) ([]quotations.Quotation, int, error) {
	return nil, 0, nil
}

func (r *memoryQuotationRepo) Create(ctx context.Context, q quotations.Quotation) (int64, error) {
	return 0, nil
}

func (r *memoryQuotationRepo) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	return nil
}

func (r *memoryQuotationRepo) UpdateStatus(ctx context.Context, id int64, status quotations.QuotationStatus) error {
	return nil
}

func (r *memoryQuotationRepo) Delete(ctx context.Context, id int64) error { return nil }

func (r *memoryQuotationRepo) NextNumber(ctx context.Context) (string, error) { return "", nil }

func (r *memoryQuotationRepo) InsertItem(ctx context.Context, item quotations.QuotationItem) (int64, error) {
	return 0, nil
}

func (r *memoryQuotationRepo) DeleteItems(ctx context.Context, quotationID int64) error { return nil }

func (r *memoryQuotationRepo) ListItems(ctx context.Context, quotationID int64) ([]quotations.QuotationItem, error) {
	return nil, nil
}

func (r *memoryQuotationRepo) ExpireOverdue(ctx context.Context, asOf pgtype.Date) (int64, error) {
	return 0, nil
}

func newTestService(quotationRepo quotations.Repository) (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, &memoryCustomerRepo{}, quotationRepo, "F001", nil), repo
}

func validCreateRequest() CreateSaleRequest {
	return CreateSaleRequest{
		CustomerID: 1,
		IssueDate:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Items: []SaleItemRequest{
			{Description: "License", Quantity: 3, UnitPrice: 100, TaxPercent: 18},
		},
	}
}

func TestCreateSaleComputesTotalsAndNumber(t *testing.T) {
	svc, _ := newTestService(&memoryQuotationRepo{})

	sale, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	require.Equal(t, "F001-000001", sale.Number)
	require.Equal(t, SaleStatusIssued, sale.Status)
	require.InDelta(t, 300.00, sale.Subtotal, 1e-9)
	require.InDelta(t, 54.00, sale.TaxTotal, 1e-9)
	require.InDelta(t, 354.00, sale.Total, 1e-9)
	require.Zero(t, sale.PaidAmount)
}

func TestCreateSaleClampsOversizedDiscount(t *testing.T) {
	svc, _ := newTestService(&memoryQuotationRepo{})

	req := CreateSaleRequest{
		CustomerID: 1,
		IssueDate:  time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Items: []SaleItemRequest{
			{Description: "Clamped", Quantity: 1, UnitPrice: 50, DiscountAmount: 80, TaxPercent: 18},
			{Description: "Real", Quantity: 1, UnitPrice: 100, TaxPercent: 18},
		},
	}

	sale, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	clamped := sale.Items[0]
	require.InDelta(t, 50.00, clamped.DiscountAmount, 1e-9)
	require.InDelta(t, 0.00, clamped.TaxAmount, 1e-9)
	require.InDelta(t, 0.00, clamped.LineTotal, 1e-9)
	require.InDelta(t, 118.00, sale.Total, 1e-9)
}

func TestCreateSaleRejectsZeroTotal(t *testing.T) {
	svc, _ := newTestService(&memoryQuotationRepo{})

	req := validCreateRequest()
	req.Items = []SaleItemRequest{
		{Description: "Clamped to nothing", Quantity: 1, UnitPrice: 50, DiscountAmount: 80, TaxPercent: 18},
	}

	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, finance.ErrEmptyDocument)
}

func TestCreateSaleWithInitialPayment(t *testing.T) {
	svc, repo := newTestService(&memoryQuotationRepo{})

	initial := 100.00
	req := validCreateRequest()
	req.InitialPayment = &initial

	sale, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, SaleStatusPartial, sale.Status)
	require.InDelta(t, 100.00, sale.PaidAmount, 1e-9)
	require.Len(t, repo.payments, 1)
	for _, p := range repo.payments {
		require.NotEmpty(t, p.reference)
	}
}

func TestCreateSaleRejectsInitialOverpayment(t *testing.T) {
	svc, repo := newTestService(&memoryQuotationRepo{})

	initial := 354.02
	req := validCreateRequest()
	req.InitialPayment = &initial

	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, finance.ErrOverpayment)
	require.Empty(t, repo.sales)

	// Within tolerance is accepted and settles the sale.
	initial = 354.01
	req.InitialPayment = &initial
	sale, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, SaleStatusPaid, sale.Status)
}

func TestCreateFromQuotation(t *testing.T) {
	notes := "from quote"
	qrepo := &memoryQuotationRepo{quotations: map[int64]*quotations.Quotation{
		7: {
			ID:         7,
			Number:     "COT-0007",
			CustomerID: 1,
			Status:     quotations.QuotationStatusAccepted,
			Notes:      &notes,
			Items: []quotations.QuotationItem{
				{Description: "Consulting", Quantity: 10, UnitPrice: 20, DiscountPercent: 10, TaxRate: 0.18, DiscountAmount: 20},
			},
		},
	}}
	svc, _ := newTestService(qrepo)

	sale, err := svc.CreateFromQuotation(context.Background(), CreateFromQuotationRequest{
		QuotationID: 7,
		IssueDate:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NotNil(t, sale.QuotationID)
	require.EqualValues(t, 7, *sale.QuotationID)
	// Percentage discount carried over as the computed absolute amount.
	require.InDelta(t, 20.00, sale.Items[0].DiscountAmount, 1e-9)
	require.InDelta(t, 18.00, sale.Items[0].TaxPercent, 1e-9)
	require.InDelta(t, 212.40, sale.Total, 1e-9)
}

func TestCreateFromQuotationRequiresAccepted(t *testing.T) {
	qrepo := &memoryQuotationRepo{quotations: map[int64]*quotations.Quotation{
		7: {ID: 7, CustomerID: 1, Status: quotations.QuotationStatusSent},
	}}
	svc, _ := newTestService(qrepo)

	_, err := svc.CreateFromQuotation(context.Background(), CreateFromQuotationRequest{
		QuotationID: 7,
		IssueDate:   time.Now(),
	})
	require.ErrorIs(t, err, ErrQuotationNotAccepted)
}

func TestUpdateRefoldsButKeepsStatus(t *testing.T) {
	svc, _ := newTestService(&memoryQuotationRepo{})

	initial := 100.00
	req := validCreateRequest()
	req.InitialPayment = &initial
	sale, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, SaleStatusPartial, sale.Status)

	newItems := []SaleItemRequest{
		{Description: "Smaller scope", Quantity: 1, UnitPrice: 100, TaxPercent: 18},
	}
	updated, err := svc.Update(context.Background(), sale.ID, UpdateSaleRequest{Items: &newItems})
	require.NoError(t, err)

	require.InDelta(t, 118.00, updated.Total, 1e-9)
	// Line replacement does not re-run the status machine.
	require.Equal(t, SaleStatusPartial, updated.Status)
	require.InDelta(t, 100.00, updated.PaidAmount, 1e-9)
}

func TestDeleteCascades(t *testing.T) {
	svc, repo := newTestService(&memoryQuotationRepo{})

	initial := 50.00
	req := validCreateRequest()
	req.InitialPayment = &initial
	sale, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), sale.ID))
	require.Empty(t, repo.sales)
	require.Empty(t, repo.items)
	require.Empty(t, repo.payments)
}

func TestListPendingFilter(t *testing.T) {
	svc, repo := newTestService(&memoryQuotationRepo{})

	_, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	full := 354.00
	req := validCreateRequest()
	req.InitialPayment = &full
	paidSale, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, SaleStatusPaid, paidSale.Status)

	pending, _, err := svc.List(context.Background(), ListSalesRequest{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, SaleStatusIssued, pending[0].Status)
	require.Len(t, repo.sales, 2)
}
