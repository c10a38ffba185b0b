package quotations

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
)

type memoryRepo struct {
	quotations map[int64]*Quotation
	items      map[int64][]QuotationItem
	nextID     int64
	nextItemID int64
	seq        int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		quotations: make(map[int64]*Quotation),
		items:      make(map[int64][]QuotationItem),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, ok := r.quotations[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	clone := *q
	clone.Items = append([]QuotationItem(nil), r.items[id]...)
	return &clone, nil
}

func (r *memoryRepo) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	var out []Quotation
	for _, q := range r.quotations {
		if req.Status != nil && q.Status != *req.Status {
			continue
		}
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(ctx context.Context, q Quotation) (int64, error) {
	r.nextID++
	q.ID = r.nextID
	r.quotations[q.ID] = &q
	return q.ID, nil
}

func (r *memoryRepo) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	q, ok := r.quotations[id]
	if !ok {
		return httpx.ErrNotFound
	}
	if v, ok := updates["subtotal"]; ok {
		q.Subtotal = v.(float64)
	}
	if v, ok := updates["discount_total"]; ok {
		q.DiscountTotal = v.(float64)
	}
	if v, ok := updates["tax_total"]; ok {
		q.TaxTotal = v.(float64)
	}
	if v, ok := updates["total"]; ok {
		q.Total = v.(float64)
	}
	if v, ok := updates["tax_included"]; ok {
		q.TaxIncluded = v.(bool)
	}
	if v, ok := updates["notes"]; ok {
		s := v.(string)
		q.Notes = &s
	}
	return nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id int64, status QuotationStatus) error {
	q, ok := r.quotations[id]
	if !ok {
		return httpx.ErrNotFound
	}
	q.Status = status
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.quotations[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.quotations, id)
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) NextNumber(ctx context.Context) (string, error) {
	r.seq++
	return fmt.Sprintf("COT-%04d", r.seq), nil
}

func (r *memoryRepo) InsertItem(ctx context.Context, item QuotationItem) (int64, error) {
	r.nextItemID++
	item.ID = r.nextItemID
	r.items[item.QuotationID] = append(r.items[item.QuotationID], item)
	return item.ID, nil
}

func (r *memoryRepo) DeleteItems(ctx context.Context, quotationID int64) error {
	delete(r.items, quotationID)
	return nil
}

func (r *memoryRepo) ListItems(ctx context.Context, quotationID int64) ([]QuotationItem, error) {
	return r.items[quotationID], nil
}

func (r *memoryRepo) ExpireOverdue(ctx context.Context, asOf pgtype.Date) (int64, error) {
	var n int64
	for _, q := range r.quotations {
		if q.Status == QuotationStatusSent && q.ValidUntil.Before(asOf.Time) {
			q.Status = QuotationStatusExpired
			n++
		}
	}
	return n, nil
}

type memoryCustomerRepo struct {
	customers map[int64]*customers.Customer
}

func (r *memoryCustomerRepo) WithTx(ctx context.Context, fn func(context.Context, customers.Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryCustomerRepo) Get(ctx context.Context, id int64) (*customers.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return c, nil
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

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	custRepo := &memoryCustomerRepo{customers: map[int64]*customers.Customer{
		1: {ID: 1, Name: "Acme SAC"},
	}}
	return NewService(repo, custRepo), repo
}

func validCreateRequest() CreateQuotationRequest {
	return CreateQuotationRequest{
		CustomerID: 1,
		QuoteDate:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Items: []QuotationItemRequest{
			{Description: "Consulting", Quantity: 10, UnitPrice: 20, DiscountPercent: 10, TaxRate: 0.18},
		},
	}
}

func TestCreateQuotationComputesTotals(t *testing.T) {
	svc, _ := newTestService()

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	require.Equal(t, "COT-0001", q.Number)
	require.Equal(t, QuotationStatusDraft, q.Status)
	require.Len(t, q.Items, 1)
	require.InDelta(t, 180.00, q.Subtotal, 1e-9)
	require.InDelta(t, 20.00, q.DiscountTotal, 1e-9)
	require.InDelta(t, 32.40, q.TaxTotal, 1e-9)
	require.InDelta(t, 212.40, q.Total, 1e-9)
}

func TestCreateQuotationTaxIncluded(t *testing.T) {
	svc, _ := newTestService()

	req := validCreateRequest()
	req.TaxIncluded = true

	q, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	require.InDelta(t, 152.54, q.Subtotal, 1e-9)
	require.InDelta(t, 27.46, q.TaxTotal, 1e-9)
	require.InDelta(t, 180.00, q.Total, 1e-9)
}

func TestCreateQuotationRejectsZeroTotal(t *testing.T) {
	svc, _ := newTestService()

	req := validCreateRequest()
	req.Items = []QuotationItemRequest{
		{Description: "Freebie", Quantity: 5, UnitPrice: 0, TaxRate: 0.18},
	}

	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, finance.ErrEmptyDocument)
}

func TestCreateQuotationUnknownCustomer(t *testing.T) {
	svc, _ := newTestService()

	req := validCreateRequest()
	req.CustomerID = 99

	_, err := svc.Create(context.Background(), req)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestUpdateReplacesLinesAndRefolds(t *testing.T) {
	svc, repo := newTestService()

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	newItems := []QuotationItemRequest{
		{Description: "Support", Quantity: 2, UnitPrice: 50, TaxRate: 0.18},
		{Description: "Hosting", Quantity: 1, UnitPrice: 100, TaxRate: 0.18},
	}
	updated, err := svc.Update(context.Background(), q.ID, UpdateQuotationRequest{Items: &newItems})
	require.NoError(t, err)

	require.Len(t, updated.Items, 2)
	require.InDelta(t, 200.00, updated.Subtotal, 1e-9)
	require.InDelta(t, 36.00, updated.TaxTotal, 1e-9)
	require.InDelta(t, 236.00, updated.Total, 1e-9)
	// Full replacement: the original line is gone.
	require.Len(t, repo.items[q.ID], 2)
}

func TestUpdateRejectedOffDraft(t *testing.T) {
	svc, _ := newTestService()

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), q.ID)
	require.NoError(t, err)

	notes := "too late"
	_, err = svc.Update(context.Background(), q.ID, UpdateQuotationRequest{Notes: &notes})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestStatusTransitions(t *testing.T) {
	svc, _ := newTestService()

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)

	// Accept straight from DRAFT is not allowed.
	_, err = svc.Accept(context.Background(), q.ID)
	require.ErrorIs(t, err, ErrInvalidStatus)

	sent, err := svc.Send(context.Background(), q.ID)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusSent, sent.Status)

	accepted, err := svc.Accept(context.Background(), q.ID)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusAccepted, accepted.Status)

	// Terminal states stay put.
	_, err = svc.Reject(context.Background(), q.ID, nil)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRejectRecordsReason(t *testing.T) {
	svc, _ := newTestService()

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), q.ID)
	require.NoError(t, err)

	reason := "price too high"
	rejected, err := svc.Reject(context.Background(), q.ID, &reason)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusRejected, rejected.Status)
	require.NotNil(t, rejected.Notes)
	require.Contains(t, *rejected.Notes, "price too high")
}

func TestExpireOverdueSweep(t *testing.T) {
	svc, repo := newTestService()

	q, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), q.ID)
	require.NoError(t, err)

	// Sweep before the deadline touches nothing.
	n, err := svc.ExpireOverdue(context.Background(), time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = svc.ExpireOverdue(context.Background(), time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, QuotationStatusExpired, repo.quotations[q.ID].Status)
}
