package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facturo-erp/facturo-erp/internal/finance"
	"github.com/facturo-erp/facturo-erp/internal/platform/httpx"
	"github.com/facturo-erp/facturo-erp/internal/sales/invoices"
)

type memorySale struct {
	id     int64
	total  float64
	paid   float64
	status invoices.SaleStatus
}

type memoryRepo struct {
	sales    map[int64]*memorySale
	payments map[int64]*Payment
	nextID   int64
}

func newMemoryRepo(sales ...*memorySale) *memoryRepo {
	r := &memoryRepo{
		sales:    make(map[int64]*memorySale),
		payments: make(map[int64]*Payment),
	}
	for _, s := range sales {
		if s.status == "" {
			s.status = invoices.SaleStatusIssued
		}
		r.sales[s.id] = s
	}
	return r
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *memoryRepo) List(ctx context.Context, req ListPaymentsRequest) ([]Payment, int, error) {
	var out []Payment
	for _, p := range r.payments {
		if req.SaleID != nil && p.SaleID != *req.SaleID {
			continue
		}
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Insert(ctx context.Context, p Payment) (int64, error) {
	r.nextID++
	p.ID = r.nextID
	r.payments[p.ID] = &p
	return p.ID, nil
}

func (r *memoryRepo) Move(ctx context.Context, id, saleID int64) error {
	p, ok := r.payments[id]
	if !ok {
		return httpx.ErrNotFound
	}
	p.SaleID = saleID
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.payments[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.payments, id)
	return nil
}

func (r *memoryRepo) SumForSale(ctx context.Context, saleID int64) (float64, error) {
	var sum float64
	for _, p := range r.payments {
		if p.SaleID == saleID {
			sum += p.Amount
		}
	}
	return sum, nil
}

func (r *memoryRepo) GetSaleFinancials(ctx context.Context, saleID int64) (*SaleFinancials, error) {
	s, ok := r.sales[saleID]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return &SaleFinancials{ID: s.id, Total: s.total}, nil
}

func (r *memoryRepo) UpdateSalePaid(ctx context.Context, saleID int64, paid float64, status invoices.SaleStatus) error {
	s, ok := r.sales[saleID]
	if !ok {
		return httpx.ErrNotFound
	}
	s.paid = paid
	s.status = status
	return nil
}

func record(t *testing.T, svc *Service, saleID int64, amount float64) *Payment {
	t.Helper()
	p, err := svc.Record(context.Background(), CreatePaymentRequest{
		SaleID: saleID,
		Amount: amount,
		PaidAt: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return p
}

func TestRecordWalksStatusMachine(t *testing.T) {
	repo := newMemoryRepo(&memorySale{id: 1, total: 300.00})
	svc := NewService(repo, nil)

	record(t, svc, 1, 100.00)
	require.Equal(t, invoices.SaleStatusPartial, repo.sales[1].status)

	record(t, svc, 1, 100.00)
	// 200 + tolerance still short of 300.
	require.Equal(t, invoices.SaleStatusPartial, repo.sales[1].status)

	record(t, svc, 1, 100.00)
	require.Equal(t, invoices.SaleStatusPaid, repo.sales[1].status)
	require.InDelta(t, 300.00, repo.sales[1].paid, 1e-9)
}

func TestRecordToleranceBoundary(t *testing.T) {
	repo := newMemoryRepo(&memorySale{id: 1, total: 100.00})
	svc := NewService(repo, nil)

	// Exactly balance + tolerance is accepted.
	p := record(t, svc, 1, 100.01)
	require.NotEmpty(t, p.Reference)
	require.Equal(t, invoices.SaleStatusPaid, repo.sales[1].status)

	// One more cent over is rejected.
	repo2 := newMemoryRepo(&memorySale{id: 1, total: 100.00})
	svc2 := NewService(repo2, nil)
	_, err := svc2.Record(context.Background(), CreatePaymentRequest{
		SaleID: 1, Amount: 100.02, PaidAt: time.Now(),
	})
	require.ErrorIs(t, err, finance.ErrOverpayment)
	require.Empty(t, repo2.payments)
	require.Equal(t, invoices.SaleStatusIssued, repo2.sales[1].status)
}

func TestRecordAgainstRemainingBalance(t *testing.T) {
	repo := newMemoryRepo(&memorySale{id: 1, total: 300.00})
	svc := NewService(repo, nil)

	record(t, svc, 1, 250.00)

	// Balance is now 50; 60 must be rejected even though it is under the total.
	_, err := svc.Record(context.Background(), CreatePaymentRequest{
		SaleID: 1, Amount: 60.00, PaidAt: time.Now(),
	})
	require.ErrorIs(t, err, finance.ErrOverpayment)

	record(t, svc, 1, 50.00)
	require.Equal(t, invoices.SaleStatusPaid, repo.sales[1].status)
}

func TestReassignRefreshesBothSales(t *testing.T) {
	repo := newMemoryRepo(
		&memorySale{id: 1, total: 300.00},
		&memorySale{id: 2, total: 100.00},
	)
	svc := NewService(repo, nil)

	p := record(t, svc, 1, 100.00)
	require.Equal(t, invoices.SaleStatusPartial, repo.sales[1].status)

	moved, err := svc.Reassign(context.Background(), p.ID, ReassignPaymentRequest{SaleID: 2})
	require.NoError(t, err)

	require.EqualValues(t, 2, moved.SaleID)
	require.Equal(t, p.Reference, moved.Reference)
	require.Equal(t, invoices.SaleStatusIssued, repo.sales[1].status)
	require.Zero(t, repo.sales[1].paid)
	require.Equal(t, invoices.SaleStatusPaid, repo.sales[2].status)
	require.InDelta(t, 100.00, repo.sales[2].paid, 1e-9)
}

func TestReassignExcludesOwnContribution(t *testing.T) {
	repo := newMemoryRepo(&memorySale{id: 1, total: 100.00})
	svc := NewService(repo, nil)

	p := record(t, svc, 1, 100.00)
	require.Equal(t, invoices.SaleStatusPaid, repo.sales[1].status)

	// Reassigning onto the same fully-paid sale must not read its own
	// amount as occupied balance.
	_, err := svc.Reassign(context.Background(), p.ID, ReassignPaymentRequest{SaleID: 1})
	require.NoError(t, err)
	require.Equal(t, invoices.SaleStatusPaid, repo.sales[1].status)
}

func TestReassignRejectsOverfilledTarget(t *testing.T) {
	repo := newMemoryRepo(
		&memorySale{id: 1, total: 300.00},
		&memorySale{id: 2, total: 50.00},
	)
	svc := NewService(repo, nil)

	p := record(t, svc, 1, 100.00)

	_, err := svc.Reassign(context.Background(), p.ID, ReassignPaymentRequest{SaleID: 2})
	require.ErrorIs(t, err, finance.ErrOverpayment)

	// Nothing moved, nothing refreshed away.
	require.EqualValues(t, 1, repo.payments[p.ID].SaleID)
	require.Equal(t, invoices.SaleStatusPartial, repo.sales[1].status)
}

func TestRemoveRollsStatusBack(t *testing.T) {
	repo := newMemoryRepo(&memorySale{id: 1, total: 100.00})
	svc := NewService(repo, nil)

	p := record(t, svc, 1, 100.00)
	require.Equal(t, invoices.SaleStatusPaid, repo.sales[1].status)

	require.NoError(t, svc.Remove(context.Background(), p.ID))
	require.Empty(t, repo.payments)
	require.Equal(t, invoices.SaleStatusIssued, repo.sales[1].status)
	require.Zero(t, repo.sales[1].paid)
}

func TestPaidAmountMonotonicUnderRecording(t *testing.T) {
	repo := newMemoryRepo(&memorySale{id: 1, total: 500.00})
	svc := NewService(repo, nil)

	var last float64
	for _, amount := range []float64{50, 125.25, 100, 224.75} {
		record(t, svc, 1, amount)
		require.GreaterOrEqual(t, repo.sales[1].paid, last)
		last = repo.sales[1].paid
	}
	require.Equal(t, invoices.SaleStatusPaid, repo.sales[1].status)
}
