package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/facturo-erp/facturo-erp/internal/finance"
	"github.com/facturo-erp/facturo-erp/internal/platform/httpx"
	"github.com/facturo-erp/facturo-erp/internal/sales/customers"
	"github.com/facturo-erp/facturo-erp/internal/sales/quotations"
)

var ErrQuotationNotAccepted = errors.New("quotation must be ACCEPTED to invoice")

// CacheBumper invalidates derived read models (receivables snapshots)
// after a financial mutation. A nil bumper is a no-op so tests and the
// worker can run without Redis.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

type Service struct {
	repo          Repository
	customerRepo  customers.Repository
	quotationRepo quotations.Repository
	series        string
	bumper        CacheBumper
	validate      *validator.Validate
}

func NewService(repo Repository, customerRepo customers.Repository, quotationRepo quotations.Repository, series string, bumper CacheBumper) *Service {
	return &Service{
		repo:          repo,
		customerRepo:  customerRepo,
		quotationRepo: quotationRepo,
		series:        series,
		bumper:        bumper,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

// computeItems prices the requested lines. Sale lines carry an absolute
// discount and a 0-100 tax percentage, always tax-exclusive. Oversized
// discounts clamp to the line base instead of failing.
func computeItems(reqs []SaleItemRequest) ([]SaleItem, finance.Totals) {
	items := make([]SaleItem, 0, len(reqs))
	results := make([]finance.LineResult, 0, len(reqs))
	for i, lr := range reqs {
		res := finance.ComputeLine(finance.LineInput{
			Quantity:  lr.Quantity,
			UnitPrice: lr.UnitPrice,
			Discount:  finance.DiscountAbsolute(finance.AbsoluteAmount(lr.DiscountAmount)),
			Tax:       finance.TaxPercent(finance.Percentage(lr.TaxPercent)),
			Treatment: finance.TaxExclusive,
		})
		results = append(results, res)
		items = append(items, SaleItem{
			ProductID:      lr.ProductID,
			Description:    lr.Description,
			Quantity:       lr.Quantity,
			UnitPrice:      lr.UnitPrice,
			DiscountAmount: res.DiscountAmount,
			TaxPercent:     lr.TaxPercent,
			TaxAmount:      res.TaxAmount,
			LineTotal:      res.LineTotal,
			Position:       i + 1,
		})
	}
	return items, finance.FoldTotals(results)
}

func (s *Service) Create(ctx context.Context, req CreateSaleRequest) (*Sale, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if _, err := s.customerRepo.Get(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}

	items, totals := computeItems(req.Items)
	if totals.Total <= 0 {
		return nil, finance.ErrEmptyDocument
	}

	var initial float64
	if req.InitialPayment != nil {
		initial = *req.InitialPayment
		if initial > totals.Total+finance.PaymentTolerance {
			return nil, fmt.Errorf("%w: initial payment %.2f against total %.2f",
				finance.ErrOverpayment, initial, totals.Total)
		}
	}

	sale, err := s.persistNew(ctx, Sale{
		CustomerID:    req.CustomerID,
		IssueDate:     req.IssueDate,
		DueDate:       req.DueDate,
		Subtotal:      totals.Subtotal,
		DiscountTotal: totals.DiscountTotal,
		TaxTotal:      totals.TaxTotal,
		Total:         totals.Total,
		Notes:         req.Notes,
	}, items, initial, req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	s.bump(ctx)
	return sale, nil
}

// CreateFromQuotation issues an invoice for an accepted quotation. The
// quotation's percentage discounts become absolute amounts and its
// fractional tax rates become percentages; pricing is then recomputed
// in the sale's tax-exclusive mode.
func (s *Service) CreateFromQuotation(ctx context.Context, req CreateFromQuotationRequest) (*Sale, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	quotation, err := s.quotationRepo.Get(ctx, req.QuotationID)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if quotation.Status != quotations.QuotationStatusAccepted {
		return nil, fmt.Errorf("%w: quotation %s is %s", ErrQuotationNotAccepted, quotation.Number, quotation.Status)
	}

	itemReqs := make([]SaleItemRequest, 0, len(quotation.Items))
	for _, it := range quotation.Items {
		itemReqs = append(itemReqs, SaleItemRequest{
			ProductID:      it.ProductID,
			Description:    it.Description,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			DiscountAmount: it.DiscountAmount,
			TaxPercent:     it.TaxRate * 100,
		})
	}

	items, totals := computeItems(itemReqs)
	if totals.Total <= 0 {
		return nil, finance.ErrEmptyDocument
	}

	var initial float64
	if req.InitialPayment != nil {
		initial = *req.InitialPayment
		if initial > totals.Total+finance.PaymentTolerance {
			return nil, fmt.Errorf("%w: initial payment %.2f against total %.2f",
				finance.ErrOverpayment, initial, totals.Total)
		}
	}

	quotationID := quotation.ID
	sale, err := s.persistNew(ctx, Sale{
		CustomerID:    quotation.CustomerID,
		QuotationID:   &quotationID,
		IssueDate:     req.IssueDate,
		DueDate:       req.DueDate,
		Subtotal:      totals.Subtotal,
		DiscountTotal: totals.DiscountTotal,
		TaxTotal:      totals.TaxTotal,
		Total:         totals.Total,
		Notes:         quotation.Notes,
	}, items, initial, req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	s.bump(ctx)
	return sale, nil
}

func (s *Service) persistNew(ctx context.Context, sale Sale, items []SaleItem, initial float64, method *string) (*Sale, error) {
	sale.PaidAmount = initial
	sale.Status = DeriveStatus(sale.Total, initial)

	var saleID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		number, err := repo.NextNumber(ctx, s.series)
		if err != nil {
			return fmt.Errorf("next invoice number: %w", err)
		}
		sale.Number = number

		saleID, err = repo.Create(ctx, sale)
		if err != nil {
			return fmt.Errorf("create sale: %w", err)
		}

		for _, item := range items {
			item.SaleID = saleID
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert sale item: %w", err)
			}
		}

		if initial > 0 {
			if _, err := repo.InsertPayment(ctx, saleID, initial, method, sale.IssueDate, uuid.New().String()); err != nil {
				return fmt.Errorf("insert initial payment: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, saleID)
}

// Update replaces the full line set and refolds totals in one
// transaction. It deliberately leaves paid_amount and status untouched:
// only ledger mutations drive the status machine.
func (s *Service) Update(ctx context.Context, id int64, req UpdateSaleRequest) (*Sale, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}

	updates := make(map[string]interface{})
	if req.CustomerID != nil {
		if _, err := s.customerRepo.Get(ctx, *req.CustomerID); err != nil {
			return nil, fmt.Errorf("verify customer: %w", err)
		}
		updates["customer_id"] = *req.CustomerID
	}
	if req.IssueDate != nil {
		updates["issue_date"] = *req.IssueDate
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	var items []SaleItem
	if req.Items != nil {
		var totals finance.Totals
		items, totals = computeItems(*req.Items)
		if totals.Total <= 0 {
			return nil, finance.ErrEmptyDocument
		}
		updates["subtotal"] = totals.Subtotal
		updates["discount_total"] = totals.DiscountTotal
		updates["tax_total"] = totals.TaxTotal
		updates["total"] = totals.Total
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if len(updates) > 0 {
			if err := repo.UpdateHeader(ctx, id, updates); err != nil {
				return err
			}
		}
		if items != nil {
			if err := repo.DeleteItems(ctx, id); err != nil {
				return err
			}
			for _, item := range items {
				item.SaleID = id
				if _, err := repo.InsertItem(ctx, item); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update sale: %w", err)
	}

	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// Delete removes the sale together with its items and payments. The
// ledger rows go first so the sale never exists without its history.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return fmt.Errorf("get sale: %w", err)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}

	s.bump(ctx)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) bump(ctx context.Context) {
	if s.bumper != nil {
		_ = s.bumper.Bump(ctx)
	}
}
