package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/facturo-erp/facturo-erp/internal/finance"
	"github.com/facturo-erp/facturo-erp/internal/platform/httpx"
	"github.com/facturo-erp/facturo-erp/internal/sales/customers"
)

var ErrInvalidStatus = errors.New("invalid status transition")

type Service struct {
	repo         Repository
	customerRepo customers.Repository
	validate     *validator.Validate
}

func NewService(repo Repository, customerRepo customers.Repository) *Service {
	return &Service{
		repo:         repo,
		customerRepo: customerRepo,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

// computeItems prices the requested lines. Quotation lines carry a
// percentage discount and a fractional tax rate; the header tax_included
// flag selects the treatment for every line.
func computeItems(reqs []QuotationItemRequest, taxIncluded bool) ([]QuotationItem, finance.Totals) {
	treatment := finance.TaxExclusive
	if taxIncluded {
		treatment = finance.TaxInclusive
	}

	items := make([]QuotationItem, 0, len(reqs))
	results := make([]finance.LineResult, 0, len(reqs))
	for i, lr := range reqs {
		res := finance.ComputeLine(finance.LineInput{
			Quantity:  lr.Quantity,
			UnitPrice: lr.UnitPrice,
			Discount:  finance.DiscountPercent(finance.Percentage(lr.DiscountPercent)),
			Tax:       finance.TaxFraction(finance.Fraction(lr.TaxRate)),
			Treatment: treatment,
		})
		results = append(results, res)
		items = append(items, QuotationItem{
			ProductID:       lr.ProductID,
			Description:     lr.Description,
			Quantity:        lr.Quantity,
			UnitPrice:       lr.UnitPrice,
			DiscountPercent: lr.DiscountPercent,
			TaxRate:         lr.TaxRate,
			DiscountAmount:  res.DiscountAmount,
			TaxAmount:       res.TaxAmount,
			LineTotal:       res.LineTotal,
			Position:        i + 1,
		})
	}
	return items, finance.FoldTotals(results)
}

func (s *Service) Create(ctx context.Context, req CreateQuotationRequest) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if req.ValidUntil.Before(req.QuoteDate) {
		return nil, fmt.Errorf("%w: valid_until must not precede quote_date", httpx.ErrValidation)
	}
	if _, err := s.customerRepo.Get(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}

	items, totals := computeItems(req.Items, req.TaxIncluded)
	if totals.Total <= 0 {
		return nil, finance.ErrEmptyDocument
	}

	var quotationID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		number, err := repo.NextNumber(ctx)
		if err != nil {
			return fmt.Errorf("next quotation number: %w", err)
		}

		quotationID, err = repo.Create(ctx, Quotation{
			Number:        number,
			CustomerID:    req.CustomerID,
			QuoteDate:     req.QuoteDate,
			ValidUntil:    req.ValidUntil,
			Status:        QuotationStatusDraft,
			TaxIncluded:   req.TaxIncluded,
			Subtotal:      totals.Subtotal,
			DiscountTotal: totals.DiscountTotal,
			TaxTotal:      totals.TaxTotal,
			Total:         totals.Total,
			Notes:         req.Notes,
		})
		if err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}

		for _, item := range items {
			item.QuotationID = quotationID
			if _, err := repo.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert quotation item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, quotationID)
}

// Update replaces the full line set and refolds totals inside one
// transaction. Stored totals are never patched incrementally.
func (s *Service) Update(ctx context.Context, id int64, req UpdateQuotationRequest) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if existing.Status != QuotationStatusDraft {
		return nil, fmt.Errorf("%w: only DRAFT quotations can be edited", ErrInvalidStatus)
	}

	taxIncluded := existing.TaxIncluded
	if req.TaxIncluded != nil {
		taxIncluded = *req.TaxIncluded
	}

	updates := make(map[string]interface{})
	if req.CustomerID != nil {
		if _, err := s.customerRepo.Get(ctx, *req.CustomerID); err != nil {
			return nil, fmt.Errorf("verify customer: %w", err)
		}
		updates["customer_id"] = *req.CustomerID
	}
	if req.QuoteDate != nil {
		updates["quote_date"] = *req.QuoteDate
	}
	if req.ValidUntil != nil {
		updates["valid_until"] = *req.ValidUntil
	}
	if req.TaxIncluded != nil {
		updates["tax_included"] = *req.TaxIncluded
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	var items []QuotationItem
	if req.Items != nil {
		var totals finance.Totals
		items, totals = computeItems(*req.Items, taxIncluded)
		if totals.Total <= 0 {
			return nil, finance.ErrEmptyDocument
		}
		updates["subtotal"] = totals.Subtotal
		updates["discount_total"] = totals.DiscountTotal
		updates["tax_total"] = totals.TaxTotal
		updates["total"] = totals.Total
	} else if req.TaxIncluded != nil && *req.TaxIncluded != existing.TaxIncluded {
		// Flipping the treatment without new lines still reprices the
		// existing line set.
		reqs := make([]QuotationItemRequest, 0, len(existing.Items))
		for _, it := range existing.Items {
			reqs = append(reqs, QuotationItemRequest{
				ProductID:       it.ProductID,
				Description:     it.Description,
				Quantity:        it.Quantity,
				UnitPrice:       it.UnitPrice,
				DiscountPercent: it.DiscountPercent,
				TaxRate:         it.TaxRate,
			})
		}
		var totals finance.Totals
		items, totals = computeItems(reqs, taxIncluded)
		if totals.Total <= 0 {
			return nil, finance.ErrEmptyDocument
		}
		updates["subtotal"] = totals.Subtotal
		updates["discount_total"] = totals.DiscountTotal
		updates["tax_total"] = totals.TaxTotal
		updates["total"] = totals.Total
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
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
				item.QuotationID = id
				if _, err := repo.InsertItem(ctx, item); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update quotation: %w", err)
	}

	return s.repo.Get(ctx, id)
}

func (s *Service) Send(ctx context.Context, id int64) (*Quotation, error) {
	return s.transition(ctx, id, QuotationStatusSent, QuotationStatusDraft)
}

func (s *Service) Accept(ctx context.Context, id int64) (*Quotation, error) {
	return s.transition(ctx, id, QuotationStatusAccepted, QuotationStatusSent)
}

// Reject declines a SENT quotation. An optional reason is appended to
// the document's notes so it travels with the record.
func (s *Service) Reject(ctx context.Context, id int64, reason *string) (*Quotation, error) {
	q, err := s.transition(ctx, id, QuotationStatusRejected, QuotationStatusSent)
	if err != nil {
		return nil, err
	}
	if reason == nil || *reason == "" {
		return q, nil
	}
	note := "Rejected: " + *reason
	if q.Notes != nil && *q.Notes != "" {
		note = *q.Notes + "\n" + note
	}
	if err := s.repo.UpdateHeader(ctx, id, map[string]interface{}{"notes": note}); err != nil {
		return nil, fmt.Errorf("record rejection reason: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) transition(ctx context.Context, id int64, to QuotationStatus, from ...QuotationStatus) (*Quotation, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}

	allowed := false
	for _, f := range from {
		if existing.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: cannot move %s quotation to %s", ErrInvalidStatus, existing.Status, to)
	}

	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return nil, fmt.Errorf("update quotation status: %w", err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get quotation: %w", err)
	}
	if existing.Status != QuotationStatusDraft {
		return fmt.Errorf("%w: only DRAFT quotations can be deleted", ErrInvalidStatus)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Delete(ctx, id)
	})
}

// ExpireOverdue is the nightly sweep entry point used by the worker.
func (s *Service) ExpireOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	var date pgtype.Date
	if err := date.Scan(asOf); err != nil {
		return 0, err
	}
	return s.repo.ExpireOverdue(ctx, date)
}
