package payments

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/facturo-erp/facturo-erp/internal/finance"
	"github.com/facturo-erp/facturo-erp/internal/platform/httpx"
	"github.com/facturo-erp/facturo-erp/internal/sales/invoices"
)

type Service struct {
	repo     Repository
	bumper   invoices.CacheBumper
	validate *validator.Validate
}

func NewService(repo Repository, bumper invoices.CacheBumper) *Service {
	return &Service{
		repo:     repo,
		bumper:   bumper,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Record appends a ledger entry. The amount is checked against the
// sale's outstanding balance with the rounding tolerance; anything
// beyond it is rejected before any row is written. Insert and status
// refresh share one transaction.
func (s *Service) Record(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	var paymentID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		sale, err := repo.GetSaleFinancials(ctx, req.SaleID)
		if err != nil {
			return fmt.Errorf("get sale: %w", err)
		}

		paid, err := repo.SumForSale(ctx, req.SaleID)
		if err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}

		balance := sale.Total - paid
		if req.Amount > balance+finance.PaymentTolerance {
			return fmt.Errorf("%w: amount %.2f against balance %.2f",
				finance.ErrOverpayment, req.Amount, balance)
		}

		reference := uuid.New().String()
		if req.Reference != nil && *req.Reference != "" {
			reference = *req.Reference
		}

		paymentID, err = repo.Insert(ctx, Payment{
			SaleID:    req.SaleID,
			Amount:    req.Amount,
			Method:    req.Method,
			PaidAt:    req.PaidAt,
			Reference: reference,
			Notes:     req.Notes,
		})
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		return s.refresh(ctx, repo, req.SaleID)
	})
	if err != nil {
		return nil, err
	}

	s.bump(ctx)
	return s.repo.Get(ctx, paymentID)
}

// Reassign moves a payment onto another sale. The target's balance is
// computed excluding this payment's own prior contribution, so moving a
// payment within tolerance of the target's remainder is accepted even
// when the payment already sits there. Both sales are refreshed.
func (s *Service) Reassign(ctx context.Context, id int64, req ReassignPaymentRequest) (*Payment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		payment, err := repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get payment: %w", err)
		}

		target, err := repo.GetSaleFinancials(ctx, req.SaleID)
		if err != nil {
			return fmt.Errorf("get target sale: %w", err)
		}

		targetPaid, err := repo.SumForSale(ctx, req.SaleID)
		if err != nil {
			return fmt.Errorf("sum target payments: %w", err)
		}
		if payment.SaleID == req.SaleID {
			targetPaid -= payment.Amount
		}

		balance := target.Total - targetPaid
		if payment.Amount > balance+finance.PaymentTolerance {
			return fmt.Errorf("%w: amount %.2f against balance %.2f",
				finance.ErrOverpayment, payment.Amount, balance)
		}

		previousSaleID := payment.SaleID
		if err := repo.Move(ctx, id, req.SaleID); err != nil {
			return fmt.Errorf("move payment: %w", err)
		}

		if err := s.refresh(ctx, repo, req.SaleID); err != nil {
			return err
		}
		if previousSaleID != req.SaleID {
			if err := s.refresh(ctx, repo, previousSaleID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bump(ctx)
	return s.repo.Get(ctx, id)
}

// Remove deletes a ledger entry unconditionally and re-derives the
// sale's status. Removal can move a PAID sale back to PARTIAL or
// ISSUED; that is the intended direction of travel.
func (s *Service) Remove(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		payment, err := repo.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("get payment: %w", err)
		}

		if err := repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}

		return s.refresh(ctx, repo, payment.SaleID)
	})
	if err != nil {
		return err
	}

	s.bump(ctx)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListPaymentsRequest) ([]Payment, int, error) {
	return s.repo.List(ctx, req)
}

// refresh re-derives and writes the sale's paid amount and status. The
// write is unconditional: an idempotent re-run must not be skipped on
// an "unchanged" fast path, that is what keeps drift from accumulating.
func (s *Service) refresh(ctx context.Context, repo Repository, saleID int64) error {
	sale, err := repo.GetSaleFinancials(ctx, saleID)
	if err != nil {
		return fmt.Errorf("get sale for refresh: %w", err)
	}

	paid, err := repo.SumForSale(ctx, saleID)
	if err != nil {
		return fmt.Errorf("sum payments for refresh: %w", err)
	}

	return repo.UpdateSalePaid(ctx, saleID, paid, invoices.DeriveStatus(sale.Total, paid))
}

func (s *Service) bump(ctx context.Context) {
	if s.bumper != nil {
		_ = s.bumper.Bump(ctx)
	}
}
