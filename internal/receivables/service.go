package receivables

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

type Service struct {
	repo  Repository
	cache *Cache
}

// NewService builds the aggregator. cache may be nil; every read then
// goes straight to the repository.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Snapshot buckets open sales into current and overdue at the start of
// the asOf day. A sale is overdue only when its due date has fully
// passed; a nil due date means no terms and the sale stays current
// forever.
func (s *Service) Snapshot(ctx context.Context, asOf time.Time) (Snapshot, error) {
	startOfDay := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())

	loader := func(ctx context.Context) (interface{}, error) {
		open, err := s.repo.OpenSales(ctx)
		if err != nil {
			return Snapshot{}, err
		}

		snap := Snapshot{AsOf: startOfDay}
		for _, sale := range open {
			if sale.DueDate != nil && sale.DueDate.Before(startOfDay) {
				snap.Overdue.Count++
				snap.Overdue.Total += sale.Balance
			} else {
				snap.Current.Count++
				snap.Current.Total += sale.Balance
			}
			snap.Outstanding += sale.Balance
		}
		return snap, nil
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		return value.(Snapshot), nil
	}

	key, err := s.cache.BuildKey(ctx, keySnapshot(startOfDay))
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := s.cache.FetchJSON(ctx, key, &snap, loader); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// MonthToDate assembles the dashboard KPI card for the month containing
// asOf. The window spans the whole calendar month, so sales dated after
// asOf still count; the daily series is zero-filled from the 1st
// through the last day of the month. The independent aggregates fan out
// concurrently.
func (s *Service) MonthToDate(ctx context.Context, asOf time.Time) (MonthToDate, error) {
	from := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())
	to := from.AddDate(0, 1, 0)

	loader := func(ctx context.Context) (interface{}, error) {
		mtd := MonthToDate{From: from, To: to}
		var daily map[string]float64

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			revenue, tax, taxable, count, err := s.repo.RevenueTotals(gctx, from, to)
			if err != nil {
				return err
			}
			mtd.Revenue = revenue
			mtd.TaxCollected = tax
			mtd.TaxableBase = taxable
			mtd.InvoiceCount = count
			return nil
		})
		g.Go(func() error {
			collected, err := s.repo.CollectedTotal(gctx, from, to)
			if err != nil {
				return err
			}
			mtd.Collected = collected
			return nil
		})
		g.Go(func() error {
			units, err := s.repo.UnitsSold(gctx, from, to)
			if err != nil {
				return err
			}
			mtd.UnitsSold = units
			return nil
		})
		g.Go(func() error {
			payers, err := s.repo.PayingCustomers(gctx, from, to)
			if err != nil {
				return err
			}
			mtd.PayingCustomers = payers
			return nil
		})
		g.Go(func() error {
			d, err := s.repo.DailyRevenue(gctx, from, to)
			if err != nil {
				return err
			}
			daily = d
			return nil
		})
		if err := g.Wait(); err != nil {
			return MonthToDate{}, err
		}

		for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
			mtd.DailyRevenue = append(mtd.DailyRevenue, DailyPoint{
				Date:    day,
				Revenue: daily[day.Format("2006-01-02")],
			})
		}
		return mtd, nil
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return MonthToDate{}, err
		}
		return value.(MonthToDate), nil
	}

	key, err := s.cache.BuildKey(ctx, keyMonthToDate(asOf))
	if err != nil {
		return MonthToDate{}, err
	}
	var mtd MonthToDate
	if err := s.cache.FetchJSON(ctx, key, &mtd, loader); err != nil {
		return MonthToDate{}, err
	}
	return mtd, nil
}

// Warm precomputes today's snapshot and KPI card; the nightly job calls
// it right after bumping the version.
func (s *Service) Warm(ctx context.Context, asOf time.Time) error {
	if _, err := s.Snapshot(ctx, asOf); err != nil {
		return err
	}
	_, err := s.MonthToDate(ctx, asOf)
	return err
}
