package service

import (
	"context"
	"strings"
	"time"

	"github.com/padbank/padbank-backend/internal/inventory/domain"
	"github.com/padbank/padbank-backend/pkg/logger"
)

// ReportService builds the read-only views over the ledger
type ReportService struct {
	batches BatchStore
	reports ReportStore
	opts    Options
	logger  *logger.Logger
}

// NewReportService creates a new report service
func NewReportService(batches BatchStore, reports ReportStore, opts Options, log *logger.Logger) *ReportService {
	return &ReportService{
		batches: batches,
		reports: reports,
		opts:    opts.withDefaults(),
		logger:  log,
	}
}

// Summary returns headline counts and the batches needing restock
func (s *ReportService) Summary(ctx context.Context) (*domain.SummaryReport, error) {
	overview, err := s.reports.Overview(ctx, s.opts.Now())
	if err != nil {
		return nil, err
	}
	low, err := s.lowStock(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.SummaryReport{Summary: overview.Summary, LowStockItems: low}, nil
}

// LowStock lists active batches at or below their threshold
func (s *ReportService) LowStock(ctx context.Context) (*domain.LowStockReport, error) {
	low, err := s.lowStock(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.LowStockReport{Items: low, Count: len(low)}, nil
}

// lowStock drops stored-active batches that have expired since the last
// sweep.
func (s *ReportService) lowStock(ctx context.Context) ([]*domain.Batch, error) {
	batches, err := s.batches.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	now := s.opts.Now()
	low := make([]*domain.Batch, 0, len(batches))
	for _, b := range batches {
		b.Recompute(now)
		if b.Status == domain.StatusActive && b.IsLowStock {
			low = append(low, b)
		}
	}
	return low, nil
}

// Stats returns the overview with per brand and per location totals
func (s *ReportService) Stats(ctx context.Context) (*domain.Stats, error) {
	overview, err := s.reports.Overview(ctx, s.opts.Now())
	if err != nil {
		return nil, err
	}
	brands, err := s.reports.BrandStats(ctx)
	if err != nil {
		return nil, err
	}
	locations, err := s.reports.LocationStats(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Stats{Overview: overview, BrandStats: brands, LocationStats: locations}, nil
}

// Day reports the handouts of one local calendar day. An empty date means
// today.
func (s *ReportService) Day(ctx context.Context, date string) (*domain.DayReport, error) {
	day := s.opts.Now()
	if strings.TrimSpace(date) != "" {
		d, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(date), s.opts.Location)
		if err != nil {
			return nil, dateError("date")
		}
		day = d
	}

	start, end := domain.DayWindow(day, s.opts.Location)
	total, students, err := s.reports.DayTotals(ctx, start, end)
	if err != nil {
		return nil, err
	}
	byBrand, err := s.reports.DayByBrand(ctx, start, end)
	if err != nil {
		return nil, err
	}

	return &domain.DayReport{
		Date:                 start.Format(time.DateOnly),
		TotalPadsDistributed: total,
		UniqueStudentsCount:  students,
		ByBrand:              byBrand,
	}, nil
}

// Insights returns the analytics facet over every handout
func (s *ReportService) Insights(ctx context.Context) (*domain.Insights, error) {
	rows, err := s.reports.InsightRows(ctx)
	if err != nil {
		return nil, err
	}
	insights := domain.BuildInsights(rows, s.opts.Location)
	return &insights, nil
}

// ExportRows flattens every batch matching the filter. Pagination in the
// filter is ignored.
func (s *ReportService) ExportRows(ctx context.Context, f domain.BatchFilter) ([]domain.ExportRow, error) {
	f.Page, f.Limit = 0, 0
	batches, _, err := s.batches.List(ctx, f)
	if err != nil {
		return nil, err
	}

	recomputeAll(batches, s.opts.Now())
	rows := make([]domain.ExportRow, 0, len(batches))
	for _, b := range batches {
		rows = append(rows, domain.NewExportRow(b, s.opts.Location))
	}
	return rows, nil
}
