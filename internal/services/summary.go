package services

import (
	"context"
	"fmt"
	"log/slog"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/core"
	"ledgerbot/internal/storage"
)

// SummaryService aggregates the ledger by period and category. It emits
// numbers only; chart rendering happens in an external consumer fed over
// AMQP.
type SummaryService struct {
	store    *storage.Store
	events   *amqp.Client
	exporter ReportExporter
}

// ReportExporter receives a copy of every generated month overview. The
// Google Sheets exporter implements it.
type ReportExporter interface {
	AppendMonthSummary(ctx context.Context, ov core.MonthOverview) error
}

func NewSummaryService(store *storage.Store, events *amqp.Client) *SummaryService {
	return &SummaryService{store: store, events: events}
}

// SetExporter attaches an optional spreadsheet exporter.
func (s *SummaryService) SetExporter(e ReportExporter) {
	s.exporter = e
}

// MonthReport is the overview plus the year's net series and a naive mean
// projection of the remaining months.
type MonthReport struct {
	Overview     core.MonthOverview
	NetSeries    []core.MonthNet // January up to the chosen month
	ProjectedNet core.Money      // mean of the series, applied to each month left
}

func (s *SummaryService) MonthReport(ctx context.Context, profileID int64, year, month int) (MonthReport, error) {
	if month < 1 || month > 12 {
		return MonthReport{}, core.ErrInvalidMonths
	}

	flows, err := s.store.MonthFlows(ctx, profileID, year, month)
	if err != nil {
		return MonthReport{}, fmt.Errorf("month flows: %w", err)
	}
	byCategory, err := s.store.CategoryOutflowTotals(ctx, profileID, year, month)
	if err != nil {
		return MonthReport{}, fmt.Errorf("category totals: %w", err)
	}

	overview := core.MonthOverview{
		Year:       year,
		Month:      month,
		Inflow:     core.Money{Cents: flows.InflowCents},
		Outflow:    core.Money{Cents: flows.OutflowCents},
		Net:        core.Money{Cents: flows.InflowCents - flows.OutflowCents},
		ByCategory: byCategory,
	}
	for _, ca := range byCategory {
		switch ca.Kind {
		case core.CategoryFixed:
			overview.Fixed = overview.Fixed.Add(ca.Amount)
		case core.CategoryVariable:
			overview.Variable = overview.Variable.Add(ca.Amount)
		}
	}

	series, err := s.netSeries(ctx, profileID, year, month)
	if err != nil {
		return MonthReport{}, err
	}

	report := MonthReport{
		Overview:     overview,
		NetSeries:    series,
		ProjectedNet: meanNet(series),
	}
	s.publishReport(ctx, profileID, report)
	s.exportReport(ctx, report)
	return report, nil
}

// netSeries returns one point per month from January through the chosen
// month, zero-filled where the ledger has no entries.
func (s *SummaryService) netSeries(ctx context.Context, profileID int64, year, month int) ([]core.MonthNet, error) {
	nets, err := s.store.NetByMonth(ctx, profileID, core.NewDate(year, 1, 1))
	if err != nil {
		return nil, fmt.Errorf("net by month: %w", err)
	}
	byMonth := make(map[int]core.Money, len(nets))
	for _, n := range nets {
		if n.Year == year {
			byMonth[n.Month] = n.Net
		}
	}
	series := make([]core.MonthNet, 0, month)
	for m := 1; m <= month; m++ {
		series = append(series, core.MonthNet{Year: year, Month: m, Net: byMonth[m]})
	}
	return series, nil
}

func meanNet(series []core.MonthNet) core.Money {
	if len(series) == 0 {
		return core.Money{}
	}
	var sum int64
	for _, n := range series {
		sum += n.Net.Cents
	}
	return core.Money{Cents: sum / int64(len(series))}
}

func (s *SummaryService) exportReport(ctx context.Context, r MonthReport) {
	if s.exporter == nil {
		return
	}
	if err := s.exporter.AppendMonthSummary(ctx, r.Overview); err != nil {
		slog.WarnContext(ctx, "Failed to export month summary",
			"year", r.Overview.Year, "month", r.Overview.Month, "error", err)
	}
}

func (s *SummaryService) publishReport(ctx context.Context, profileID int64, r MonthReport) {
	if s.events == nil {
		return
	}
	totals := make(map[string]int64, len(r.Overview.ByCategory))
	for _, ca := range r.Overview.ByCategory {
		totals[ca.Name] = ca.Amount.Cents
	}
	nets := make([]int64, 0, len(r.NetSeries))
	for _, n := range r.NetSeries {
		nets = append(nets, n.Net.Cents)
	}
	report := amqp.NewMonthlyReport(profileID, r.Overview.Year, r.Overview.Month, totals, nets)
	if err := s.events.PublishMonthlyReport(ctx, report); err != nil {
		slog.ErrorContext(ctx, "Failed to publish monthly report",
			"year", r.Overview.Year, "month", r.Overview.Month, "error", err)
	}
}
