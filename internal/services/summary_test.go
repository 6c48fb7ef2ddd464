package services

import (
	"context"
	"testing"

	"ledgerbot/internal/core"
)

func TestMonthReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bank := env.account(t, "Principal")
	moradia := env.newCategory(t, "Moradia", core.CategoryFixed)
	mercado := env.newCategory(t, "Mercado", core.CategoryVariable)

	env.record(t, RecordParams{AccountID: bank.ID, Value: core.Money{Cents: 200000}, Date: core.NewDate(2025, 2, 1)})
	env.record(t, RecordParams{AccountID: bank.ID, CategoryID: moradia.ID, Value: core.Money{Cents: -80000}, Date: core.NewDate(2025, 2, 5)})

	env.record(t, RecordParams{AccountID: bank.ID, Value: core.Money{Cents: 480000}, Date: core.NewDate(2025, 4, 1)})
	env.record(t, RecordParams{AccountID: bank.ID, CategoryID: moradia.ID, Value: core.Money{Cents: -135000}, Date: core.NewDate(2025, 4, 3)})
	env.record(t, RecordParams{AccountID: bank.ID, CategoryID: mercado.ID, Value: core.Money{Cents: -42000}, Date: core.NewDate(2025, 4, 8)})
	env.record(t, RecordParams{AccountID: bank.ID, CategoryID: mercado.ID, Value: core.Money{Cents: -8000}, Date: core.NewDate(2025, 4, 20)})

	report, err := env.summary.MonthReport(ctx, env.profile.ID, 2025, 4)
	if err != nil {
		t.Fatalf("month report: %v", err)
	}

	ov := report.Overview
	if ov.Inflow.Cents != 480000 || ov.Outflow.Cents != 185000 {
		t.Fatalf("flows = %+v", ov)
	}
	if ov.Net.Cents != 295000 {
		t.Fatalf("net = %d", ov.Net.Cents)
	}
	if ov.Fixed.Cents != 135000 || ov.Variable.Cents != 50000 {
		t.Fatalf("fixed/variable = %d/%d", ov.Fixed.Cents, ov.Variable.Cents)
	}
	if len(ov.ByCategory) != 2 || ov.ByCategory[0].Name != "Moradia" {
		t.Fatalf("categories = %+v", ov.ByCategory)
	}

	// Series covers January through April, zero-filled.
	if len(report.NetSeries) != 4 {
		t.Fatalf("series length = %d", len(report.NetSeries))
	}
	wantNets := []int64{0, 120000, 0, 295000}
	for i, n := range report.NetSeries {
		if n.Net.Cents != wantNets[i] {
			t.Fatalf("series[%d] = %d, want %d", i, n.Net.Cents, wantNets[i])
		}
	}
	if report.ProjectedNet.Cents != 103750 {
		t.Fatalf("projection = %d, want 103750", report.ProjectedNet.Cents)
	}
}

func TestMonthReportRejectsBadMonth(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.summary.MonthReport(context.Background(), env.profile.ID, 2025, 13); err == nil {
		t.Fatalf("expected error for month 13")
	}
}

type recordingExporter struct {
	rows []core.MonthOverview
}

func (r *recordingExporter) AppendMonthSummary(_ context.Context, ov core.MonthOverview) error {
	r.rows = append(r.rows, ov)
	return nil
}

func TestMonthReportFeedsExporter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bank := env.account(t, core.DefaultMainAccount)
	env.record(t, RecordParams{AccountID: bank.ID, Value: core.Money{Cents: 100000}, Date: core.NewDate(2025, 5, 2)})

	exp := &recordingExporter{}
	env.summary.SetExporter(exp)
	if _, err := env.summary.MonthReport(ctx, env.profile.ID, 2025, 5); err != nil {
		t.Fatalf("month report: %v", err)
	}
	if len(exp.rows) != 1 {
		t.Fatalf("exported rows = %d, want 1", len(exp.rows))
	}
	if exp.rows[0].Year != 2025 || exp.rows[0].Month != 5 || exp.rows[0].Inflow.Cents != 100000 {
		t.Fatalf("unexpected exported overview: %+v", exp.rows[0])
	}
}
