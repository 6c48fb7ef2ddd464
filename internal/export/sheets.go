// Package export appends monthly summaries to a Google spreadsheet. The
// exporter is optional: when the spreadsheet settings are absent the rest of
// the application runs without it.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerbot/internal/core"
)

type SheetsExporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewSheets builds an exporter authenticated with a service account. Exactly
// one of credentialsJSON or credentialsFile must be provided.
func NewSheets(ctx context.Context, spreadsheetID, sheetName, credentialsJSON, credentialsFile string) (*SheetsExporter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	var creds []byte
	switch {
	case credentialsJSON != "":
		creds = []byte(credentialsJSON)
	case credentialsFile != "":
		b, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing credentials")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &SheetsExporter{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// AppendMonthSummary writes one row per report:
// year, month, inflow, outflow, net, fixed, variable.
func (e *SheetsExporter) AppendMonthSummary(ctx context.Context, ov core.MonthOverview) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	row := []any{
		ov.Year,
		ov.Month,
		reais(ov.Inflow),
		reais(ov.Outflow),
		reais(ov.Net),
		reais(ov.Fixed),
		reais(ov.Variable),
	}
	rng := fmt.Sprintf("%s!A:G", e.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{row}}

	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", e.sheetName, err)
	}
	return nil
}

func reais(m core.Money) float64 {
	return float64(m.Cents) / 100.0
}
