package report

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

const (
	salesSheet  = "SALES"
	totalsSheet = "TOTALS"
)

// SheetsWriter implements Writer using the Google Sheets API.
type SheetsWriter struct {
	spreadsheetID string
	svc           *sheets.Service
}

// NewSheetsWriter creates a SheetsWriter authenticated with a service account JSON.
func NewSheetsWriter(ctx context.Context, spreadsheetID, credentialsJSON string) (*SheetsWriter, error) {
	creds, err := google.CredentialsFromJSON(
		ctx,
		[]byte(credentialsJSON),
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}

	return &SheetsWriter{spreadsheetID: spreadsheetID, svc: svc}, nil
}

// Write ensures the report sheets exist, then clears and rewrites them.
func (w *SheetsWriter) Write(ctx context.Context, rows []Row, totals Totals) error {
	if err := w.ensureSheets(ctx, salesSheet, totalsSheet); err != nil {
		return err
	}

	_, err := w.svc.Spreadsheets.Values.BatchClear(
		w.spreadsheetID,
		&sheets.BatchClearValuesRequest{
			Ranges: []string{salesSheet + "!A:J", totalsSheet + "!A:B"},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clearing sheets: %w", err)
	}

	_, err = w.svc.Spreadsheets.Values.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateValuesRequest{
			ValueInputOption: "USER_ENTERED",
			Data: []*sheets.ValueRange{
				{Range: salesSheet + "!A1", Values: buildSalesValues(rows)},
				{Range: totalsSheet + "!A1", Values: buildTotalsValues(totals)},
			},
		},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("writing sheets: %w", err)
	}

	return nil
}

// buildSalesValues builds the SALES sheet data.
// Columns: ID | Name | Active | Price | Max | Sold | Remaining | SellThrough | Proceeds | Buyers
func buildSalesValues(rows []Row) [][]any {
	data := make([][]any, 0, len(rows)+1)
	data = append(data, []any{
		"ID", "Name", "Active", "Price", "Max", "Sold",
		"Remaining", "SellThrough", "Proceeds", "Buyers",
	})
	for _, r := range rows {
		data = append(data, []any{
			r.AssetID, r.Name, r.Active,
			toFloat(r.Price), r.MaxParts, r.SoldParts,
			r.Remaining, toFloat(r.SellThrough), toFloat(r.Proceeds), r.Buyers,
		})
	}
	return data
}

// buildTotalsValues builds the TOTALS sheet data as key/value pairs.
func buildTotalsValues(t Totals) [][]any {
	return [][]any{
		{"Assets", t.Assets},
		{"Active assets", t.ActiveAssets},
		{"Parts sold", t.PartsSold},
		{"Total proceeds", toFloat(t.TotalProceeds)},
	}
}

// ensureSheets creates any of the named sheets that do not already exist.
func (w *SheetsWriter) ensureSheets(ctx context.Context, names ...string) error {
	spreadsheet, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("getting spreadsheet metadata: %w", err)
	}

	existing := make(map[string]bool, len(spreadsheet.Sheets))
	for _, s := range spreadsheet.Sheets {
		existing[s.Properties.Title] = true
	}

	var requests []*sheets.Request
	for _, name := range names {
		if !existing[name] {
			requests = append(requests, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: name},
				},
			})
		}
	}

	if len(requests) == 0 {
		return nil
	}

	_, err = w.svc.Spreadsheets.BatchUpdate(
		w.spreadsheetID,
		&sheets.BatchUpdateSpreadsheetRequest{Requests: requests},
	).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("creating sheets: %w", err)
	}

	return nil
}
