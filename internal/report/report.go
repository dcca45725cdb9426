// Package report builds the per-asset sales report and writes it to a
// spreadsheet destination (Google Sheets or a local XLSX file). Amounts leave
// the smallest-unit integer representation only here, at the display
// boundary.
package report

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/agrovest/shares/internal/store"
)

// Row is one asset class in the sales report.
type Row struct {
	AssetID     int64
	Name        string
	Active      bool
	Price       decimal.Decimal
	MaxParts    uint64
	SoldParts   uint64
	Remaining   uint64
	SellThrough decimal.Decimal // sold/max, as a fraction
	Proceeds    decimal.Decimal
	Buyers      int64
}

// Totals aggregates the whole report.
type Totals struct {
	Assets        int
	ActiveAssets  int
	PartsSold     uint64
	TotalProceeds decimal.Decimal
}

// SalesSource provides the raw per-asset sales aggregates.
type SalesSource interface {
	SalesRows(ctx context.Context) ([]store.SalesRow, error)
}

// Writer writes a finished report to its destination.
type Writer interface {
	Write(ctx context.Context, rows []Row, totals Totals) error
}

// Service builds sales reports and delegates writing to a Writer.
type Service struct {
	source SalesSource
	writer Writer
	scale  int32 // decimal places of the currency's smallest unit
}

// NewService creates a report Service. scale is how many decimal places one
// display unit has (2 for cent-denominated currencies).
func NewService(source SalesSource, writer Writer, scale int32) *Service {
	if source == nil {
		panic("report.NewService: source is nil")
	}
	if writer == nil {
		panic("report.NewService: writer is nil")
	}
	return &Service{source: source, writer: writer, scale: scale}
}

// Export builds the current report and writes it.
func (s *Service) Export(ctx context.Context) error {
	raw, err := s.source.SalesRows(ctx)
	if err != nil {
		return fmt.Errorf("loading sales rows: %w", err)
	}

	rows := lo.Map(raw, func(r store.SalesRow, _ int) Row {
		return buildRow(r, s.scale)
	})

	return s.writer.Write(ctx, rows, buildTotals(rows))
}

func buildRow(r store.SalesRow, scale int32) Row {
	sellThrough := decimal.Zero
	if r.Asset.MaxParts > 0 {
		sellThrough = decimal.NewFromUint64(r.Asset.SoldParts).
			Div(decimal.NewFromUint64(r.Asset.MaxParts)).
			Round(4)
	}
	return Row{
		AssetID:     r.Asset.ID,
		Name:        r.Asset.Name,
		Active:      r.Asset.Active,
		Price:       toDisplay(r.Asset.PricePerPart, scale),
		MaxParts:    r.Asset.MaxParts,
		SoldParts:   r.Asset.SoldParts,
		Remaining:   r.Asset.Remaining(),
		SellThrough: sellThrough,
		Proceeds:    toDisplay(r.Proceeds, scale),
		Buyers:      r.Buyers,
	}
}

func buildTotals(rows []Row) Totals {
	return Totals{
		Assets:       len(rows),
		ActiveAssets: lo.CountBy(rows, func(r Row) bool { return r.Active }),
		PartsSold: lo.Reduce(rows, func(acc uint64, r Row, _ int) uint64 {
			return acc + r.SoldParts
		}, 0),
		TotalProceeds: lo.Reduce(rows, func(acc decimal.Decimal, r Row, _ int) decimal.Decimal {
			return acc.Add(r.Proceeds)
		}, decimal.Zero),
	}
}

// toDisplay converts a smallest-unit amount into display units.
func toDisplay(amount uint64, scale int32) decimal.Decimal {
	return decimal.NewFromUint64(amount).Shift(-scale)
}
