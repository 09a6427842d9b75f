package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sebuszqo/TaxManager/internal/logger"
	"github.com/sebuszqo/TaxManager/internal/session"
	"github.com/sebuszqo/TaxManager/internal/tax/domain"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	entriesSheet = "Entries"
	summarySheet = "Summary"
)

// Export returns an XLSX workbook with the caller's entries for a taxpayer type and
// the figures computed from them.
func (s *EntryService) Export(ctx context.Context, p session.Principal, rawType string) ([]byte, error) {
	start := time.Now()

	taxpayerType, entries, err := s.ListEntries(ctx, p, rawType)
	if err != nil {
		return nil, err
	}
	res := domain.CalculateEntries(entries, taxpayerType)

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.FromContext(ctx).Warn("close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", entriesSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}

	entryRows := [][]interface{}{{"Label", "Value", "Taxpayer Type", "Updated At"}}
	for _, e := range entries {
		entryRows = append(entryRows, []interface{}{e.Label, e.Value.InexactFloat64(), e.TaxpayerType.String(), e.UpdatedAt.Format(time.RFC3339)})
	}
	if err := writeRows(f, entriesSheet, entryRows); err != nil {
		return nil, err
	}

	summaryRows := [][]interface{}{
		{"Figure", "Amount"},
		{"Taxpayer Type", taxpayerType.String()},
		{"Taxable Income", amount(res.TaxableIncome)},
		{"Tax Due", amount(res.TaxDue)},
		{"Rate Applied", res.RateApplied.InexactFloat64()},
		{"VAT Output", amount(res.VATOutput)},
		{"VAT Input", amount(res.VATInput)},
		{"VAT Payable", amount(res.VATPayable)},
	}
	if err := writeRows(f, summarySheet, summaryRows); err != nil {
		return nil, err
	}

	widths := []struct {
		sheet, from, to string
		width           float64
	}{
		{entriesSheet, "A", "A", 24},
		{entriesSheet, "B", "B", 18},
		{entriesSheet, "C", "D", 22},
		{summarySheet, "A", "A", 20},
		{summarySheet, "B", "B", 18},
	}
	for _, c := range widths {
		if err := f.SetColWidth(c.sheet, c.from, c.to, c.width); err != nil {
			return nil, fmt.Errorf("set %s column width: %w", c.sheet, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	logger.FromContext(ctx).Info("tax workbook exported",
		zap.String("taxpayer_type", taxpayerType.String()),
		zap.Int("rows", len(entries)),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	return buf.Bytes(), nil
}

func amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
