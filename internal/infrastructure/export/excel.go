package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/workdeck/spending/internal/domain/entity"
)

// Sheet names of the workbook
const (
	RequestsSheet  = "Requests"
	LineItemsSheet = "Line Items"
)

var (
	requestHeader = []interface{}{
		"Reference", "Type", "Status", "Owner", "Purpose", "Project",
		"Subtotal", "VAT", "Total", "Currencies", "Submitted", "Completed",
	}
	lineItemHeader = []interface{}{
		"Reference", "Item", "Description", "Cost type", "Amount", "VAT", "Currency",
		"Quantity", "Unit price", "Supplier", "Paid by", "Date",
	}
)

// ExcelExporter renders spending requests as an xlsx workbook
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// Write renders one row per request and one row per line item to w
func (e *ExcelExporter) Write(w io.Writer, requests []*entity.SpendingRequest) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), RequestsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(LineItemsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("failed to create money style: %w", err)
	}

	if err := e.writeHeader(f, RequestsSheet, requestHeader, headerStyle); err != nil {
		return err
	}
	if err := e.writeHeader(f, LineItemsSheet, lineItemHeader, headerStyle); err != nil {
		return err
	}

	itemRow := 2
	for i, req := range requests {
		row := []interface{}{
			req.ReferenceNumber,
			string(req.Type),
			string(req.Status),
			req.UserID,
			req.Purpose,
			req.Project,
			money(req.Subtotal),
			money(req.TotalVat),
			money(req.Total),
			strings.Join(req.Currencies, ", "),
			date(req.SubmittedDate),
			date(req.CompletedDate),
		}
		if err := e.setRow(f, RequestsSheet, i+2, row); err != nil {
			return err
		}

		for _, item := range req.LineItems {
			row := []interface{}{
				req.ReferenceNumber,
				item.ID,
				item.Description,
				item.CostType,
				money(item.Amount),
				money(item.Vat),
				item.Currency,
				optional(item.Quantity),
				optional(item.UnitPrice),
				item.Supplier,
				item.PaidBy,
				item.Date,
			}
			if err := e.setRow(f, LineItemsSheet, itemRow, row); err != nil {
				return err
			}
			itemRow++
		}
	}

	// money columns: G:I on requests, E:F and I on line items
	for sheet, cols := range map[string][]string{RequestsSheet: {"G", "H", "I"}, LineItemsSheet: {"E", "F", "I"}} {
		for _, col := range cols {
			if err := f.SetColStyle(sheet, col, moneyStyle); err != nil {
				return fmt.Errorf("failed to style column %s: %w", col, err)
			}
		}
		if err := f.SetColWidth(sheet, "A", "L", 16); err != nil {
			return fmt.Errorf("failed to size columns: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Spreadsheet exported",
		zap.Int("requests", len(requests)),
		zap.Int("line_items", itemRow-2))
	return nil
}

func (e *ExcelExporter) writeHeader(f *excelize.File, sheet string, header []interface{}, style int) error {
	if err := e.setRow(f, sheet, 1, header); err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", end, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (e *ExcelExporter) setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		e.logger.Error("Failed to set row",
			zap.String("sheet", sheet),
			zap.Int("row", row),
			zap.Error(err))
		return fmt.Errorf("failed to set row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func optional(d *decimal.Decimal) interface{} {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
