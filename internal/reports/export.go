package reports

import (
	"io"
	"log/slog"
	"mime"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is registered for .xlsx when the host MIME tables lack it.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func init() {
	ensureMimeType(".xlsx", XLSXContentType)
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Warn("reports: register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}

// DailySalesSheet is the worksheet name of the daily sales workbook.
const DailySalesSheet = "Daily Sales"

// WriteDailySalesXLSX renders points as a workbook with a totals row.
func WriteDailySalesXLSX(w io.Writer, r Range, points []DailyPoint) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", DailySalesSheet); err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	header := []any{"Date", "Sales", "Revenue"}
	if err := f.SetSheetRow(DailySalesSheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(DailySalesSheet, "A1", "C1", bold); err != nil {
		return err
	}

	var (
		count int64
		total = decimal.Zero
	)
	for i, p := range points {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{p.Date.UTC().Format(time.DateOnly), p.Sales, p.Revenue.InexactFloat64()}
		if err := f.SetSheetRow(DailySalesSheet, cell, &row); err != nil {
			return err
		}
		count += p.Sales
		total = total.Add(p.Revenue)
	}

	last := len(points) + 2
	totalCell, err := excelize.CoordinatesToCellName(1, last)
	if err != nil {
		return err
	}
	totals := []any{"Total", count, total.InexactFloat64()}
	if err := f.SetSheetRow(DailySalesSheet, totalCell, &totals); err != nil {
		return err
	}
	revenueEnd, _ := excelize.CoordinatesToCellName(3, last)
	if err := f.SetCellStyle(DailySalesSheet, "C2", revenueEnd, money); err != nil {
		return err
	}
	if err := f.SetCellStyle(DailySalesSheet, totalCell, totalCell, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(DailySalesSheet, "A", "C", 14); err != nil {
		return err
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Daily sales " + r.From.UTC().Format(time.DateOnly) + " to " + r.To.UTC().Format(time.DateOnly),
		Creator: "salonpos",
	}); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}
