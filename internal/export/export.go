// Package export renders computed chart data as XLSX workbooks and PDF reports.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/starford/fehu/internal/chart"
)

// Formats.
const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// Meta describes the chart an export was produced from.
type Meta struct {
	ID          string
	Name        string
	Owner       string
	Savings     chart.Amount
	GeneratedAt time.Time
}

// ContentType returns the MIME type for a format.
func ContentType(format string) string {
	switch format {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// ParseFormat normalises a format name and reports whether it is supported.
func ParseFormat(s string) (string, bool) {
	f := strings.ToLower(strings.TrimSpace(s))
	return f, f == FormatXLSX || f == FormatPDF
}

// Build renders d in the given format.
func Build(format string, meta Meta, d *chart.Data) ([]byte, error) {
	switch format {
	case FormatXLSX:
		return BuildXLSX(meta, d)
	case FormatPDF:
		return BuildPDF(meta, d)
	default:
		return nil, fmt.Errorf("export: unsupported format %q", format)
	}
}

// BuildXLSX renders a workbook with a summary sheet, one row per stream
// across the years and a totals sheet.
func BuildXLSX(meta Meta, d *chart.Data) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const (
		summarySheet = "summary"
		streamsSheet = "streams"
		totalsSheet  = "totals"
	)
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("export: xlsx: %w", err)
	}
	for _, name := range []string{streamsSheet, totalsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("export: xlsx: %w", err)
		}
	}

	_ = f.SetCellValue(summarySheet, "A1", meta.Name)
	summary := [][2]any{
		{"Chart", meta.ID},
		{"Owner", meta.Owner},
		{"Savings", int64(meta.Savings)},
		{"First year", firstYear(d)},
		{"Last year", lastYear(d)},
		{"Streams", len(d.Streams)},
		{"Generated", meta.GeneratedAt.UTC().Format(time.RFC3339)},
	}
	for i, kv := range summary {
		row := i + 3
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), kv[1])
	}
	for i, w := range d.Warnings {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("D%d", i+3), w)
	}

	header := []any{"Stream", "Boundary", "Color", "Amount/yr"}
	for _, y := range d.XAxis {
		header = append(header, int(y))
	}
	if err := f.SetSheetRow(streamsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("export: xlsx: %w", err)
	}
	for i, s := range d.Streams {
		row := []any{s.Name, string(s.Boundary), string(s.Color), int64(s.AmountPerYr)}
		for _, v := range s.Data {
			row = append(row, int64(v))
		}
		if err := f.SetSheetRow(streamsSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, fmt.Errorf("export: xlsx: %w", err)
		}
	}

	_ = f.SetSheetRow(totalsSheet, "A1", &[]any{"Year", "Total", "Balance"})
	for i, y := range d.XAxis {
		_ = f.SetSheetRow(totalsSheet, fmt.Sprintf("A%d", i+2), &[]any{int(y), int64(at(d.Totals, i)), int64(at(d.Balance, i))})
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("export: xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildPDF renders a one-table-per-page report: the stream list followed by
// income, expenses, total and balance per year.
func BuildPDF(meta Meta, d *chart.Data) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(meta.Name, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, meta.Name)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	if meta.Owner != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Owner: %s", meta.Owner))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Years: %d - %d", firstYear(d), lastYear(d)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Opening savings: %d", meta.Savings))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", meta.GeneratedAt.UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Stream", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, "Boundary", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Amount/yr", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, "Years", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, s := range d.Streams {
		pdf.CellFormat(70, 6, s.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, string(s.Boundary), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, chart.Shorten(s.AmountPerYr), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d - %d", s.Range.First, s.Range.Last), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	income, expenses := columnSums(d.Income(), len(d.XAxis)), columnSums(d.Expenses(), len(d.XAxis))
	pdf.SetFont("Arial", "B", 10)
	for _, h := range []string{"Year", "Income", "Expenses", "Total", "Balance"} {
		pdf.CellFormat(36, 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for i, y := range d.XAxis {
		pdf.CellFormat(36, 6, fmt.Sprintf("%d", y), "1", 0, "C", false, 0, "")
		pdf.CellFormat(36, 6, fmt.Sprintf("%d", income[i]), "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 6, fmt.Sprintf("%d", expenses[i]), "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 6, fmt.Sprintf("%d", at(d.Totals, i)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(36, 6, fmt.Sprintf("%d", at(d.Balance, i)), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("export: pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnSums(streams []chart.StreamWithData, n int) []chart.Amount {
	if len(streams) == 0 {
		return make([]chart.Amount, n)
	}
	return chart.SumTotals(streams)
}

func at(vs []chart.Amount, i int) chart.Amount {
	if i < len(vs) {
		return vs[i]
	}
	return 0
}

func firstYear(d *chart.Data) int {
	if len(d.XAxis) == 0 {
		return 0
	}
	return int(d.XAxis[0])
}

func lastYear(d *chart.Data) int {
	if len(d.XAxis) == 0 {
		return 0
	}
	return int(d.XAxis[len(d.XAxis)-1])
}
