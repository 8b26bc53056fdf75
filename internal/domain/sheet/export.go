package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"fieldpay/internal/domain/payroll"
)

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// bookTerms lists the scheduled terms plus any term present on the sheet.
func bookTerms(schedule payroll.BookTierSchedule, lines []Line) []payroll.Term {
	seen := map[payroll.Term]struct{}{}
	for _, term := range schedule.Terms() {
		seen[term] = struct{}{}
	}
	for _, line := range lines {
		for term := range line.BookCounts {
			seen[term] = struct{}{}
		}
	}
	terms := make([]payroll.Term, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i] < terms[j] })
	return terms
}

func sheetTable(detail Detail, terms []payroll.Term) ([]string, [][]string) {
	header := []string{
		"Employee", "Designation", "Basic Salary",
		"Own Somity Collection", "Own Somity Count", "Office Somity Collection", "Office Somity Count",
		"Center Collection", "Center Count", "Loan Collection",
	}
	for _, term := range terms {
		header = append(header, "Books "+term.String()+"y")
	}
	header = append(header,
		"No Bonus Books", "Total Books", "Collection Commission", "Book Commission", "Commission", "Bonus",
		"Manager Convenience", "Late Deduction", "Absent Deduction", "Cash Advance", "Misconduct", "Unlawful",
		"Tours", "Other Deductions", "Total Deductions", "Final Salary",
	)

	rows := make([][]string, 0, len(detail.Lines)+1)
	for _, l := range detail.Lines {
		row := []string{
			l.EmployeeName, l.Designation, money(l.BasicSalary),
			money(l.OwnSomityCollection), strconv.Itoa(l.OwnSomityCount),
			money(l.OfficeSomityCollection), strconv.Itoa(l.OfficeSomityCount),
			money(l.CenterCollection), strconv.Itoa(l.CenterCount), money(l.TotalLoanCollection),
		}
		for _, term := range terms {
			row = append(row, strconv.Itoa(l.BookCounts[term]))
		}
		row = append(row,
			strconv.Itoa(l.NoBonusBooks), strconv.Itoa(l.TotalBooks),
			money(l.CollectionCommission), money(l.BookCommission), money(l.Commission), money(l.Bonus),
			money(l.ManagerConvenience), money(l.LateDeduction), money(l.AbsentDeduction), money(l.CashAdvance),
			money(l.Misconduct), money(l.Unlawful), money(l.Tours), money(l.OtherDeductions),
			money(l.TotalDeductions), money(l.FinalSalary),
		)
		rows = append(rows, row)
	}

	totals := make([]string, len(header))
	totals[0] = "TOTAL"
	totals[len(header)-1] = money(detail.Totals.FinalSalary)
	totals[len(header)-2] = money(detail.Totals.TotalDeductions)
	rows = append(rows, totals)
	return header, rows
}

func (s *Service) exportDetail(ctx context.Context, sheetID string) (Detail, []payroll.Term, error) {
	detail, err := s.GetSheet(ctx, sheetID)
	if err != nil {
		return Detail{}, nil, err
	}
	_, schedule, err := s.calculator(ctx)
	if err != nil {
		return Detail{}, nil, err
	}
	return detail, bookTerms(schedule, detail.Lines), nil
}

func ExportFilename(sh Sheet, ext string) string {
	return fmt.Sprintf("salary-sheet-%s-%s.%s", sh.Month, sh.ID, ext)
}

func (s *Service) ExportCSV(ctx context.Context, sheetID string, w io.Writer) (Sheet, error) {
	detail, terms, err := s.exportDetail(ctx, sheetID)
	if err != nil {
		return Sheet{}, err
	}
	header, rows := sheetTable(detail, terms)
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return Sheet{}, err
	}
	if err := writer.WriteAll(rows); err != nil {
		return Sheet{}, err
	}
	return detail.Sheet, writer.Error()
}

func (s *Service) ExportXLSX(ctx context.Context, sheetID string, w io.Writer) (Sheet, error) {
	detail, terms, err := s.exportDetail(ctx, sheetID)
	if err != nil {
		return Sheet{}, err
	}
	header, rows := sheetTable(detail, terms)

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("close workbook failed", zap.Error(err))
		}
	}()
	name := detail.Month.String()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return Sheet{}, err
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return Sheet{}, err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return Sheet{}, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			if j >= 2 {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					values[j] = n
					continue
				}
			}
			values[j] = v
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return Sheet{}, err
		}
	}
	if err := f.SetPanes(name, &excelize.Panes{Freeze: true, XSplit: 1, YSplit: 1, TopLeftCell: "B2", ActivePane: "bottomRight"}); err != nil {
		return Sheet{}, err
	}
	if _, err := f.WriteTo(w); err != nil {
		return Sheet{}, err
	}
	return detail.Sheet, nil
}

// ExportPDF renders a landscape summary; the full column set lives in CSV/XLSX.
func (s *Service) ExportPDF(ctx context.Context, sheetID string, w io.Writer) (Sheet, error) {
	detail, _, err := s.exportDetail(ctx, sheetID)
	if err != nil {
		return Sheet{}, err
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, fmt.Sprintf("Salary Sheet %s (%s)", detail.Month, detail.Status))
	pdf.Ln(12)

	header := []string{"Employee", "Basic", "Own Coll.", "Office Coll.", "Loan", "Books", "Commission", "Bonus", "Convenience", "Deductions", "Final"}
	widths := []float64{50, 22, 24, 24, 24, 14, 24, 18, 22, 24, 26}
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, l := range detail.Lines {
		cells := []string{
			l.EmployeeName, money(l.BasicSalary), money(l.OwnSomityCollection), money(l.OfficeSomityCollection),
			money(l.TotalLoanCollection), strconv.Itoa(l.TotalBooks), money(l.Commission), money(l.Bonus),
			money(l.ManagerConvenience), money(l.TotalDeductions), money(l.FinalSalary),
		}
		for i, c := range cells {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, c, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(widths[0], 7, "TOTAL", "1", 0, "L", false, 0, "")
	for i := 1; i < len(widths)-1; i++ {
		pdf.CellFormat(widths[i], 7, "", "1", 0, "", false, 0, "")
	}
	pdf.CellFormat(widths[len(widths)-1], 7, money(detail.Totals.FinalSalary), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	if err := pdf.Output(w); err != nil {
		return Sheet{}, err
	}
	return detail.Sheet, nil
}
