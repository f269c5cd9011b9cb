// Package export renders stored extractions as spreadsheets.
package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Epistemic-Technology/vetrecords/internal/faq"
	"github.com/Epistemic-Technology/vetrecords/models"
)

// Sheet names in workbook order.
const (
	SheetFAQs        = "FAQs"
	SheetVaccines    = "Vaccines"
	SheetSurgeries   = "Surgeries"
	SheetMedications = "Medications"
	SheetBloodwork   = "Bloodwork"
	SheetTimeline    = "Timeline"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheet struct {
	name    string
	headers []string
	widths  []float64
	rows    [][]any
}

// WriteWorkbook writes result as an xlsx workbook with one sheet per record list.
func WriteWorkbook(result *models.ExtractionResult) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheets := []sheet{
		faqSheet(result.FAQs),
		{
			name:    SheetVaccines,
			headers: []string{"Vaccine", "Date Administered", "Next Due", "Source"},
			widths:  []float64{28, 16, 14, 32},
			rows: rowsOf(result.Vaccines, func(v models.Vaccine) []any {
				return []any{v.Name, v.DateAdministered, v.NextDue, v.Source}
			}),
		},
		{
			name:    SheetSurgeries,
			headers: []string{"Procedure", "Date", "Notes", "Source"},
			widths:  []float64{28, 14, 48, 32},
			rows: rowsOf(result.Surgeries, func(s models.Surgery) []any {
				return []any{s.Procedure, s.Date, s.Notes, s.Source}
			}),
		},
		{
			name:    SheetMedications,
			headers: []string{"Medication", "Dosage", "Start Date", "End Date", "Source"},
			widths:  []float64{28, 20, 14, 14, 32},
			rows: rowsOf(result.Medications, func(m models.Medication) []any {
				return []any{m.Name, m.Dosage, m.StartDate, m.EndDate, m.Source}
			}),
		},
		{
			name:    SheetBloodwork,
			headers: []string{"Panel", "Date", "Findings", "Abnormal", "Source"},
			widths:  []float64{24, 14, 48, 10, 32},
			rows: rowsOf(result.Bloodwork, func(b models.Bloodwork) []any {
				return []any{b.Panel, b.Date, b.Findings, yesNo(b.Abnormal), b.Source}
			}),
		},
		{
			name:    SheetTimeline,
			headers: []string{"Date", "Category", "Type", "Source", "Notes"},
			widths:  []float64{14, 20, 32, 32, 48},
			rows: rowsOf(result.CategorizedDates, func(d models.CategorizedDate) []any {
				return []any{d.Date, string(d.Category), d.SpecificType, d.Source, d.Notes}
			}),
		},
	}

	for i, s := range sheets {
		if i == 0 {
			// NewFile starts with Sheet1
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf, nil
}

func faqSheet(faqs models.FAQs) sheet {
	s := sheet{
		name:    SheetFAQs,
		headers: []string{"Question", "Date", "Source"},
		widths:  []float64{56, 14, 32},
	}
	for _, rule := range faq.Rules() {
		entry, _ := faq.Lookup(faqs, rule.Key)
		s.rows = append(s.rows, []any{rule.Question, deref(entry.Date), deref(entry.Source)})
	}
	return s
}

func writeSheet(f *excelize.File, s sheet) error {
	write := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(s.name, cell, v)
	}

	for i, h := range s.headers {
		if err := write(i+1, 1, h); err != nil {
			return fmt.Errorf("%s header: %w", s.name, err)
		}
	}
	for r, values := range s.rows {
		for c, v := range values {
			if err := write(c+1, r+2, v); err != nil {
				return fmt.Errorf("%s row %d: %w", s.name, r+1, err)
			}
		}
	}

	for i, w := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		_ = f.SetColWidth(s.name, col, col, w)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(s.headers), 1)
		_ = f.SetCellStyle(s.name, "A1", last, style)
	}
	return f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func rowsOf[T any](items []T, row func(T) []any) [][]any {
	out := make([][]any, 0, len(items))
	for _, it := range items {
		out = append(out, row(it))
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
