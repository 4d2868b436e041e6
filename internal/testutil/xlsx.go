// Package testutil builds in-memory workbooks for tests.
package testutil

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of a fixture workbook; Rows[0] is the header.
type Sheet struct {
	Name string
	Rows [][]any
}

// DataHeader is the header row of a production log sheet.
var DataHeader = []any{
	"Date",
	"Milk_Input_Ltrs",
	"Milk_Purchase_Price_per_Litre",
	"Ingredient_Cost_RS",
	"Labour_Cost_RS",
	"Utility_Cost_RS",
	"Paneer_Output_Kg",
	"Selling_Price_per_Kg_RS",
	"Fat_Percent",
	"SNF_Percent",
	"SOP_Adherence_Score",
	"Capacity_Utilization_Percent",
}

// DataSheet returns a "Data" sheet with the production header followed by rows.
func DataSheet(rows ...[]any) Sheet {
	all := make([][]any, 0, len(rows)+1)
	all = append(all, DataHeader)
	all = append(all, rows...)
	return Sheet{Name: "Data", Rows: all}
}

// SampleDays is a six-day production log. Day 4 has an unusually high yield and
// day 6 an unusually low one.
func SampleDays() [][]any {
	return [][]any{
		{"01-03", 1000, 40, 500, 1200, 300, 200, 350, 4.1, 8.5, 92, 81},
		{"02-03", 1000, 40, 520, 1200, 310, 205, 350, 4.2, 8.6, 94, 83},
		{"03-03", 1000, 41, 510, 1200, 305, 198, 350, 4.0, 8.4, 90, 80},
		{"04-03", 1000, 40, 500, 1200, 290, 240, 355, 4.6, 8.9, 97, 88},
		{"05-03", 1000, 40, 515, 1250, 300, 202, 350, 4.1, 8.5, 93, 82},
		{"06-03", 1000, 42, 530, 1250, 320, 170, 345, 3.7, 8.1, 85, 74},
	}
}

// Workbook serializes the sheets into XLSX bytes.
func Workbook(t testing.TB, sheets ...Sheet) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			t.Fatalf("new sheet %q: %v", s.Name, err)
		}
		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			vals := row
			if err := f.SetSheetRow(s.Name, cell, &vals); err != nil {
				t.Fatalf("set row %d of %q: %v", r+1, s.Name, err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}
