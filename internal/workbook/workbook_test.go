package workbook

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/dairyreport/internal/testutil"
)

func TestOpenListsSheetsInOrder(t *testing.T) {
	b := testutil.Workbook(t,
		testutil.Sheet{Name: "Summary", Rows: [][]any{{"Note"}, {"hello"}}},
		testutil.DataSheet(testutil.SampleDays()...),
		testutil.Sheet{Name: "data", Rows: [][]any{{"x"}, {1}}},
	)
	wb, err := Open(bytes.NewReader(b), "log.xlsx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wb.Close()
	got := strings.Join(wb.Sheets(), ",")
	if got != "Summary,Data,data" {
		t.Fatalf("sheets = %s", got)
	}
}

func TestOpenRejectsNonSpreadsheet(t *testing.T) {
	_, err := Open(strings.NewReader("date,value\n01-03,1\n"), "log.csv")
	if !errors.Is(err, ErrInvalidWorkbook) {
		t.Fatalf("expected ErrInvalidWorkbook, got %v", err)
	}
}

func TestTableSheetNotFoundIsCaseSensitive(t *testing.T) {
	b := testutil.Workbook(t, testutil.DataSheet(testutil.SampleDays()...))
	wb, err := Open(bytes.NewReader(b), "log.xlsx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wb.Close()
	_, err = wb.Table("data")
	var nf *SheetNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected SheetNotFoundError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Available sheets: Data") {
		t.Fatalf("message should list sheets: %v", err)
	}
}

func TestTableInfersColumnTypes(t *testing.T) {
	b := testutil.Workbook(t, testutil.DataSheet(testutil.SampleDays()...))
	wb, err := Open(bytes.NewReader(b), "log.xlsx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wb.Close()
	tbl, err := wb.Table("Data")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if len(tbl.Header) != len(testutil.DataHeader) {
		t.Fatalf("header = %v", tbl.Header)
	}
	if tbl.Frame.Nrow() != 6 {
		t.Fatalf("rows = %d, want 6", tbl.Frame.Nrow())
	}
	if typ := tbl.Frame.Col("Date").Type(); typ != series.String {
		t.Fatalf("Date type = %v, want string", typ)
	}
	if typ := tbl.Frame.Col("Milk_Input_Ltrs").Type(); typ != series.Int {
		t.Fatalf("Milk_Input_Ltrs type = %v, want int", typ)
	}
	if typ := tbl.Frame.Col("Fat_Percent").Type(); typ != series.Float {
		t.Fatalf("Fat_Percent type = %v, want float", typ)
	}
	head := tbl.Head(2)
	if len(head) != 2 || head[0][0] != "01-03" {
		t.Fatalf("head = %v", head)
	}
	if len(tbl.Head(100)) != 6 {
		t.Fatalf("head should clamp to row count")
	}
}

func TestTableBlankCellsAreMissingNotText(t *testing.T) {
	b := testutil.Workbook(t, testutil.Sheet{Name: "Data", Rows: [][]any{
		{"Date", "Milk_Input_Ltrs", "", "Milk_Input_Ltrs"},
		{"01-03", 100, "a", 1},
		{"02-03", nil, "b", 2},
		{nil, nil, nil, nil},
		{"03-03", 120, "c", 3},
	}})
	wb, err := Open(bytes.NewReader(b), "log.xlsx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wb.Close()
	tbl, err := wb.Table("Data")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if got := strings.Join(tbl.Header, "|"); got != "Date|Milk_Input_Ltrs|Unnamed: 2|Milk_Input_Ltrs.1" {
		t.Fatalf("header = %s", got)
	}
	if tbl.Frame.Nrow() != 3 {
		t.Fatalf("blank rows should be dropped, got %d rows", tbl.Frame.Nrow())
	}
	col := tbl.Frame.Col("Milk_Input_Ltrs")
	if col.Type() != series.Int {
		t.Fatalf("type = %v, want int", col.Type())
	}
	if !col.Elem(1).IsNA() {
		t.Fatalf("blank cell should be NA")
	}
}

func TestTableKeepsColumnsWithoutHeader(t *testing.T) {
	b := testutil.Workbook(t, testutil.Sheet{Name: "Data", Rows: [][]any{
		{"Date", "Milk_Input_Ltrs"},
		{"01-03", 100, nil, "night shift"},
		{"02-03", 90},
	}})
	wb, err := Open(bytes.NewReader(b), "log.xlsx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wb.Close()
	tbl, err := wb.Table("Data")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if got := strings.Join(tbl.Header, "|"); got != "Date|Milk_Input_Ltrs|Unnamed: 2|Unnamed: 3" {
		t.Fatalf("header = %s", got)
	}
	if tbl.Rows[0][3] != "night shift" || tbl.Rows[1][3] != "" {
		t.Fatalf("rows = %v", tbl.Rows)
	}
	if got := tbl.Frame.Col("Unnamed: 3").Elem(0).String(); got != "night shift" {
		t.Fatalf("frame cell = %q", got)
	}
	if tbl.Frame.Ncol() != 4 {
		t.Fatalf("frame has %d columns", tbl.Frame.Ncol())
	}
}

func TestOpenFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "log.xlsx")
	if err := os.WriteFile(p, testutil.Workbook(t, testutil.DataSheet(testutil.SampleDays()...)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	wb, err := OpenFile(p)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer wb.Close()
	if wb.Name() != "log.xlsx" {
		t.Fatalf("name = %q", wb.Name())
	}
}
