package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/slabstock/internal/core"
	"github.com/JonMunkholm/slabstock/internal/slab"
)

func sampleRecords() []slab.Record {
	return []slab.Record{
		{
			SlabID:       "1A",
			Family:       "Calacatta",
			Formulation:  slab.StringPtr("Gold"),
			Status:       slab.StatusInStock,
			Category:     slab.CategoryCurrent,
			Quantity:     4,
			ReceivedDate: slab.StringPtr("2024-03-15"),
		},
		{
			SlabID:     "2B",
			Family:     "Statuario",
			Version:    slab.StringPtr("v2"),
			Status:     slab.StatusSent,
			Category:   slab.CategoryDevelopment,
			Quantity:   1,
			SentToDate: slab.StringPtr("2024-04-01"),
			Notes:      slab.StringPtr("edge chipped, see photo"),
		},
	}
}

func TestHeaders(t *testing.T) {
	h := Headers()
	if len(h) != len(core.FieldOrder) {
		t.Fatalf("Headers() has %d columns, want %d", len(h), len(core.FieldOrder))
	}
	if h[0] != "Slab ID" {
		t.Errorf("first header = %q, want Slab ID", h[0])
	}
}

func TestWriteCSV_ImportsBack(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRecords()[:1]); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("WriteCSV() wrote %d lines, want 2", len(lines))
	}
	if lines[0] != strings.Join(Headers(), ",") {
		t.Errorf("header line = %q", lines[0])
	}

	rows := core.Tokenize(buf.String())
	if len(rows) != 1 {
		t.Fatalf("Tokenize(export) returned %d rows", len(rows))
	}
	checks := map[core.Field]string{
		core.FieldSlabID:       "1A",
		core.FieldFamily:       "Calacatta",
		core.FieldFormulation:  "Gold",
		core.FieldQuantity:     "4",
		core.FieldStatus:       "in_stock",
		core.FieldReceivedDate: "2024-03-15",
		core.FieldVersion:      "",
	}
	for f, want := range checks {
		if got := rows[0].Get(f); got != want {
			t.Errorf("%s = %q, want %q", f, got, want)
		}
	}
}

func TestWriteTSV_KeepsCommas(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTSV(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteTSV() error = %v", err)
	}

	first := strings.SplitN(buf.String(), "\n", 2)[0]
	if first != strings.Join(Headers(), "\t") {
		t.Errorf("header line = %q", first)
	}

	rows := core.Tokenize(buf.String())
	if len(rows) != 2 {
		t.Fatalf("Tokenize(export) returned %d rows", len(rows))
	}
	if got := rows[1].Get(core.FieldNotes); got != "edge chipped, see photo" {
		t.Errorf("notes = %q, want the comma preserved", got)
	}
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != strings.Join(Headers(), ",") {
		t.Errorf("empty export = %q, want the header only", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open exported workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	if got := f.GetSheetName(0); got != SheetName {
		t.Errorf("sheet = %q, want %q", got, SheetName)
	}

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("workbook has %d rows, want 3", len(rows))
	}
	if rows[0][0] != "Slab ID" || rows[1][0] != "1A" || rows[2][0] != "2B" {
		t.Errorf("first column = %q %q %q", rows[0][0], rows[1][0], rows[2][0])
	}

	styleID, err := f.GetCellStyle(SheetName, "A1")
	if err != nil {
		t.Fatal(err)
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		t.Fatal(err)
	}
	if style.Font == nil || !style.Font.Bold {
		t.Error("header row is not bold")
	}

	var qtyCol int
	for i, fld := range core.FieldOrder {
		if fld == core.FieldQuantity {
			qtyCol = i + 1
		}
	}
	cell, _ := excelize.CoordinatesToCellName(qtyCol, 2)
	if v, _ := f.GetCellValue(SheetName, cell); v != "4" {
		t.Errorf("quantity cell = %q, want 4", v)
	}
	typ, err := f.GetCellType(SheetName, cell)
	if err != nil {
		t.Fatal(err)
	}
	if typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
		t.Errorf("quantity cell stored as text (type %v)", typ)
	}

	// The workbook imports back through the same reader the service uses.
	imported, err := core.TokenizeWorkbook(buf.Bytes())
	if err != nil {
		t.Fatalf("TokenizeWorkbook(export) error = %v", err)
	}
	if len(imported) != 2 || imported[1].Get(core.FieldVersion) != "v2" {
		t.Errorf("re-imported rows = %v", imported)
	}
}
