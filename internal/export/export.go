// Package export writes slab records as CSV, TSV or Excel workbooks.
//
// Headers are the canonical import headers, so an exported file imports back
// onto the same (slab_id, version) identities. Notes that contain the
// delimiter only round-trip through TSV or Excel, since the importer splits
// lines naively.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/slabstock/internal/core"
	"github.com/JonMunkholm/slabstock/internal/slab"
)

// SheetName is the worksheet name of Excel exports.
const SheetName = "Slabs"

// Content types for the supported formats.
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeTSV  = "text/tab-separated-values; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Headers returns the export header line.
func Headers() []string {
	h := make([]string, len(core.FieldOrder))
	for i, f := range core.FieldOrder {
		h[i] = core.Header(f)
	}
	return h
}

// Values returns rec's cells in header order.
func Values(rec slab.Record) []string {
	out := make([]string, len(core.FieldOrder))
	for i, f := range core.FieldOrder {
		out[i] = value(rec, f)
	}
	return out
}

func value(rec slab.Record, f core.Field) string {
	switch f {
	case core.FieldSlabID:
		return rec.SlabID
	case core.FieldFamily:
		return rec.Family
	case core.FieldFormulation:
		return slab.Deref(rec.Formulation)
	case core.FieldVersion:
		return slab.Deref(rec.Version)
	case core.FieldQuantity:
		return strconv.Itoa(rec.Quantity)
	case core.FieldStatus:
		return string(rec.Status)
	case core.FieldCategory:
		return string(rec.Category)
	case core.FieldReceivedDate:
		return slab.Deref(rec.ReceivedDate)
	case core.FieldSentToLocation:
		return slab.Deref(rec.SentToLocation)
	case core.FieldSentToDate:
		return slab.Deref(rec.SentToDate)
	case core.FieldNotes:
		return slab.Deref(rec.Notes)
	case core.FieldBoxSharedLink:
		return slab.Deref(rec.BoxSharedLink)
	case core.FieldImageURL:
		return slab.Deref(rec.ImageURL)
	case core.FieldSKU:
		return slab.Deref(rec.SKU)
	}
	return ""
}

// WriteCSV writes recs as comma-separated values with a header line.
func WriteCSV(w io.Writer, recs []slab.Record) error {
	return writeDelimited(w, recs, ',')
}

// WriteTSV writes recs as tab-separated values with a header line.
func WriteTSV(w io.Writer, recs []slab.Record) error {
	return writeDelimited(w, recs, '\t')
}

func writeDelimited(w io.Writer, recs []slab.Record, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma

	if err := cw.Write(Headers()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range recs {
		if err := cw.Write(Values(rec)); err != nil {
			return fmt.Errorf("write slab %s: %w", rec.SlabID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes recs to a single-sheet workbook with a bold header row.
// Quantities are written as numbers.
func WriteXLSX(w io.Writer, recs []slab.Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]interface{}, 0, len(core.FieldOrder))
	for _, h := range Headers() {
		header = append(header, h)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("apply header style: %w", err)
	}

	row := 2
	for _, rec := range recs {
		values := Values(rec)
		excelRow := make([]interface{}, len(values))
		for i, v := range values {
			excelRow[i] = v
		}
		for i, fld := range core.FieldOrder {
			if fld == core.FieldQuantity {
				excelRow[i] = rec.Quantity
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &excelRow); err != nil {
			return fmt.Errorf("write slab %s: %w", rec.SlabID, err)
		}
		row++
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
