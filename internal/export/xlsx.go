package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/oakwood-commons/jtv/internal/tree"
)

const defaultSheet = "Sheet1"

// WriteXLSX serializes the workbook: main sheet first, then the secondary
// sheets in order of first use. Numbers and booleans keep their cell type and
// placeholder cells link to their sheet.
func (w *Workbook) WriteXLSX(out io.Writer) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName(defaultSheet, w.Main.Title); err != nil {
		return fmt.Errorf("rename main sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeHeader(f, w.Main.Title, w.Main.Columns(), bold); err != nil {
		return err
	}
	for r, row := range w.Main.Rows {
		excelRow := r + 2
		if err := setCell(f, w.Main.Title, 1, excelRow, tree.Int(int64(row.RowID))); err != nil {
			return err
		}
		for c, cell := range row.Cells {
			if err := setCell(f, w.Main.Title, c+2, excelRow, cell.Value); err != nil {
				return err
			}
			if cell.Link == "" {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+2, excelRow)
			if err != nil {
				return err
			}
			if err := f.SetCellHyperLink(w.Main.Title, name, LinkTarget(cell.Link), "Location"); err != nil {
				return fmt.Errorf("link %s!%s: %w", w.Main.Title, name, err)
			}
		}
	}

	for _, s := range w.Sheets {
		if _, err := f.NewSheet(s.Title); err != nil {
			return fmt.Errorf("create sheet %q: %w", s.Title, err)
		}
		if err := writeHeader(f, s.Title, s.Columns(), bold); err != nil {
			return err
		}
		col := make(map[string]int, len(s.Union))
		for i, name := range s.Union {
			col[name] = i + 2
		}
		for r, row := range s.Rows {
			excelRow := r + 2
			if err := setCell(f, s.Title, 1, excelRow, tree.Int(int64(row.OriginRowID))); err != nil {
				return err
			}
			for _, field := range row.Fields {
				if err := setCell(f, s.Title, col[field.Key], excelRow, field.Value); err != nil {
					return err
				}
			}
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// XLSX returns the serialized workbook.
func (w *Workbook) XLSX() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.WriteXLSX(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildXLSX flattens rows and serializes the result in one step.
func BuildXLSX(rows []tree.Value, headers []string, opts Options) ([]byte, error) {
	return Flatten(rows, headers, opts).XLSX()
}

func writeHeader(f *excelize.File, sheet string, columns []string, style int) error {
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header of %q: %w", sheet, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return fmt.Errorf("style header of %q: %w", sheet, err)
	}
	return nil
}

// setCell writes v with its natural cell type. Null leaves the cell empty and
// nested values are written as compact JSON text.
func setCell(f *excelize.File, sheet string, col, row int, v tree.Value) error {
	var value any
	switch v.Kind() {
	case tree.KindNull:
		return nil
	case tree.KindBool:
		value, _ = v.AsBool()
	case tree.KindNumber:
		if i, ok := v.Integer(); ok {
			value = i
		} else if fl, ok := v.Float(); ok {
			value = fl
		} else {
			value = v.Literal()
		}
	case tree.KindString:
		value, _ = v.AsString()
	default:
		value = v.String()
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, name, value); err != nil {
		return fmt.Errorf("write %s!%s: %w", sheet, name, err)
	}
	return nil
}
