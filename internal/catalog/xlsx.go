package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/vibematch/internal/models"
)

// XLSXLoader reads the first sheet (or Sheet, when set) of a workbook laid out like the CSV format.
type XLSXLoader struct {
	Path  string
	Sheet string
}

func (l *XLSXLoader) Load(ctx context.Context) ([]models.Product, error) {
	f, err := excelize.OpenFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := l.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return []models.Product{}, nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return []models.Product{}, nil
	}
	cols, err := parseHeader(rows[0])
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", l.Path, err)
	}

	products := []models.Product{}
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isBlank(row) {
			continue
		}
		p, err := cols.product(row, i+2)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", l.Path, err)
		}
		products = append(products, p)
	}
	if err := Validate(products); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", l.Path, err)
	}
	return products, nil
}

// WriteXLSX writes products to a new workbook in the layout XLSXLoader reads.
func WriteXLSX(path string, products []models.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{"id", "name", "desc", "tags"}); err != nil {
		return err
	}
	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{p.ID, p.Name, p.Description, strings.Join(p.Tags, "|")}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
