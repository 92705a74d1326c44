package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/vibematch/internal/models"
)

// CSVLoader reads a CSV catalog with a header row naming id, name, desc and tags.
// Tags within a cell are separated by '|' or ';'.
type CSVLoader struct {
	Path string
}

func (l *CSVLoader) Load(ctx context.Context) ([]models.Product, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []models.Product{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", l.Path, err)
	}
	cols, err := parseHeader(header)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", l.Path, err)
	}

	products := []models.Product{}
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", l.Path, err)
		}
		if isBlank(row) {
			continue
		}
		p, err := cols.product(row, line)
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
