// Package catalog loads product catalogs from JSON, CSV and XLSX files.
package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/vibematch/internal/models"
)

// Loader reads a product catalog. The returned order is the file order.
type Loader interface {
	Load(ctx context.Context) ([]models.Product, error)
}

// NewLoader returns a loader for path, chosen by file extension.
func NewLoader(path string) (Loader, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return &JSONLoader{Path: path}, nil
	case ".csv":
		return &CSVLoader{Path: path}, nil
	case ".xlsx":
		return &XLSXLoader{Path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported catalog format %q (supported: .json, .csv, .xlsx)", ext)
	}
}

// Load is NewLoader(path).Load(ctx).
func Load(ctx context.Context, path string) ([]models.Product, error) {
	l, err := NewLoader(path)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx)
}

// Validate checks every product and rejects duplicate IDs. Tags are normalised in place.
func Validate(products []models.Product) error {
	seen := make(map[int]int, len(products))
	for i := range products {
		p := &products[i]
		if err := p.Validate(); err != nil {
			return err
		}
		if first, ok := seen[p.ID]; ok {
			return fmt.Errorf("duplicate product id %d (entries %d and %d)", p.ID, first+1, i+1)
		}
		seen[p.ID] = i
	}
	return nil
}

// columns maps the header of a tabular catalog to column positions.
type columns struct {
	id, name, desc, tags int
}

func parseHeader(header []string) (columns, error) {
	c := columns{id: -1, name: -1, desc: -1, tags: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "id":
			c.id = i
		case "name":
			c.name = i
		case "desc", "description":
			c.desc = i
		case "tags":
			c.tags = i
		}
	}
	if c.id < 0 || c.name < 0 || c.desc < 0 {
		return c, fmt.Errorf("header must contain id, name and desc columns, got %v", header)
	}
	return c, nil
}

// product builds a product from one data row. line is 1-based for error messages.
func (c columns) product(row []string, line int) (models.Product, error) {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	id, err := strconv.Atoi(cell(c.id))
	if err != nil {
		return models.Product{}, fmt.Errorf("row %d: invalid id %q", line, cell(c.id))
	}
	return models.Product{
		ID:          id,
		Name:        cell(c.name),
		Description: cell(c.desc),
		Tags:        splitTags(cell(c.tags)),
	}, nil
}

// splitTags splits a tag cell on '|' or ';'.
func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ';' })
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
