package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hyperjump/vibematch/internal/models"
)

// JSONLoader reads a JSON array of products: [{"id":1,"name":"...","desc":"...","tags":[...]}].
type JSONLoader struct {
	Path string
}

func (l *JSONLoader) Load(ctx context.Context) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", l.Path, err)
	}
	if products == nil {
		products = []models.Product{}
	}
	if err := Validate(products); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", l.Path, err)
	}
	return products, nil
}
