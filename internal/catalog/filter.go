package catalog

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/hyperjump/vibematch/internal/models"
)

// Filter is a compiled CEL predicate over a product, exposed to the expression as
// `product` with fields id, name, desc and tags. Examples:
//
//	"boho" in product.tags
//	product.desc.contains("linen") && product.id < 100
//
// A Filter is safe for concurrent use.
type Filter struct {
	expr string
	prg  cel.Program
}

var filterEnv *cel.Env

func init() {
	env, err := cel.NewEnv(cel.Variable("product", cel.DynType))
	if err != nil {
		panic(fmt.Sprintf("catalog: cel environment: %v", err))
	}
	filterEnv = env
}

// NewFilter compiles expr. An empty expression returns a nil Filter, which keeps everything.
func NewFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	ast, issues := filterEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, issues.Err())
	}
	prg, err := filterEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program filter %q: %w", expr, err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match evaluates the filter for p. A nil Filter matches every product.
func (f *Filter) Match(p *models.Product) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(map[string]any{"product": activation(p)})
	if err != nil {
		return false, fmt.Errorf("evaluate filter on product %d: %w", p.ID, err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("filter %q must return a boolean, got %T", f.expr, out.Value())
	}
	return ok, nil
}

// Apply returns the products that match, in their original order.
func (f *Filter) Apply(products []models.Product) ([]models.Product, error) {
	if f == nil {
		return products, nil
	}
	out := make([]models.Product, 0, len(products))
	for i := range products {
		ok, err := f.Match(&products[i])
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, products[i])
		}
	}
	return out, nil
}

func activation(p *models.Product) map[string]any {
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)
	return map[string]any{
		"id":   p.ID,
		"name": p.Name,
		"desc": p.Description,
		"tags": tags,
	}
}
