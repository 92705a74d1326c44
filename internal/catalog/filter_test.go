package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/vibematch/internal/models"
)

func filterProducts() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Boho Dress", Description: "flowy linen dress", Tags: []string{"boho", "festival"}},
		{ID: 2, Name: "Bomber", Description: "black nylon jacket", Tags: []string{"urban"}},
		{ID: 3, Name: "Vest", Description: "suede fringe vest", Tags: []string{"boho"}},
	}
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		expr string
		want []int
	}{
		{`"boho" in product.tags`, []int{1, 3}},
		{`product.desc.contains("linen")`, []int{1}},
		{`product.id >= 2`, []int{2, 3}},
		{`product.name.startsWith("B") && !("urban" in product.tags)`, []int{1}},
		{`false`, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := NewFilter(tt.expr)
			require.NoError(t, err)
			got, err := f.Apply(filterProducts())
			require.NoError(t, err)
			ids := []int{}
			for _, p := range got {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFilter_Empty(t *testing.T) {
	f, err := NewFilter("  ")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Equal(t, "", f.String())

	all := filterProducts()
	got, err := f.Apply(all)
	require.NoError(t, err)
	assert.Len(t, got, len(all))

	ok, err := f.Match(&all[0])
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFilter_Errors(t *testing.T) {
	_, err := NewFilter(`product.tags ++`)
	assert.ErrorContains(t, err, "compile filter")

	f, err := NewFilter(`product.name`)
	require.NoError(t, err)
	_, err = f.Apply(filterProducts())
	assert.ErrorContains(t, err, "must return a boolean")

	f, err = NewFilter(`product.color == "red"`)
	require.NoError(t, err)
	_, err = f.Apply(filterProducts())
	assert.ErrorContains(t, err, "evaluate filter on product 1")
}
