package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampQuantity(t *testing.T) {
	t.Parallel()

	for _, q := range []int{-100, -1, 0} {
		assert.Equal(t, 1, ClampQuantity(q))
	}
	assert.Equal(t, 7, ClampQuantity(7))
}

func TestNormalizeLines(t *testing.T) {
	t.Parallel()

	got := NormalizeLines([]CartLine{
		{ProductID: "a", Quantity: 2},
		{ProductID: " ", Quantity: 3},
		{ProductID: "b", Quantity: 0},
		{ProductID: "a", Quantity: 5},
	})

	assert.Equal(t, []CartLine{
		{ProductID: "a", Quantity: 5},
		{ProductID: "b", Quantity: 1},
	}, got)
}

func TestNormalizeIDs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"x", "y"}, NormalizeIDs([]string{"x", "", "y", "x"}))
}

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}
