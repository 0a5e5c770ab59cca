package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerfumeRow_CorruptPriceIsAnError(t *testing.T) {
	row := perfumeRow{price: "dix euros"}
	row.p.ID = "p1"

	_, err := row.perfume()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptRow)
	assert.Contains(t, err.Error(), "p1")
}

func TestPerfumeRow_ValidPrice(t *testing.T) {
	row := perfumeRow{price: "89.90"}

	p, err := row.perfume()
	require.NoError(t, err)
	assert.Equal(t, "89.90", p.Price.StringFixed(2))
}

func TestAmounts_KeepsFirstError(t *testing.T) {
	var a amounts
	assert.Equal(t, "20.00", a.parse("subtotal", "20.00").StringFixed(2))
	assert.NoError(t, a.err)

	a.parse("tax", "x")
	a.parse("total", "y")
	require.ErrorIs(t, a.err, ErrCorruptRow)
	assert.Contains(t, a.err.Error(), "tax")
	assert.NotContains(t, a.err.Error(), "total")
}
