package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda_perfumes/internal/apperr"
	"tienda_perfumes/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testCalculator() Calculator {
	return NewCalculator(dec("0.16"), dec("5.00"))
}

func catalogOf(perfumes ...models.Perfume) map[string]models.Perfume {
	m := make(map[string]models.Perfume, len(perfumes))
	for _, p := range perfumes {
		m[p.ID] = p
	}
	return m
}

func TestCalculate_Example(t *testing.T) {
	cat := catalogOf(models.Perfume{ID: "1", Name: "Chanel N°5", Price: dec("10.00"), Stock: 5})

	q, err := testCalculator().Calculate([]models.CartItem{{PerfumeID: "1", Quantity: 2}}, cat)
	require.NoError(t, err)

	assert.Equal(t, "20.00", q.Subtotal.StringFixed(2))
	assert.Equal(t, "3.20", q.Tax.StringFixed(2))
	assert.Equal(t, "5.00", q.Shipping.StringFixed(2))
	assert.Equal(t, "28.20", q.Total.StringFixed(2))
	require.Len(t, q.Lines, 1)
	assert.True(t, q.Lines[0].LineTotal.Equal(dec("20.00")))
}

func TestCalculate_TotalsAreExact(t *testing.T) {
	cat := catalogOf(
		models.Perfume{ID: "a", Name: "A", Price: dec("0.10"), Stock: 100},
		models.Perfume{ID: "b", Name: "B", Price: dec("19.99"), Stock: 100},
	)
	items := []models.CartItem{{PerfumeID: "a", Quantity: 3}, {PerfumeID: "b", Quantity: 7}}

	q, err := testCalculator().Calculate(items, cat)
	require.NoError(t, err)

	// 0.30 + 139.93 = 140.23 ; 140.23 * 0.16 = 22.4368 → 22.44
	assert.True(t, q.Subtotal.Equal(dec("140.23")))
	assert.True(t, q.Tax.Equal(dec("22.44")))
	assert.True(t, q.Total.Equal(q.Subtotal.Add(q.Tax).Add(q.Shipping)))
}

func TestCalculate_Errors(t *testing.T) {
	cat := catalogOf(
		models.Perfume{ID: "1", Name: "Chanel N°5", Price: dec("10.00"), Stock: 5},
		models.Perfume{ID: "2", Name: "Sauvage", Price: dec("80.00"), Stock: 1},
	)

	tests := []struct {
		name  string
		items []models.CartItem
		kind  apperr.Kind
		msg   string
	}{
		{"panier vide", nil, apperr.InvalidCart, "vide"},
		{"parfum inconnu", []models.CartItem{{PerfumeID: "404", Quantity: 1}}, apperr.ItemNotFound, "404"},
		{"quantité nulle", []models.CartItem{{PerfumeID: "1", Quantity: 0}}, apperr.InvalidQuantity, "Chanel"},
		{"quantité négative", []models.CartItem{{PerfumeID: "1", Quantity: -2}}, apperr.InvalidQuantity, "-2"},
		{"stock insuffisant", []models.CartItem{{PerfumeID: "2", Quantity: 2}}, apperr.InsufficientStock, "disponible: 1"},
		{"lignes cumulées", []models.CartItem{{PerfumeID: "1", Quantity: 3}, {PerfumeID: "1", Quantity: 3}}, apperr.InsufficientStock, "disponible: 5"},
		// la première erreur rencontrée l'emporte
		{"ordre des lignes", []models.CartItem{{PerfumeID: "1", Quantity: 0}, {PerfumeID: "404", Quantity: 1}}, apperr.InvalidQuantity, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testCalculator().Calculate(tt.items, cat)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Contains(t, apperr.MessageOf(err), tt.msg)
		})
	}
}

func TestNewOrderNumber(t *testing.T) {
	a := NewOrderNumber(fixedNow())
	b := NewOrderNumber(fixedNow())

	assert.Regexp(t, `^PRF-[0-9A-F]{8}-[0-9A-Z]+$`, a)
	assert.NotEqual(t, a, b)
}
