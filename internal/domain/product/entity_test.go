package product

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductIDPreservesWireForm(t *testing.T) {
	var ids []ProductID
	require.NoError(t, json.Unmarshal([]byte(`[42, "sku-7", "  9 ", null, {"x":1}, true, 3.0]`), &ids))
	require.Len(t, ids, 7)

	assert.True(t, ids[0].IsNumeric())
	assert.Equal(t, "42", ids[0].String())
	n, ok := ids[0].Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	assert.False(t, ids[1].IsNumeric())
	assert.Equal(t, "sku-7", ids[1].String())

	assert.Equal(t, "9", ids[2].String())
	assert.False(t, ids[2].IsNumeric())

	for _, bad := range ids[3:6] {
		assert.False(t, bad.IsValid())
	}

	assert.True(t, ids[6].IsNumeric())
	assert.Equal(t, "3", ids[6].String())

	out, err := json.Marshal(map[string]ProductID{"a": NumericID(42), "b": StringID("42")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":42,"b":"42"}`, string(out))
}

func TestProductIDMatchesAcrossForms(t *testing.T) {
	assert.True(t, NumericID(42).Matches(StringID("42")))
	assert.False(t, StringID("").Matches(StringID("")))
	assert.False(t, NumericID(1).Matches(NumericID(2)))
}

func TestItemDefaults(t *testing.T) {
	var item Item
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"name":"NS60","category":"battery","price_cents":45000,"price":"RM450.00"}`), &item))

	assert.Equal(t, "7", item.ID.String())
	assert.Equal(t, DefaultWarrantyMonths, item.WarrantyPeriod)
	assert.Nil(t, item.WarrantyMileage)
	assert.True(t, item.IsAvailable)
	assert.False(t, item.IsRecommended)
	assert.Equal(t, "RM450.00", item.Price)
	assert.Equal(t, "450.00", item.Subtotal().StringFixed(2))
	assert.True(t, item.IsSelectable())
}

func TestItemOverrides(t *testing.T) {
	raw := `{
		"id": "amaron-55",
		"name": "Amaron Pro",
		"brand": {"name": "Amaron"},
		"manufacturer_name": "Amara Raja",
		"consumable": true,
		"price_cents": "32000",
		"price": 320,
		"warranty_period": 24,
		"warranty_mileage": 40000,
		"is_available": false,
		"recommended": true
	}`
	var item Item
	require.NoError(t, json.Unmarshal([]byte(raw), &item))

	assert.Equal(t, "Amaron", item.Brand)
	assert.Equal(t, int64(32000), item.PriceCents)
	assert.Equal(t, "320", item.Price)
	assert.Equal(t, 24, item.WarrantyPeriod)
	require.NotNil(t, item.WarrantyMileage)
	assert.Equal(t, 40000, *item.WarrantyMileage)
	assert.False(t, item.IsAvailable)
	assert.True(t, item.IsRecommended)
	assert.False(t, item.IsSelectable())
}

func TestItemToleratesOffTypeFields(t *testing.T) {
	raw := `{
		"id": 2,
		"name": "DIN55",
		"consumable": "1",
		"price_cents": "not-a-number",
		"warranty_period": "18",
		"warranty_mileage": "abc",
		"is_available": "true",
		"is_recommended": "yes"
	}`
	var item Item
	require.NoError(t, json.Unmarshal([]byte(raw), &item))

	assert.Equal(t, "2", item.ID.String())
	assert.True(t, item.Consumable)
	assert.Equal(t, int64(0), item.PriceCents)
	assert.Equal(t, 18, item.WarrantyPeriod)
	assert.Nil(t, item.WarrantyMileage)
	assert.True(t, item.IsAvailable)
	assert.False(t, item.IsRecommended)

	var off Item
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"is_available":0}`), &off))
	assert.False(t, off.IsAvailable)

	assert.Error(t, json.Unmarshal([]byte(`"just a string"`), &item))
}

func TestItemRoundTripKeepsNumericID(t *testing.T) {
	in := Item{ID: NumericID(5), Name: "x", WarrantyPeriod: 18, IsAvailable: true}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Item
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, out.ID.IsNumeric())
	assert.Equal(t, 18, out.WarrantyPeriod)
}

func TestListFind(t *testing.T) {
	list := &List{Products: []Item{
		{ID: NumericID(1), Name: "one"},
		{ID: StringID("two"), Name: "two", IsRecommended: true},
	}}

	item, ok := list.Find(StringID("1"))
	require.True(t, ok)
	assert.Equal(t, "one", item.Name)
	assert.True(t, item.ID.IsNumeric())

	_, ok = list.Find(StringID("three"))
	assert.False(t, ok)

	assert.Len(t, list.Recommended(), 1)

	var nilList *List
	_, ok = nilList.Find(StringID("1"))
	assert.False(t, ok)
}
