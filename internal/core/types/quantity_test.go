package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityConstructors(t *testing.T) {
	assert.Equal(t, Quantity(50_000), NewQuantityFromInt(5))
	assert.Equal(t, Quantity(12_500), NewQuantityFromFloat64(1.25))
	assert.Equal(t, Quantity(12_500), NewQuantityFromInt64Scaled(12_500))
	assert.Equal(t, int64(12_500), NewQuantityFromInt64Scaled(12_500).Int64Scaled())
}

func TestQuantityPredicates(t *testing.T) {
	assert.True(t, NewQuantityFromInt(1).IsPositive())
	assert.True(t, NewQuantityFromInt(0).IsZero())
	assert.True(t, NewQuantityFromInt(-1).IsNegative())
	assert.Equal(t, NewQuantityFromInt(3), NewQuantityFromInt(-3).Neg())
	assert.Equal(t, NewQuantityFromInt(3), NewQuantityFromInt(-3).Abs())
	assert.Equal(t, NewQuantityFromInt(3), NewQuantityFromInt(3).Abs())
}

func TestQuantityMul(t *testing.T) {
	// 2 sale units of a 12-piece box deduct 24 pieces.
	assert.Equal(t, NewQuantityFromInt(24), NewQuantityFromInt(2).Mul(12))
	assert.Equal(t, NewQuantityFromFloat64(3.0), NewQuantityFromFloat64(1.5).Mul(2))
}

func TestQuantityDecimal(t *testing.T) {
	d := NewQuantityFromFloat64(2.5).Decimal()
	assert.Equal(t, "2.5", d.String())

	price := MustMoney("1.89")
	assert.True(t, price.Mul(NewQuantityFromInt(3).Decimal()).Equal(MustMoney("5.67")))
}

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "5.0000", NewQuantityFromInt(5).String())
	assert.Equal(t, "1.2500", NewQuantityFromFloat64(1.25).String())
	assert.Equal(t, "-0.5000", NewQuantityFromFloat64(-0.5).String())
	assert.Equal(t, "0.0000", Quantity(0).String())
}

func TestQuantityJSON(t *testing.T) {
	data, err := json.Marshal(NewQuantityFromFloat64(1.25))
	require.NoError(t, err)
	assert.Equal(t, "1.2500", string(data))

	var q Quantity
	require.NoError(t, json.Unmarshal([]byte("1.25"), &q))
	assert.Equal(t, NewQuantityFromFloat64(1.25), q)

	require.NoError(t, json.Unmarshal([]byte(`"3"`), &q))
	assert.Equal(t, NewQuantityFromInt(3), q)

	require.NoError(t, json.Unmarshal([]byte(`-2.5`), &q))
	assert.Equal(t, NewQuantityFromFloat64(-2.5), q)

	require.NoError(t, json.Unmarshal([]byte("null"), &q))
	assert.True(t, q.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &q))
}

func TestQuantityJSON_TruncatesExtraDigits(t *testing.T) {
	var q Quantity
	require.NoError(t, json.Unmarshal([]byte("1.23456789"), &q))
	assert.Equal(t, Quantity(12_345), q)
}

func TestMoneyHelpers(t *testing.T) {
	m, err := NewMoneyFromString("19.99")
	require.NoError(t, err)
	assert.True(t, m.Equal(MustMoney("19.99")))

	_, err = NewMoneyFromString("not money")
	assert.Error(t, err)

	assert.True(t, ZeroMoney().IsZero())
	assert.True(t, NewMoney(1.5).Equal(MustMoney("1.5")))
}
