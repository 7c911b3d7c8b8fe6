package fixedpoint

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maxAmount(t *testing.T) Amount {
	t.Helper()
	limit := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	a, err := FromBig(limit)
	require.NoError(t, err)
	return a
}

func TestAdd(t *testing.T) {
	got, err := Add(FromUint64(40), FromUint64(2))
	require.NoError(t, err)
	assert.Equal(t, "42", got.String())

	_, err = Add(maxAmount(t), FromUint64(1))
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestSub(t *testing.T) {
	got, err := Sub(FromUint64(10), FromUint64(10))
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = Sub(FromUint64(1), FromUint64(2))
	assert.ErrorIs(t, err, ErrUnderflow)
}

func TestMulDiv(t *testing.T) {
	tests := []struct {
		name    string
		a, b, d Amount
		want    string
		wantErr error
	}{
		{name: "exact", a: FromUint64(6), b: FromUint64(7), d: FromUint64(2), want: "21"},
		{name: "floors", a: FromUint64(10), b: FromUint64(1), d: FromUint64(3), want: "3"},
		{name: "wide intermediate", a: MustParse("115792089237316195423570985008687907853269984665640564039457584007913129639935"), b: FromUint64(2), d: FromUint64(4), want: "57896044618658097711785492504343953926634992332820282019728792003956564819967"},
		{name: "zero divisor", a: FromUint64(1), b: FromUint64(1), d: Zero(), wantErr: ErrArithmeticOverflow},
		{name: "quotient too wide", a: MustParse("115792089237316195423570985008687907853269984665640564039457584007913129639935"), b: FromUint64(2), d: FromUint64(1), wantErr: ErrArithmeticOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MulDiv(tt.a, tt.b, tt.d)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestPow2(t *testing.T) {
	got, err := Pow2(FromUint64(800000))
	require.NoError(t, err)
	assert.Equal(t, "640000000000", got.String())

	_, err = Pow2(MustParse("340282366920938463463374607431768211456")) // 2^128
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestSqrt(t *testing.T) {
	assert.Equal(t, "1000", Sqrt(FromUint64(1000000)).String())
	assert.Equal(t, "3", Sqrt(FromUint64(15)).String())
}

func TestParse(t *testing.T) {
	a, err := Parse(" 500000000000000000 ")
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", a.String())

	for _, in := range []string{"", "-1", "1.5", "abc"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
	}
}

func TestJSONRoundTripKeepsPrecision(t *testing.T) {
	type wrapper struct {
		Value Amount `json:"value"`
	}
	in := wrapper{Value: MustParse("90000000000000000000000")}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"90000000000000000000000"}`, string(raw))

	var out wrapper
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, in.Value.Equal(out.Value))
}

func TestComparisons(t *testing.T) {
	one, two := FromUint64(1), FromUint64(2)
	assert.True(t, one.LessThan(two))
	assert.True(t, two.GreaterThan(one))
	assert.Equal(t, one, Min(one, two))
	assert.Equal(t, -1, one.Cmp(two))

	v, ok := two.Uint64()
	assert.True(t, ok)
	assert.Equal(t, uint64(2), v)
}
