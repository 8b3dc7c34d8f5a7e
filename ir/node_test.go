package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapping_PreservesInsertionOrder(t *testing.T) {
	m := NewMapping(
		E("zeta", Int(1)),
		E("alpha", String("a")),
		E("mid", Bool(true)),
	)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
	assert.Equal(t, 3, m.Len())
}

func TestMapping_SetReplacesInPlace(t *testing.T) {
	m := NewMapping(E("a", Int(1)), E("b", Int(2)))
	m.Set("a", String("replaced"))
	m.Set("c", Null{})

	assert.Equal(t, []string{"a", "b", "c"}, m.Keys())
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, String("replaced"), v)
}

func TestMapping_ZeroValueAndNil(t *testing.T) {
	var zero Mapping
	zero.Set("k", Bool(false))
	assert.True(t, zero.Has("k"))

	var nilMap *Mapping
	assert.Equal(t, 0, nilMap.Len())
	assert.False(t, nilMap.Has("k"))
	assert.Empty(t, nilMap.Keys())
	assert.Nil(t, nilMap.Entries())
}

func TestMapping_EntriesIsCopy(t *testing.T) {
	m := NewMapping(E("a", Int(1)))
	entries := m.Entries()
	entries[0].Value = Int(99)

	v, _ := m.Get("a")
	assert.Equal(t, Int(1), v)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Node
		want bool
	}{
		{"null", Null{}, Null{}, true},
		{"string", String("x"), String("x"), true},
		{"string vs number", String("1"), Number("1"), false},
		{"number lexical", Number("1.0"), Number("1"), false},
		{"array", Array{Int(1), Null{}}, Array{Int(1), Null{}}, true},
		{"array length", Array{Int(1)}, Array{Int(1), Int(2)}, false},
		{"mapping", NewMapping(E("a", Int(1))), NewMapping(E("a", Int(1))), true},
		{"mapping order", NewMapping(E("a", Int(1)), E("b", Int(2))), NewMapping(E("b", Int(2)), E("a", Int(1))), false},
		{"empty mappings", NewMapping(), &Mapping{}, true},
		{"nested", Array{NewMapping(E("x", Array{}))}, Array{NewMapping(E("x", Array{}))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestIsScalar(t *testing.T) {
	assert.True(t, IsScalar(String("s")))
	assert.True(t, IsScalar(Int(1)))
	assert.True(t, IsScalar(Bool(false)))
	assert.False(t, IsScalar(Null{}))
	assert.False(t, IsScalar(Array{}))
	assert.False(t, IsScalar(NewMapping()))
}

func TestNumber_Conversions(t *testing.T) {
	assert.Equal(t, Number("-9223372036854775808"), Int(math.MinInt64))
	assert.Equal(t, Number("18446744073709551615"), Uint(math.MaxUint64))

	i, err := Int(42).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), i)

	_, err = Number("1.5").Int64()
	assert.Error(t, err)

	assert.True(t, Number("-12").IsInteger())
	assert.False(t, Number("1e3").IsInteger())
	assert.False(t, Number("0.5").IsInteger())
}

func TestFloat_Formatting(t *testing.T) {
	tests := []struct {
		f       float64
		bitSize int
		want    Number
	}{
		{1.5, 64, "1.5"},
		{3, 64, "3"},
		{0, 64, "0"},
		{1e21, 64, "1e+21"},
		{1e-7, 64, "1e-7"},
		{float64(float32(1.1)), 32, "1.1"},
		{123456789, 64, "123456789"},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, Float(tt.f, tt.bitSize))
		})
	}
}

func TestIsValidNumber(t *testing.T) {
	valid := []string{"0", "-0", "1", "-12", "3.25", "1e5", "1E+5", "2.5e-3", "10"}
	invalid := []string{"", "-", "01", "1.", ".5", "+1", "1e", "1e+", "NaN", "Infinity", "0x10", "1_000", " 1"}

	for _, s := range valid {
		assert.True(t, IsValidNumber(s), "expected valid: %q", s)
	}
	for _, s := range invalid {
		assert.False(t, IsValidNumber(s), "expected invalid: %q", s)
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "mapping", NewMapping().Kind().String())
	assert.Equal(t, "boolean", Bool(true).Kind().String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}
