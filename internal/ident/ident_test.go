package ident

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hotelCode struct{ code string }

func (h hotelCode) String() string { return h.code }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"string", "42", "42"},
		{"trimmed string", "  h-42 ", "h-42"},
		{"int", 42, "42"},
		{"negative int", -3, "-3"},
		{"int64", int64(9007199254740993), "9007199254740993"},
		{"uint8", uint8(7), "7"},
		{"integral float", 7.0, "7"},
		{"float32", float32(7), "7"},
		{"fractional float", 7.5, "7.5"},
		{"json number", json.Number("7"), "7"},
		{"json number with exponent", json.Number("7e0"), "7"},
		{"tiny float uses exponent", 1e-7, "1e-7"},
		{"small float stays decimal", 0.000001, "0.000001"},
		{"large integral float", 1e20, "100000000000000000000"},
		{"huge float uses exponent", 1e21, "1e+21"},
		{"huge fractional mantissa", 1.5e21, "1.5e+21"},
		{"negative tiny float", -2.5e-8, "-2.5e-8"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"infinity", math.Inf(1), "Infinity"},
		{"json number tiny", json.Number("1e-7"), "1e-7"},
		{"stringer", hotelCode{"abc"}, "abc"},
		{"nil", nil, ""},
		{"bool falls back to fmt", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_StringAndNumberCollide(t *testing.T) {
	assert.Equal(t, Normalize(7), Normalize("7"))
	assert.True(t, Equal(7, "7"))
	assert.True(t, Equal(7.0, json.Number("7")))
	assert.False(t, Equal(7, "07"))
}

func TestFromJSON(t *testing.T) {
	t.Run("accepts strings", func(t *testing.T) {
		id, err := FromJSON(json.RawMessage(`"7"`))
		require.NoError(t, err)
		assert.Equal(t, "7", id)
	})

	t.Run("accepts numbers", func(t *testing.T) {
		id, err := FromJSON(json.RawMessage(`7`))
		require.NoError(t, err)
		assert.Equal(t, "7", id)
	})

	t.Run("keeps large integers exact", func(t *testing.T) {
		id, err := FromJSON(json.RawMessage(`12345678901234567890`))
		require.NoError(t, err)
		assert.Equal(t, "12345678901234567890", id)
	})

	t.Run("null is empty", func(t *testing.T) {
		id, err := FromJSON(json.RawMessage(`null`))
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("rejects objects", func(t *testing.T) {
		_, err := FromJSON(json.RawMessage(`{"id":1}`))
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}
