package numeric

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestArithmeticPropagatesUndefined(t *testing.T) {
	two := Of(2)
	undef := Undefined()

	tests := []struct {
		name string
		got  Float
		want Float
	}{
		{"add", two.Add(Of(3)), Of(5)},
		{"sub", two.Sub(Of(3)), Of(-1)},
		{"mul", two.Mul(Of(3)), Of(6)},
		{"div", Of(3).Div(two), Of(1.5)},
		{"div by zero", two.Div(Of(0)), undef},
		{"undefined left", undef.Add(two), undef},
		{"undefined right", two.Mul(undef), undef},
		{"undefined divisor", two.Div(undef), undef},
		{"scale", two.Scale(0.5), Of(1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.got)
		})
	}
}

func TestOfRejectsNaNAndInf(t *testing.T) {
	assert.False(t, Of(math.NaN()).Valid)
	assert.False(t, Of(math.Inf(1)).Valid)
	assert.False(t, Of(math.MaxFloat64).Mul(Of(10)).Valid)
}

func TestMeans(t *testing.T) {
	assert.Equal(t, Of(2), Mean(Of(1), Undefined(), Of(3)))
	assert.Equal(t, Undefined(), Mean(Undefined(), Undefined()))
	assert.Equal(t, Undefined(), Mean())

	assert.Equal(t, Of(2.5), MeanAll(Of(1), Of(2), Of(3), Of(4)))
	assert.Equal(t, Undefined(), MeanAll(Of(1), Undefined()))
	assert.Equal(t, Undefined(), MeanAll())
}

func TestComparisons(t *testing.T) {
	assert.True(t, Of(20).AtLeast(20))
	assert.False(t, Of(19.9).AtLeast(20))
	assert.False(t, Undefined().AtLeast(-1))
	assert.True(t, Of(0).IsZero())
	assert.False(t, Undefined().IsZero())
}

func TestParseAndString(t *testing.T) {
	assert.Equal(t, Of(12.5), Parse(" 12.5 "))
	assert.Equal(t, Undefined(), Parse(""))
	assert.Equal(t, Undefined(), Parse("NaN"))
	assert.Equal(t, Undefined(), Parse("abc"))
	assert.Equal(t, "12.5", Of(12.5).String())
	assert.Equal(t, "", Undefined().String())
	assert.Equal(t, []float64{1, 3}, Defined([]Float{Of(1), Undefined(), Of(3)}))
}

func TestJSONRoundTrip(t *testing.T) {
	type row struct {
		A Float `json:"a"`
		B Float `json:"b"`
	}
	data, err := json.Marshal(row{A: Of(1.25)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1.25,"b":null}`, string(data))

	var decoded row
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, Of(1.25), decoded.A)
	assert.False(t, decoded.B.Valid)
}

func TestMsgpackRoundTrip(t *testing.T) {
	type row struct {
		Values [3]Float
	}
	in := row{Values: [3]Float{Of(1), Undefined(), Of(-2.5)}}
	data, err := msgpack.Marshal(in)
	require.NoError(t, err)

	var out row
	require.NoError(t, msgpack.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
