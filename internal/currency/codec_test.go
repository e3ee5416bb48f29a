package currency

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	c := DefaultCodec()
	tests := []struct {
		in   string
		want int64
	}{
		{"100", 10000},
		{"100,5", 10050},
		{"1 234,56", 123456},
		{"  7 ", 700},
		{"10+5,5", 1550},
		{"10+5.5", 1550},
		{"(2+3)*4", 2000},
		{"10/3", 333},
		{"-10/3", -333},
		{"-0,05", -5},
		{"1,999", 199},
		{"--5", 500},
		{",5", 50},
		{"5,", 500},
		{"2*(1+(3-1))/4", 150},
		{"0", 0},
	}
	for _, tt := range tests {
		got, err := c.Parse(tt.in)
		require.NoError(t, err, "Parse(%q)", tt.in)
		assert.Equal(t, tt.want, got, "Parse(%q)", tt.in)
	}
}

func TestParse_Invalid(t *testing.T) {
	c := DefaultCodec()
	for _, in := range []string{
		"",
		"   ",
		"abc",
		"1e5",
		"5/0",
		"(1+2",
		"1+",
		"2**3",
		"()",
		"1)",
		"__import__('os')",
		"99999999999999999999",
	} {
		_, err := c.Parse(in)
		require.Error(t, err, "Parse(%q)", in)
		assert.ErrorIs(t, err, ErrInvalidAmount, "Parse(%q)", in)
	}
}

func TestParse_DeepNesting(t *testing.T) {
	c := DefaultCodec()
	in := ""
	for i := 0; i < maxDepth+1; i++ {
		in += "("
	}
	in += "1"
	for i := 0; i < maxDepth+1; i++ {
		in += ")"
	}
	_, err := c.Parse(in)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFormat(t *testing.T) {
	c := DefaultCodec()
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0,00"},
		{5, "0,05"},
		{-5, "-0,05"},
		{100, "1,00"},
		{123456, "1 234,56"},
		{-123456, "-1 234,56"},
		{100000000, "1 000 000,00"},
		{math.MaxInt64, "92 233 720 368 547 758,07"},
		{math.MinInt64, "-92 233 720 368 547 758,08"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Format(tt.in), "Format(%d)", tt.in)
	}
}

func TestFormat_CustomSeparators(t *testing.T) {
	c := Codec{DecimalSeparator: ".", ThousandsSeparator: ",", MinusSign: "−"}
	assert.Equal(t, "1,234.56", c.Format(123456))
	assert.Equal(t, "−1,234.56", c.Format(-123456))

	got, err := c.Parse("−1,234.56")
	require.NoError(t, err)
	assert.Equal(t, int64(-123456), got)

	got, err = c.Parse("10+5.5")
	require.NoError(t, err)
	assert.Equal(t, int64(1550), got)
}

func TestParse_DotThousands(t *testing.T) {
	c := Codec{DecimalSeparator: ",", ThousandsSeparator: ".", MinusSign: "-"}
	got, err := c.Parse("1.234,56")
	require.NoError(t, err)
	assert.Equal(t, int64(123456), got)
	assert.Equal(t, "1.234,56", c.Format(123456))
}

func TestRoundTrip(t *testing.T) {
	codecs := []Codec{
		DefaultCodec(),
		{DecimalSeparator: ".", ThousandsSeparator: ",", MinusSign: "-"},
		{DecimalSeparator: ",", ThousandsSeparator: ".", MinusSign: "−"},
		{DecimalSeparator: ".", ThousandsSeparator: "", MinusSign: "-"},
	}
	values := []int64{0, 1, -1, 99, 100, 101, 999999, -1000000, math.MaxInt64, math.MinInt64}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		values = append(values, rng.Int63()-rng.Int63())
	}

	for _, c := range codecs {
		for _, v := range values {
			s := c.Format(v)
			got, err := c.Parse(s)
			require.NoError(t, err, "Parse(Format(%d)) = Parse(%q)", v, s)
			assert.Equal(t, v, got, "Parse(Format(%d)) via %q", v, s)
			assert.Equal(t, s, c.Format(got), "canonical form of %q", s)
		}
	}
}
