package fixedpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFraction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Fraction
		wantErr bool
	}{
		{name: "zero", input: "0", want: Zero},
		{name: "one", input: "1", want: One},
		{name: "ten percent", input: "0.1", want: Fraction(Scale / 10)},
		{name: "leading dot", input: ".5", want: Fraction(Scale / 2)},
		{name: "full precision", input: "0.000000000000000001", want: Fraction(1)},
		{name: "trailing zeros", input: "0.250000", want: Fraction(Scale / 4)},
		{name: "above one parses", input: "1.5", want: Fraction(Scale + Scale/2)},
		{name: "too many digits", input: "0.0000000000000000001", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
		{name: "negative", input: "-0.1", wantErr: true},
		{name: "negative whole", input: "-1.5", wantErr: true},
		{name: "explicit plus", input: "+0.1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseFraction(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFraction(t *testing.T) {
	t.Parallel()

	f, err := NewFraction(7, 10)
	require.NoError(t, err)
	assert.Equal(t, Fraction(7*Scale/10), f)

	// 1/3 rounds half-up at the 18th digit: 0.333...333 (truncated, since
	// the repeating remainder is below half).
	f, err = NewFraction(1, 3)
	require.NoError(t, err)
	assert.Equal(t, Fraction(333333333333333333), f)

	// 2/3 rounds up: 0.666...667.
	f, err = NewFraction(2, 3)
	require.NoError(t, err)
	assert.Equal(t, Fraction(666666666666666667), f)

	_, err = NewFraction(-1, 10)
	assert.ErrorIs(t, err, ErrInvalidFraction)

	_, err = NewFraction(1, 0)
	assert.ErrorIs(t, err, ErrInvalidFraction)
}

func TestMulAmountRoundsHalfUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fraction string
		amount   int64
		want     int64
	}{
		{name: "exact", fraction: "0.1", amount: 100, want: 10},
		{name: "half rounds up", fraction: "0.5", amount: 5, want: 3},
		{name: "below half rounds down", fraction: "0.25", amount: 5, want: 1},
		{name: "one is identity", fraction: "1", amount: 987654321, want: 987654321},
		{name: "zero fraction", fraction: "0", amount: 1000, want: 0},
		{name: "zero amount", fraction: "0.9", amount: 0, want: 0},
		{name: "unit level fee", fraction: "0.005", amount: 301, want: 2}, // 1.505 -> 2
		{name: "large amount rounds up", fraction: "0.1", amount: 1 << 60, want: (1<<60)/10 + 1}, // remainder .6 rounds up
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := ParseFraction(tt.fraction)
			require.NoError(t, err)

			got, err := f.MulAmount(tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMulAmountRejectsNegative(t *testing.T) {
	t.Parallel()

	_, err := Fraction(Scale / 2).MulAmount(-1)
	assert.ErrorIs(t, err, ErrInvalidFraction)
}

func TestFractionValid(t *testing.T) {
	t.Parallel()

	assert.True(t, Zero.Valid())
	assert.True(t, One.Valid())
	assert.True(t, Fraction(Scale/2).Valid())
	assert.False(t, Fraction(Scale+1).Valid())
	assert.False(t, Fraction(-1).Valid())
}

func TestFractionString(t *testing.T) {
	t.Parallel()

	f, err := ParseFraction("0.125")
	require.NoError(t, err)
	assert.Equal(t, "0.125", f.String())
	assert.Equal(t, "1", One.String())
	assert.Equal(t, "0", Zero.String())
}

func TestClampAmount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(0), ClampAmount(-5))
	assert.Equal(t, int64(42), ClampAmount(42))
	assert.Equal(t, MaxAmount, ClampAmount(MaxAmount))
}
