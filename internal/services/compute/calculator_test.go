package compute

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStarlark_Evaluate(t *testing.T) {
	calc := NewStarlark(0)
	tests := []struct {
		expr string
		want float64
	}{
		{"10*3-2", 28},
		{"7 / 2", 3.5},
		{"7 % 3", 1},
		{"(1 + 2) * 4", 12},
		{"2 ** 10", 1024},
		{"2^3", 8},
		{"2 ** 3 ** 2", 512},
		{"(1+1) ** (1+2)", 8},
		{"-2 ** 2", -4},
		{"2 ** -1", 0.5},
		{"pow(3, 2) + sqrt(16)", 13},
		{"1.5e2 + 1", 151},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := calc.Evaluate(context.Background(), tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestStarlark_Errors(t *testing.T) {
	calc := NewStarlark(0)

	_, err := calc.Evaluate(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyExpression)

	_, err = calc.Evaluate(context.Background(), `print("x")`)
	assert.ErrorIs(t, err, ErrNotArithmetic)

	_, err = calc.Evaluate(context.Background(), "len([1])")
	assert.ErrorIs(t, err, ErrNotArithmetic)

	_, err = calc.Evaluate(context.Background(), "2 **")
	assert.ErrorIs(t, err, ErrNotArithmetic)

	_, err = calc.Evaluate(context.Background(), "1 / 0")
	assert.Error(t, err)

	_, err = calc.Evaluate(context.Background(), "(1 + ")
	assert.Error(t, err)

	_, err = calc.Evaluate(context.Background(), "10**400")
	assert.ErrorIs(t, err, ErrNotFinite)
}
