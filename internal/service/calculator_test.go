package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateExpression(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2+3", 5},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"-5 + 3", -2},
		{"-(2 + 3)", -5},
		{"1.5 * 2", 3},
		{"2 * -3", -6},
		{"100 - 20 - 30", 50},
		{"2 + 3 * (4 - 1) / 3", 5},
		{"  7  ", 7},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := EvaluateExpression(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluateExpressionInvalid(t *testing.T) {
	invalid := []string{
		"",
		"2 +",
		"(2 + 3",
		"2 + abc",
		"1..2 + 3",
		"2 ** 3",
		"2; import os",
	}

	for _, expr := range invalid {
		t.Run(expr, func(t *testing.T) {
			_, err := EvaluateExpression(expr)
			assert.ErrorIs(t, err, ErrInvalidExpression)
		})
	}
}

func TestEvaluateExpressionDivisionByZero(t *testing.T) {
	_, err := EvaluateExpression("1 / 0")
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = EvaluateExpression("5 / (3 - 3)")
	assert.ErrorIs(t, err, ErrDivisionByZero)
}
