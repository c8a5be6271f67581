package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleFor(t *testing.T) {
	tests := []struct {
		currency string
		want     int32
	}{
		{"USD", 2},
		{"AED", 2},
		{"BHD", 3},
		{"bhd", 3},
		{" KWD ", 3},
		{"", 2},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			assert.Equal(t, tt.want, ScaleFor(tt.currency))
		})
	}
}

func TestSafeMoney(t *testing.T) {
	assert.True(t, SafeMoney(math.NaN()).IsZero())
	assert.True(t, SafeMoney(math.Inf(1)).IsZero())
	assert.True(t, SafeMoney(math.Inf(-1)).IsZero())
	assert.True(t, SafeMoney(-4.5).IsZero())
	assert.True(t, SafeMoney(12.25).Equal(MustMoney("12.25")))
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "1.01", Round(MustMoney("1.005"), 2).StringFixed(2))
	assert.Equal(t, "0.125", Round(MustMoney("0.1245"), 3).StringFixed(3))
	assert.Equal(t, "2.34", Round(MustMoney("2.344"), 2).StringFixed(2))
}

func TestClamp(t *testing.T) {
	lo, hi := Zero(), MustMoney("100")
	assert.True(t, Clamp(MustMoney("-1"), lo, hi).Equal(lo))
	assert.True(t, Clamp(MustMoney("101"), lo, hi).Equal(hi))
	assert.True(t, Clamp(MustMoney("42"), lo, hi).Equal(MustMoney("42")))
}

func TestSum(t *testing.T) {
	assert.True(t, Sum().IsZero())
	assert.True(t, Sum(MustMoney("1.1"), MustMoney("2.2"), MustMoney("3.3")).Equal(MustMoney("6.6")))
}
