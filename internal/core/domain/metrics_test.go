package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestROAS(t *testing.T) {
	assert.Equal(t, 0.0, ROAS(100, 0))
	assert.Equal(t, 2.0, ROAS(100, 50))
	assert.Equal(t, 0.0, ROAS(0, 10))
	assert.Equal(t, 0.0, ROAS(100, -5))
}

func TestFromMicros(t *testing.T) {
	assert.Equal(t, 1.5, FromMicros(1_500_000))
	assert.Equal(t, 0.000001, FromMicros(1))
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name      string
		now, prev float64
		want      float64
	}{
		{"both zero", 0, 0, 0},
		{"from zero", 5, 0, 1},
		{"to zero", 0, 5, -1},
		{"growth", 150, 100, 0.5},
		{"decline", 50, 100, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PercentChange(tt.now, tt.prev), 1e-9)
		})
	}
}
