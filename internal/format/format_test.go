package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{12.4, "12"},
		{999, "999"},
		{1000, "1.00K"},
		{1530, "1.53K"},
		{2_500_000, "2.50M"},
		{7_250_000_000, "7.25B"},
		{3e12, "3.00T"},
		{4.2e15, "4200.00T"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Number(tt.in), "Number(%v)", tt.in)
	}
}

func TestNumberPrecise(t *testing.T) {
	assert.Equal(t, "12.40", NumberPrecise(12.4))
	assert.Equal(t, "1.00K", NumberPrecise(1000))
}

func TestRate(t *testing.T) {
	assert.Equal(t, "5/sec", Rate(5))
	assert.Equal(t, "1.20K/sec", Rate(1200))
}

func TestDuration(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0s"},
		{45.9, "45s"},
		{60, "1m"},
		{3599, "59m"},
		{3600, "1h 0m"},
		{86400, "24h 0m"},
		{5430, "1h 30m"},
		{-5, "0s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Duration(tt.in), "Duration(%v)", tt.in)
	}
}
