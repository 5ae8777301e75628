package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateEarnings(t *testing.T) {
	cases := []struct {
		name  string
		ms    int64
		ratio int
		want  float64
	}{
		{"five minutes at 5:1", 300000, 5, 1.00},
		{"ninety seconds at 2:1", 90000, 2, 0.75},
		{"zero time", 0, 2, 0},
		{"negative time", -60000, 2, 0},
		{"zero ratio", 60000, 0, 0},
		{"negative ratio", 60000, -3, 0},
		{"rounds to cents", 100000, 3, 0.56},
		{"one to one", 60000, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, CalculateEarnings(tc.ms, tc.ratio), 1e-9)
		})
	}
}

func TestTier(t *testing.T) {
	cases := map[int]string{
		-1: "Casual",
		0:  "Casual",
		1:  "Casual",
		2:  "Balanced",
		5:  "Balanced",
		6:  "Grind",
		10: "Grind",
		11: "Elite",
		25: "Elite",
		26: "Hardcore",
		50: "Hardcore",
		51: "God Mode",
		90: "God Mode",
	}
	for ratio, label := range cases {
		assert.Equal(t, label, Tier(ratio).Label, "ratio %d", ratio)
	}
	assert.Less(t, Tier(2).Rank, Tier(60).Rank)
}

func TestFormatBank(t *testing.T) {
	assert.Equal(t, "0.00", FormatBank(0))
	assert.Equal(t, "12.50", FormatBank(12.5))
	assert.Equal(t, "3.33", FormatBank(10.0/3))
}

func TestRoundMinutes(t *testing.T) {
	assert.Equal(t, 2.0, RoundMinutes(12-10))
	assert.InDelta(t, 0.3, RoundMinutes(0.1+0.2), 1e-12)
}
