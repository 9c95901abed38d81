package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareWatermarks(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"9", "10", -1},
		{"100", "99", 1},
		{"12345", "12345", 0},
		{"", "1", -1},
		{"1", "", 1},
		{"", "", 0},
		{"99999999999999999999", "100000000000000000000", -1},
		{"abc", "abd", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompareWatermarks(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestMaxWatermark(t *testing.T) {
	assert.Equal(t, "120", MaxWatermark("99", "120", "101"))
	assert.Equal(t, "", MaxWatermark())
	assert.Equal(t, "7", MaxWatermark("", "7"))
}

func TestUserAttributeColumn(t *testing.T) {
	col, ok := AttrHistoryID.Column()
	assert.True(t, ok)
	assert.Equal(t, "history_id", col)

	_, ok = UserAttribute(42).Column()
	assert.False(t, ok)
	assert.Equal(t, "unknown", UserAttribute(42).String())
}
