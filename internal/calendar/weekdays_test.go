package calendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWeekdaysFromMaskDefault(t *testing.T) {
	w := WeekdaysFromMask(defaultWeekdayMask)

	assert.True(t, w.Monday)
	assert.True(t, w.Tuesday)
	assert.True(t, w.Wednesday)
	assert.True(t, w.Thursday)
	assert.True(t, w.Friday)
	assert.False(t, w.Saturday)
	assert.False(t, w.Sunday)
}

func TestWeekdaysMaskRoundTrip(t *testing.T) {
	for _, mask := range []int{0, 1, 31, 64, 127} {
		assert.Equal(t, mask, WeekdaysFromMask(mask).Mask())
	}
}

func TestWeekdaysMask(t *testing.T) {
	w := Weekdays{Monday: true, Wednesday: true, Sunday: true}
	assert.Equal(t, 1|4|64, w.Mask())
}
