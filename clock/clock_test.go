package clock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/perimeter-gating/clock"
	"github.com/tsinghua-fib-lab/perimeter-gating/utils/config"
)

func TestAdvance(t *testing.T) {
	c := clock.New(config.ControlStep{Start: 0, Total: 3, Interval: 90})

	assert.Equal(t, int32(0), c.K)
	assert.Equal(t, 0.0, c.T)
	assert.False(t, c.Done())

	for i := 1; i <= 3; i++ {
		c.Advance()
		assert.Equal(t, int32(i), c.K)
		assert.Equal(t, float64(i)*90, c.T)
	}
	assert.True(t, c.Done())
}

func TestNonZeroStart(t *testing.T) {
	c := clock.New(config.ControlStep{Start: 10, Total: 2, Interval: 60})

	assert.Equal(t, int32(10), c.K)
	assert.Equal(t, 600.0, c.T)
	c.Advance()
	c.Advance()
	assert.True(t, c.Done())

	c.Init()
	assert.Equal(t, int32(10), c.K)
	assert.False(t, c.Done())
}

func TestString(t *testing.T) {
	c := clock.New(config.ControlStep{Start: 0, Total: 100, Interval: 90})
	assert.Equal(t, "00:00:00", c.String())

	for i := 0; i < 41; i++ {
		c.Advance()
	}
	// 41×90s = 3690s
	assert.Equal(t, "01:01:30", c.String())
	h, m, s := c.GetHourMinuteSecond()
	assert.Equal(t, 1, h)
	assert.Equal(t, 1, m)
	assert.Equal(t, 30.0, s)
}
