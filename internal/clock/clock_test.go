package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	c := NewFake(epoch)
	var order []string
	c.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	c.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	c.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, epoch.Add(2*time.Second), c.Now())

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Zero(t, c.Pending())
}

func TestFakeStop(t *testing.T) {
	c := NewFake(epoch)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeCallbackCanReschedule(t *testing.T) {
	c := NewFake(epoch)
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 3 {
			c.AfterFunc(time.Second, tick)
		}
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(10 * time.Second)
	assert.Equal(t, 3, count)
}

func TestScopeCancelAndClose(t *testing.T) {
	c := NewFake(epoch)
	s := NewScope(c)
	var fired []int

	cancel := s.After(time.Second, func() { fired = append(fired, 1) })
	s.After(2*time.Second, func() { fired = append(fired, 2) })
	s.After(3*time.Second, func() { fired = append(fired, 3) })
	assert.Equal(t, 3, s.Pending())

	cancel()
	cancel()
	c.Advance(2 * time.Second)
	assert.Equal(t, []int{2}, fired)

	s.Close()
	c.Advance(time.Minute)
	assert.Equal(t, []int{2}, fired)
	assert.Zero(t, s.Pending())

	s.After(time.Millisecond, func() { fired = append(fired, 4) })
	c.Advance(time.Second)
	assert.Equal(t, []int{2}, fired)
}
