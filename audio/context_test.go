package audio

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 48000

func newTestContext(t *testing.T, warmUp time.Duration) (*Context, *ManualDevice) {
	t.Helper()
	backend := &ManualBackend{}
	c, err := NewContext(context.Background(), &ContextOptions{
		SampleRate: testRate,
		WarmUp:     warmUp,
		Backend:    backend,
	})
	require.NoError(t, err)
	return c, backend.Device()
}

func TestNewContextRequiresBackend(t *testing.T) {
	_, err := NewContext(context.Background(), &ContextOptions{SampleRate: testRate})
	require.Error(t, err)
}

func TestNewContextOpenError(t *testing.T) {
	backend := &ManualBackend{}
	denied := errors.New("no user gesture")
	backend.FailOpen(denied)

	_, err := NewContext(context.Background(), &ContextOptions{SampleRate: testRate, Backend: backend})
	require.ErrorIs(t, err, denied)
	assert.Equal(t, 1, backend.Opens())
	assert.Nil(t, backend.Device())
}

func TestMasterWarmUp(t *testing.T) {
	c, _ := newTestContext(t, 10*time.Millisecond)
	c.Update(func(g *Graph) {
		assert.Equal(t, 0.0, g.Master().ValueAt(0))
		assert.InDelta(t, 0.5, g.Master().ValueAt(240), 1e-9)
		assert.Equal(t, 1.0, g.Master().ValueAt(480))
	})
}

func TestClockAdvancesWithPulls(t *testing.T) {
	c, dev := newTestContext(t, 0)
	assert.Equal(t, int64(0), c.CurrentFrame())

	out := dev.Pull(256)
	assert.Len(t, out, 256*ChannelCount)
	assert.Equal(t, int64(256), c.CurrentFrame())

	dev.PullDuration(10 * time.Millisecond)
	assert.Equal(t, int64(256+480), c.CurrentFrame())
}

func TestSuspendedDeviceHoldsClock(t *testing.T) {
	c, dev := newTestContext(t, 0)
	require.NoError(t, c.Suspend())
	assert.True(t, c.Suspended())
	assert.Nil(t, dev.Pull(128))
	assert.Equal(t, int64(0), c.CurrentFrame())

	require.NoError(t, c.Resume())
	assert.False(t, c.Suspended())
	dev.Pull(128)
	assert.Equal(t, int64(128), c.CurrentFrame())
}

func TestVoiceHardPan(t *testing.T) {
	for _, tt := range []struct {
		name      string
		pan       float64
		leftSide  bool
		rightSide bool
	}{
		{"left", -1, true, false},
		{"right", 1, false, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c, dev := newTestContext(t, 0)
			v := NewVoice(1000, WaveformSine, tt.pan)
			c.Update(func(g *Graph) {
				v.Gain().SetValueAtTime(1, 0)
				v.Start(0)
				g.Connect(v)
			})

			out := dev.Pull(480)
			var left, right float64
			for i := 0; i < len(out); i += 2 {
				left = math.Max(left, math.Abs(float64(out[i])))
				right = math.Max(right, math.Abs(float64(out[i+1])))
			}
			if tt.leftSide {
				assert.InDelta(t, 1, left, 1e-3)
			} else {
				assert.Zero(t, left)
			}
			if tt.rightSide {
				assert.InDelta(t, 1, right, 1e-3)
			} else {
				assert.Zero(t, right)
			}
		})
	}
}

func TestPanGainsEqualPower(t *testing.T) {
	l, r := panGains(0)
	assert.InDelta(t, math.Sqrt2/2, l, 1e-12)
	assert.InDelta(t, math.Sqrt2/2, r, 1e-12)
	assert.InDelta(t, 1, l*l+r*r, 1e-12)

	l, r = panGains(-5)
	assert.Equal(t, 1.0, l)
	assert.Equal(t, 0.0, r)
}

func TestVoiceStartStopWindow(t *testing.T) {
	c, dev := newTestContext(t, 0)
	v := NewVoice(1000, WaveformSine, 1)
	c.Update(func(g *Graph) {
		v.Gain().SetValueAtTime(1, 0)
		v.Start(100)
		v.Stop(200)
		g.Connect(v)
	})
	out := dev.Pull(300)

	var energy float64
	for f := 0; f < 300; f++ {
		s := float64(out[f*ChannelCount+1])
		if f < 100 || f >= 200 {
			assert.Zero(t, s, "frame %d", f)
			continue
		}
		energy += s * s
	}
	// 100 frames of a unit sine.
	assert.InDelta(t, 50, energy, 1)

	start, ok := v.StartFrame()
	assert.True(t, ok)
	assert.Equal(t, int64(100), start)
	v.Stop(500)
	stop, _ := v.StopFrame()
	assert.Equal(t, int64(200), stop, "an earlier stop wins")
}

func TestVoiceNeverStartedIsSilent(t *testing.T) {
	c, dev := newTestContext(t, 0)
	v := NewVoice(1000, WaveformSine, 1)
	c.Update(func(g *Graph) {
		v.Gain().SetValueAtTime(1, 0)
		g.Connect(v)
	})
	for _, s := range dev.Pull(128) {
		assert.Zero(t, s)
	}
}

func TestConnectDisconnect(t *testing.T) {
	c, _ := newTestContext(t, 0)
	a := NewVoice(500, WaveformSine, -1)
	b := NewVoice(1000, WaveformSine, 1)
	c.Update(func(g *Graph) {
		g.Connect(a)
		g.Connect(a)
		g.Connect(b)
	})
	assert.Equal(t, 2, c.Voices())

	c.Update(func(g *Graph) {
		g.Disconnect(a)
		g.Disconnect(a)
	})
	assert.Equal(t, 1, c.Voices())
	assert.False(t, c.Connected(a))
	assert.True(t, c.Connected(b))
}

func TestScheduledTaskRunsOnClock(t *testing.T) {
	c, dev := newTestContext(t, 0)
	ran := 0
	c.Schedule(1000, func() { ran++ })

	dev.Pull(999)
	assert.Equal(t, 0, ran)
	dev.Pull(1)
	assert.Equal(t, 1, ran)
	dev.Pull(1000)
	assert.Equal(t, 1, ran)
	assert.Equal(t, 0, c.PendingTasks())
}

func TestScheduledTaskMayUpdateGraph(t *testing.T) {
	c, dev := newTestContext(t, 0)
	v := NewVoice(1000, WaveformSine, 1)
	c.Update(func(g *Graph) { g.Connect(v) })
	c.Schedule(10, func() {
		c.Update(func(g *Graph) { g.Disconnect(v) })
	})
	dev.Pull(10)
	assert.False(t, c.Connected(v))
}

func TestScheduledTaskPanicIsRecovered(t *testing.T) {
	c, dev := newTestContext(t, 0)
	ran := false
	c.Schedule(5, func() { panic("boom") })
	c.Schedule(6, func() { ran = true })

	assert.NotPanics(t, func() { dev.Pull(10) })
	assert.True(t, ran)
}

func TestCloseDropsVoicesAndTasks(t *testing.T) {
	c, dev := newTestContext(t, 0)
	v := NewVoice(1000, WaveformSine, 1)
	c.Update(func(g *Graph) { g.Connect(v) })
	c.Schedule(10, func() { t.Error("task ran after close") })

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.True(t, dev.Closed())
	assert.Equal(t, 0, c.Voices())
	assert.Equal(t, 0, c.PendingTasks())
	assert.ErrorIs(t, c.Resume(), ErrContextClosed)
	assert.Nil(t, dev.Pull(100))
}

func TestOutputIsLimited(t *testing.T) {
	c, dev := newTestContext(t, 0)
	for i := 0; i < 3; i++ {
		v := NewVoice(1000, WaveformSine, 1)
		c.Update(func(g *Graph) {
			v.Gain().SetValueAtTime(1, 0)
			v.Start(0)
			g.Connect(v)
		})
	}
	for _, s := range dev.Pull(480) {
		assert.LessOrEqual(t, math.Abs(float64(s)), 1.0)
	}
}
