package timeengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems_simulator/internal/model"
)

var simStart = time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC)

// fakeWall replaces the engine's wall clock with a manually stepped one.
type fakeWall struct{ t time.Time }

func (w *fakeWall) now() time.Time       { return w.t }
func (w *fakeWall) step(d time.Duration) { w.t = w.t.Add(d) }

func historicalEngine(speed float64) (*Engine, *fakeWall) {
	e := New(model.ScenarioConfig{
		Mode:            model.ModeHistorical,
		StartTime:       simStart,
		SpeedMultiplier: speed,
	}, time.Second)
	wall := &fakeWall{t: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
	e.now = wall.now
	e.lastWall = wall.t
	return e, wall
}

func TestNew_InvalidSpeedDefaultsToOne(t *testing.T) {
	e := New(model.ScenarioConfig{Mode: model.ModeLive, SpeedMultiplier: -3}, time.Second)
	assert.Equal(t, 1.0, e.GetStatus().SpeedMultiplier)
}

func TestEngine_HistoricalStartsAtStartTime(t *testing.T) {
	e, _ := historicalEngine(60)
	assert.Equal(t, simStart, e.CurrentTime())
}

func TestEngine_AdvanceScalesBySpeed(t *testing.T) {
	e, wall := historicalEngine(60)

	wall.step(time.Second)
	e.advance()

	assert.Equal(t, simStart.Add(time.Minute), e.CurrentTime())
}

func TestEngine_PausedDoesNotAdvance(t *testing.T) {
	e, wall := historicalEngine(60)
	e.Pause()

	wall.step(10 * time.Second)
	e.advance()

	assert.Equal(t, simStart, e.CurrentTime())
}

func TestEngine_ResumeSkipsPausedWallTime(t *testing.T) {
	e, wall := historicalEngine(60)
	e.Pause()
	wall.step(time.Hour)
	e.Resume()

	wall.step(time.Second)
	e.advance()

	// The hour spent paused must not be replayed into virtual time.
	assert.Equal(t, simStart.Add(time.Minute), e.CurrentTime())
}

func TestEngine_LiveTracksWallClock(t *testing.T) {
	e := New(model.ScenarioConfig{Mode: model.ModeLive, SpeedMultiplier: 1}, time.Second)
	wall := &fakeWall{t: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
	e.now = wall.now

	assert.Equal(t, wall.t, e.CurrentTime())
	wall.step(5 * time.Minute)
	assert.Equal(t, wall.t, e.CurrentTime())
}

func TestEngine_JumpRejectedInLiveMode(t *testing.T) {
	e := New(model.ScenarioConfig{Mode: model.ModeLive, SpeedMultiplier: 1}, time.Second)
	wall := &fakeWall{t: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
	e.now = wall.now

	e.JumpTo(simStart)
	e.StepForward(time.Hour)

	assert.Equal(t, wall.t, e.CurrentTime())
}

func TestEngine_JumpAndStep(t *testing.T) {
	e, _ := historicalEngine(60)

	target := simStart.Add(6 * time.Hour)
	e.JumpTo(target)
	assert.Equal(t, target, e.CurrentTime())

	e.StepForward(15 * time.Minute)
	assert.Equal(t, target.Add(15*time.Minute), e.CurrentTime())
}

func TestEngine_SetSpeedRejectsNonPositive(t *testing.T) {
	e, _ := historicalEngine(60)

	e.SetSpeed(0)
	assert.Equal(t, 60.0, e.GetStatus().SpeedMultiplier)

	e.SetSpeed(120)
	assert.Equal(t, 120.0, e.GetStatus().SpeedMultiplier)
}

func TestEngine_SubscribeImmediateDelivery(t *testing.T) {
	e, _ := historicalEngine(60)

	var got []time.Time
	e.Subscribe(func(ts time.Time) { got = append(got, ts) })

	require.Len(t, got, 1)
	assert.Equal(t, simStart, got[0])
}

func TestEngine_UnsubscribeStopsDelivery(t *testing.T) {
	e, wall := historicalEngine(60)

	var count int
	unsubscribe := e.Subscribe(func(time.Time) { count++ })
	require.Equal(t, 1, count)

	wall.step(time.Second)
	e.advance()
	require.Equal(t, 2, count)

	unsubscribe()
	wall.step(time.Second)
	e.advance()
	assert.Equal(t, 2, count)
}

func TestEngine_PanickingSubscriberIsolated(t *testing.T) {
	e, wall := historicalEngine(60)

	var delivered int
	e.subs[100] = func(time.Time) { panic("boom") }
	e.Subscribe(func(time.Time) { delivered++ })

	wall.step(time.Second)
	e.advance()

	assert.Equal(t, 2, delivered)
}

func TestEngine_SetScenarioMergesPartialUpdate(t *testing.T) {
	e, _ := historicalEngine(60)

	speed := 120.0
	e.SetScenario(model.ScenarioUpdate{SpeedMultiplier: &speed})

	status := e.GetStatus()
	assert.Equal(t, model.ModeHistorical, status.Mode)
	assert.Equal(t, 120.0, status.SpeedMultiplier)
	// Reinit resets to the unchanged start time.
	assert.Equal(t, simStart, e.CurrentTime())
}

func TestEngine_SetScenarioSwitchesMode(t *testing.T) {
	e, _ := historicalEngine(60)

	mode := model.ModeSimulation
	start := simStart.Add(48 * time.Hour)
	e.SetScenario(model.ScenarioUpdate{Mode: &mode, StartTime: &start})

	status := e.GetStatus()
	assert.Equal(t, model.ModeSimulation, status.Mode)
	assert.Equal(t, start, e.CurrentTime())
}

func TestEngine_SetScenarioNotifiesSubscribers(t *testing.T) {
	e, _ := historicalEngine(60)

	var got []time.Time
	e.Subscribe(func(ts time.Time) { got = append(got, ts) })

	start := simStart.Add(24 * time.Hour)
	e.SetScenario(model.ScenarioUpdate{StartTime: &start})

	require.Len(t, got, 2)
	assert.Equal(t, start, got[1])
}

func TestEngine_StartStopIdempotent(t *testing.T) {
	e, _ := historicalEngine(60)

	e.Start()
	e.Start()
	assert.True(t, e.GetStatus().Running)

	e.Stop()
	e.Stop()
	assert.False(t, e.GetStatus().Running)
}
