// Package timeengine provides the single master scenario clock every
// simulator reads time from. It supports a live mode tracking the wall
// clock, and historical/simulation modes advancing a virtual time at a
// configurable speed multiplier.
package timeengine

import (
	"log"
	"sync"
	"time"

	"ems_simulator/internal/model"
)

// DefaultTickInterval is the wall-clock period between ticks.
const DefaultTickInterval = time.Second

// Status is a snapshot of the engine for the dashboard.
type Status struct {
	Running         bool               `json:"running"`
	Mode            model.ScenarioMode `json:"mode"`
	SpeedMultiplier float64            `json:"speed_multiplier"`
	Paused          bool               `json:"paused"`
	CurrentTime     time.Time          `json:"current_time"`
	SubscriberCount int                `json:"subscriber_count"`
}

// Engine is the master clock. Construct one per process with New and pass it
// by reference; there is no hidden package-level instance.
type Engine struct {
	mu sync.Mutex

	scenario model.ScenarioConfig
	current  time.Time
	lastWall time.Time

	running bool
	stopCh  chan struct{}

	subs   map[int]func(time.Time)
	nextID int

	tickInterval time.Duration
	now          func() time.Time // injectable wall clock
}

// New builds an engine for a scenario. A non-positive speed multiplier is
// replaced with 1 and logged rather than rejected.
func New(cfg model.ScenarioConfig, tickInterval time.Duration) *Engine {
	if cfg.SpeedMultiplier <= 0 {
		log.Printf("time engine: speed multiplier %.2f invalid, using 1", cfg.SpeedMultiplier)
		cfg.SpeedMultiplier = 1
	}
	if tickInterval <= 0 {
		tickInterval = DefaultTickInterval
	}
	e := &Engine{
		scenario:     cfg,
		subs:         make(map[int]func(time.Time)),
		tickInterval: tickInterval,
		now:          time.Now,
	}
	e.reinitLocked()
	return e
}

// reinitLocked resets current time for the active mode. Must hold mu.
func (e *Engine) reinitLocked() {
	wall := e.now()
	e.lastWall = wall
	switch e.scenario.Mode {
	case model.ModeLive:
		e.current = wall
	case model.ModeHistorical, model.ModeSimulation:
		if !e.scenario.StartTime.IsZero() {
			e.current = e.scenario.StartTime
		} else {
			e.current = wall
		}
	default:
		e.current = wall
	}
}

// Start launches the tick loop. Calling Start on a running engine is a
// no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.lastWall = e.now()
	stop := e.stopCh
	e.mu.Unlock()

	go e.loop(stop)
}

// Stop halts the tick loop. Safe to call when not running.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()
}

func (e *Engine) loop(stop chan struct{}) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.advance()
		}
	}
}

// advance moves the clock one tick and notifies subscribers. The tick fires
// on the wall period regardless of mode; in non-live modes the virtual time
// advances by real elapsed time scaled by the speed multiplier, unless
// paused.
func (e *Engine) advance() {
	e.mu.Lock()
	wall := e.now()
	elapsed := wall.Sub(e.lastWall)
	e.lastWall = wall

	switch e.scenario.Mode {
	case model.ModeLive:
		e.current = wall
	default:
		if !e.scenario.Paused {
			scaled := time.Duration(float64(elapsed) * e.scenario.SpeedMultiplier)
			e.current = e.current.Add(scaled)
		}
	}
	current := e.current
	e.mu.Unlock()

	e.notify(current)
}

// notify delivers the time to every subscriber, isolating panics so one
// failing callback cannot abort delivery to the rest.
func (e *Engine) notify(t time.Time) {
	e.mu.Lock()
	callbacks := make([]func(time.Time), 0, len(e.subs))
	for _, fn := range e.subs {
		callbacks = append(callbacks, fn)
	}
	e.mu.Unlock()

	for _, fn := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("time engine: subscriber panicked: %v", r)
				}
			}()
			fn(t)
		}()
	}
}

// CurrentTime returns the scenario's current time. In live mode this is the
// wall clock even between ticks.
func (e *Engine) CurrentTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scenario.Mode == model.ModeLive {
		return e.now()
	}
	return e.current
}

// Scenario returns the active scenario config.
func (e *Engine) Scenario() model.ScenarioConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenario
}

// GetStatus returns a snapshot for the dashboard.
func (e *Engine) GetStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	current := e.current
	if e.scenario.Mode == model.ModeLive {
		current = e.now()
	}
	return Status{
		Running:         e.running,
		Mode:            e.scenario.Mode,
		SpeedMultiplier: e.scenario.SpeedMultiplier,
		Paused:          e.scenario.Paused,
		CurrentTime:     current,
		SubscriberCount: len(e.subs),
	}
}

// SetScenario stops the clock, merges the partial update, reinitializes
// current time for the resulting mode, restarts if it was running, and
// notifies subscribers of the new time.
func (e *Engine) SetScenario(update model.ScenarioUpdate) {
	e.mu.Lock()
	wasRunning := e.running
	e.mu.Unlock()
	if wasRunning {
		e.Stop()
	}

	e.mu.Lock()
	if update.Mode != nil {
		e.scenario.Mode = *update.Mode
	}
	if update.StartTime != nil {
		e.scenario.StartTime = *update.StartTime
	}
	if update.SpeedMultiplier != nil {
		if *update.SpeedMultiplier <= 0 {
			log.Printf("time engine: ignoring speed multiplier %.2f", *update.SpeedMultiplier)
		} else {
			e.scenario.SpeedMultiplier = *update.SpeedMultiplier
		}
	}
	if update.Paused != nil {
		e.scenario.Paused = *update.Paused
	}
	e.reinitLocked()
	current := e.current
	e.mu.Unlock()

	if wasRunning {
		e.Start()
	}
	e.notify(current)
}

// Subscribe registers a callback invoked on every tick. The current time is
// delivered immediately. The returned function unsubscribes.
func (e *Engine) Subscribe(fn func(time.Time)) func() {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = fn
	current := e.current
	if e.scenario.Mode == model.ModeLive {
		current = e.now()
	}
	e.mu.Unlock()

	fn(current)

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// Pause suspends virtual time advancement. Ticks keep firing.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.scenario.Paused = true
	e.mu.Unlock()
}

// Resume reverses Pause.
func (e *Engine) Resume() {
	e.mu.Lock()
	e.scenario.Paused = false
	e.lastWall = e.now()
	e.mu.Unlock()
}

// SetSpeed updates the speed multiplier. Non-positive values are rejected
// with a logged warning and no state change.
func (e *Engine) SetSpeed(multiplier float64) {
	if multiplier <= 0 {
		log.Printf("time engine: ignoring speed multiplier %.2f", multiplier)
		return
	}
	e.mu.Lock()
	e.scenario.SpeedMultiplier = multiplier
	e.mu.Unlock()
}

// JumpTo moves the virtual clock to a timestamp. Rejected in live mode,
// since live time is not user-steerable.
func (e *Engine) JumpTo(t time.Time) {
	e.mu.Lock()
	if e.scenario.Mode == model.ModeLive {
		e.mu.Unlock()
		log.Printf("time engine: jump rejected in live mode")
		return
	}
	e.current = t
	e.lastWall = e.now()
	current := e.current
	e.mu.Unlock()

	e.notify(current)
}

// StepForward advances the virtual clock by a fixed amount. Rejected in
// live mode.
func (e *Engine) StepForward(d time.Duration) {
	e.mu.Lock()
	if e.scenario.Mode == model.ModeLive {
		e.mu.Unlock()
		log.Printf("time engine: step rejected in live mode")
		return
	}
	e.current = e.current.Add(d)
	current := e.current
	e.mu.Unlock()

	e.notify(current)
}
