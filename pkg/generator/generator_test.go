package generator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"safetycarbot/pkg/commands"
	"safetycarbot/pkg/detection"
	"safetycarbot/pkg/pubsub"
	"safetycarbot/pkg/settings"
	"safetycarbot/pkg/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	snapshot telemetry.Snapshot
	ok       bool
}

func (s *scriptedSource) ReadSnapshot() (telemetry.Snapshot, bool) {
	return s.snapshot, s.ok
}

func raceCar(idx int, number string, laps int, pct float64) telemetry.CarState {
	return telemetry.CarState{
		CarIdx:        idx,
		CarNumber:     number,
		LapsCompleted: laps,
		LapDistPct:    pct,
		Surface:       telemetry.SurfaceOnTrack,
	}
}

func raceSnapshot(green bool, cars ...telemetry.CarState) telemetry.Snapshot {
	return telemetry.Snapshot{SessionType: "RACE", GreenFlag: green, Cars: cars}
}

func newTestGenerator(t *testing.T, cfg settings.Settings) (*Generator, *scriptedSource, *commands.LogSink, *time.Time) {
	t.Helper()

	src := &scriptedSource{ok: true}
	sink := &commands.LogSink{}
	g, err := New(cfg, src, commands.NewSender(sink), pubsub.NewPubSub())
	require.NoError(t, err)

	current := time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }
	g.sleep = func(time.Duration) {}
	return g, src, sink, &current
}

// monitoringAt puts the generator straight into the monitoring phase with the
// green flag recorded at the clock's current value.
func monitoringAt(g *Generator, green time.Time, cars []telemetry.CarState) {
	g.greenFlagAt = green
	g.greenSeen = true
	g.store.Seed(cars)
	g.setState(StateMonitoring)
}

func TestGeneratorInvalidSettingsRejected(t *testing.T) {
	cfg := settings.Defaults()
	cfg.RandomProb = 2

	_, err := New(cfg, &scriptedSource{}, commands.NewSender(&commands.LogSink{}), pubsub.NewPubSub())
	assert.Error(t, err)
}

func TestGeneratorWaitsForRaceSession(t *testing.T) {
	g, src, sink, _ := newTestGenerator(t, settings.Defaults())
	g.setState(StateWaitingForRaceSession)

	src.snapshot = telemetry.Snapshot{SessionType: "PRACTICE", GreenFlag: true}
	g.tick()
	require.Equal(t, StateWaitingForRaceSession, g.State())

	src.snapshot = raceSnapshot(false, raceCar(0, "11", 0, 0.0))
	g.tick()
	require.Equal(t, StateWaitingForGreen, g.State())

	src.snapshot = raceSnapshot(true, raceCar(0, "11", 0, 0.0))
	g.tick()
	assert.Equal(t, StateMonitoring, g.State())
	assert.Empty(t, sink.Sent)
}

func TestGeneratorUnavailableSnapshotIsNoOp(t *testing.T) {
	g, src, sink, clock := newTestGenerator(t, settings.Defaults())
	monitoringAt(g, *clock, []telemetry.CarState{raceCar(0, "11", 5, 0.10)})
	src.ok = false
	*clock = clock.Add(10 * time.Minute)

	done := g.tick()

	assert.False(t, done)
	assert.Equal(t, StateMonitoring, g.State())
	assert.Empty(t, sink.Sent)
}

func stoppedFieldSeed() []telemetry.CarState {
	return []telemetry.CarState{
		raceCar(0, "11", 5, 0.10),
		raceCar(1, "22", 5, 0.40),
		raceCar(2, "33", 4, 0.45),
		raceCar(3, "44", 4, 0.70),
		raceCar(4, "55", 4, 0.90),
	}
}

func stoppedFieldNext() []telemetry.CarState {
	return []telemetry.CarState{
		raceCar(0, "11", 5, 0.12),
		raceCar(1, "22", 5, 0.40),
		raceCar(2, "33", 4, 0.45),
		raceCar(3, "44", 4, 0.72),
		raceCar(4, "55", 4, 0.92),
	}
}

func TestGeneratorStoppedCarsDeploy(t *testing.T) {
	cfg := settings.Defaults()
	cfg.RandomEnabled = false
	g, src, sink, clock := newTestGenerator(t, cfg)

	monitoringAt(g, *clock, stoppedFieldSeed())
	*clock = clock.Add(10 * time.Minute)
	src.snapshot = raceSnapshot(true, stoppedFieldNext()...)

	done := g.tick()

	require.False(t, done)
	require.Equal(t, []string{"!y Cars stopped on track."}, sink.Sent)
	assert.Equal(t, StateSafetyCarActive, g.State())
	assert.Equal(t, 1, g.history.Count())
	require.NotNil(t, g.current)
	assert.Equal(t, 5, g.current.triggerLap)
	assert.Equal(t, detection.EventStopped, g.current.reason)
}

func TestGeneratorRandomWinsOverStopped(t *testing.T) {
	cfg := settings.Defaults()
	g, src, sink, clock := newTestGenerator(t, cfg)
	g.random = detection.NewRandomDetector(0.5, 0, 30, 1, func() float64 { return 0 })

	monitoringAt(g, *clock, stoppedFieldSeed())
	*clock = clock.Add(10 * time.Minute)
	src.snapshot = raceSnapshot(true, stoppedFieldNext()...)

	g.tick()

	require.Equal(t, []string{"!y Hazard on track."}, sink.Sent, "one trigger per tick, evaluated in fixed order")
	assert.Equal(t, detection.EventRandom, g.current.reason)
}

func TestGeneratorGlitchedDeltasDoNotDeploy(t *testing.T) {
	cfg := settings.Defaults()
	cfg.RandomEnabled = false
	g, src, sink, clock := newTestGenerator(t, cfg)

	monitoringAt(g, *clock, stoppedFieldSeed())
	*clock = clock.Add(10 * time.Minute)

	// the two suspect cars moved backwards, a feed glitch, not a stop
	src.snapshot = raceSnapshot(true,
		raceCar(0, "11", 5, 0.12),
		raceCar(1, "22", 5, 0.30),
		raceCar(2, "33", 4, 0.35),
		raceCar(3, "44", 4, 0.72),
		raceCar(4, "55", 4, 0.92),
	)

	g.tick()

	assert.Empty(t, sink.Sent)
	assert.Equal(t, StateMonitoring, g.State())
}

func TestGeneratorCooldownBlocksSecondTrigger(t *testing.T) {
	cfg := settings.Defaults()
	cfg.RandomEnabled = false
	cfg.MinMinutesBetween = 10
	g, src, sink, clock := newTestGenerator(t, cfg)

	monitoringAt(g, *clock, stoppedFieldSeed())
	g.history.Record(clock.Add(8 * time.Minute))
	*clock = clock.Add(10 * time.Minute)
	src.snapshot = raceSnapshot(true, stoppedFieldNext()...)

	done := g.tick()

	assert.False(t, done)
	assert.Empty(t, sink.Sent, "only 2 minutes since the previous trigger")
	assert.Equal(t, StateMonitoring, g.State())
}

func TestGeneratorStopsWhenWindowCloses(t *testing.T) {
	cfg := settings.Defaults()
	cfg.RandomEnabled = false
	g, src, _, clock := newTestGenerator(t, cfg)

	monitoringAt(g, *clock, stoppedFieldSeed())
	*clock = clock.Add(31 * time.Minute)
	src.snapshot = raceSnapshot(true, stoppedFieldNext()...)

	assert.True(t, g.tick())
}

func TestGeneratorStopsWhenEventCapReached(t *testing.T) {
	cfg := settings.Defaults()
	cfg.RandomEnabled = false
	g, src, _, clock := newTestGenerator(t, cfg)

	monitoringAt(g, *clock, stoppedFieldSeed())
	g.history.Record(*clock)
	g.history.Record(clock.Add(5 * time.Minute))
	*clock = clock.Add(10 * time.Minute)
	src.snapshot = raceSnapshot(true, stoppedFieldNext()...)

	assert.True(t, g.tick())
}

func TestGeneratorSafetyCarProcedure(t *testing.T) {
	cfg := settings.Defaults()
	cfg.RandomEnabled = false
	cfg.LapsBeforeWaveArounds = 0
	cfg.LapsUnderSafetyCar = 2
	g, src, sink, clock := newTestGenerator(t, cfg)

	monitoringAt(g, *clock, stoppedFieldSeed())
	*clock = clock.Add(10 * time.Minute)
	src.snapshot = raceSnapshot(true, stoppedFieldNext()...)
	require.False(t, g.tick())
	require.Equal(t, StateSafetyCarActive, g.State())
	require.Equal(t, 5, g.current.triggerLap)

	// field bunches up behind the safety car, lap 5, wave lap is 6
	src.snapshot = raceSnapshot(false,
		raceCar(0, "11", 5, 0.30),
		raceCar(1, "22", 5, 0.28),
		raceCar(2, "33", 5, 0.26),
		raceCar(3, "44", 5, 0.24),
		raceCar(4, "99", 3, 0.22),
	)
	g.tick()
	require.Len(t, sink.Sent, 1, "wave arounds held until the wave lap")

	// leader reaches the wave lap; only the lapped car gets waved
	src.snapshot = raceSnapshot(false,
		raceCar(0, "11", 6, 0.30),
		raceCar(1, "22", 6, 0.28),
		raceCar(2, "33", 6, 0.26),
		raceCar(3, "44", 6, 0.24),
		raceCar(4, "99", 4, 0.22),
	)
	g.tick()
	require.Equal(t, []string{"!y Cars stopped on track.", "!w 99"}, sink.Sent)
	assert.True(t, g.current.waveSent)

	// two laps under caution and the leader past halfway: pace countdown
	src.snapshot = raceSnapshot(false,
		raceCar(0, "11", 7, 0.60),
		raceCar(1, "22", 7, 0.58),
		raceCar(2, "33", 7, 0.56),
		raceCar(3, "44", 7, 0.54),
		raceCar(4, "99", 5, 0.52),
	)
	g.tick()
	require.Equal(t, []string{"!y Cars stopped on track.", "!w 99", "!p 1"}, sink.Sent)
	assert.True(t, g.current.paceSignalSent)

	// restart green ends the procedure
	src.snapshot = raceSnapshot(true,
		raceCar(0, "11", 8, 0.10),
		raceCar(1, "22", 8, 0.08),
		raceCar(2, "33", 8, 0.06),
		raceCar(3, "44", 8, 0.04),
		raceCar(4, "99", 6, 0.02),
	)
	g.tick()
	assert.Equal(t, StateMonitoring, g.State())
	assert.Nil(t, g.current)
}

func TestGeneratorPaceSignalSkippedForShortCaution(t *testing.T) {
	cfg := settings.Defaults()
	cfg.RandomEnabled = false
	cfg.AutoWaveArounds = false
	cfg.LapsUnderSafetyCar = 1
	g, src, sink, clock := newTestGenerator(t, cfg)

	monitoringAt(g, *clock, stoppedFieldSeed())
	*clock = clock.Add(10 * time.Minute)
	src.snapshot = raceSnapshot(true, stoppedFieldNext()...)
	require.False(t, g.tick())

	src.snapshot = raceSnapshot(false,
		raceCar(0, "11", 8, 0.80),
		raceCar(1, "22", 8, 0.78),
	)
	g.tick()

	assert.Len(t, sink.Sent, 1, "a one lap caution needs no pace countdown")
	assert.True(t, g.current.paceSignalSent)
	assert.True(t, g.current.waveSent)
}

func TestGeneratorSnapshotDuringSafetyCarIsSafe(t *testing.T) {
	cfg := settings.Defaults()
	cfg.RandomEnabled = false
	g, src, _, clock := newTestGenerator(t, cfg)

	monitoringAt(g, *clock, stoppedFieldSeed())
	*clock = clock.Add(10 * time.Minute)
	src.snapshot = raceSnapshot(true, stoppedFieldNext()...)
	require.False(t, g.tick())
	require.Equal(t, StateSafetyCarActive, g.State())

	// the frontend polls Snapshot while the loop mutates the active event
	src.snapshot = raceSnapshot(false,
		raceCar(0, "11", 6, 0.30),
		raceCar(1, "22", 6, 0.28),
		raceCar(2, "33", 6, 0.26),
		raceCar(3, "44", 6, 0.24),
		raceCar(4, "55", 6, 0.22),
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			snap := g.Snapshot()
			if snap.Event != nil {
				_ = snap.Event.LapUnderSC
			}
		}
	}()
	for i := 0; i < 500; i++ {
		g.tick()
	}
	<-done
}

func TestGeneratorTowingNeverDeploys(t *testing.T) {
	cfg := settings.Defaults()
	cfg.RandomEnabled = false
	g, src, sink, clock := newTestGenerator(t, cfg)

	// three normal pit entries teach the entry location, then two cars
	// teleport onto pit road on the far side of the track
	field := func(onPit bool, pct float64) []telemetry.CarState {
		cars := make([]telemetry.CarState, 3)
		for i := range cars {
			cars[i] = raceCar(i, fmt.Sprint(i), 5, pct+float64(i)*0.005)
			cars[i].OnPitRoad = onPit
		}
		return cars
	}
	monitoringAt(g, *clock, field(false, 0.76))
	*clock = clock.Add(10 * time.Minute)

	src.snapshot = raceSnapshot(true, field(false, 0.78)...)
	require.False(t, g.tick())
	src.snapshot = raceSnapshot(true, field(true, 0.80)...)
	require.False(t, g.tick())

	src.snapshot = raceSnapshot(true, field(false, 0.84)...)
	require.False(t, g.tick())

	teleported := field(true, 0.30)
	teleported[1].LapDistPct = 0.35
	teleported[2] = raceCar(2, "2", 5, 0.90)
	src.snapshot = raceSnapshot(true, teleported...)
	require.False(t, g.tick())

	assert.Empty(t, sink.Sent, "tows are informational, never a trigger")
	assert.Equal(t, StateMonitoring, g.State())
	snap := g.Snapshot()
	assert.ElementsMatch(t, []string{"0", "1"}, snap.TowedCars)
}

func TestGeneratorPenaltyFlagsAreInformational(t *testing.T) {
	cfg := settings.Defaults()
	cfg.RandomEnabled = false
	g, src, sink, clock := newTestGenerator(t, cfg)

	monitoringAt(g, *clock, stoppedFieldSeed())
	*clock = clock.Add(10 * time.Minute)

	next := stoppedFieldNext()
	for i := range next {
		next[i].LapDistPct += 0.02 // everyone moving, no stopped trigger
	}
	next[2].Flags = telemetry.FlagRepair
	src.snapshot = raceSnapshot(true, next...)
	require.False(t, g.tick())

	assert.Empty(t, sink.Sent)
	assert.Equal(t, StateMonitoring, g.State())
	assert.Equal(t, []string{"33"}, g.Snapshot().FlaggedCars)
}

func TestGeneratorRunStopsOnCancel(t *testing.T) {
	g, src, _, _ := newTestGenerator(t, settings.Defaults())
	src.ok = false

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, g.Run(ctx))
	assert.Equal(t, StateStopped, g.State())
}

func TestGeneratorSnapshotReflectsEvent(t *testing.T) {
	cfg := settings.Defaults()
	cfg.RandomEnabled = false
	g, src, _, clock := newTestGenerator(t, cfg)

	monitoringAt(g, *clock, stoppedFieldSeed())
	*clock = clock.Add(10 * time.Minute)
	src.snapshot = raceSnapshot(true, stoppedFieldNext()...)
	require.False(t, g.tick())

	snap := g.Snapshot()
	assert.Equal(t, "SafetyCarActive", snap.State)
	assert.Equal(t, 1, snap.SafetyCarEvents)
	assert.Equal(t, 2, snap.MaxSafetyCars)
	require.NotNil(t, snap.Event)
	assert.Equal(t, "stopped", snap.Event.Reason)
	assert.Equal(t, 5, snap.Event.TriggerLap)
	assert.InDelta(t, 600, snap.ElapsedSeconds, 1)
}
