package generator

import (
	"context"
	"log"
	"sync"
	"time"

	"safetycarbot/pkg/caster"
	"safetycarbot/pkg/commands"
	"safetycarbot/pkg/detection"
	"safetycarbot/pkg/drivers"
	"safetycarbot/pkg/procedures"
	"safetycarbot/pkg/pubsub"
	"safetycarbot/pkg/settings"
	"safetycarbot/pkg/telemetry"
)

// nominalPeriod is the tick cadence. Each tick's sleep is shortened by the
// work already done so ticks stretch under load but are never skipped.
const nominalPeriod = time.Second

// minimumStartMinute keeps the window from opening on the standing start
// itself, where the whole field briefly reads as stopped.
const minimumStartMinute = 0.05

// event tracks an active safety car procedure from trigger to restart.
type event struct {
	triggeredAt    time.Time
	reason         detection.EventType
	message        string
	triggerLap     int
	lapUnderSC     int
	waveArmed      bool
	waveSent       bool
	paceSignalSent bool
	cautionSeen    bool
}

// Generator is the race monitor: one loop, one tick per nominal period,
// consulting the snapshot store, the eligibility window and the trigger
// detectors, and driving the safety car procedure once one fires.
type Generator struct {
	settings  settings.Settings
	source    telemetry.Source
	sender    *commands.Sender
	pubsubMgr *pubsub.PubSub

	window  Window
	store   *drivers.Store
	random  *detection.RandomDetector
	stopped *detection.StoppedDetector
	offRoad *detection.OffTrackDetector
	towing  *detection.TowingDetector
	flags   *detection.FlagsDetector
	checker *detection.ThresholdChecker

	stateCaster caster.ChannelCaster[StateSnapshot]

	mu           sync.Mutex
	state        State
	greenFlagAt  time.Time
	greenSeen    bool
	history      History
	current      *event
	lastStopped  int
	lastOffTrack int
	towedCars    []string
	flaggedCars  []string

	now   func() time.Time
	sleep func(time.Duration)
}

// New validates the settings and assembles a generator. An invalid
// configuration is rejected here, before any tick runs.
func New(cfg settings.Settings, source telemetry.Source, sender *commands.Sender, pubsubMgr *pubsub.PubSub) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	startMinute := cfg.StartMinute
	if startMinute < minimumStartMinute {
		startMinute = minimumStartMinute
	}

	thresholdSettings := detection.DefaultThresholdSettings()
	thresholdSettings.EventTypeThreshold[detection.EventStopped] = float64(cfg.StoppedCarsThreshold)
	thresholdSettings.EventTypeThreshold[detection.EventOffTrack] = float64(cfg.OffTrackCarsThreshold)

	return &Generator{
		settings:  cfg,
		source:    source,
		sender:    sender,
		pubsubMgr: pubsubMgr,
		window: Window{
			StartMinute:       startMinute,
			EndMinute:         cfg.EndMinute,
			MinMinutesBetween: cfg.MinMinutesBetween,
			MaxSafetyCars:     cfg.MaxSafetyCars,
		},
		store:       drivers.NewStore(),
		random:      detection.NewRandomDetector(cfg.RandomProb, startMinute, cfg.EndMinute, cfg.RandomMaxOcc, nil),
		stopped:     detection.NewStoppedDetector(),
		offRoad:     detection.NewOffTrackDetector(),
		towing:      detection.NewTowingDetector(),
		flags:       detection.NewFlagsDetector(),
		checker:     detection.NewThresholdChecker(thresholdSettings),
		stateCaster: caster.JSONChannelCaster[StateSnapshot]{},
		state:       StateStopped,
		now:         time.Now,
		sleep:       time.Sleep,
	}, nil
}

// State returns the generator's current phase.
func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Snapshot returns the current read-only state view.
func (g *Generator) Snapshot() StateSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Generator) snapshotLocked() StateSnapshot {
	snap := StateSnapshot{
		State:           g.state.String(),
		SafetyCarEvents: g.history.Count(),
		MaxSafetyCars:   g.settings.MaxSafetyCars,
		RandomEvents:    g.random.Occurrences(),
		StoppedCount:    g.lastStopped,
		OffTrackCount:   g.lastOffTrack,
		TowedCars:       g.towedCars,
		FlaggedCars:     g.flaggedCars,
	}
	if g.greenSeen {
		snap.ElapsedSeconds = g.now().Sub(g.greenFlagAt).Seconds()
	}
	if g.current != nil {
		snap.Event = &EventStatus{
			Reason:         string(g.current.reason),
			Message:        g.current.message,
			TriggerLap:     g.current.triggerLap,
			LapUnderSC:     g.current.lapUnderSC,
			WaveArmed:      g.current.waveArmed,
			WaveSent:       g.current.waveSent,
			PaceSignalSent: g.current.paceSignalSent,
		}
	}
	return snap
}

func (g *Generator) setState(s State) {
	g.mu.Lock()
	if g.state != s {
		log.Printf("Generator state: %s -> %s", g.state, s)
		g.state = s
	}
	g.mu.Unlock()
}

func (g *Generator) publishState() {
	payload, err := g.stateCaster.To(g.Snapshot())
	if err != nil {
		log.Printf("Error casting generator state: %s", err.Error())
		return
	}
	g.pubsubMgr.Publish(pubsub.TopicGeneratorState, payload)
}

// Run drives the tick loop until ctx is cancelled or the session leaves the
// eligibility window with no further events possible. Cancellation is
// cooperative and checked once at the top of each tick.
func (g *Generator) Run(ctx context.Context) error {
	log.Println("Starting safety car generator loop")
	g.setState(StateWaitingForRaceSession)

	for {
		select {
		case <-ctx.Done():
			g.setState(StateStopped)
			g.publishState()
			return nil
		default:
		}

		tickStart := g.now()
		done := g.tick()
		g.publishState()
		if done {
			g.setState(StateStopped)
			g.publishState()
			return nil
		}

		work := g.now().Sub(tickStart)
		if pause := nominalPeriod - work; pause > 0 {
			g.sleep(pause)
		}
	}
}

// tick runs one iteration of the state machine. It returns true when the
// generator has nothing left to do this session.
func (g *Generator) tick() bool {
	snapshot, ok := g.source.ReadSnapshot()
	if !ok {
		// transient telemetry gap: no state change this tick
		return false
	}

	switch g.State() {
	case StateWaitingForRaceSession:
		if snapshot.RaceSession() {
			g.setState(StateWaitingForGreen)
		}
	case StateWaitingForGreen:
		if snapshot.GreenFlag {
			g.mu.Lock()
			g.greenFlagAt = g.now()
			g.greenSeen = true
			g.mu.Unlock()
			g.store.Seed(snapshot.Cars)
			log.Println("Green flag shown, monitoring for incidents")
			g.setState(StateMonitoring)
		}
	case StateMonitoring:
		return g.monitorTick(snapshot)
	case StateSafetyCarActive:
		g.safetyCarTick(snapshot)
	}
	return false
}

// monitorTick refreshes the snapshot store and, when the window permits,
// evaluates the triggers in fixed priority order: random, stopped cars,
// off-track cars, then the accumulated-incident threshold. The first trigger
// to fire wins the tick.
func (g *Generator) monitorTick(snapshot telemetry.Snapshot) bool {
	g.store.Update(snapshot.Cars)
	g.observeTowing()
	g.observeFlags()

	now := g.now()
	elapsedMinutes := now.Sub(g.greenFlagAt).Minutes()

	// past the window, or out of events: nothing more can ever fire
	if elapsedMinutes > g.window.EndMinute {
		log.Println("Detection window closed, stopping generator")
		return true
	}
	if g.history.Count() >= g.settings.MaxSafetyCars {
		log.Println("Maximum safety car events reached, stopping generator")
		return true
	}

	if !g.window.Eligible(now, g.greenFlagAt, &g.history) {
		return false
	}

	deltas := g.store.Deltas()
	if deltas == nil {
		return false
	}

	g.checker.CleanUp()

	if g.settings.RandomEnabled {
		if result := g.random.Detect(); result.Fired {
			g.deploy(result.Type, g.settings.RandomMessage, snapshot)
			return false
		}
	}

	sinceGreen := now.Sub(g.greenFlagAt)
	multiplierWindow := time.Duration(g.settings.StartMultiplierSeconds * float64(time.Second))

	if g.settings.StoppedEnabled {
		result := g.stopped.Detect(deltas)
		g.checker.RegisterResult(result)
		count := g.adjustedCount(result)
		g.setLastCount(detection.EventStopped, count)
		threshold := detection.ScaleThreshold(g.settings.StoppedCarsThreshold, g.settings.StartMultiplier, sinceGreen, multiplierWindow)
		if count >= threshold {
			g.logAffectedCars(result)
			g.deploy(result.Type, g.settings.StoppedMessage, snapshot)
			return false
		}
	}

	if g.settings.OffTrackEnabled {
		result := g.offRoad.Detect(deltas)
		g.checker.RegisterResult(result)
		count := g.adjustedCount(result)
		g.setLastCount(detection.EventOffTrack, count)
		threshold := detection.ScaleThreshold(g.settings.OffTrackCarsThreshold, g.settings.StartMultiplier, sinceGreen, multiplierWindow)
		if count >= threshold {
			g.logAffectedCars(result)
			g.deploy(result.Type, g.settings.OffTrackMessage, snapshot)
			return false
		}
	}

	if g.checker.ThresholdMet() {
		g.deploy(detection.EventStopped, g.settings.StoppedMessage, snapshot)
	}
	return false
}

// adjustedCount applies the proximity filter: only the largest cluster of
// flagged cars counts towards the threshold.
func (g *Generator) adjustedCount(result detection.Result) int {
	if !g.settings.ProximityEnabled {
		return len(result.Cars)
	}
	distances := make([]float64, len(result.Cars))
	for i, car := range result.Cars {
		distances[i] = car.LapDistPct
	}
	return detection.LargestCluster(distances, g.settings.ProximityDistancePct)
}

func (g *Generator) setLastCount(typ detection.EventType, count int) {
	g.mu.Lock()
	switch typ {
	case detection.EventStopped:
		g.lastStopped = count
	case detection.EventOffTrack:
		g.lastOffTrack = count
	}
	g.mu.Unlock()
}

// observeTowing records likely tows for display. Informational only: tows
// never reach the trigger thresholds.
func (g *Generator) observeTowing() {
	result := g.towing.Detect(g.store.Current())
	if !result.HasCars() {
		return
	}
	g.mu.Lock()
	for _, car := range result.Cars {
		g.towedCars = append(g.towedCars, car.CarNumber)
	}
	g.mu.Unlock()
}

// observeFlags records newly raised penalty flags for display. Informational
// only, like towing.
func (g *Generator) observeFlags() {
	result := g.flags.Detect(g.store.Current())
	if !result.HasCars() {
		return
	}
	g.mu.Lock()
	for _, car := range result.Cars {
		g.flaggedCars = append(g.flaggedCars, car.CarNumber)
	}
	g.mu.Unlock()
}

func (g *Generator) logAffectedCars(result detection.Result) {
	log.Printf("Affected car indexes (%s): %v", result.Type, result.CarIdxs())
}

// deploy sends the yellow flag, records the trigger, and enters the safety
// car phase.
func (g *Generator) deploy(reason detection.EventType, message string, snapshot telemetry.Snapshot) {
	log.Printf("Deploying safety car (%s)", reason)
	g.sender.Send(commands.YellowFlag(message))

	now := g.now()
	triggerLap := leadLap(snapshot.Cars)

	g.mu.Lock()
	g.history.Record(now)
	g.current = &event{
		triggeredAt: now,
		reason:      reason,
		message:     message,
		triggerLap:  triggerLap,
		lapUnderSC:  triggerLap,
	}
	g.mu.Unlock()

	g.publishDeployed(reason, message)
	g.setState(StateSafetyCarActive)
}

func (g *Generator) publishDeployed(reason detection.EventType, message string) {
	type deployed struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
	payload, err := caster.JSONChannelCaster[deployed]{}.To(deployed{Reason: string(reason), Message: message})
	if err != nil {
		log.Printf("Error casting deploy notice: %s", err.Error())
		return
	}
	g.pubsubMgr.Publish(pubsub.TopicSafetyCarDeployed, payload)
}

// safetyCarTick advances the active procedure: track the lead lap, send the
// wave arounds once armed, signal the pace-lap countdown, and hand back to
// monitoring when the race goes green again. Event fields are shared with
// Snapshot, so every mutation happens under the lock; commands go out after
// it is released.
func (g *Generator) safetyCarTick(snapshot telemetry.Snapshot) {
	g.store.Update(snapshot.Cars)
	g.observeTowing()
	g.observeFlags()

	g.mu.Lock()
	ev := g.current
	if ev == nil {
		g.mu.Unlock()
		g.setState(StateMonitoring)
		return
	}

	ev.lapUnderSC = lapUnderSafetyCar(snapshot.Cars)
	if !snapshot.GreenFlag {
		ev.cautionSeen = true
	}

	sendWave := false
	if !ev.waveSent {
		switch {
		case !g.settings.AutoWaveArounds:
			ev.waveSent = true
		case ev.lapUnderSC >= ev.triggerLap+g.settings.LapsBeforeWaveArounds+1:
			ev.waveArmed = true
			ev.waveSent = true
			sendWave = true
		}
	}

	sendPace := false
	if !ev.paceSignalSent {
		switch {
		case g.settings.LapsUnderSafetyCar < 2:
			ev.paceSignalSent = true
		case ev.lapUnderSC >= ev.triggerLap+2 && leadLapDistance(snapshot.Cars, ev.lapUnderSC) >= 0.5:
			ev.paceSignalSent = true
			sendPace = true
		}
	}

	// the restart green destroys the event and resumes monitoring
	finished := ev.cautionSeen && snapshot.GreenFlag
	if finished {
		g.current = nil
	}
	g.mu.Unlock()

	if sendWave {
		waveCommands := procedures.PlanWaveArounds(g.store.Current())
		log.Printf("Sending %d wave around commands", len(waveCommands))
		g.sender.SendAll(waveCommands)
		if gaps, ok := procedures.DistancesBehindSafetyCar(g.store.Current()); ok {
			log.Printf("Gaps behind the safety car: %v", gaps)
		}
	}
	if sendPace {
		g.sender.Send(commands.PaceLaps(g.settings.LapsUnderSafetyCar - 1))
	}
	if finished {
		log.Println("Green flag shown again, resuming monitoring")
		g.setState(StateMonitoring)
	}
}

// leadLapDistance is the lap fraction of the furthest car on the given lap.
// The pace countdown waits for it to pass halfway so the count lines up with
// the start/finish line.
func leadLapDistance(cars []telemetry.CarState, lap int) float64 {
	leadDist := 0.0
	for _, car := range cars {
		if car.IsPaceCar || car.OnPitRoad {
			continue
		}
		if car.LapsCompleted >= lap && car.LapDistPct > leadDist {
			leadDist = car.LapDistPct
		}
	}
	return leadDist
}

// leadLap is the highest completed lap in the field, pace car excluded.
func leadLap(cars []telemetry.CarState) int {
	lead := 0
	for _, car := range cars {
		if car.IsPaceCar {
			continue
		}
		if car.LapsCompleted > lead {
			lead = car.LapsCompleted
		}
	}
	return lead
}

// lapUnderSafetyCar is the highest completed lap among cars not on pit road.
func lapUnderSafetyCar(cars []telemetry.CarState) int {
	lead := 0
	for _, car := range cars {
		if car.IsPaceCar || car.OnPitRoad {
			continue
		}
		if car.LapsCompleted > lead {
			lead = car.LapsCompleted
		}
	}
	return lead
}
