package network

import (
	"log/slog"
	"math"
	"slices"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/omath"
	"github.com/oomph-ac/locomotion/utils"
)

// Input is the local input of one tick.
type Input struct {
	// Acceleration is the normalised movement input.
	Acceleration mgl64.Vec3
	Jump         bool
	Crouch       bool
}

func (in Input) flags() Flags {
	var f Flags
	if in.Jump {
		f |= FlagJump
	}
	if in.Crouch {
		f |= FlagCrouch
	}
	return f
}

// EventHandler applies the one-shot events received from other instances of an agent. Handlers
// must ignore events that are already in effect, such as starting an active ragdoll.
type EventHandler interface {
	HandleEvent(e Event)
}

// NopEventHandler ...
type NopEventHandler struct{}

func (NopEventHandler) HandleEvent(Event) {}

// RagdollTarget is implemented by ragdoll.Blender. It carries the replicated pelvis location of a
// ragdoll from the authority to its replicas.
type RagdollTarget interface {
	Target() mgl64.Vec3
	SetTarget(target mgl64.Vec3)
}

// Stats counts what a Reconciler did.
type Stats struct {
	Sent         uint64
	Received     uint64
	Duplicates   uint64
	Stale        uint64
	DecodeErrors uint64
	SendErrors   uint64
	// Corrections counts predictions of an autonomous proxy that were rewound.
	Corrections uint64
	// Replayed counts moves simulated again after a correction.
	Replayed     uint64
	MovesDropped uint64
	// Snaps counts corrections of a simulated proxy too large to smooth.
	Snaps uint64
}

// Report returns the counters as an ordered key/value list for logging.
func (s Stats) Report() *orderedmap.OrderedMap[string, any] {
	m := orderedmap.NewOrderedMap[string, any]()
	m.Set("sent", s.Sent)
	m.Set("received", s.Received)
	m.Set("duplicates", s.Duplicates)
	m.Set("stale", s.Stale)
	m.Set("decode_errors", s.DecodeErrors)
	m.Set("send_errors", s.SendErrors)
	m.Set("corrections", s.Corrections)
	m.Set("replayed", s.Replayed)
	m.Set("moves_dropped", s.MovesDropped)
	m.Set("snaps", s.Snaps)
	return m
}

// predictionErrorWindow is the number of acknowledged moves PredictionError summarises.
const predictionErrorWindow = 64

// PredictionError summarises how far the location predicted by an autonomous proxy was from the
// authority over the last acknowledged moves.
type PredictionError struct {
	Mean, StdDev, Max float64
}

// Option configures a Reconciler.
type Option func(r *Reconciler)

// WithLogger ...
func WithLogger(log *slog.Logger) Option {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// WithRecorder makes the reconciler record every frame it sends or accepts.
func WithRecorder(rec *Recorder) Option {
	return func(r *Reconciler) {
		r.rec = rec
	}
}

// WithEventHandler ...
func WithEventHandler(h EventHandler) Option {
	return func(r *Reconciler) {
		if h != nil {
			r.h = h
		}
	}
}

// WithRagdollTarget ...
func WithRagdollTarget(t RagdollTarget) Option {
	return func(r *Reconciler) {
		r.ragdoll = t
	}
}

// Reconciler ticks a movement component in its network role and keeps it in sync with the other
// instances of the agent over a Transport.
//
// The authority simulates the moves of its autonomous proxy, or its local input if it has none,
// and sends a Snapshot after every tick. The autonomous proxy predicts locally, sends every tick
// as a Move and rewinds and replays its unacknowledged moves when a snapshot shows its
// prediction was off. Simulated proxies apply snapshots and extrapolate between them.
type Reconciler struct {
	c    *movement.Component
	t    Transport
	role movement.Role
	cfg  Config
	log  *slog.Logger
	rec  *Recorder
	h    EventHandler

	ragdoll RagdollTarget

	time     float64
	seq      uint64
	eventSeq uint64

	moves    *SavedMoves
	inbox    []Move
	remote   bool
	snapshot *Snapshot
	lastTime int64
	applied  bool

	smoother *Smoother
	seen     *utils.CircularQueue[uint64]
	errors   *utils.CircularQueue[float64]
	stats    Stats
}

// New returns a reconciler ticking c in role. A nil transport runs the agent on its own.
func New(c *movement.Component, t Transport, role movement.Role, cfg Config, opts ...Option) *Reconciler {
	r := &Reconciler{
		c:        c,
		t:        t,
		role:     role,
		cfg:      cfg,
		log:      slog.Default(),
		h:        NopEventHandler{},
		moves:    NewSavedMoves(cfg.MaxSavedMoves),
		smoother: NewSmoother(cfg),
		seen:     utils.NewCircularQueue[uint64](max(cfg.DuplicateWindow, 1), nil),
		errors:   utils.NewCircularQueue[float64](predictionErrorWindow, nil),
		lastTime: math.MinInt64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Role ...
func (r *Reconciler) Role() movement.Role {
	return r.role
}

// Stats ...
func (r *Reconciler) Stats() Stats {
	return r.stats
}

// PredictionError returns the prediction error of the last acknowledged moves. It is zero for
// other roles.
func (r *Reconciler) PredictionError() PredictionError {
	errs := slices.Collect(r.errors.All())
	return PredictionError{Mean: omath.Mean(errs), StdDev: omath.StandardDeviation(errs), Max: omath.Max(errs)}
}

// Report returns the statistics of the reconciler followed by its prediction error.
func (r *Reconciler) Report() *orderedmap.OrderedMap[string, any] {
	m := r.stats.Report()
	e := r.PredictionError()
	m.Set("prediction_error_mean", e.Mean)
	m.Set("prediction_error_stddev", e.StdDev)
	m.Set("prediction_error_max", e.Max)
	return m
}

// SavedMoves returns the moves an autonomous proxy has not had acknowledged yet.
func (r *Reconciler) SavedMoves() *SavedMoves {
	return r.moves
}

// Smoother returns the smoother hiding corrections of a simulated proxy.
func (r *Reconciler) Smoother() *Smoother {
	return r.smoother
}

// VisualLocation returns the location the agent should be drawn at, which includes the smoothing
// offset on simulated proxies.
func (r *Reconciler) VisualLocation() mgl64.Vec3 {
	return r.c.Location().Add(r.smoother.Offset())
}

// Tick reads the frames received since the last tick and advances the agent by dt seconds.
// Input is ignored by simulated proxies, and by authorities whose agent is controlled by an
// autonomous proxy.
func (r *Reconciler) Tick(dt float64, in Input) movement.TickResult {
	if dt > 0 {
		r.time += dt
	}
	r.poll()
	switch r.role {
	case movement.RoleAuthority:
		return r.tickAuthority(dt, in)
	case movement.RoleAutonomousProxy:
		return r.tickAutonomous(dt, in)
	default:
		return r.tickSimulated(dt)
	}
}

// SendEvent sends e to the other instances of the agent.
func (r *Reconciler) SendEvent(e Event) {
	r.eventSeq++
	e.Sequence = r.eventSeq
	r.send(&e)
}

func (r *Reconciler) tickAuthority(dt float64, in Input) movement.TickResult {
	var (
		res       movement.TickResult
		flags     Flags
		simulated bool
	)
	for _, m := range r.inbox {
		if m.Sequence <= r.seq {
			r.stats.Stale++
			continue
		}
		r.applyInput(m.Input, m.Flags, m.MaxWalkSpeed)
		res = r.c.Tick(omath.ClampFloat(m.DeltaTime, 0, r.cfg.MaxMoveDeltaTime), movement.RoleAuthority)
		r.seq, flags, simulated = m.Sequence, flags|m.Flags&^FlagSettingsChanged, true
		if res.SettingsChanged {
			flags |= FlagSettingsChanged
		}
	}
	r.inbox = r.inbox[:0]

	if !r.remote {
		in.Acceleration = omath.Quantize(in.Acceleration)
		flags = in.flags()
		r.applyInput(in.Acceleration, flags, 0)
		res = r.c.Tick(dt, movement.RoleAuthority)
		if res.SettingsChanged {
			flags |= FlagSettingsChanged
		}
		simulated = true
	}
	if !simulated {
		// Waiting for the next move of the autonomous proxy.
		res = r.state()
	}
	r.sendSnapshot(res, flags)
	return res
}

func (r *Reconciler) tickAutonomous(dt float64, in Input) movement.TickResult {
	if s := r.snapshot; s != nil {
		r.snapshot = nil
		r.correct(s)
	}

	dt = float64(float32(dt))
	in.Acceleration = omath.Quantize(in.Acceleration)
	flags := in.flags()
	r.applyInput(in.Acceleration, flags, 0)
	res := r.c.Tick(dt, movement.RoleAutonomousProxy)

	r.seq++
	m := Move{
		Sequence:  r.seq,
		DeltaTime: dt,
		Input:     in.Acceleration,
		Flags:     flags,
		Location:  res.Location,
		Velocity:  res.Velocity,
		Mode:      res.Mode,
	}
	if res.SettingsChanged {
		m.Flags |= FlagSettingsChanged
		m.MaxWalkSpeed = r.c.Config().MaxWalkSpeed
	}
	r.send(&m)
	if r.moves.Add(m) {
		r.stats.MovesDropped++
	}
	return res
}

func (r *Reconciler) tickSimulated(dt float64) movement.TickResult {
	if s := r.snapshot; s != nil {
		r.snapshot = nil
		before := r.c.Location()
		r.c.ReceiveNetworkUpdate(s.Location, s.Rotation, s.Velocity, s.Mode)
		r.applySettings(s)
		if s.Mode == movement.ModeRagdoll && r.ragdoll != nil {
			r.ragdoll.SetTarget(s.Target)
		}
		if r.applied && r.smoother.Correct(before, s.Location) {
			r.stats.Snaps++
			r.c.Debugger().Notify(movement.DebugModeNetwork, true, "snapped from %v to %v", before, s.Location)
		}
		r.applied = true
	}
	res := r.c.Tick(dt, movement.RoleSimulatedProxy)
	r.smoother.Tick(dt)
	return res
}

// correct compares a snapshot with the prediction made for the move it acknowledges. If the
// prediction was off, the component is rewound to the snapshot and every move the authority has
// not processed yet is simulated again.
func (r *Reconciler) correct(s *Snapshot) {
	predicted, ok := r.moves.Get(s.Sequence)
	r.moves.Ack(s.Sequence)
	if !ok {
		return
	}
	// Driven modes are replicated through events.
	if predicted.Mode >= movement.ModeRagdoll || s.Mode >= movement.ModeRagdoll {
		return
	}
	dl := predicted.Location.Sub(s.Location).Len()
	dv := predicted.Velocity.Sub(s.Velocity).Len()
	_ = r.errors.Append(dl)
	if dl <= r.cfg.PositionCorrectionThreshold && dv <= r.cfg.VelocityCorrectionThreshold && predicted.Mode == s.Mode {
		return
	}

	r.stats.Corrections++
	r.c.Debugger().Notify(movement.DebugModeNetwork, true, "correcting move %d: location off by %.2f, velocity off by %.2f", s.Sequence, dl, dv)
	r.log.Debug("prediction corrected", "sequence", s.Sequence, "location_error", dl, "velocity_error", dv, "pending", r.moves.Len())

	r.c.SetLocation(s.Location)
	r.c.SetRotation(s.Rotation)
	if r.c.Mode() != s.Mode {
		r.c.SetMode(s.Mode)
	}
	r.c.SetVelocity(s.Velocity)
	r.applySettings(s)

	r.c.Replay(func() {
		for _, m := range r.moves.Pending() {
			r.applyInput(m.Input, m.Flags, m.MaxWalkSpeed)
			res := r.c.Tick(m.DeltaTime, movement.RoleAutonomousProxy)
			m.Location, m.Velocity, m.Mode = res.Location, res.Velocity, res.Mode
			r.moves.Update(m)
			r.stats.Replayed++
		}
	})
}

func (r *Reconciler) applyInput(acceleration mgl64.Vec3, flags Flags, maxWalkSpeed float64) {
	r.c.SetInputAcceleration(acceleration)
	r.c.SetCrouch(flags.Has(FlagCrouch))
	if flags.Has(FlagJump) {
		r.c.Jump()
	} else {
		r.c.StopJumping()
	}
	if flags.Has(FlagSettingsChanged) {
		r.c.RequestMaxWalkSpeed(maxWalkSpeed)
	}
}

func (r *Reconciler) applySettings(s *Snapshot) {
	if !s.Flags.Has(FlagSettingsChanged) {
		return
	}
	cfg := r.c.Config()
	cfg.MaxWalkSpeed = s.MaxWalkSpeed
	r.c.SetConfig(cfg)
}

// state returns the current state of the component without ticking it.
func (r *Reconciler) state() movement.TickResult {
	return movement.TickResult{
		Location: r.c.Location(),
		Velocity: r.c.Velocity(),
		Rotation: r.c.Rotation(),
		Mode:     r.c.Mode(),
	}
}

func (r *Reconciler) sendSnapshot(res movement.TickResult, flags Flags) {
	s := Snapshot{
		Sequence:     r.seq,
		Timestamp:    int64(r.time * 1e6),
		Location:     res.Location,
		Rotation:     res.Rotation,
		Velocity:     res.Velocity,
		Acceleration: r.c.Acceleration(),
		Mode:         res.Mode,
		Flags:        flags &^ FlagCrouch,
	}
	if r.c.Crouching() {
		s.Flags |= FlagCrouch
	}
	if s.Flags.Has(FlagSettingsChanged) {
		s.MaxWalkSpeed = r.c.Config().MaxWalkSpeed
	}
	if s.Mode == movement.ModeRagdoll && r.ragdoll != nil {
		s.Target = r.ragdoll.Target()
	}
	r.send(&s)
}

func (r *Reconciler) send(m Message) {
	if r.t == nil {
		return
	}
	b, err := Encode(m)
	if err != nil {
		r.log.Error("error encoding message", "kind", m.Kind(), "err", err)
		return
	}
	r.record(b)
	if err := r.t.Send(b); err != nil {
		r.stats.SendErrors++
		r.log.Debug("error sending message", "kind", m.Kind(), "err", err)
		return
	}
	r.stats.Sent++
}

// poll handles every frame waiting on the transport without blocking.
func (r *Reconciler) poll() {
	if r.t == nil {
		return
	}
	ch := r.t.Receive()
	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return
			}
			r.handleFrame(b)
		default:
			return
		}
	}
}

func (r *Reconciler) handleFrame(b []byte) {
	sum, ok := Checksum(b)
	if ok && r.seenBefore(sum) {
		r.stats.Duplicates++
		return
	}
	m, err := Decode(b)
	if err != nil {
		r.stats.DecodeErrors++
		r.log.Debug("dropped invalid frame", "err", err)
		return
	}
	_ = r.seen.Append(sum)
	r.stats.Received++
	r.record(b)

	switch m := m.(type) {
	case *Snapshot:
		if r.role == movement.RoleAuthority || m.Timestamp <= r.lastTime {
			r.stats.Stale++
			return
		}
		r.lastTime, r.snapshot = m.Timestamp, m
	case *Move:
		if r.role != movement.RoleAuthority {
			return
		}
		r.remote = true
		r.inbox = append(r.inbox, *m)
	case *Event:
		r.c.Debugger().Notify(movement.DebugModeNetwork, true, "event %v", m.Type)
		r.h.HandleEvent(*m)
	}
}

func (r *Reconciler) seenBefore(sum uint64) bool {
	for s := range r.seen.All() {
		if s == sum {
			return true
		}
	}
	return false
}

func (r *Reconciler) record(b []byte) {
	if r.rec == nil {
		return
	}
	if err := r.rec.Write(b); err != nil {
		r.log.Error("error recording frame", "err", err)
	}
}
