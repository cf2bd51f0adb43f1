package mantle

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/omath"
)

const (
	// capsuleBaseOffset is the gap kept between the capsule bottom and the ledge.
	capsuleBaseOffset = 2.0
	// forwardTraceBackOffset moves the forward trace behind the capsule so walls touching it
	// are still found.
	forwardTraceBackOffset = 30.0
	// downwardTraceInset is how far past the wall face the ledge is searched for.
	downwardTraceInset = 15.0
)

// Controller detects ledges in front of an agent and drives the capsule over them while the
// agent is in movement.ModeMantling. It registers itself as the driver of that mode.
type Controller struct {
	movement.NopObserver

	c   *movement.Component
	cfg Config
	log *slog.Logger

	active bool
	params Params
	up     mgl64.Vec3

	curve            VectorCurve
	startingPosition float64
	ledgeLocal       Ledge

	target              omath.Transform
	actualStartOffset   omath.Transform
	animatedStartOffset omath.Transform

	clock Clock
}

// New returns a controller for c. A nil logger uses slog.Default.
func New(c *movement.Component, cfg Config, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	m := &Controller{c: c, cfg: cfg, log: log}
	c.RegisterDriver(movement.ModeMantling, m)
	c.AddObserver(m)
	return m
}

// Active reports whether a mantle is in progress.
func (m *Controller) Active() bool {
	return m.active
}

// Params returns the parameters of the current or last mantle.
func (m *Controller) Params() Params {
	return m.params
}

// Clock returns the progress of the current mantle.
func (m *Controller) Clock() Clock {
	return m.clock
}

// Target returns the current world transform the mantle ends at.
func (m *Controller) Target() omath.Transform {
	return m.target
}

// TraceSettings returns the settings Check should use for the current mode of the agent.
func (m *Controller) TraceSettings() TraceSettings {
	if m.c.Mode() == movement.ModeFalling {
		return m.cfg.Falling
	}
	return m.cfg.Grounded
}

// Check searches for a ledge in the direction of input and starts mantling onto it. It returns
// the mantle that was started, or false if there is nothing to mantle onto.
func (m *Controller) Check(settings TraceSettings, input mgl64.Vec3) (Params, bool) {
	c := m.c
	if m.active || !c.CollisionEnabled() {
		return Params{}, false
	}
	up := c.CapsuleUp()
	dir := omath.SafeNormal(omath.PlaneProject(input, up))
	if omath.IsZero(dir) {
		return Params{}, false
	}
	q := collision.Adapter{Query: c.Collision().Query, Filter: collision.Filter{
		Channel: collision.ChannelClimbable,
		Ignore:  c.Collision().Filter.Ignore,
	}}
	cfg := c.Config()
	base := c.Location().Sub(up.Mul(cfg.CapsuleHalfHeight + capsuleBaseOffset))

	// Find a wall in front of the agent that cannot be walked on.
	start := base.Add(dir.Mul(-forwardTraceBackOffset)).Add(up.Mul((settings.MaxLedgeHeight + settings.MinLedgeHeight) / 2))
	end := start.Add(dir.Mul(settings.ReachDistance))
	halfHeight := 1 + (settings.MaxLedgeHeight-settings.MinLedgeHeight)/2
	hit := q.Sweep(collision.Capsule(settings.ForwardTraceRadius, halfHeight, up), start, end)
	if !hit.IsValidBlockingHit() || c.IsWalkable(hit) {
		return Params{}, false
	}
	if hit.Component != nil && hit.Component.Velocity().Len() > m.cfg.AcceptableVelocity {
		c.Debugger().Notify(movement.DebugModeMantle, true, "ledge %s moves too fast to mantle", hit.Component.ID())
		return Params{}, false
	}
	wallNormal := hit.ImpactNormal

	// Find a walkable surface on top of the wall.
	downEnd := hit.ImpactPoint.Sub(up.Mul(hit.ImpactPoint.Sub(base).Dot(up)))
	downEnd = downEnd.Sub(omath.PlaneProject(wallNormal, up).Mul(downwardTraceInset))
	downStart := downEnd.Add(up.Mul(settings.MaxLedgeHeight + settings.DownwardTraceRadius + 1))
	hit = q.Sweep(collision.Sphere(settings.DownwardTraceRadius), downStart, downEnd)
	if !c.IsWalkable(hit) {
		return Params{}, false
	}
	ledgeBase := hit.Location.Sub(up.Mul(hit.Location.Sub(hit.ImpactPoint).Dot(up)))

	// The capsule must fit on top of the ledge.
	location := ledgeBase.Add(up.Mul(cfg.CapsuleHalfHeight + capsuleBaseOffset))
	if !c.Collision().HasRoom(c.Shape(), location) {
		c.Debugger().Notify(movement.DebugModeMantle, true, "no room to stand on ledge at %v", location)
		return Params{}, false
	}

	facing := omath.SafeNormal(omath.PlaneProject(wallNormal.Mul(-1), up))
	if omath.IsZero(facing) {
		facing = dir
	}
	params := Params{
		Height: location.Sub(c.Location()).Dot(up),
		Ledge: Ledge{
			Component: hit.Component,
			Transform: omath.NewTransform(location, omath.QuatFromXZ(facing, up)),
		},
	}
	switch {
	case c.Mode() == movement.ModeFalling:
		params.Type = TypeFallingCatch
	case params.Height > m.cfg.HighThreshold:
		params.Type = TypeHighMantle
	default:
		params.Type = TypeLowMantle
	}
	if !m.Start(params) {
		return Params{}, false
	}
	return params, true
}

// Start begins mantling onto the ledge described by p. Starting while a mantle is in progress
// is a no-op and returns false.
func (m *Controller) Start(p Params) bool {
	if m.active {
		return false
	}
	c := m.c
	asset := m.cfg.asset(p.Type)

	m.params = p
	m.curve = asset.Curve
	m.startingPosition = omath.MapRangeClamped(p.Height, asset.LowHeight, asset.HighHeight, asset.LowStartPosition, asset.HighStartPosition)
	playRate := omath.MapRangeClamped(p.Height, asset.LowHeight, asset.HighHeight, asset.LowPlayRate, asset.HighPlayRate)

	// The ledge is followed in the local space of its body so moving platforms stay correct.
	m.ledgeLocal = WorldToLocal(p.Ledge)
	m.up = c.CapsuleUp()
	m.target = p.Ledge.Transform
	m.actualStartOffset = c.Transform().Sub(m.target)

	offset := omath.ForwardOf(m.target.Rotation).Mul(asset.StartingOffset.Y())
	offset = omath.PlaneProject(offset, m.up).Add(m.up.Mul(asset.StartingOffset.Z()))
	animatedStart := omath.NewTransform(m.target.Location.Sub(offset), m.target.Rotation)
	m.animatedStartOffset = animatedStart.Sub(m.target)

	c.SetVelocity(mgl64.Vec3{})
	c.SetMode(movement.ModeMantling)
	m.active = true

	_, end := m.curve.TimeRange()
	m.clock.Play(end-m.startingPosition, playRate)

	m.log.Debug("mantle started", "type", p.Type.String(), "height", p.Height, "length", m.clock.Length, "rate", m.clock.Rate)
	return true
}

// Update moves the capsule to the blended mantle transform. blendIn fades from the actual
// start of the capsule into the curve driven blend.
func (m *Controller) Update(blendIn float64) {
	if !m.active {
		return
	}
	m.target = LocalToWorld(m.ledgeLocal)

	alphas := m.curve.Sample(m.startingPosition + m.clock.Position)
	positionAlpha, horizontalAlpha, verticalAlpha := alphas.X(), alphas.Y(), alphas.Z()

	actual, animated := m.actualStartOffset, m.animatedStartOffset

	// Horizontal and vertical offsets are blended towards the animated start independently.
	horizontalTarget := omath.Transform{
		Location: m.withVertical(animated.Location, actual.Location),
		Rotation: animated.Rotation,
		Scale:    animated.Scale,
	}
	horizontal := actual.Lerp(horizontalTarget, horizontalAlpha)

	verticalTarget := omath.Transform{
		Location: m.withVertical(actual.Location, animated.Location),
		Rotation: actual.Rotation,
		Scale:    actual.Scale,
	}
	vertical := actual.Lerp(verticalTarget, verticalAlpha)

	corrected := omath.Transform{
		Location: m.withVertical(horizontal.Location, vertical.Location),
		Rotation: horizontal.Rotation,
		Scale:    horizontal.Scale,
	}
	result := m.target.Add(corrected).Lerp(m.target, positionAlpha)
	result = m.target.Add(actual).Lerp(result, blendIn)

	m.c.SetLocation(result.Location)
	m.c.SetRotation(result.Rotation)
}

// withVertical returns the planar part of planar combined with the vertical part of vertical.
func (m *Controller) withVertical(planar, vertical mgl64.Vec3) mgl64.Vec3 {
	return omath.PlaneProject(planar, m.up).Add(omath.ProjectOnto(vertical, m.up))
}

// Tick advances the mantle by dt and ends it once the clock ran out.
func (m *Controller) Tick(dt float64) {
	if !m.active {
		return
	}
	done := m.clock.Advance(dt)
	m.Update(m.cfg.BlendIn.Sample(m.clock.Position))
	if done {
		m.End()
	}
}

// Phys ...
func (m *Controller) Phys(_ *movement.Component, dt float64) {
	m.Tick(dt)
}

// Stop cancels the mantle without moving the capsule or changing the mode.
func (m *Controller) Stop() {
	if !m.active {
		return
	}
	m.active = false
	m.clock.Stop()
	m.log.Debug("mantle cancelled", "type", m.params.Type.String(), "position", m.clock.Position)
}

// End finishes the mantle and returns the agent to walking.
func (m *Controller) End() {
	if !m.active {
		return
	}
	m.active = false
	m.clock.Stop()
	m.c.SetMode(movement.ModeWalking)
}

// HandleModeChange stops the mantle when another mode takes over the capsule.
func (m *Controller) HandleModeChange(_ *movement.Component, previous, current movement.Mode) {
	if previous == movement.ModeMantling && current != movement.ModeMantling {
		m.Stop()
	}
}
