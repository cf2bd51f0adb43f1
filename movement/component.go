package movement

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/gravity"
	"github.com/oomph-ac/locomotion/omath"
)

// ModeDriver integrates a mode the component has no built-in physics for, such as ragdoll or
// mantling. Drivers run inside the dispatch loop and may request a mode change with SetMode,
// which takes effect once the driver returns.
type ModeDriver interface {
	Phys(c *Component, dt float64)
}

// Option configures a Component on creation.
type Option func(c *Component)

// WithDebugger routes trace output of the component through d.
func WithDebugger(d *Debugger) Option {
	return func(c *Component) {
		c.dbg = d
	}
}

// WithObserver registers o before the first tick.
func WithObserver(o Observer) Option {
	return func(c *Component) {
		c.observers = append(c.observers, o)
	}
}

// WithDriver registers the driver integrating mode.
func WithDriver(mode Mode, d ModeDriver) Option {
	return func(c *Component) {
		c.drivers[mode] = d
	}
}

// WithFilter sets the collision filter used for every query of the component.
func WithFilter(f collision.Filter) Option {
	return func(c *Component) {
		c.collision.Filter = f
	}
}

// WithTransform places the component.
func WithTransform(location mgl64.Vec3, rotation mgl64.Quat) Option {
	return func(c *Component) {
		c.location, c.rotation = location, rotation.Normalize()
	}
}

// WithRand sets the random source used for ditch escapes. Tests pass a seeded source to keep
// runs reproducible.
func WithRand(r *rand.Rand) Option {
	return func(c *Component) {
		c.rng = r
	}
}

// Component is the capsule state of a single agent together with the integrator moving it. It is
// not safe for concurrent use: all methods must be called from the goroutine ticking the agent.
type Component struct {
	cfg       Config
	collision collision.Adapter
	frame     gravity.Frame

	location     mgl64.Vec3
	rotation     mgl64.Quat
	velocity     mgl64.Vec3
	acceleration mgl64.Vec3
	analogInput  float64

	mode        Mode
	pendingMode Mode
	modePending bool
	dispatching bool

	floor         FloorResult
	base          collision.Component
	baseTransform omath.Transform

	requestedVelocity    mgl64.Vec3
	hasRequestedVelocity bool
	requestedAtMaxSpeed  bool

	pendingForce   mgl64.Vec3
	pendingImpulse mgl64.Vec3
	pendingLaunch  mgl64.Vec3
	hasLaunch      bool

	pressedJump   bool
	notifyApex    bool
	wantsToCrouch bool
	crouching     bool

	requestedMaxWalkSpeed float64
	settingsChangePending bool

	forceNextFloorCheck bool
	justTeleported      bool
	collisionEnabled    bool
	zeroGFlying         bool
	replaying           bool
	lastUpdateLocation  mgl64.Vec3

	networkUpdateReceived bool
	networkModeChanged    bool
	hadNetworkUpdate      bool
	replicatedMode        Mode

	drivers   map[Mode]ModeDriver
	observers []Observer
	dbg       *Debugger
	diag      Diagnostics
	rng       *rand.Rand

	role Role
	tick tickStats
}

// tickStats collects what happened during the current tick for the TickResult.
type tickStats struct {
	iterations      int
	budgetExhausted bool
	stuck           bool
	nanClamped      bool
	settingsChanged bool
	jumped          bool
}

// New returns a component using cfg that queries the world through q. The component starts in
// ModeFalling at the origin with an identity rotation; callers place it with WithTransform or
// SetLocation and pick an initial mode with SetMode.
func New(cfg Config, q collision.Query, opts ...Option) *Component {
	c := &Component{
		cfg:              cfg,
		collision:        collision.Adapter{Query: q, Filter: collision.Filter{Channel: collision.ChannelPawn}},
		rotation:         mgl64.QuatIdent(),
		analogInput:      1,
		mode:             ModeFalling,
		collisionEnabled: true,
		drivers:          make(map[Mode]ModeDriver),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	c.lastUpdateLocation = c.location
	return c
}

// Config returns the active configuration.
func (c *Component) Config() Config {
	return c.cfg
}

// SetConfig replaces the configuration. The capsule is not swept to fit a new size.
func (c *Component) SetConfig(cfg Config) {
	c.cfg = cfg
	c.forceNextFloorCheck = true
}

// Collision returns the collision adapter of the component.
func (c *Component) Collision() collision.Adapter {
	return c.collision
}

// Frame returns the gravity frame of the component.
func (c *Component) Frame() gravity.Frame {
	return c.frame
}

// Location returns the capsule center.
func (c *Component) Location() mgl64.Vec3 {
	return c.location
}

// SetLocation teleports the capsule without sweeping.
func (c *Component) SetLocation(location mgl64.Vec3) {
	c.location = location
	c.justTeleported = true
	c.forceNextFloorCheck = true
}

// Rotation returns the capsule orientation.
func (c *Component) Rotation() mgl64.Quat {
	return c.rotation
}

// SetRotation sets the capsule orientation without sweeping.
func (c *Component) SetRotation(rotation mgl64.Quat) {
	c.rotation = rotation.Normalize()
}

// Velocity returns the current velocity.
func (c *Component) Velocity() mgl64.Vec3 {
	return c.velocity
}

// SetVelocity overrides the current velocity.
func (c *Component) SetVelocity(v mgl64.Vec3) {
	c.velocity = v
}

// Acceleration returns the input acceleration used by the last tick.
func (c *Component) Acceleration() mgl64.Vec3 {
	return c.acceleration
}

// Mode returns the committed movement mode. A change requested during dispatch only shows up
// here once the dispatch loop applied it.
func (c *Component) Mode() Mode {
	return c.mode
}

// Floor returns the current floor.
func (c *Component) Floor() FloorResult {
	return c.floor
}

// Base returns the body the agent stands on, or nil.
func (c *Component) Base() collision.Component {
	return c.base
}

// Diagnostics returns the anomaly counters of the component.
func (c *Component) Diagnostics() Diagnostics {
	return c.diag
}

// Debugger returns the debugger of the component, which may be nil.
func (c *Component) Debugger() *Debugger {
	return c.dbg
}

// CollisionEnabled reports whether the capsule collides with the world.
func (c *Component) CollisionEnabled() bool {
	return c.collisionEnabled
}

// SetCollisionEnabled toggles capsule collision. Without collision moves teleport and no floor
// is ever found.
func (c *Component) SetCollisionEnabled(enabled bool) {
	c.collisionEnabled = enabled
}

// RegisterDriver sets the driver integrating mode. A nil driver removes it.
func (c *Component) RegisterDriver(mode Mode, d ModeDriver) {
	if d == nil {
		delete(c.drivers, mode)
		return
	}
	c.drivers[mode] = d
}

// Random returns the random source of the component.
func (c *Component) Random() *rand.Rand {
	return c.rng
}

// CapsuleUp returns the up axis of the capsule, which trails the gravity frame while the
// orientation is being smoothed.
func (c *Component) CapsuleUp() mgl64.Vec3 {
	return omath.UpOf(c.rotation)
}

// Shape returns the collision shape of the capsule in its current orientation.
func (c *Component) Shape() collision.Shape {
	return collision.Capsule(c.cfg.CapsuleRadius, c.cfg.CapsuleHalfHeight, c.CapsuleUp())
}

// Transform returns the capsule transform.
func (c *Component) Transform() omath.Transform {
	return omath.NewTransform(c.location, c.rotation)
}

// GravityDirection returns the unit gravity direction, or zero in zero-g. A negative gravity
// scale flips the direction.
func (c *Component) GravityDirection() mgl64.Vec3 {
	if c.cfg.GravityScale == 0 {
		return mgl64.Vec3{}
	}
	dir := c.frame.Direction()
	if c.cfg.GravityScale < 0 {
		dir = dir.Mul(-1)
	}
	return dir
}

// Gravity returns the gravity acceleration acting on the agent.
func (c *Component) Gravity() mgl64.Vec3 {
	if c.frame.ZeroG() {
		return mgl64.Vec3{}
	}
	return c.frame.Gravity(-abs(c.cfg.GravityZ), c.cfg.GravityScale)
}

// MaxSpeed returns the speed limit of the current mode.
func (c *Component) MaxSpeed() float64 {
	switch c.mode {
	case ModeWalking:
		if c.crouching {
			return c.cfg.MaxWalkSpeedCrouched
		}
		return c.cfg.MaxWalkSpeed
	case ModeFalling:
		return c.cfg.MaxWalkSpeed
	case ModeSwimming:
		return c.cfg.MaxSwimSpeed
	case ModeFlying:
		return c.cfg.MaxFlySpeed
	case ModeCustom, ModeMantling, ModeRagdoll:
		return c.cfg.MaxCustomMovementSpeed
	default:
		return 0
	}
}

// maxBrakingDeceleration returns the braking deceleration of the current mode.
func (c *Component) maxBrakingDeceleration() float64 {
	switch c.mode {
	case ModeWalking:
		return c.cfg.BrakingDecelerationWalking
	case ModeFalling:
		return c.cfg.BrakingDecelerationFalling
	case ModeSwimming:
		return c.cfg.BrakingDecelerationSwimming
	case ModeFlying:
		return c.cfg.BrakingDecelerationFlying
	default:
		return 0
	}
}

// next returns the mode the component is heading to: the pending mode if one was requested
// during dispatch, otherwise the committed one.
func (c *Component) next() Mode {
	if c.modePending {
		return c.pendingMode
	}
	return c.mode
}

// transaction captures the capsule state before a sequence of moves so the sequence can be
// rolled back as a whole.
type transaction struct {
	c        *Component
	location mgl64.Vec3
	rotation mgl64.Quat
	velocity mgl64.Vec3
	floor    FloorResult
}

func (c *Component) begin() transaction {
	return transaction{c: c, location: c.location, rotation: c.rotation, velocity: c.velocity, floor: c.floor}
}

// revert restores the captured state.
func (t transaction) revert() {
	t.c.location, t.c.rotation, t.c.velocity, t.c.floor = t.location, t.rotation, t.velocity, t.floor
}

// move sweeps the capsule by delta and leaves it where the sweep stopped.
func (c *Component) move(delta mgl64.Vec3) collision.Hit {
	start := c.location
	if !c.collisionEnabled {
		c.location = start.Add(delta)
		return collision.NoHit(start, c.location)
	}
	to, hit := c.collision.Move(c.Shape(), start, delta)
	c.location = to
	return hit
}

// safeMove sweeps the capsule by delta. If the capsule starts inside geometry it is pushed out
// first and the move is retried once.
func (c *Component) safeMove(delta mgl64.Vec3) collision.Hit {
	hit := c.move(delta)
	if !hit.StartPenetrating {
		return hit
	}
	adjustment := collision.PenetrationAdjustment(hit, c.cfg.MaxDepenetrationWithGeometry)
	if c.resolvePenetration(adjustment, hit) {
		hit = c.move(delta)
	}
	return hit
}

// resolvePenetration tries to push the capsule out of the geometry described by hit.
func (c *Component) resolvePenetration(adjustment mgl64.Vec3, hit collision.Hit) bool {
	to, moved := c.collision.ResolvePenetration(c.Shape(), c.location, adjustment, hit, c.cfg.MaxDepenetrationWithGeometry)
	if moved {
		c.dbg.Notify(DebugModeStep, true, "resolved penetration by %v", to.Sub(c.location))
		c.location = to
		c.diag.PenetrationsResolved++
	}
	return moved
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
