package agent

// BreakfallMontage is played when an agent lands hard while moving.
const BreakfallMontage = "Breakfall"

type landing struct {
	speed    float64
	hasInput bool
}

// react answers the landing of the last tick with a ragdoll, a breakfall or a short change of
// braking friction.
func (a *Agent) react() {
	l := a.landing
	a.landing = nil
	if l == nil || a.ragdoll.Active() {
		return
	}
	s := a.s.Locomotion
	switch {
	case s.RagdollOnLand && l.speed > s.RagdollOnLandVelocity:
		a.StartRagdoll()
	case s.BreakfallOnLand && l.hasInput && l.speed >= s.BreakfallOnLandVelocity:
		a.PlayMontage(BreakfallMontage, 1.35)
	case s.LandingFrictionTime > 0:
		friction := s.LandingFrictionWithoutInput
		if l.hasInput {
			friction = s.LandingFrictionWithInput
		}
		a.c.SetBrakingFrictionFactor(friction)
		a.frictionLeft = s.LandingFrictionTime
	}
}

// restoreFriction puts the configured braking friction back once the landing friction ran out.
func (a *Agent) restoreFriction(dt float64) {
	if a.frictionLeft <= 0 {
		return
	}
	if a.frictionLeft -= dt; a.frictionLeft <= 0 {
		a.c.SetBrakingFrictionFactor(a.s.Movement.BrakingFrictionFactor)
	}
}
