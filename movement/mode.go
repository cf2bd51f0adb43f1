package movement

import "fmt"

// Mode is the active movement mode of an agent. Exactly one is active at a time.
type Mode uint8

const (
	ModeNone Mode = iota
	ModeWalking
	ModeFalling
	ModeFlying
	ModeSwimming
	ModeRagdoll
	ModeMantling
	ModeCustom
)

// String ...
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeWalking:
		return "walking"
	case ModeFalling:
		return "falling"
	case ModeFlying:
		return "flying"
	case ModeSwimming:
		return "swimming"
	case ModeRagdoll:
		return "ragdoll"
	case ModeMantling:
		return "mantling"
	case ModeCustom:
		return "custom"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m <= ModeCustom
}

// MovingOnGround reports whether the mode keeps the agent on a floor.
func (m Mode) MovingOnGround() bool {
	return m == ModeWalking
}

// Role is the network role of the instance ticking an agent.
type Role uint8

const (
	// RoleAuthority owns the true simulation result.
	RoleAuthority Role = iota
	// RoleAutonomousProxy predicts locally and reports moves to the authority.
	RoleAutonomousProxy
	// RoleSimulatedProxy replays replicated state without predicting.
	RoleSimulatedProxy
)

// String ...
func (r Role) String() string {
	switch r {
	case RoleAuthority:
		return "authority"
	case RoleAutonomousProxy:
		return "autonomous_proxy"
	case RoleSimulatedProxy:
		return "simulated_proxy"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// RunsPhysics reports whether the role integrates full physics.
func (r Role) RunsPhysics() bool {
	return r == RoleAuthority || r == RoleAutonomousProxy
}
