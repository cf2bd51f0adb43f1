package movement

const (
	// MinFloorDist and MaxFloorDist bound the gap kept between a walking capsule and its floor.
	MinFloorDist = 1.9
	MaxFloorDist = 2.4
	// SweepEdgeRejectDistance shrinks floor sweeps away from the capsule rim.
	SweepEdgeRejectDistance = 0.15
	// BrakeToStopVelocity is the speed under which braking stops the agent outright.
	BrakeToStopVelocity = 10.0
	// MinTickTime is the smallest time step any physics routine integrates.
	MinTickTime = 1e-6
	// VerticalSlopeNormalZ is the largest up component of a normal still treated as a wall.
	VerticalSlopeNormalZ = 0.001
	// MaxStepSideZ is the largest up component of a step face that still counts as a side.
	MaxStepSideZ = 0.08

	// floorNormalTolerance keeps slides from using a floor normal parallel to up.
	floorNormalTolerance = 1e-5
	// stepHeightTolerance absorbs rounding in the step height comparison.
	stepHeightTolerance = 1e-4
	// simulatedLandingDot is the velocity/gravity alignment above which proxies scan for floors.
	simulatedLandingDot = -0.2
)
