package ground

import (
	"github.com/arenabot/shotfinder/internal/dubins"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// TargetInfo is an accepted ground path. Distances are the three path
// segments followed by the straight final approach.
type TargetInfo struct {
	Distances  [4]float64
	Path       dubins.Path
	ShotType   core.ShotType
	JumpTime   float64
	HasJump    bool
	IsForwards bool
	ShotVector mgl64.Vec3
	// TurnTargets are the primary and secondary turn exit points of a
	// single-turn path, when one was planned.
	TurnTargets    [2]mgl64.Vec3
	HasTurnTargets bool
	WaitForLand    bool
}

// PathLength is the length of the curved part of the path.
func (ti TargetInfo) PathLength() float64 {
	return ti.Distances[0] + ti.Distances[1] + ti.Distances[2]
}

// TotalDistance includes the final approach.
func (ti TargetInfo) TotalDistance() float64 {
	return ti.PathLength() + ti.Distances[3]
}

// BasicShotInfo reports the path as a found shot at time t.
func (ti TargetInfo) BasicShotInfo(t float64) core.BasicShotInfo {
	return core.BasicShotInfo{
		Found:      true,
		Time:       t,
		ShotType:   ti.ShotType,
		ShotVector: core.FromVec(ti.ShotVector),
		IsForwards: ti.IsForwards,
	}
}
