package session

import (
	"math"

	"github.com/arenabot/shotfinder/internal/analyzer"
	"github.com/arenabot/shotfinder/internal/car"
	"github.com/arenabot/shotfinder/internal/ground"
	"github.com/arenabot/shotfinder/internal/physics"
	"github.com/arenabot/shotfinder/internal/shot"
	"github.com/arenabot/shotfinder/internal/vec"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// strayDistance is how far from its nearest path sample a car may be
	// before the path is abandoned.
	strayDistance = 300.0
	// minSteerSpeed is the slowest speed the steering lookahead plans for.
	minSteerSpeed = 500.0
	// accelerationGrace is added to the time left when checking the car can
	// still cover the rest of the path.
	accelerationGrace = 0.1
)

// reach runs the reachability check on an accepted ground path.
func reach(a analyzer.Analyzer, c *car.Car, info ground.TargetInfo, slice core.BallSlice, idx int) shot.Shot {
	t := slice.Time - c.GameTime
	slack, ok := info.CanReach(c, t, a.MaxSpeed(idx))
	if !ok {
		return nil
	}
	return shot.NewGroundBased(slice.Time, slice.Location.Vec(), info, slack)
}

// DataForShotWithTarget returns what a controller needs to follow the
// target's stored shot from where the car is now.
func (s *Session) DataForShotWithTarget(i int) (core.AdvancedShotInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.target(i)
	if err != nil {
		return core.AdvancedShotInfo{}, err
	}
	if target.Shot == nil {
		return core.AdvancedShotInfo{}, ErrNoShot
	}
	sh := target.Shot

	timeRemaining := sh.Time() - s.gameTime
	if timeRemaining < 0 {
		return core.AdvancedShotInfo{}, ErrNoTimeRemaining
	}

	c, err := s.car(target.CarIndex)
	if err != nil {
		return core.AdvancedShotInfo{}, err
	}
	if s.prediction.Empty() {
		return core.AdvancedShotInfo{}, ErrNoSlices
	}

	sliceNum := s.prediction.IndexAt(s.gameTime, sh.Time())
	ball := s.prediction.At(sliceNum).Location.Vec()
	if ball.Sub(sh.BallLocation()).Len() > c.Hitbox.Width {
		return core.AdvancedShotInfo{}, ErrBallChanged
	}

	switch sh := sh.(type) {
	case *shot.GroundBased:
		info, err := groundData(c, sh)
		if err != nil {
			return core.AdvancedShotInfo{}, err
		}
		if len(c.SliceMaxSpeeds) != s.prediction.Len() {
			c.Init(s.prediction.Len())
		}
		if c.SliceMaxSpeed(sliceNum)*(timeRemaining+accelerationGrace) < info.DistanceRemaining {
			return core.AdvancedShotInfo{}, ErrBadAcceleration
		}
		return info, nil
	case *shot.AirBased:
		return airData(c, sh)
	default:
		panic("session: unknown shot type")
	}
}

func groundData(c *car.Car, sh *shot.GroundBased) (core.AdvancedShotInfo, error) {
	samples := sh.Samples
	seg, idx := samples.Nearest(c.Location)
	current := samples.Point(seg, idx)
	if current.Sub(vec.Flat(c.Location)).Len() > strayDistance {
		return core.AdvancedShotInfo{}, ErrStrayedFromPath
	}

	along, global := samples.DistanceAlong(seg, idx)
	lookahead := math.Max(c.LocalVelocity[0], minSteerSpeed) * physics.SteerReactionTime
	pathLength := sh.Info.PathLength()

	var steer mgl64.Vec3
	if along+lookahead > pathLength {
		direction := vec.NormalizeOrZero(vec.Flat(sh.Info.ShotVector))
		steer = samples.End.Add(direction.Mul(along + lookahead - pathLength))
	} else {
		q := sh.Info.Path.Sample(along + lookahead)
		steer = mgl64.Vec3{q.X, q.Y, 0}
	}

	info := core.AdvancedShotInfo{
		ShotVector:        core.FromVec(sh.Info.ShotVector),
		FinalTarget:       core.FromVec(steer),
		DistanceRemaining: pathLength + sh.Info.Distances[3] - along,
		PathSamples:       shot.Flatten(samples.All[min(global/shot.AllStep, len(samples.All)):]),
		CurrentPathPoint:  core.FromVec(current),
	}
	if sh.Info.HasJump {
		jt := sh.Info.JumpTime
		info.RequiredJumpTime = &jt
	}
	return info, nil
}

// airData aims at the contact point. Strategies planned from the air are
// abandoned once the car is back on the ground.
func airData(c *car.Car, sh *shot.AirBased) (core.AdvancedShotInfo, error) {
	if !sh.Info.Strategy.Grounded() && !c.Airborne {
		return core.AdvancedShotInfo{}, ErrStrayedFromPath
	}
	return core.AdvancedShotInfo{
		ShotVector:        core.FromVec(sh.Info.ShotVector),
		FinalTarget:       core.FromVec(sh.Info.Target),
		DistanceRemaining: sh.Info.Target.Sub(c.Location).Len(),
		PathSamples:       [][2]float64{},
		CurrentPathPoint:  core.FromVec(c.Location),
	}, nil
}
