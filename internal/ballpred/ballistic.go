package ballpred

import (
	"math"

	"github.com/arenabot/shotfinder/internal/arena"
	"github.com/arenabot/shotfinder/internal/physics"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Ballistic integrates gravity and drag and bounces the ball off the floor,
// ceiling and walls of an axis-aligned arena box. Balls that enter a goal mouth
// carry on to the back of the net.
type Ballistic struct {
	Arena arena.Arena
}

// NewBallistic returns a predictor for the given arena.
func NewBallistic(a arena.Arena) *Ballistic {
	return &Ballistic{Arena: a}
}

// Predict steps the ball forward for horizon seconds. The first slice is one
// tick after the ball's time.
func (b *Ballistic) Predict(ball Ball, gravity, horizon float64) Prediction {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if ball.Radius <= 0 {
		ball.Radius = b.Arena.Ball.Radius
	}

	n := int(math.Round(horizon * physics.TicksPerSecond))
	slices := make([]core.BallSlice, 0, n)

	pos, vel := ball.Location, ball.Velocity
	g := mgl64.Vec3{0, 0, gravity}
	for i := 1; i <= n; i++ {
		vel = b.integrate(vel, g)
		pos = pos.Add(vel.Mul(physics.SimulationDT))
		pos, vel = b.collide(pos, vel, ball.Radius)

		slices = append(slices, core.BallSlice{
			Time:            ball.Time + float64(i)*physics.SimulationDT,
			Location:        core.FromVec(pos),
			Velocity:        core.FromVec(vel),
			AngularVelocity: core.FromVec(ball.AngularVelocity),
		})
	}
	return Prediction{Slices: slices, Radius: ball.Radius}
}

func (b *Ballistic) integrate(vel, g mgl64.Vec3) mgl64.Vec3 {
	vel = vel.Add(g.Mul(physics.SimulationDT))
	vel = vel.Mul(1 - b.Arena.Ball.Drag*physics.SimulationDT)
	if limit := b.Arena.Ball.MaxSpeed; limit > 0 {
		if s := vel.Len(); s > limit {
			vel = vel.Mul(limit / s)
		}
	}
	return vel
}

func (b *Ballistic) inGoalMouth(pos mgl64.Vec3, r float64) bool {
	goal := b.Arena.Field.Goal
	if goal.HalfWidth <= 0 {
		return false
	}
	return math.Abs(pos[0]) < goal.HalfWidth-r && pos[2] < goal.Height-r
}

func (b *Ballistic) collide(pos, vel mgl64.Vec3, r float64) (mgl64.Vec3, mgl64.Vec3) {
	f := b.Arena.Field

	if pos[2] < r {
		pos[2] = r
		vel = b.bounce(vel, mgl64.Vec3{0, 0, 1})
	}
	if f.Ceiling > 0 && pos[2] > f.Ceiling-r {
		pos[2] = f.Ceiling - r
		vel = b.bounce(vel, mgl64.Vec3{0, 0, -1})
	}
	if pos[0] > f.HalfWidth-r {
		pos[0] = f.HalfWidth - r
		vel = b.bounce(vel, mgl64.Vec3{-1, 0, 0})
	} else if pos[0] < -f.HalfWidth+r {
		pos[0] = -f.HalfWidth + r
		vel = b.bounce(vel, mgl64.Vec3{1, 0, 0})
	}

	backWall := f.HalfLength
	if math.Abs(pos[1]) > backWall-r && b.inGoalMouth(pos, r) {
		backWall += f.Goal.Depth
	}
	if pos[1] > backWall-r {
		pos[1] = backWall - r
		vel = b.bounce(vel, mgl64.Vec3{0, -1, 0})
	} else if pos[1] < -backWall+r {
		pos[1] = -backWall + r
		vel = b.bounce(vel, mgl64.Vec3{0, 1, 0})
	}
	return pos, vel
}

// bounce reflects the normal component with restitution and applies a
// Coulomb friction impulse to the tangential part.
func (b *Ballistic) bounce(vel, normal mgl64.Vec3) mgl64.Vec3 {
	vn := vel.Dot(normal)
	if vn >= 0 {
		return vel
	}
	tangent := vel.Sub(normal.Mul(vn))
	impulse := (1 + b.Arena.Ball.Restitution) * -vn

	if ts := tangent.Len(); ts > 0 {
		loss := math.Min(b.Arena.Ball.Friction*impulse, ts)
		tangent = tangent.Mul((ts - loss) / ts)
	}
	return tangent.Add(normal.Mul(-vn * b.Arena.Ball.Restitution))
}
