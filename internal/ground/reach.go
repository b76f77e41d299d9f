package ground

import (
	"math"

	"github.com/arenabot/shotfinder/internal/car"
	"github.com/arenabot/shotfinder/internal/physics"
)

// Reach describes one reachability question.
type Reach struct {
	Distances  [4]float64
	Straight   bool // the middle path segment is a straight line
	MaxTime    float64
	MaxSpeed   float64
	IsForwards bool
	// WaitForLand spends the car's time to land before driving.
	WaitForLand bool
}

// regime is the control choice for one tick.
type regime int

const (
	regimeBrake regime = iota
	regimeCoast
	regimeThrottle
	regimeBoost
	regimeNeutral
)

func classify(accel, throttleAccel float64, boostAccel float64, canBoost bool) regime {
	boostTransition := throttleAccel + 0.5*boostAccel
	switch {
	case accel <= physics.BrakeCoastTransition:
		return regimeBrake
	case accel < physics.CoastingThrottleTransition:
		return regimeCoast
	case accel <= boostTransition:
		return regimeThrottle
	case canBoost:
		return regimeBoost
	default:
		return regimeNeutral
	}
}

// CanReach simulates the car driving the path one tick at a time and
// returns the time to spare on arrival. ok is false when the car cannot make
// it in time.
func CanReach(c *car.Car, r Reach) (slack float64, ok bool) {
	dir := 1.0
	if !r.IsForwards {
		dir = -1
	}

	tr := r.MaxTime
	if r.WaitForLand {
		tr -= c.TimeToLand
	}
	b := c.Mutators.UsableBoost(float64(c.Boost))
	v := c.LocalVelocity[0] * dir

	total := r.Distances[0] + r.Distances[1] + r.Distances[2] + r.Distances[3]
	travelled := 0.0
	segEnds := [3]float64{
		r.Distances[0],
		r.Distances[0] + r.Distances[1],
		r.Distances[0] + r.Distances[1] + r.Distances[2],
	}
	final := r.Distances[3]

	boostDT := c.Mutators.BoostAccelDT()
	consumptionDT := physics.BoostConsumption * physics.SimulationDT

	for {
		d := total - travelled
		if d <= final+physics.PathEndTolerance || d <= physics.PathEndTolerance {
			return arrive(d, tr, r.MaxSpeed, r.IsForwards)
		}
		if tr <= 0 {
			return 0, false
		}

		canBoost := r.IsForwards && b >= physics.MinBoostConsumption
		limit := speedLimit(r.MaxSpeed, v, r.IsForwards, canBoost)

		req := d / tr
		if req > limit {
			return 0, false
		}

		seg := segmentAt(travelled, segEnds)

		if seg == 1 && r.Straight && v > 0 && math.Abs(req-v) < physics.OnPaceTolerance {
			// hold the required pace to the end of the straight
			tr -= (segEnds[1] - travelled) / req
			travelled = segEnds[1]
			v = math.Max(v, req)
			continue
		}

		throttleAccel := physics.ThrottleAcceleration(v)
		accel := (req - v) / physics.ReactionTime

		switch classify(accel, throttleAccel, c.Mutators.BoostAccel, canBoost) {
		case regimeBrake:
			v = math.Max(0, v-physics.BrakeAccel*physics.SimulationDT)
		case regimeCoast:
			v = math.Max(0, v-physics.CoastAccel*physics.SimulationDT)
		case regimeThrottle:
			throttle := 1.0
			if throttleAccel != 0 {
				throttle = mathClamp(accel/throttleAccel, 0.02, 1)
			}
			v = drive(v, throttleAccel, throttle)
		case regimeBoost:
			v = drive(v, throttleAccel, 1) + boostDT
			b -= consumptionDT
		case regimeNeutral:
			v = drive(v, throttleAccel, 1)
		}

		if seg != 1 || !r.Straight {
			v -= curveDrag(v)
		}
		v = math.Min(v, limit)

		tr -= physics.SimulationDT
		travelled += v * physics.SimulationDT
	}
}

func mathClamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// drive applies throttle, braking first when rolling the wrong way.
func drive(v, throttleAccel, throttle float64) float64 {
	if v < 0 {
		return math.Min(0, v+physics.BrakeAccel*physics.SimulationDT)
	}
	return v + throttleAccel*throttle*physics.SimulationDT
}

func curveDrag(v float64) float64 {
	k, err := physics.Curvature(math.Min(math.Abs(v), physics.MaxSpeed))
	if err != nil {
		return 0
	}
	return physics.CurveDrag * v * v * k * physics.SimulationDT
}

func speedLimit(maxSpeed, v float64, forwards, canBoost bool) float64 {
	if !forwards {
		return math.Min(maxSpeed, -physics.MinSpeed)
	}
	if canBoost {
		return maxSpeed
	}
	return math.Min(maxSpeed, math.Max(v, physics.MaxSpeedNoBoost))
}

func segmentAt(travelled float64, ends [3]float64) int {
	for i, e := range ends {
		if travelled < e {
			return i
		}
	}
	return 3
}

// arrive checks the final straight can be covered at top speed. Arriving
// within one tick of the deadline counts as on time.
func arrive(d, tr, maxSpeed float64, forwards bool) (float64, bool) {
	if d <= physics.PathEndTolerance {
		if tr < -physics.SimulationDT {
			return 0, false
		}
		return math.Max(tr, 0), true
	}
	limit := maxSpeed
	if !forwards {
		limit = math.Min(maxSpeed, -physics.MinSpeed)
	}
	if limit <= 0 {
		return 0, false
	}
	slack := tr - d/limit
	if slack < -physics.SimulationDT {
		return 0, false
	}
	return math.Max(slack, 0), true
}

// CanReach runs the reachability check for this path.
func (ti TargetInfo) CanReach(c *car.Car, maxTime, maxSpeed float64) (float64, bool) {
	return CanReach(c, Reach{
		Distances:   ti.Distances,
		Straight:    ti.Path.Type.HasStraight(),
		MaxTime:     maxTime,
		MaxSpeed:    maxSpeed,
		IsForwards:  ti.IsForwards,
		WaitForLand: ti.WaitForLand,
	})
}
