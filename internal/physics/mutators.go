package physics

import (
	"math"

	"github.com/arenabot/shotfinder/pkg/core"
)

// Mutators is the resolved form of the match settings that affect boost.
type Mutators struct {
	Amount     core.BoostAmount
	BoostAccel float64
}

// DefaultMutators is a standard match.
func DefaultMutators() Mutators {
	return Mutators{Amount: core.BoostDefault, BoostAccel: BoostAccel}
}

// MutatorsFrom resolves host settings. Unknown strengths fall back to 1x.
func MutatorsFrom(s core.MutatorSettings) Mutators {
	scale := 1.0
	switch s.BoostStrengthOption {
	case core.BoostStrength1_5x:
		scale = 1.5
	case core.BoostStrength2x:
		scale = 2
	case core.BoostStrength10x:
		scale = 10
	}
	return Mutators{Amount: s.BoostOption, BoostAccel: BoostAccel * scale}
}

// Unlimited reports whether boost never runs out.
func (m Mutators) Unlimited() bool {
	return m.Amount == core.BoostUnlimited
}

// NoBoost reports whether boost is disabled.
func (m Mutators) NoBoost() bool {
	return m.Amount == core.BoostNone
}

// UsableBoost is the boost budget above the reserve.
func (m Mutators) UsableBoost(boost float64) float64 {
	switch {
	case m.Unlimited():
		return math.Inf(1)
	case m.NoBoost():
		return 0
	default:
		return boost - BoostReserve
	}
}

// BoostAccelDT is the speed one tick of boost adds.
func (m Mutators) BoostAccelDT() float64 {
	return m.BoostAccel * SimulationDT
}
