// pkg/core/shot.go
package core

import "fmt"

// ShotType identifies how the car makes contact with the ball.
type ShotType int

const (
	ShotGround ShotType = iota
	ShotJump
	ShotDoubleJump
	ShotAerial
)

func (s ShotType) String() string {
	switch s {
	case ShotGround:
		return "GROUND"
	case ShotJump:
		return "JUMP"
	case ShotDoubleJump:
		return "DOUBLE_JUMP"
	case ShotAerial:
		return "AERIAL"
	default:
		return fmt.Sprintf("ShotType(%d)", int(s))
	}
}

// MarshalText renders the shot type by name.
func (s ShotType) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a shot type name.
func (s *ShotType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "GROUND":
		*s = ShotGround
	case "JUMP":
		*s = ShotJump
	case "DOUBLE_JUMP":
		*s = ShotDoubleJump
	case "AERIAL":
		*s = ShotAerial
	default:
		return fmt.Errorf("unknown shot type: %q", b)
	}
	return nil
}

// TargetOptions configures how a target scans the prediction.
// Nil fields take their defaults.
type TargetOptions struct {
	MinSlice             *int  `json:"min_slice,omitempty"`
	MaxSlice             *int  `json:"max_slice,omitempty"`
	UseAbsoluteMaxValues *bool `json:"use_absolute_max_values,omitempty"`
	All                  *bool `json:"all,omitempty"`
	ForwardsOnly         *bool `json:"forwards_only,omitempty"`
}

func (o TargetOptions) String() string {
	s := "TargetOptions("
	sep := ""
	if o.MinSlice != nil {
		s += fmt.Sprintf("min_slice=%d", *o.MinSlice)
		sep = ", "
	}
	if o.MaxSlice != nil {
		s += fmt.Sprintf("%smax_slice=%d", sep, *o.MaxSlice)
		sep = ", "
	}
	if o.UseAbsoluteMaxValues != nil {
		s += fmt.Sprintf("%suse_absolute_max_values=%t", sep, *o.UseAbsoluteMaxValues)
		sep = ", "
	}
	if o.All != nil {
		s += fmt.Sprintf("%sall=%t", sep, *o.All)
		sep = ", "
	}
	if o.ForwardsOnly != nil {
		s += fmt.Sprintf("%sforwards_only=%t", sep, *o.ForwardsOnly)
	}
	return s + ")"
}

// ShotRequest selects which shot types a search may return.
// A nil may-flag defaults to the negation of Only.
type ShotRequest struct {
	Temporary         bool  `json:"temporary"`
	MayGroundShot     *bool `json:"may_ground_shot,omitempty"`
	MayJumpShot       *bool `json:"may_jump_shot,omitempty"`
	MayDoubleJumpShot *bool `json:"may_double_jump_shot,omitempty"`
	MayAerialShot     *bool `json:"may_aerial_shot,omitempty"`
	Only              bool  `json:"only"`
}

// Allowed resolves the may-flags in ground, jump, double jump, aerial order.
func (r ShotRequest) Allowed() [4]bool {
	pick := func(b *bool) bool {
		if b == nil {
			return !r.Only
		}
		return *b
	}
	return [4]bool{pick(r.MayGroundShot), pick(r.MayJumpShot), pick(r.MayDoubleJumpShot), pick(r.MayAerialShot)}
}

// BasicShotInfo is the result of a shot search.
type BasicShotInfo struct {
	Found      bool     `json:"found" msgpack:"found"`
	Time       float64  `json:"time" msgpack:"time"`
	ShotType   ShotType `json:"shot_type" msgpack:"shot_type"`
	ShotVector Vector3  `json:"shot_vector" msgpack:"shot_vector"`
	IsForwards bool     `json:"is_forwards" msgpack:"is_forwards"`
}

// NotFound is the empty search result.
func NotFound() BasicShotInfo {
	return BasicShotInfo{}
}

func (b BasicShotInfo) String() string {
	if !b.Found {
		return "Not found"
	}
	return fmt.Sprintf("Found %s shot @%.2fs", b.ShotType, b.Time)
}

// AdvancedShotInfo carries what a controller needs to follow a stored shot.
type AdvancedShotInfo struct {
	ShotVector        Vector3      `json:"shot_vector" msgpack:"shot_vector"`
	FinalTarget       Vector3      `json:"final_target" msgpack:"final_target"`
	DistanceRemaining float64      `json:"distance_remaining" msgpack:"distance_remaining"`
	RequiredJumpTime  *float64     `json:"required_jump_time,omitempty" msgpack:"required_jump_time"`
	PathSamples       [][2]float64 `json:"path_samples" msgpack:"path_samples"`
	CurrentPathPoint  Vector3      `json:"current_path_point" msgpack:"current_path_point"`
}

func (a AdvancedShotInfo) String() string {
	if a.RequiredJumpTime != nil {
		return fmt.Sprintf("Shot vector: %v, Final target: %v, distance remaining: %.0f, required jump time: %.1f",
			a.ShotVector, a.FinalTarget, a.DistanceRemaining, *a.RequiredJumpTime)
	}
	return fmt.Sprintf("Shot vector: %v, Final target: %v, distance remaining: %.0f",
		a.ShotVector, a.FinalTarget, a.DistanceRemaining)
}

// BoostAmount is the boost amount mutator.
type BoostAmount int

const (
	BoostDefault BoostAmount = iota
	BoostUnlimited
	BoostSlowRecharge
	BoostFastRecharge
	BoostNone
)

// BoostStrength is the boost strength mutator.
type BoostStrength int

const (
	BoostStrength1x BoostStrength = iota
	BoostStrength1_5x
	BoostStrength2x
	BoostStrength10x
)

// MutatorSettings mirrors the host's match settings.
type MutatorSettings struct {
	BoostOption         BoostAmount   `json:"boost_option"`
	BoostStrengthOption BoostStrength `json:"boost_strength_option"`
}
