package shot

import (
	"strconv"
	"strings"

	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Options are a target's resolved scan settings.
type Options struct {
	MinSlice     int
	MaxSlice     int
	Absolute     bool
	All          bool
	ForwardsOnly bool
}

// OptionsFrom resolves host options against a prediction of numSlices
// slices.
func OptionsFrom(o *core.TargetOptions, numSlices int) Options {
	opts := Options{MaxSlice: numSlices}
	if o == nil {
		return opts
	}
	if o.MinSlice != nil {
		opts.MinSlice = max(*o.MinSlice, 0)
	}
	if o.MaxSlice != nil {
		opts.MaxSlice = min(*o.MaxSlice, numSlices)
	}
	if o.UseAbsoluteMaxValues != nil {
		opts.Absolute = *o.UseAbsoluteMaxValues
	}
	if o.All != nil {
		opts.All = *o.All
	}
	if o.ForwardsOnly != nil {
		opts.ForwardsOnly = *o.ForwardsOnly
	}
	return opts
}

// Goal is the interval a goal target aims the ball through.
type Goal struct {
	Left  mgl64.Vec3
	Right mgl64.Vec3
}

// Target is one tracked intercept request.
type Target struct {
	CarIndex int
	// Goal is nil for targets that take any contact with the ball.
	Goal    *Goal
	Options Options
	// Shot is the last search result, nil when nothing was found.
	Shot      Shot
	confirmed bool
}

// NewTarget returns a goal target.
func NewTarget(left, right mgl64.Vec3, carIndex int, opts Options) *Target {
	return &Target{CarIndex: carIndex, Goal: &Goal{Left: left, Right: right}, Options: opts}
}

// NewAnyTarget returns a target without a goal.
func NewAnyTarget(carIndex int, opts Options) *Target {
	return &Target{CarIndex: carIndex, Options: opts}
}

// Confirm keeps the target alive across ticks.
func (t *Target) Confirm() {
	t.confirmed = true
}

// Confirmed reports whether Confirm was called.
func (t *Target) Confirmed() bool {
	return t.confirmed
}

// Registry is a dense, index-addressed set of targets. Removed slots are
// reused by the next Add.
type Registry struct {
	slots []*Target
}

// Add stores t in the first free slot and returns its index.
func (r *Registry) Add(t *Target) int {
	for i, s := range r.slots {
		if s == nil {
			r.slots[i] = t
			return i
		}
	}
	r.slots = append(r.slots, t)
	return len(r.slots) - 1
}

// Get returns the target at i.
func (r *Registry) Get(i int) (*Target, bool) {
	if i < 0 || i >= len(r.slots) || r.slots[i] == nil {
		return nil, false
	}
	return r.slots[i], true
}

// Remove frees slot i. Unknown indices are ignored.
func (r *Registry) Remove(i int) {
	if i < 0 || i >= len(r.slots) {
		return
	}
	r.slots[i] = nil
}

// Prune removes every target that was not confirmed.
func (r *Registry) Prune() int {
	n := 0
	for i, s := range r.slots {
		if s != nil && !s.confirmed {
			r.slots[i] = nil
			n++
		}
	}
	return n
}

// Len is the number of slots, free ones included.
func (r *Registry) Len() int {
	return len(r.slots)
}

// Each calls fn for every live target.
func (r *Registry) Each(fn func(i int, t *Target)) {
	for i, s := range r.slots {
		if s != nil {
			fn(i, s)
		}
	}
}

// String lists each slot as its shot time, "No shot" or "None".
func (r *Registry) String() string {
	out := make([]string, len(r.slots))
	for i, s := range r.slots {
		switch {
		case s == nil:
			out[i] = "None"
		case s.Shot == nil:
			out[i] = "No shot"
		default:
			out[i] = strconv.FormatFloat(s.Shot.Time(), 'f', -1, 64)
		}
	}
	return "[" + strings.Join(out, ", ") + "]"
}
