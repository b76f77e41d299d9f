// Package shot holds found shots, the targets they belong to and the
// registry that hands out target indices.
package shot

import (
	"fmt"

	"github.com/arenabot/shotfinder/internal/air"
	"github.com/arenabot/shotfinder/internal/ground"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Shot is either a GroundBased or an AirBased shot.
type Shot interface {
	// Time is the game time of contact.
	Time() float64
	// BallLocation is where the ball was predicted to be at contact.
	BallLocation() mgl64.Vec3
	Basic() core.BasicShotInfo

	shot()
}

// GroundBased is a shot driven along a sampled path.
type GroundBased struct {
	time    float64
	ball    mgl64.Vec3
	Info    ground.TargetInfo
	Samples Samples
	// Slack is the time to spare the reachability check reported.
	Slack float64
}

// NewGroundBased samples the path of info.
func NewGroundBased(time float64, ball mgl64.Vec3, info ground.TargetInfo, slack float64) *GroundBased {
	return &GroundBased{
		time:    time,
		ball:    ball,
		Info:    info,
		Samples: NewSamples(info.Path, info.Distances, info.ShotVector),
		Slack:   slack,
	}
}

func (g *GroundBased) Time() float64            { return g.time }
func (g *GroundBased) BallLocation() mgl64.Vec3 { return g.ball }
func (g *GroundBased) Basic() core.BasicShotInfo {
	return g.Info.BasicShotInfo(g.time)
}
func (*GroundBased) shot() {}

// AirBased is an aerial.
type AirBased struct {
	time float64
	ball mgl64.Vec3
	Info air.TargetInfo
}

// NewAirBased wraps an accepted aerial.
func NewAirBased(time float64, ball mgl64.Vec3, info air.TargetInfo) *AirBased {
	return &AirBased{time: time, ball: ball, Info: info}
}

func (a *AirBased) Time() float64            { return a.time }
func (a *AirBased) BallLocation() mgl64.Vec3 { return a.ball }
func (a *AirBased) Basic() core.BasicShotInfo {
	return a.Info.BasicShotInfo(a.time)
}
func (*AirBased) shot() {}

// Record renders a shot for the journal.
func Record(s Shot) core.ShotRecord {
	basic := s.Basic()
	r := core.ShotRecord{
		ShotTime:     s.Time(),
		ShotType:     basic.ShotType,
		IsForwards:   basic.IsForwards,
		BallLocation: core.FromVec(s.BallLocation()),
		ShotVector:   basic.ShotVector,
	}

	switch s := s.(type) {
	case *GroundBased:
		r.Distances = s.Info.Distances
		r.PathType = s.Info.Path.Type.String()
		r.Samples = Flatten(s.Samples.All)
		r.Slack = s.Slack
	case *AirBased:
		r.AirBased = true
	default:
		panic(fmt.Sprintf("shot: unknown shot %T", s))
	}
	return r
}

// Flatten drops the heights of a run of points.
func Flatten(points []mgl64.Vec3) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64{p[0], p[1]}
	}
	return out
}
