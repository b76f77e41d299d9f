// Package convert maps journal records between pkg/core and the GORM models.
package convert

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/arenabot/shotfinder/internal/model"
	"github.com/arenabot/shotfinder/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

func vectorToPoint(v core.Vector3) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v.X, Y: v.Y},
		Z:    v.Z,
		Type: geom.DimXYZ,
	})
}

func pointToVector(p geom.Point) core.Vector3 {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Vector3{}
	}
	return core.Vector3{X: coord.XY.X, Y: coord.XY.Y, Z: coord.Z}
}

// samplesToGeometry builds the path LineString. Fewer than two distinct
// samples give an empty geometry.
func samplesToGeometry(samples [][2]float64) geom.Geometry {
	if len(samples) < 2 {
		return geom.Geometry{}
	}
	coords := make([]float64, 0, len(samples)*2)
	for _, s := range samples {
		coords = append(coords, s[0], s[1])
	}
	ls := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	if err := ls.Validate(); err != nil {
		return geom.Geometry{}
	}
	return ls.AsGeometry()
}

func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

// CoreToSession converts a core.SessionInfo to a GORM model.Session.
func CoreToSession(s core.SessionInfo) model.Session {
	return model.Session{
		ID:        s.ID,
		Arena:     s.Arena,
		Version:   s.Version,
		StartTime: s.StartTime,
	}
}

// EndedSession marks a session row as finished at t.
func EndedSession(s model.Session, t time.Time) model.Session {
	s.EndTime = sql.NullTime{Time: t, Valid: true}
	return s
}

// CoreToShot converts a core.ShotRecord to a GORM model.Shot.
func CoreToShot(r core.ShotRecord) model.Shot {
	samples := r.Samples
	if samples == nil {
		samples = [][2]float64{}
	}
	return model.Shot{
		SessionID:    r.SessionID,
		TargetIndex:  r.TargetIndex,
		CarIndex:     r.CarIndex,
		GameTime:     r.GameTime,
		ShotTime:     r.ShotTime,
		ShotType:     r.ShotType.String(),
		AirBased:     r.AirBased,
		IsForwards:   r.IsForwards,
		BallLocation: vectorToPoint(r.BallLocation),
		ShotVector:   toJSON(r.ShotVector),
		Distances:    toJSON(r.Distances),
		PathType:     r.PathType,
		Path:         samplesToGeometry(r.Samples),
		Samples:      toJSON(samples),
		Slack:        r.Slack,
		SlicesTried:  r.SlicesTried,
		SearchTime:   r.SearchTime,
	}
}

// ShotToCore converts a GORM model.Shot back to a core.ShotRecord.
func ShotToCore(s model.Shot) core.ShotRecord {
	r := core.ShotRecord{
		SessionID:    s.SessionID,
		TargetIndex:  s.TargetIndex,
		CarIndex:     s.CarIndex,
		GameTime:     s.GameTime,
		ShotTime:     s.ShotTime,
		AirBased:     s.AirBased,
		IsForwards:   s.IsForwards,
		BallLocation: pointToVector(s.BallLocation),
		PathType:     s.PathType,
		Slack:        s.Slack,
		SlicesTried:  s.SlicesTried,
		SearchTime:   s.SearchTime,
	}
	_ = r.ShotType.UnmarshalText([]byte(s.ShotType))
	_ = json.Unmarshal(s.ShotVector, &r.ShotVector)
	_ = json.Unmarshal(s.Distances, &r.Distances)
	if len(s.Samples) > 0 {
		_ = json.Unmarshal(s.Samples, &r.Samples)
	}
	if len(r.Samples) == 0 {
		r.Samples = nil
	}
	return r
}
