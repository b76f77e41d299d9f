// pkg/core/journal.go
package core

import "time"

// SessionInfo describes one engine session for the shot journal.
type SessionInfo struct {
	ID        uint      `json:"id" msgpack:"id"`
	Arena     string    `json:"arena" msgpack:"arena"`
	StartTime time.Time `json:"start_time" msgpack:"start_time"`
	Version   string    `json:"version" msgpack:"version"`
}

// ShotRecord is a found shot as written to the journal.
type ShotRecord struct {
	SessionID    uint          `json:"session_id" msgpack:"session_id"`
	TargetIndex  int           `json:"target_index" msgpack:"target_index"`
	CarIndex     int           `json:"car_index" msgpack:"car_index"`
	GameTime     float64       `json:"game_time" msgpack:"game_time"`
	ShotTime     float64       `json:"shot_time" msgpack:"shot_time"`
	ShotType     ShotType      `json:"shot_type" msgpack:"shot_type"`
	AirBased     bool          `json:"air_based" msgpack:"air_based"`
	IsForwards   bool          `json:"is_forwards" msgpack:"is_forwards"`
	BallLocation Vector3       `json:"ball_location" msgpack:"ball_location"`
	ShotVector   Vector3       `json:"shot_vector" msgpack:"shot_vector"`
	Distances    [4]float64    `json:"distances" msgpack:"distances"`
	PathType     string        `json:"path_type,omitempty" msgpack:"path_type"`
	Samples      [][2]float64  `json:"samples,omitempty" msgpack:"samples"`
	Slack        float64       `json:"slack" msgpack:"slack"`
	SlicesTried  int           `json:"slices_tried" msgpack:"slices_tried"`
	SearchTime   time.Duration `json:"search_time" msgpack:"search_time"`
}

// UploadMetadata describes an exported journal file sent to the review server.
type UploadMetadata struct {
	Arena     string    `json:"arena"`
	SessionID uint      `json:"session_id"`
	StartTime time.Time `json:"start_time"`
	Duration  float64   `json:"duration"`
	Tag       string    `json:"tag"`
}
