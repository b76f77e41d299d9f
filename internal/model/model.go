// Package model holds the GORM models of the shot journal.
package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every table of the journal schema.
var DatabaseModels = []any{
	&JournalInfo{},
	&Session{},
	&Shot{},
}

// JournalInfo is the single metadata row written when the schema is created.
type JournalInfo struct {
	gorm.Model
	SchemaVersion int    `json:"schemaVersion"`
	Generator     string `json:"generator" gorm:"size:64"`
}

func (*JournalInfo) TableName() string {
	return "journal_info"
}

// Session is one run of the engine between :LOAD:ARENA: and shutdown.
type Session struct {
	ID        uint         `json:"id" gorm:"primarykey;autoIncrement"`
	Arena     string       `json:"arena" gorm:"size:64;index:idx_session_arena"`
	Version   string       `json:"version" gorm:"size:32"`
	StartTime time.Time    `json:"startTime" gorm:"index:idx_session_start"`
	EndTime   sql.NullTime `json:"endTime"`
}

func (*Session) TableName() string {
	return "sessions"
}

// Shot is a found shot with its planned geometry.
type Shot struct {
	ID          uint    `json:"id" gorm:"primarykey;autoIncrement"`
	SessionID   uint    `json:"sessionId" gorm:"index:idx_shot_session"`
	TargetIndex int     `json:"targetIndex"`
	CarIndex    int     `json:"carIndex"`
	GameTime    float64 `json:"gameTime" gorm:"index:idx_shot_game_time"`
	ShotTime    float64 `json:"shotTime"`
	ShotType    string  `json:"shotType" gorm:"size:16;index:idx_shot_type"`
	AirBased    bool    `json:"airBased"`
	IsForwards  bool    `json:"isForwards"`
	// BallLocation is the contact point, XYZ.
	BallLocation geom.Point     `json:"ballLocation"`
	ShotVector   datatypes.JSON `json:"shotVector"`
	Distances    datatypes.JSON `json:"distances"`
	PathType     string         `json:"pathType" gorm:"size:8"`
	// Path is the sampled ground path, empty for air shots.
	Path        geom.Geometry  `json:"-"`
	Samples     datatypes.JSON `json:"samples"`
	Slack       float64        `json:"slack"`
	SlicesTried int            `json:"slicesTried"`
	SearchTime  time.Duration  `json:"searchTime"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (*Shot) TableName() string {
	return "shots"
}
