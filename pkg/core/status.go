package core

import "time"

// Status is a snapshot of a running engine.
type Status struct {
	Time           time.Time `json:"time"`
	Arena          string    `json:"arena"`
	Ticks          uint64    `json:"ticks"`
	GameTime       float64   `json:"game_time"`
	Slices         int       `json:"slices"`
	Targets        int       `json:"targets"`
	TargetShots    int       `json:"target_shots"`
	Searches       uint64    `json:"searches"`
	Found          uint64    `json:"found"`
	JournalSession uint      `json:"journal_session"`
	JournalQueued  int       `json:"journal_queued"`
}
