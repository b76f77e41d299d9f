package handlers

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/arenabot/shotfinder/internal/dispatcher"
	"github.com/arenabot/shotfinder/pkg/core"
)

type loadArenaArgs struct {
	Name string `json:"name"`
}

type tickArgs struct {
	core.GamePacket
	Horizon *float64 `json:"prediction_horizon,omitempty"`
}

type sliceArgs struct {
	Time float64 `json:"time"`
}

type sliceIndexArgs struct {
	Index int `json:"index"`
}

type newTargetArgs struct {
	Left     core.Vector3        `json:"left"`
	Right    core.Vector3        `json:"right"`
	CarIndex int                 `json:"car_index"`
	Options  *core.TargetOptions `json:"options,omitempty"`
}

type anyTargetArgs struct {
	CarIndex int                 `json:"car_index"`
	Options  *core.TargetOptions `json:"options,omitempty"`
}

type targetArgs struct {
	TargetIndex int `json:"target_index"`
}

type findShotArgs struct {
	TargetIndex int `json:"target_index"`
	core.ShotRequest
}

// ErrMissingArgs is returned when a command that takes arguments got none.
var ErrMissingArgs = errors.New("missing arguments")

func decode(e dispatcher.Event, v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: %w", e.Command, ErrMissingArgs)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid arguments: %w", e.Command, err)
	}
	return nil
}
