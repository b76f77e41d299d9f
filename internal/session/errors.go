package session

import "errors"

var (
	ErrNoGame          = errors.New("no arena loaded, call LoadArena first")
	ErrNoCar           = errors.New("no car at the provided index")
	ErrNoSlices        = errors.New("ball prediction has not been initialized yet, tick first")
	ErrNoTarget        = errors.New("target no longer exists")
	ErrNoShot          = errors.New("specified target has no found shot")
	ErrBallChanged     = errors.New("ball has changed too much from the original prediction")
	ErrNoShotSelected  = errors.New("All shots were disabled.")
	ErrNoTimeRemaining = errors.New("shot has no time remaining")
	ErrStrayedFromPath = errors.New("car has strayed from the shot path")
	ErrBadAcceleration = errors.New("car cannot cover the remaining distance in time")
)
