// pkg/core/packet.go
package core

import "github.com/go-gl/mathgl/mgl64"

// Vector3 is the wire form of a world-space vector.
type Vector3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// Vec converts to the math type used by the engine.
func (v Vector3) Vec() mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// FromVec converts an engine vector to its wire form.
func FromVec(v mgl64.Vec3) Vector3 {
	return Vector3{X: v[0], Y: v[1], Z: v[2]}
}

// Rotator holds Euler angles in radians.
type Rotator struct {
	Pitch float64 `json:"pitch" msgpack:"pitch"`
	Yaw   float64 `json:"yaw" msgpack:"yaw"`
	Roll  float64 `json:"roll" msgpack:"roll"`
}

// Physics is the rigid body state reported by the host.
type Physics struct {
	Location        Vector3 `json:"location" msgpack:"location"`
	Rotation        Rotator `json:"rotation" msgpack:"rotation"`
	Velocity        Vector3 `json:"velocity" msgpack:"velocity"`
	AngularVelocity Vector3 `json:"angular_velocity" msgpack:"angular_velocity"`
}

// Hitbox is the oriented box of a car.
type Hitbox struct {
	Length float64 `json:"length" msgpack:"length"`
	Width  float64 `json:"width" msgpack:"width"`
	Height float64 `json:"height" msgpack:"height"`
}

// CarInfo is one car of a game packet.
type CarInfo struct {
	Physics         Physics `json:"physics" msgpack:"physics"`
	Boost           uint8   `json:"boost" msgpack:"boost"`
	Demolished      bool    `json:"is_demolished" msgpack:"is_demolished"`
	HasWheelContact bool    `json:"has_wheel_contact" msgpack:"has_wheel_contact"`
	Jumped          bool    `json:"jumped" msgpack:"jumped"`
	DoubleJumped    bool    `json:"double_jumped" msgpack:"double_jumped"`
	Hitbox          Hitbox  `json:"hitbox" msgpack:"hitbox"`
	HitboxOffset    Vector3 `json:"hitbox_offset" msgpack:"hitbox_offset"`
}

// BallInfo is the ball of a game packet.
type BallInfo struct {
	Physics Physics `json:"physics" msgpack:"physics"`
	// Radius of the collision sphere; zero means the arena default.
	Radius float64 `json:"radius" msgpack:"radius"`
}

// GameInfo carries the clock and gravity.
type GameInfo struct {
	SecondsElapsed float64 `json:"seconds_elapsed" msgpack:"seconds_elapsed"`
	WorldGravityZ  float64 `json:"world_gravity_z" msgpack:"world_gravity_z"`
}

// GamePacket is a full world snapshot pushed once per tick.
type GamePacket struct {
	GameInfo GameInfo  `json:"game_info" msgpack:"game_info"`
	Ball     BallInfo  `json:"game_ball" msgpack:"game_ball"`
	Cars     []CarInfo `json:"game_cars" msgpack:"game_cars"`
}

// BallSlice is one predicted ball state.
type BallSlice struct {
	Time            float64 `json:"time" msgpack:"time"`
	Location        Vector3 `json:"location" msgpack:"location"`
	Velocity        Vector3 `json:"velocity" msgpack:"velocity"`
	AngularVelocity Vector3 `json:"angular_velocity" msgpack:"angular_velocity"`
}
