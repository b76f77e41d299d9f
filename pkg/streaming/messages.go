// Package streaming defines the frames of the live shot stream. Every frame
// is a msgpack-encoded Envelope sent as a binary WebSocket message.
package streaming

import (
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/vmihailenco/msgpack/v5"
)

// Message type constants of the shot stream protocol.
const (
	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeShot         = "shot"
	TypeAck          = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `msgpack:"type"` // always "ack"
	For  string `msgpack:"for"`  // the message type being acknowledged
}

// StartSessionPayload announces the session the following shots belong to.
type StartSessionPayload struct {
	Session *core.SessionInfo `msgpack:"session"`
}

// Marshal builds an encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(&Envelope{Type: msgType, Payload: raw})
}

// Unmarshal decodes an Envelope.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	err := msgpack.Unmarshal(data, &env)
	return env, err
}

// Decode unpacks the envelope payload into v.
func (e Envelope) Decode(v any) error {
	return msgpack.Unmarshal(e.Payload, v)
}
