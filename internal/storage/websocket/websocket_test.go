package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/arenabot/shotfinder/internal/storage"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/arenabot/shotfinder/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func (m *messageLog) count(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

// testServer upgrades to WebSocket, records received envelopes and acks
// start_session/end_session. dropAfterStart closes the first connection
// right after acking start_session.
func testServer(t *testing.T, dropAfterStart bool) (*httptest.Server, *messageLog, *atomic.Int32) {
	t.Helper()
	ml := &messageLog{}
	var conns atomic.Int32

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("secret") != "s3cret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		n := conns.Add(1)

		for {
			kind, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			if kind != ws.BinaryMessage {
				continue
			}
			env, err := streaming.Unmarshal(msg)
			if err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartSession || env.Type == streaming.TypeEndSession {
				data, _ := msgpack.Marshal(&streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
				if err := c.WriteMessage(ws.BinaryMessage, data); err != nil {
					return
				}
				if dropAfterStart && n == 1 && env.Type == streaming.TypeStartSession {
					return
				}
			}
		}
	}))
	return srv, ml, &conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartRecordEnd(t *testing.T) {
	srv, ml, _ := testServer(t, false)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s3cret"})
	require.NoError(t, b.Init())
	defer b.Close()

	info := &core.SessionInfo{Arena: "soccar", Version: "1.0.0"}
	require.NoError(t, b.StartSession(info))
	assert.Equal(t, uint(1), info.ID)

	require.NoError(t, b.RecordShot(&core.ShotRecord{TargetIndex: 2, ShotType: core.ShotDoubleJump}))
	require.NoError(t, b.EndSession())

	msgs := ml.all()
	require.Len(t, msgs, 3)
	assert.Equal(t, streaming.TypeStartSession, msgs[0].Type)
	assert.Equal(t, streaming.TypeShot, msgs[1].Type)
	assert.Equal(t, streaming.TypeEndSession, msgs[2].Type)

	var start streaming.StartSessionPayload
	require.NoError(t, msgs[0].Decode(&start))
	assert.Equal(t, "soccar", start.Session.Arena)

	var shot core.ShotRecord
	require.NoError(t, msgs[1].Decode(&shot))
	assert.Equal(t, uint(1), shot.SessionID)
	assert.Equal(t, core.ShotDoubleJump, shot.ShotType)
}

func TestInit_BadSecret(t *testing.T) {
	srv, _, _ := testServer(t, false)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "wrong"})
	assert.Error(t, b.Init())
}

func TestReconnectReplaysStartSession(t *testing.T) {
	srv, ml, conns := testServer(t, true)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s3cret"})
	b.conn.initialBackoff = 10 * time.Millisecond
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(&core.SessionInfo{Arena: "hoops"}))

	require.Eventually(t, func() bool {
		return conns.Load() == 2 && ml.count(streaming.TypeStartSession) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.RecordShot(&core.ShotRecord{TargetIndex: 1}))
	assert.Eventually(t, func() bool {
		return ml.count(streaming.TypeShot) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSend_DropsWhenQueueFull(t *testing.T) {
	b := New(Config{})
	b.conn.sendCh = make(chan []byte, 1)

	require.NoError(t, b.RecordShot(&core.ShotRecord{TargetIndex: 1}))
	require.NoError(t, b.RecordShot(&core.ShotRecord{TargetIndex: 2}))
	assert.Equal(t, uint64(1), b.Dropped())
	require.NoError(t, b.Close())
}

func TestStartSession_ClosedWhileWaiting(t *testing.T) {
	b := New(Config{})
	require.NoError(t, b.Close())

	err := b.StartSession(&core.SessionInfo{Arena: "soccar"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errClosed)
	require.NoError(t, b.Close())
}

func TestInit_BadURL(t *testing.T) {
	b := New(Config{URL: "://nope"})
	err := b.Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid websocket URL")
}
