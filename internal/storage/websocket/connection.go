package websocket

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arenabot/shotfinder/pkg/streaming"
	ws "github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	sendChSize   = 4096
	ackChSize    = 16
	maxReconnect = 10
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
	// the viewer must answer a ping within pongWait
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var errClosed = errors.New("shot stream closed")

var dialer = &ws.Dialer{
	HandshakeTimeout: 10 * time.Second,
	WriteBufferSize:  16 << 10,
}

// connection owns one viewer socket at a time. A single writer goroutine
// per socket drains sendCh; a reader routes acks to ackCh.
type connection struct {
	mu     sync.Mutex
	conn   *ws.Conn
	stop   chan struct{} // closed to retire the current loops
	closed bool
	redial bool

	sendCh chan []byte
	ackCh  chan streaming.AckMessage
	done   chan struct{}

	target *url.URL
	// startFrame is replayed first on every new socket so the viewer can
	// attribute the shots that follow.
	startFrame     []byte
	initialBackoff time.Duration
	dropped        atomic.Uint64

	logger *slog.Logger
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		sendCh:         make(chan []byte, sendChSize),
		ackCh:          make(chan streaming.AckMessage, ackChSize),
		done:           make(chan struct{}),
		initialBackoff: time.Second,
		logger:         logger,
	}
}

// dial connects once; later failures are retried by reconnect.
func (c *connection) dial(rawURL, secret string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	c.target = u

	conn, err := c.open()
	if err != nil {
		return err
	}
	return c.adopt(conn)
}

func (c *connection) open() (*ws.Conn, error) {
	conn, _, err := dialer.Dial(c.target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return conn, nil
}

// adopt installs conn as the live socket and starts its loops.
func (c *connection) adopt(conn *ws.Conn) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		conn.Close()
		return errClosed
	}
	c.conn = conn
	c.stop = make(chan struct{})
	go c.writeLoop(conn, c.stop)
	go c.readLoop(conn)
	return nil
}

func writeFrame(conn *ws.Conn, kind int, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(kind, data)
}

func (c *connection) writeLoop(conn *ws.Conn, stop chan struct{}) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		var err error
		select {
		case <-c.done:
			return
		case <-stop:
			return
		case <-ping.C:
			err = conn.WriteControl(ws.PingMessage, nil, time.Now().Add(writeWait))
		case data := <-c.sendCh:
			err = writeFrame(conn, ws.BinaryMessage, data)
		}
		if err != nil {
			c.logger.Warn("Shot stream write failed", "error", err)
			go c.reconnect(conn)
			return
		}
	}
}

// readLoop routes acks until conn fails or is replaced.
func (c *connection) readLoop(conn *ws.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			c.logger.Debug("Shot stream read ended", "error", err)
			c.reconnect(conn)
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var ack streaming.AckMessage
		if err := msgpack.Unmarshal(message, &ack); err != nil || ack.Type != streaming.TypeAck {
			c.logger.Debug("Ignoring viewer message", "bytes", len(message))
			continue
		}
		select {
		case c.ackCh <- ack:
		default:
			c.logger.Debug("Ack channel full, dropping", "for", ack.For)
		}
	}
}

// reconnect replaces failed with a fresh socket, backing off exponentially.
// It is a no-op when failed is no longer the live socket or another
// reconnect is under way.
func (c *connection) reconnect(failed *ws.Conn) {
	c.mu.Lock()
	if c.closed || c.redial || c.conn != failed {
		c.mu.Unlock()
		return
	}
	c.redial = true
	close(c.stop)
	c.conn.Close()
	c.conn = nil
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.redial = false
		c.mu.Unlock()
	}()

	backoff := c.initialBackoff
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		timer := time.NewTimer(backoff)
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)

		conn, err := c.open()
		if err != nil {
			c.logger.Warn("Shot stream redial failed", "attempt", attempt, "error", err)
			continue
		}

		c.mu.Lock()
		start := c.startFrame
		c.mu.Unlock()
		if start != nil {
			if err := writeFrame(conn, ws.BinaryMessage, start); err != nil {
				c.logger.Warn("Session replay failed", "attempt", attempt, "error", err)
				conn.Close()
				continue
			}
		}

		if err := c.adopt(conn); err != nil {
			return
		}
		c.logger.Info("Shot stream reconnected", "attempt", attempt)
		return
	}
	c.logger.Error("Shot stream lost", "attempts", maxReconnect)
}

// setStartFrame records the frame replayed on reconnect; nil clears it.
func (c *connection) setStartFrame(frame []byte) {
	c.mu.Lock()
	c.startFrame = frame
	c.mu.Unlock()
}

// send queues data without blocking; a full queue drops the frame.
func (c *connection) send(data []byte) {
	select {
	case c.sendCh <- data:
	default:
		c.dropped.Add(1)
		c.logger.Warn("Shot stream queue full, dropping frame")
	}
}

// sendAndWait queues data and waits for the viewer to ack ackFor.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-c.ackCh:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("waiting for ack of %q: %w", ackFor, errClosed)
		}
	}
}

// close says goodbye to the viewer and stops every loop.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	// WriteControl may run alongside the write loop
	_ = conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return conn.Close()
}
