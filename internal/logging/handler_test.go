package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSink struct {
	slog.Handler
	err error
}

func (h *failingSink) Enabled(context.Context, slog.Level) bool  { return true }
func (h *failingSink) Handle(context.Context, slog.Record) error { return h.err }

func textSink(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestMultiHandler(t *testing.T) {
	t.Run("every sink gets the record", func(t *testing.T) {
		var a, b bytes.Buffer
		slog.New(NewMultiHandler(textSink(&a, slog.LevelInfo), nil, textSink(&b, slog.LevelInfo))).
			Info("tick", "slices", 720)
		assert.Contains(t, a.String(), "slices=720")
		assert.Contains(t, b.String(), "slices=720")
	})

	t.Run("nil sinks dropped", func(t *testing.T) {
		assert.Equal(t, 1, NewMultiHandler(nil, textSink(&bytes.Buffer{}, slog.LevelInfo), nil).Len())
		assert.Zero(t, NewMultiHandler().Len())
	})

	t.Run("enabled when any sink is", func(t *testing.T) {
		ctx := context.Background()
		info := textSink(&bytes.Buffer{}, slog.LevelInfo)
		debug := textSink(&bytes.Buffer{}, slog.LevelDebug)
		assert.False(t, NewMultiHandler(info).Enabled(ctx, slog.LevelDebug))
		assert.True(t, NewMultiHandler(info, debug).Enabled(ctx, slog.LevelDebug))
		assert.False(t, NewMultiHandler().Enabled(ctx, slog.LevelError))
	})

	t.Run("level filtered per sink", func(t *testing.T) {
		var info, debug bytes.Buffer
		slog.New(NewMultiHandler(textSink(&info, slog.LevelInfo), textSink(&debug, slog.LevelDebug))).
			Debug("scan detail")
		assert.Empty(t, info.String())
		assert.Contains(t, debug.String(), "scan detail")
	})

	t.Run("sink errors joined", func(t *testing.T) {
		var buf bytes.Buffer
		boom := errors.New("disk full")
		m := NewMultiHandler(&failingSink{err: boom}, textSink(&buf, slog.LevelInfo))

		var r slog.Record
		r.Level = slog.LevelInfo
		r.Message = "still written"
		err := m.Handle(context.Background(), r)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, buf.String(), "still written")
	})

	t.Run("attrs and groups", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewMultiHandler(textSink(&buf, slog.LevelInfo))
		assert.Same(t, m, m.WithGroup(""))

		slog.New(m.WithAttrs([]slog.Attr{slog.String("arena", "hoops")}).WithGroup("shot")).
			Info("found", "type", "AERIAL")
		assert.Contains(t, buf.String(), "arena=hoops")
		assert.Contains(t, buf.String(), "shot.type=AERIAL")
	})
}

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	arena := ""
	ticks := 0
	h := NewContextHandler(textSink(&buf, slog.LevelInfo), func() []slog.Attr {
		return []slog.Attr{slog.String("arena", arena), slog.Int("ticks", ticks)}
	})
	logger := slog.New(h)

	logger.Info("before load")
	assert.NotContains(t, buf.String(), "arena=")
	assert.Contains(t, buf.String(), "ticks=0")

	buf.Reset()
	arena, ticks = "soccar", 9
	logger.Info("loaded")
	assert.Contains(t, buf.String(), "arena=soccar")
	assert.Contains(t, buf.String(), "ticks=9")

	// an explicit attribute wins
	buf.Reset()
	logger.Info("override", "arena", "hoops")
	assert.Contains(t, buf.String(), "arena=hoops")
	assert.NotContains(t, buf.String(), "arena=soccar")

	buf.Reset()
	logger.WithGroup("").With("car", 1).Info("with")
	assert.Contains(t, buf.String(), "car=1")
	assert.Contains(t, buf.String(), "ticks=9")
}

func TestContextHandler_NilProvider(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(textSink(&buf, slog.LevelInfo), nil)
	require.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	slog.New(h).Info("plain")
	assert.Contains(t, buf.String(), "plain")
}
