package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// ZerologOptions configures NewZerolog.
type ZerologOptions struct {
	Console io.Writer
	File    io.Writer
	Level   string
	// GraylogAddress enables a GELF UDP writer when non-empty.
	GraylogAddress string
	// Hook adds fields to every event.
	Hook func(e *zerolog.Event)
}

// ZerologBundle is a zerolog logger with the writers it owns.
type ZerologBundle struct {
	Logger zerolog.Logger
	// Sampled allows bursts of 5 per 10s then 1 in 100, for per-tick logs.
	Sampled zerolog.Logger

	graylog *gelf.Writer
}

// Close releases the GELF connection if one was opened.
func (b *ZerologBundle) Close() error {
	if b.graylog == nil {
		return nil
	}
	return b.graylog.Close()
}

func zerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewZerolog builds the logger the dispatcher reports through.
func NewZerolog(opts ZerologOptions) (*ZerologBundle, error) {
	b := &ZerologBundle{}

	var writers []io.Writer
	if opts.Console != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        opts.Console,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	if opts.File != nil {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        opts.File,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}
	if opts.GraylogAddress != "" {
		w, err := gelf.NewWriter(opts.GraylogAddress)
		if err != nil {
			return nil, fmt.Errorf("graylog writer: %w", err)
		}
		b.graylog = w
		writers = append(writers, w)
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(zerologLevel(opts.Level)).
		With().Timestamp().Logger()
	if opts.Hook != nil {
		hook := opts.Hook
		logger = logger.Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			hook(e)
		}))
	}

	b.Logger = logger
	b.Sampled = logger.With().Bool("sampled", true).Logger().Sample(&zerolog.BurstSampler{
		Burst:       5,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: 100},
	})
	return b, nil
}
