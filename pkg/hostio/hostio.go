// Package hostio speaks the line protocol between shotfinder and the host
// process. Each request is one line, "COMMAND" or "COMMAND|<json>", and each
// response is one line holding a JSON array: ["ok", command, result] or
// ["error", command, message].
package hostio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arenabot/shotfinder/internal/dispatcher"
)

// maxLineSize bounds a request line. Game packets for full lobbies run to
// tens of kilobytes.
const maxLineSize = 4 << 20

// Dispatcher is the part of dispatcher.Dispatcher the loop needs.
type Dispatcher interface {
	HasHandler(command string) bool
	Dispatch(e dispatcher.Event) (any, error)
}

// ParseLine splits a request into its command and argument document.
func ParseLine(line string) (command string, payload []byte) {
	line = strings.TrimSpace(line)
	command, args, found := strings.Cut(line, "|")
	if !found || args == "" {
		return command, nil
	}
	return command, []byte(args)
}

// Handle answers one request line.
func Handle(d Dispatcher, line string) string {
	command, payload := ParseLine(line)

	// built-in, answered without the dispatcher
	if command == ":TIMESTAMP:" {
		return FormatResponse(command, getTimestamp(), nil)
	}

	if d == nil || !d.HasHandler(command) {
		return FormatResponse(command, nil, fmt.Errorf("no handler registered"))
	}

	result, err := d.Dispatch(dispatcher.Event{
		Command:   command,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	return FormatResponse(command, result, err)
}

// Serve reads requests from r until EOF or ctx is done and writes one
// response line to w for each non-empty request.
func Serve(ctx context.Context, r io.Reader, w io.Writer, d Dispatcher) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	out := bufio.NewWriter(w)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := out.WriteString(Handle(d, line) + "\n"); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading requests: %w", err)
	}
	return nil
}

// FormatResponse renders a dispatcher result for the host.
func FormatResponse(command string, result any, err error) string {
	var parts []any
	switch {
	case err != nil:
		parts = []any{"error", command, err.Error()}
	case result == nil:
		parts = []any{"ok", command}
	default:
		parts = []any{"ok", command, result}
	}

	b, mErr := json.Marshal(parts)
	if mErr != nil {
		b, _ = json.Marshal([]any{"error", command, fmt.Sprintf("encoding result: %v", mErr)})
	}
	return string(b)
}

func getTimestamp() string {
	return fmt.Sprintf("%d", time.Now().UTC().UnixNano())
}
