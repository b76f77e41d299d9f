// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arenabot/shotfinder/pkg/core"
)

// JournalExport is the file written when a session ends.
type JournalExport struct {
	Session core.SessionInfo  `json:"session"`
	EndTime time.Time         `json:"end_time"`
	Summary Summary           `json:"summary"`
	Shots   []core.ShotRecord `json:"shots"`
}

// Summary counts the exported shots.
type Summary struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
	// Targets is the number of distinct target indices that found a shot.
	Targets int `json:"targets"`
}

func summarize(shots []core.ShotRecord) Summary {
	s := Summary{Total: len(shots), ByType: make(map[string]int)}
	targets := make(map[int]struct{})
	for _, r := range shots {
		s.ByType[r.ShotType.String()]++
		targets[r.TargetIndex] = struct{}{}
	}
	s.Targets = len(targets)
	return s
}

// exportJSON writes the session to a (gzipped) JSON file. Callers hold b.mu.
func (b *Backend) exportJSON() error {
	shots := b.shots
	if shots == nil {
		shots = []core.ShotRecord{}
	}
	export := JournalExport{
		Session: *b.session,
		EndTime: time.Now().UTC(),
		Summary: summarize(shots),
		Shots:   shots,
	}

	arena := strings.ReplaceAll(b.session.Arena, " ", "_")
	timestamp := b.session.StartTime.Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s_%d.json", arena, timestamp, b.session.ID)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)
	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func writeJSON(path string, data JournalExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data JournalExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
