package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hellogeo/geoanchor/internal/config"
	"github.com/hellogeo/geoanchor/internal/dispatcher"
	"github.com/hellogeo/geoanchor/internal/session"
)

// maxLineSize bounds a single replayed command.
const maxLineSize = 1 << 20

type replayResult struct {
	Line    int    `json:"line"`
	Command string `json:"command"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// replay dispatches every JSON line read from in and writes one result per line to out.
// Blank lines and lines starting with # are skipped.
func (a *app) replay(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	enc := json.NewEncoder(out)

	lineNo, failed := 0, 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		res := replayResult{Line: lineNo}
		var head dispatcher.Event
		if err := json.Unmarshal(line, &head); err == nil {
			res.Command = head.Command
		}

		result, err := a.dispatcher.DispatchLine(line)
		res.Result = result
		if err != nil {
			failed++
			res.Error = err.Error()
			a.logger.Warn("Command failed", "line", lineNo, "command", res.Command, "error", err)
		}
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("writing result for line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading commands: %w", err)
	}

	a.logger.Info("Replay finished", "lines", lineNo, "failed", failed, "anchors", a.session.Len())
	return nil
}

func (a *app) list(out io.Writer) error {
	records, err := a.storage.ListAnchors()
	if err != nil {
		return fmt.Errorf("listing anchors: %w", err)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// printMarkers prints the marker layer a hydrated session would show, without
// hydrating: the store keeps its surplus records and no render anchors are made.
func (a *app) printMarkers(out io.Writer) error {
	records, err := a.storage.ListAnchors()
	if err != nil {
		return fmt.Errorf("listing anchors: %w", err)
	}
	limit := session.OptionsFromConfig(config.GetSessionConfig()).MaxAnchors
	if len(records) > limit {
		records = records[len(records)-limit:]
	}

	for _, r := range records {
		i := a.markers.AddMarker()
		if err := a.markers.SetPosition(i, r.Point()); err != nil {
			return fmt.Errorf("positioning marker for %s: %w", r.ID, err)
		}
		if err := a.markers.SetVisible(i, true); err != nil {
			return fmt.Errorf("showing marker for %s: %w", r.ID, err)
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(a.markers.FeatureCollection())
}
