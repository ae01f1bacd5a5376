package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/histore/internal/record"
)

// TraceSnapshot captures the complete trace for a scenario execution.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
}

// Render serializes the snapshot as one canonical JSON object per line: a
// header naming the scenario, then one line per step.
func (s *TraceSnapshot) Render() ([]byte, error) {
	var buf bytes.Buffer
	header, err := record.MarshalCanonical(map[string]any{"scenario": s.ScenarioName})
	if err != nil {
		return nil, err
	}
	buf.Write(header)
	buf.WriteByte('\n')

	for _, event := range s.Trace {
		line, err := record.MarshalCanonical(event.toCanonicalMap())
		if err != nil {
			return nil, fmt.Errorf("trace seq %d: %w", event.Seq, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// toCanonicalMap converts an event to a map for canonical JSON
// serialization, dropping empty fields.
func (e TraceEvent) toCanonicalMap() map[string]any {
	m := map[string]any{
		"seq": e.Seq,
		"op":  e.Op,
	}
	if len(e.Args) > 0 {
		m["args"] = e.Args
	}
	if len(e.Result) > 0 {
		m["result"] = e.Result
	}
	if e.Error != "" {
		m["error"] = e.Error
	}
	return m
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: result.Trace}
	data, err := snapshot.Render()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
