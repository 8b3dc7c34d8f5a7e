package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/playerdata/storage"
	"github.com/roach88/playerdata/storage/sqlite"
)

// backends returns a fresh instance of every backend that runs without
// external services.
func backends(t *testing.T) map[string]storage.Backend {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]storage.Backend{
		"memory": storage.NewMemoryStore(),
		"local":  storage.NewLocalStore(t.TempDir()),
		"sqlite": db,
	}
}

func TestScenarios_AllBackends(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			for name, backend := range backends(t) {
				t.Run(name, func(t *testing.T) {
					result, err := Run(context.Background(), s, backend)
					require.NoError(t, err)
					assert.True(t, result.Pass, "errors: %v", result.Errors)
					assert.Len(t, result.Trace, len(s.Steps))
				})
			}
		})
	}
}

func TestGolden_SameTraceOnEveryBackend(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "slot_lifecycle.yaml"))
	require.NoError(t, err)

	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, s, backend)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ReportsMismatches(t *testing.T) {
	path := writeScenario(t, `
name: mismatches
description: every expectation here is wrong
steps:
  - op: write
    name: a.json
    document: {level: 1}
  - op: read
    name: a.json
    expect: {document: {level: 2}}
  - op: exists
    name: a.json
    expect: {exists: false}
  - op: list
    expect: {names: [b.json]}
  - op: read
    name: b.json
  - op: read
    name: a.json
    expect: {error: FILE_NOT_FOUND}
`)
	s, err := LoadScenario(path)
	require.NoError(t, err)

	result, err := Run(context.Background(), s, storage.NewMemoryStore())
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], "document mismatch")
	assert.Contains(t, result.Errors[0], `{"level":2}`)
	assert.Contains(t, result.Errors[1], "expected exists=false")
	assert.Contains(t, result.Errors[2], "expected names [b.json], got [a.json]")
	assert.Contains(t, result.Errors[3], "unexpected error FILE_NOT_FOUND")
	assert.Contains(t, result.Errors[4], "expected error FILE_NOT_FOUND, got success")
}

func TestRun_ListUnsupported(t *testing.T) {
	s := &Scenario{
		Name:        "list",
		Description: "a backend without List",
		Steps:       []Step{{Op: OpList}},
	}

	result, err := Run(context.Background(), s, writeOnly{storage.NewMemoryStore()})
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, codeOther, result.Trace[0].Error)
}

func TestRun_InvalidScenario(t *testing.T) {
	_, err := Run(context.Background(), &Scenario{Name: "x"}, storage.NewMemoryStore())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
}

func TestHarness_Logs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "names.yaml"))
	require.NoError(t, err)

	result, err := New(storage.NewMemoryStore(), zap.New(core)).Run(context.Background(), s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	finished := logs.FilterMessage("scenario finished").All()
	require.Len(t, finished, 1)
	assert.Equal(t, "names", finished[0].ContextMap()["scenario"])
	assert.Equal(t, true, finished[0].ContextMap()["pass"])
}

func TestSnapshot(t *testing.T) {
	exists := true
	result := NewResult()
	result.AddTrace(TraceEvent{Op: OpExists, Name: "a.json", Exists: &exists})
	result.AddTrace(TraceEvent{Op: OpWipe})

	got, err := Snapshot("tiny", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario":"tiny","trace":[{"exists":true,"name":"a.json","op":"exists","seq":1},{"op":"wipe","seq":2}]}`,
		string(got))
}

// writeOnly hides the Lister implementation of the wrapped backend.
type writeOnly struct {
	storage.Backend
}
