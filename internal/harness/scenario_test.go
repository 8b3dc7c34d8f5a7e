package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "slot_lifecycle.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "slot_lifecycle", s.Name)
	require.Len(t, s.Setup, 1)
	assert.Equal(t, "profiles/ada.yaml", s.Setup[0].Name)
	require.Len(t, s.Steps, 11)
	assert.Equal(t, OpWrite, s.Steps[0].Op)
	assert.Equal(t, yaml.MappingNode, s.Steps[0].Document.Kind)
	require.NotNil(t, s.Steps[4].Expect)
	require.NotNil(t, s.Steps[4].Expect.Exists)
	assert.True(t, *s.Steps[4].Expect.Exists)
	require.NotNil(t, s.Steps[10].Expect.Names)
	assert.Empty(t, *s.Steps[10].Expect.Names)
}

func TestLoadScenarios(t *testing.T) {
	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"formats", "names", "slot_lifecycle"}, names)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: misspelled steps key
step:
  - op: wipe
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nsteps:\n  - op: wipe\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nsteps:\n  - op: wipe\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\n",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown op",
			content: "name: n\ndescription: d\nsteps:\n  - op: rename\n",
			wantErr: `unknown op "rename"`,
		},
		{
			name:    "missing op",
			content: "name: n\ndescription: d\nsteps:\n  - name: a.json\n",
			wantErr: "op is required",
		},
		{
			name:    "read without name",
			content: "name: n\ndescription: d\nsteps:\n  - op: read\n",
			wantErr: "name is required for read",
		},
		{
			name:    "write without document",
			content: "name: n\ndescription: d\nsteps:\n  - op: write\n    name: a.json\n",
			wantErr: "document is required for write",
		},
		{
			name:    "unknown extension",
			content: "name: n\ndescription: d\nsteps:\n  - op: read\n    name: a.txt\n",
			wantErr: "steps[0]",
		},
		{
			name:    "unknown error code",
			content: "name: n\ndescription: d\nsteps:\n  - op: read\n    name: a.json\n    expect: {error: GONE}\n",
			wantErr: `unknown error code "GONE"`,
		},
		{
			name:    "names on read",
			content: "name: n\ndescription: d\nsteps:\n  - op: read\n    name: a.json\n    expect: {names: []}\n",
			wantErr: "names only applies to list",
		},
		{
			name:    "seed without document",
			content: "name: n\ndescription: d\nsetup:\n  - name: a.json\nsteps:\n  - op: wipe\n",
			wantErr: "setup[0]: document is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid scenario")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
