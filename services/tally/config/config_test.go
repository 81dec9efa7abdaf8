// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AleutianAI/infotally/pkg/infotheory"
	"github.com/AleutianAI/infotally/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
service:
  name: weather-station
  listen: "0.0.0.0:9000"
  log_level: debug
storage:
  in_memory: true
ingest:
  watch_dir: /tmp/drop
  debounce: 2s
  workers: 8
basis: "4"
variables:
  - name: outlook
    kind: alphabet
    alphabet: [sunny, overcast, rain]
  - name: humidity
    kind: range
    bins: 5
    min: 0
    max: 100
pairs:
  - name: outlook_humidity
    x: outlook
    y: humidity
`

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, infotheory.Bits, cfg.BasisValue())
	assert.Equal(t, logging.LevelInfo, cfg.LogLevel())
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "weather-station", cfg.Service.Name)
	assert.Equal(t, "0.0.0.0:9000", cfg.Service.Listen)
	assert.Equal(t, logging.LevelDebug, cfg.LogLevel())
	assert.True(t, cfg.Storage.InMemory)
	assert.Equal(t, 2*time.Second, cfg.Ingest.Debounce)
	assert.Equal(t, 8, cfg.Ingest.Workers)
	assert.Equal(t, infotheory.BinBasis(4), cfg.BasisValue())

	// Defaults survive for fields the file leaves out.
	assert.Equal(t, float64(50), cfg.Service.RateLimit)
	assert.Equal(t, 100, cfg.Service.RateBurst)

	// Declared variables replace the examples.
	require.Len(t, cfg.Variables, 2)
	assert.Equal(t, "outlook", cfg.Variables[0].Name)

	humidity := cfg.Variables[1]
	assert.Equal(t, "humidity", humidity.Name)
	assert.Equal(t, KindRange, humidity.Kind)
	assert.Equal(t, 5, humidity.Bins)
	assert.Equal(t, float64(100), humidity.Max)

	require.Len(t, cfg.Pairs, 1)
	assert.Equal(t, "outlook", cfg.Pairs[0].X)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantMsg string
	}{
		{
			name:    "no variables",
			yaml:    "basis: bits\n",
			wantMsg: "no variables or pairs",
		},
		{
			name: "unknown kind",
			yaml: `
variables:
  - name: v
    kind: gaussian
`,
			wantMsg: "Kind",
		},
		{
			name: "range without bins",
			yaml: `
variables:
  - name: v
    kind: range
    min: 0
    max: 1
`,
			wantMsg: "bins >= 1",
		},
		{
			name: "inverted range",
			yaml: `
variables:
  - name: v
    kind: range
    bins: 3
    min: 5
    max: 1
`,
			wantMsg: "must exceed min",
		},
		{
			name: "empty alphabet",
			yaml: `
variables:
  - name: v
    kind: alphabet
`,
			wantMsg: "alphabet is empty",
		},
		{
			name: "padded alphabet symbol",
			yaml: `
variables:
  - {name: v, kind: alphabet, alphabet: [" sunny", rainy]}
`,
			wantMsg: `symbol " sunny" has surrounding whitespace`,
		},
		{
			name: "whitespace-only alphabet symbol",
			yaml: `
variables:
  - {name: v, kind: alphabet, alphabet: [a, "  "]}
`,
			wantMsg: "surrounding whitespace",
		},
		{
			name: "repeated alphabet symbol",
			yaml: `
variables:
  - {name: v, kind: alphabet, alphabet: [a, b, a]}
`,
			wantMsg: `symbol "a" listed twice`,
		},
		{
			name: "duplicate variable",
			yaml: `
variables:
  - {name: v, kind: alphabet, alphabet: [a]}
  - {name: v, kind: alphabet, alphabet: [b]}
`,
			wantMsg: "declared twice",
		},
		{
			name: "pair references unknown variable",
			yaml: `
variables:
  - {name: v, kind: alphabet, alphabet: [a]}
pairs:
  - {name: p, x: v, y: w}
`,
			wantMsg: `undeclared variable "w"`,
		},
		{
			name: "pair named like a variable",
			yaml: `
variables:
  - {name: v, kind: alphabet, alphabet: [a]}
  - {name: w, kind: alphabet, alphabet: [b]}
pairs:
  - {name: v, x: v, y: w}
`,
			wantMsg: "same name as a variable",
		},
		{
			name: "infinite range",
			yaml: `
variables:
  - {name: v, kind: range, bins: 2, min: 0, max: .inf}
`,
			wantMsg: "must be finite",
		},
		{
			name: "bad basis",
			yaml: `
basis: "1"
variables:
  - {name: v, kind: alphabet, alphabet: [a]}
`,
			wantMsg: "invalid basis",
		},
		{
			name: "bad listen address",
			yaml: `
service:
  listen: "nowhere"
variables:
  - {name: v, kind: alphabet, alphabet: [a]}
`,
			wantMsg: "Listen",
		},
		{
			name: "slash in name",
			yaml: `
variables:
  - {name: a/b, kind: alphabet, alphabet: [a]}
`,
			wantMsg: "Name",
		},
		{
			name: "persistent storage without path",
			yaml: `
storage:
  path: ""
variables:
  - {name: v, kind: alphabet, alphabet: [a]}
`,
			wantMsg: "Path",
		},
		{
			name:    "malformed yaml",
			yaml:    "variables: [",
			wantMsg: "parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	path := filepath.Join(t.TempDir(), "infotally.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  path: ~/tally-data
variables:
  - {name: v, kind: alphabet, alphabet: [a]}
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "tally-data"), cfg.Storage.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "infotally.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)

	want := DefaultConfig()
	assert.Equal(t, want.Variables, cfg.Variables)
	assert.Equal(t, want.Pairs, cfg.Pairs)
	assert.Equal(t, want.Storage.GCInterval, cfg.Storage.GCInterval)
	assert.Equal(t, want.Ingest.Debounce, cfg.Ingest.Debounce)

	assert.ErrorIs(t, WriteDefault(path), os.ErrExist)
}
