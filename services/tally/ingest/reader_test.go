// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ingest

import (
	"errors"
	"strings"
	"testing"

	tally_service "github.com/AleutianAI/infotally/services/tally"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect decodes input and returns copies of every batch.
func collect(t *testing.T, input string, format Format, batchSize int) ([][]tally_service.Record, int, error) {
	t.Helper()
	var batches [][]tally_service.Record
	n, err := Decode(strings.NewReader(input), format, batchSize, func(batch []tally_service.Record) error {
		batches = append(batches, append([]tally_service.Record(nil), batch...))
		return nil
	})
	return batches, n, err
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"data.csv", FormatCSV, false},
		{"/tmp/DATA.CSV", FormatCSV, false},
		{"events.jsonl", FormatJSONL, false},
		{"events.ndjson", FormatJSONL, false},
		{"events.json", "", true},
		{"README", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_CSV(t *testing.T) {
	input := `weather, commute ,temp
sunny,walk,7.5
# a comment
rainy,,2
,,
cloudy,drive,
`
	batches, n, err := collect(t, input, FormatCSV, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, batches, 2)

	assert.Equal(t, tally_service.Record{"weather": "sunny", "commute": "walk", "temp": "7.5"}, batches[0][0])
	assert.Equal(t, tally_service.Record{"weather": "rainy", "temp": "2"}, batches[0][1])
	assert.Equal(t, tally_service.Record{"weather": "cloudy", "commute": "drive"}, batches[1][0])
}

func TestDecode_CSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{"ragged row", "a,b\n1,2\n3\n", "read csv"},
		{"unnamed column", "a,,c\n1,2,3\n", "column 2 has no name"},
		{"bad quoting", "a\n\"open\n", "read csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := collect(t, tt.input, FormatCSV, 10)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	_, n, err := collect(t, "", FormatCSV, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDecode_JSONL(t *testing.T) {
	input := `{"weather":"sunny","temp":7.5,"dry":true}

{"weather":"rainy","note":null}
{}
null
{"commute":"walk"}`

	batches, n, err := collect(t, input, FormatJSONL, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, batches, 1)
	assert.Equal(t, []tally_service.Record{
		{"weather": "sunny", "temp": "7.5", "dry": "true"},
		{"weather": "rainy"},
		{"commute": "walk"},
	}, batches[0])
}

func TestDecode_JSONLErrors(t *testing.T) {
	input := `{"weather":"sunny"}
{"weather":["sunny"]}
{"weather":"rainy"}
`
	batches, n, err := collect(t, input, FormatJSONL, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 2")
	assert.Equal(t, 1, n)
	assert.Len(t, batches, 1)
}

func TestDecode_EmitError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	n, err := Decode(strings.NewReader("a\n1\n2\n3\n"), FormatCSV, 1, func([]tally_service.Record) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, n)
}

func TestDecode_UnknownFormat(t *testing.T) {
	_, err := Decode(strings.NewReader(""), Format("xml"), 1, func([]tally_service.Record) error { return nil })
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
