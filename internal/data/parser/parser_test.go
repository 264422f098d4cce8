package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/penwyp/go-solis-viewer/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCleanedLog(t *testing.T) {
	input := "\ufeffDate;PAC;UDC;Temp\r\n" +
		"01/03/25 10:00;1200;310;31,5\r\n" +
		"01/03/25 10:10;1350;315;32.0\r\n"

	table, err := NewParser("", time.UTC).Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Date", "PAC", "UDC", "Temp"}, table.Columns())
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, []time.Time{
		time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 10, 10, 0, 0, time.UTC),
	}, table.Times())

	raw, err := table.Column("Temp")
	require.NoError(t, err)
	assert.Equal(t, []string{"31,5", "32.0"}, raw)
}

func TestParseDateColumnByMarker(t *testing.T) {
	tests := []struct {
		name   string
		marker string
		header string
		want   string
	}{
		{"exact", "Date", "Date;PAC", "Date"},
		{"partial", "Date", "Date/Time;PAC", "Date/Time"},
		{"exact_wins", "Time", "Time of day;Time;PAC", "Time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.header + "\r\n01/03/25 10:00;1200\r\n"
			if strings.Count(tt.header, ";") == 2 {
				input = tt.header + "\r\nmorning;01/03/25 10:00;1200\r\n"
			}
			table, err := NewParser(tt.marker, time.UTC).Parse(strings.NewReader(input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, table.DateColumn())
			assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), table.Times()[0])
		})
	}
}

func TestParseUsesLocation(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("timezone database unavailable")
	}

	table, err := NewParser("Date", paris).Parse(strings.NewReader("Date;PAC\n01/03/25 10:00;1\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), table.Times()[0].UTC())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		target  error
		message string
	}{
		{name: "empty file", input: "", target: ErrMissingHeader},
		{name: "header only", input: "Date;PAC\r\n", target: ErrNoRows},
		{name: "no date column", input: "Time;PAC\n10:00;1\n", target: model.ErrMissingColumn},
		{name: "ragged row", input: "Date;PAC\n01/03/25 10:00;1;2\n", message: "malformed row"},
		{name: "month first date", input: "Date;PAC\n03/31/25 10:00;1\n", message: `line 2: invalid Date value "03/31/25 10:00"`},
		{name: "four digit year", input: "Date;PAC\n01/03/2025 10:00;1\n", message: "invalid Date value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser("Date", time.UTC).Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}
}

func TestParseFileCachesUnchangedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.clean.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date;PAC\r\n01/03/25 10:00;1\r\n"), 0644))

	p := NewParser("Date", time.UTC)
	first, err := p.ParseFile(path)
	require.NoError(t, err)

	second, err := p.ParseFile(path)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, os.WriteFile(path, []byte("Date;PAC\r\n01/03/25 10:00;1\r\n01/03/25 10:10;2\r\n"), 0644))
	third, err := p.ParseFile(path)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, third.Len())
}

func TestParseFileMissing(t *testing.T) {
	_, err := NewParser("Date", time.UTC).ParseFile(filepath.Join(t.TempDir(), "missing.clean.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseFileWrapsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.clean.csv")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := NewParser("Date", time.UTC).ParseFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingHeader)
	assert.Contains(t, err.Error(), path)
}
