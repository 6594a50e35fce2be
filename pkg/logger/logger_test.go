package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"upper case", "WARN", zerolog.WarnLevel},
		{"empty defaults to info", "", zerolog.InfoLevel},
		{"garbage defaults to info", "loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(Config{Level: tt.level, Output: &bytes.Buffer{}})
			assert.Equal(t, tt.expected, log.GetLevel())
		})
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Output: &buf})

	log.Info().Int64("cik", 123).Msg("stored filing")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "stored filing", line["message"])
	assert.Equal(t, "edgardiff", line["app"])
	assert.EqualValues(t, 123, line["cik"])
}

func TestNew_FileSinkReceivesRecords(t *testing.T) {
	var console, file bytes.Buffer
	log := New(Config{Level: "debug", Pretty: true, Output: &console, File: &file})

	log.Debug().Msg("hello")

	assert.Contains(t, console.String(), "hello")
	assert.Contains(t, file.String(), `"message":"hello"`)
}
