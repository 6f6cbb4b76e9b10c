package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithComponentAddsFields(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf, Service: "unit"})

	l := WithComponent("speedtest")
	l.Info().Str(FieldURL, "http://a/b.m3u8").Msg("probed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "unit", entry["service"])
	assert.Equal(t, "speedtest", entry[FieldComponent])
	assert.Equal(t, "http://a/b.m3u8", entry[FieldURL])
	assert.Equal(t, "probed", entry["message"])
}

func TestBaseLevel(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "warn", Output: &buf})

	l := Base()
	l.Info().Msg("hidden")
	assert.Zero(t, buf.Len(), "info must be filtered at warn level")

	l = Base()
	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), `"service":"iptv-collector"`)

	Reconfigure(Config{Level: "info", Output: &bytes.Buffer{}})
}
