package config_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitework/period-engine/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "./data/periods.db", cfg.Database.Path)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestRead_OverridesLayeredOverDefaults(t *testing.T) {
	// GIVEN: A config file setting only the port and database path
	// WHEN: Reading it
	// THEN: Set fields override, unset fields keep their defaults

	input := `
[server]
port = 3000

[database]
path = ":memory:"

[limits]
max_breaks = 5
`
	cfg, err := config.Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, 5, cfg.Limits.MaxBreaks)
	assert.Zero(t, cfg.Limits.MaxUsedEquipment)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins, "default kept")
}

func TestRead_MalformedTOML_Fails(t *testing.T) {
	_, err := config.Read(strings.NewReader("[server\nport ="))
	assert.Error(t, err)
}

func TestWrite_RoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 9090
	cfg.Server.CORSOrigins = []string{"https://fieldapp.example.com"}

	var buf bytes.Buffer
	require.NoError(t, config.Write(&buf, cfg))

	reloaded, err := config.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, 9090, reloaded.Server.Port)
	assert.Equal(t, []string{"https://fieldapp.example.com"}, reloaded.Server.CORSOrigins)
}

func TestReadFromFile_MissingFile_Fails(t *testing.T) {
	_, err := config.ReadFromFile("/nonexistent/periods.toml")
	assert.Error(t, err)
}
