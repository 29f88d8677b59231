package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFlagsDefaults(t *testing.T) {
	cfg, err := parseFlags(nil)
	require.NoError(t, err)
	require.Equal(t, "1024", cfg.port)
	require.Equal(t, "/etc/mime.types", cfg.types)
	require.Equal(t, ".", cfg.docroot)
	require.Equal(t, "single", cfg.model)
	require.Equal(t, "webserv", cfg.name)
}

func TestParseFlagsOverrides(t *testing.T) {
	cfg, err := parseFlags([]string{
		"--port", "9090",
		"--types", "types.txt",
		"--docroot", "/srv/www",
		"--model", "multi",
		"--name", "custom",
	})
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.port)
	require.Equal(t, "types.txt", cfg.types)
	require.Equal(t, "/srv/www", cfg.docroot)
	require.Equal(t, "multi", cfg.model)
	require.Equal(t, "custom", cfg.name)
}

func TestParseFlagsRejectsUnknownModel(t *testing.T) {
	_, err := parseFlags([]string{"--model", "bogus"})
	require.Error(t, err)
}
