package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"schooldir/internal/school"
	"schooldir/internal/sources"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadConfigJSON5WithLocalOverride(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "ingest.json5", `{
		// registry run
		source: "edb",
		districts: ["Wan Chai", "st"],
		delay: "2s",
		attempts: 5,
	}`)
	write(t, dir, "ingest.local.json5", `{ delay: "500ms", force: true }`)

	run, err := ReadConfig[Run](path)
	require.NoError(t, err)
	require.Equal(t, "edb", run.Source)
	require.Equal(t, "500ms", run.Delay)
	require.Equal(t, 5, run.Attempts)
	require.True(t, *run.Force)
	require.Nil(t, run.InsecureSkipVerify)

	cfg, err := run.Pipeline()
	require.NoError(t, err)
	require.True(t, cfg.Force)
	require.False(t, cfg.InsecureSkipVerify)
	require.Equal(t, 500*time.Millisecond, cfg.Delay)
	require.Nil(t, cfg.Trust)
	require.Len(t, cfg.Units, 2)
	require.Equal(t, "Wan Chai", cfg.Units[0].District)
	require.Equal(t, "Sha Tin", cfg.Units[1].District)
}

func TestLocalOverrideTurnsFlagsOff(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "ingest.yaml", `
source: edb
force: true
insecure_skip_verify: true
`)
	write(t, dir, "ingest.local.yaml", `
force: false
`)

	run, err := ReadConfig[Run](path)
	require.NoError(t, err)

	cfg, err := run.Pipeline()
	require.NoError(t, err)
	require.False(t, cfg.Force)
	require.True(t, cfg.InsecureSkipVerify)
}

func TestReadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := write(t, dir, "ingest.yaml", `
source: directory
trust: registry
timeout: 10s
units:
  - url: https://example.test/ps
    level: primary
`)

	run, err := ReadConfig[Run](path)
	require.NoError(t, err)

	cfg, err := run.Pipeline()
	require.NoError(t, err)
	require.Equal(t, school.TrustRegistry, *cfg.Trust)
	require.Equal(t, 10*time.Second, cfg.Timeout)
	require.Equal(t, []sources.Unit{{URL: "https://example.test/ps", Level: school.Primary}}, cfg.Units)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[Run](filepath.Join(t.TempDir(), "none.json5"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestPipelineValidation(t *testing.T) {
	testCases := []struct {
		name string
		run  Run
	}{
		{"unknown source", Run{Source: "nope"}},
		{"bad trust", Run{Source: "edb", Trust: "gospel"}},
		{"bad duration", Run{Source: "edb", Delay: "soon"}},
		{"no delay", Run{Source: "edb", Delay: "0s"}},
		{"delay below minimum", Run{Source: "edb", Delay: "10ms"}},
		{"unknown district", Run{Source: "edb", Districts: []string{"Atlantis"}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.run.Pipeline()
			require.Error(t, err)
		})
	}
}
