package options

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	Config = Configuration{Output: "image.jpg"}
	outputSet = false
}

func TestSplitOpts(t *testing.T) {
	assert.Equal(t, []string{"-fold-case", "-output", "cam.jpg"}, splitOpts("  -fold-case  -output cam.jpg "))
	assert.Empty(t, splitOpts(""))
}

func TestParseEnv(t *testing.T) {
	defer reset()
	reset()
	t.Setenv("NRF2JPEG_OPTS", "-fold-case -output cam.jpg -check")
	t.Setenv("NRF2JPEG_SQL", "/tmp/results.db")
	t.Setenv("NRF2JPEG_BROKER", "")

	require.NoError(t, parseEnv())
	assert.True(t, Config.FoldCase)
	assert.True(t, Config.Check)
	assert.Equal(t, "cam.jpg", Config.Output)
	assert.Equal(t, "/tmp/results.db", Config.Sql)
	assert.Empty(t, Config.Broker)
	assert.True(t, outputSet)
}

func TestParseEnvBadFlag(t *testing.T) {
	defer reset()
	reset()
	t.Setenv("NRF2JPEG_OPTS", "-no-such-flag")
	assert.Error(t, parseEnv())
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "nrf2jpeg.env")
	require.NoError(t, os.WriteFile(fn, []byte("NRF2JPEG_BROKER=mqtt://localhost/cam\nNRF2JPEG_SQL=from-file.db\n"), 0644))

	t.Setenv("NRF2JPEG_ENV", fn)
	t.Setenv("NRF2JPEG_SQL", "from-env.db")
	t.Setenv("NRF2JPEG_BROKER", "")
	os.Unsetenv("NRF2JPEG_BROKER")

	require.NoError(t, LoadDefaults())
	assert.Equal(t, "mqtt://localhost/cam", os.Getenv("NRF2JPEG_BROKER"))
	assert.Equal(t, "from-env.db", os.Getenv("NRF2JPEG_SQL"))

	t.Setenv("NRF2JPEG_ENV", filepath.Join(dir, "missing.env"))
	assert.NoError(t, LoadDefaults())
}

func TestOutputFor(t *testing.T) {
	defer reset()

	reset()
	assert.Equal(t, "image.jpg", OutputFor("/logs/Log 1.txt", 1))
	assert.Equal(t, "Log 1.txt", OutputFor("/logs/Log 1.txt", 2))

	Config.Outdir = "/tmp/out"
	assert.Equal(t, "/tmp/out/image.jpg", OutputFor("/logs/Log 1.txt", 1))
	assert.Equal(t, "/tmp/out/Log 1.txt", OutputFor("/logs/Log 1.txt", 2))

	reset()
	Config.Output = "photo.jpeg"
	outputSet = true
	assert.Equal(t, "photo.jpeg", OutputFor("/logs/Log 1.txt", 1))
	assert.Equal(t, "photo_Log 1.jpeg", OutputFor("/logs/Log 1.txt", 2))
	assert.Equal(t, "photo_Log 2.jpeg", OutputFor("/logs/Log 2.txt", 2))

	Config.Output = "shots/photo"
	assert.Equal(t, "shots/photo_Log 1", OutputFor("/logs/Log 1.txt", 2))
	Config.Outdir = "/tmp/out"
	assert.Equal(t, "/tmp/out/photo_Log 1", OutputFor("/logs/Log 1.txt", 2))
}
