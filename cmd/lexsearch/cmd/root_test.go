package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/lexsearch/internal/config"
)

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"search", "import", "stats", "serve", "config", "logs", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCmd_ProfileFlagsWriteFiles(t *testing.T) {
	dir := isolate(t)
	cpu := filepath.Join(dir, "cpu.prof")
	mem := filepath.Join(dir, "heap.prof")

	_, err := run(t, dir, "--profile-cpu", cpu, "--profile-mem", mem, "version", "--short")

	require.NoError(t, err)
	assert.FileExists(t, cpu)
	assert.FileExists(t, mem)
}

func TestRootCmd_DebugWritesLog(t *testing.T) {
	dir := isolate(t)
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	_, err := run(t, dir, "--debug", "version", "--short")

	require.NoError(t, err)
	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestServe_WatchNeedsSource(t *testing.T) {
	isolate(t)
	cfg := config.NewConfig()

	_, err := newSourceWatcher(cfg, nil)

	assert.ErrorContains(t, err, "lexicon.source")
}
