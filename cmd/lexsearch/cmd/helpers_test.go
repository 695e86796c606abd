package cmd

import (
	"bytes"
	"path/filepath"
	"testing"
)

// isolate points every lexsearch path at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LEXSEARCH_HOME", filepath.Join(dir, "data"))
	t.Setenv("LEXSEARCH_LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	for _, k := range []string{
		"LEXSEARCH_DB", "LEXSEARCH_SOURCE", "LEXSEARCH_INDEX_BACKEND", "LEXSEARCH_CACHE_SIZE",
		"LEXSEARCH_MAX_RESULTS", "LEXSEARCH_LOG_LEVEL", "LEXSEARCH_WATCH", "NO_COLOR",
	} {
		t.Setenv(k, "")
	}
	return dir
}

// run executes the root command with --dir pointing at dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := cmd.Execute()
	return buf.String(), err
}
