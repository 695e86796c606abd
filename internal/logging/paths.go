package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.lexsearch/logs/).
// Falls back to the temp directory if home is unavailable.
func DefaultLogDir() string {
	if dir := os.Getenv("LEXSEARCH_LOG_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".lexsearch", "logs")
	}
	return filepath.Join(home, ".lexsearch", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "lexsearch.log")
}
