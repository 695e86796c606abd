package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/lexsearch/internal/config"
)

func TestServe_WatcherReimportsSource(t *testing.T) {
	// Given: an imported lexicon whose source is watched
	dir := isolate(t)
	source := filepath.Join(dir, "lexicon.yaml")
	require.NoError(t, os.WriteFile(source, []byte(smallLexicon), 0o644))

	cfg := config.NewConfig()
	cfg.Lexicon.Source = source
	cfg.Server.WatchDebounce = "50ms"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lex, err := openLexicon(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = lex.Close() }()
	_, err = lex.ImportFile(ctx, source)
	require.NoError(t, err)

	w, err := newSourceWatcher(cfg, lex)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	// When: the source gains an entry
	grown := smallLexicon + "  - id: 3\n    readings: [ほん]\n    glosses: [book]\n"
	require.NoError(t, os.WriteFile(source, []byte(grown), 0o644))

	// Then: the lexicon is re-imported
	require.Eventually(t, func() bool {
		st, err := lex.Stats(ctx)
		return err == nil && st.Entries == 3
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestServe_WatcherIgnoresRemovedSource(t *testing.T) {
	dir := isolate(t)
	source := filepath.Join(dir, "lexicon.yaml")
	require.NoError(t, os.WriteFile(source, []byte(smallLexicon), 0o644))

	cfg := config.NewConfig()
	cfg.Lexicon.Source = source
	cfg.Server.WatchDebounce = "20ms"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	lex, err := openLexicon(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = lex.Close() }()
	_, err = lex.ImportFile(ctx, source)
	require.NoError(t, err)

	w, err := newSourceWatcher(cfg, lex)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	// When: the source is deleted
	require.NoError(t, os.Remove(source))
	time.Sleep(200 * time.Millisecond)

	// Then: the lexicon is untouched and nothing failed
	st, err := lex.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Entries)
	assert.Zero(t, w.Failures())

	cancel()
	<-done
}
