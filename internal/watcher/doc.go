// Package watcher reloads the lexicon when its source file changes.
//
// A SourceWatcher watches the directory holding the source file with fsnotify
// and keeps only events for that file, so editors that save by writing a
// temporary file and renaming it over the original are seen as a modification.
// When fsnotify cannot be used the watcher polls the file's size and mtime.
//
// Events are debounced: a burst of writes produces one call to the handler,
// after the file has been quiet for the debounce window.
//
// Usage:
//
//	w, err := watcher.NewSourceWatcher(path, watcher.DefaultOptions(),
//	    func(ctx context.Context, ev watcher.FileEvent) error {
//	        _, err := lex.ImportFile(ctx, ev.Path)
//	        return err
//	    })
//	if err != nil {
//	    return err
//	}
//	go func() { _ = w.Run(ctx) }()
package watcher
