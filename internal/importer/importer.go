// Package importer watches an inbox directory and turns dropped text files
// into mind dumps.
package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/clearhead/pkg/models"
)

// settleDelay gives writers time to finish before a new file is read. Editors
// and sync clients often produce a burst of writes per save.
const settleDelay = 200 * time.Millisecond

// maxFileSize caps how much of a dropped file is imported.
const maxFileSize = 1 << 20

// DumpCreator persists imported dumps.
type DumpCreator interface {
	CreateDump(ctx context.Context, dump *models.MindDump) (int64, string, error)
}

// Enqueuer hands new dumps to the processing queue.
type Enqueuer interface {
	Enqueue(dumpID int64) bool
}

// Importer watches one directory for .txt and .md files. Each new file
// becomes one imported-source dump; the file is renamed with a .done suffix
// afterwards so restarts do not double-import.
type Importer struct {
	dir     string
	userID  string
	dumps   DumpCreator
	queue   Enqueuer
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	running bool
}

func New(dir, userID string, dumps DumpCreator, queue Enqueuer) (*Importer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Importer{dir: dir, userID: userID, dumps: dumps, queue: queue, watcher: fsw}, nil
}

// Run sweeps existing files, then watches for new ones until ctx is
// cancelled.
func (i *Importer) Run(ctx context.Context) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return nil
	}
	i.running = true
	i.mu.Unlock()

	if err := i.watcher.Add(i.dir); err != nil {
		return err
	}
	defer i.watcher.Close()

	// Files dropped while the service was down.
	i.sweepExisting(ctx)

	log.Info().Str("dir", i.dir).Msg("Inbox importer started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-i.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !importable(event.Name) {
				continue
			}
			time.Sleep(settleDelay)
			i.importFile(ctx, event.Name)
		case err, ok := <-i.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Inbox watcher error")
		}
	}
}

func (i *Importer) sweepExisting(ctx context.Context) {
	entries, err := os.ReadDir(i.dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", i.dir).Msg("Failed to read inbox directory")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !importable(entry.Name()) {
			continue
		}
		i.importFile(ctx, filepath.Join(i.dir, entry.Name()))
	}
}

func (i *Importer) importFile(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.Size() > maxFileSize {
		log.Warn().Str("path", path).Int64("size", info.Size()).Msg("Inbox file too large, skipping")
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to read inbox file")
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		log.Debug().Str("path", path).Msg("Empty inbox file, skipping")
		i.markDone(path)
		return
	}

	id, uid, err := i.dumps.CreateDump(ctx, &models.MindDump{
		UserID:  i.userID,
		Source:  models.DumpSourceImported,
		RawText: text,
	})
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to store imported dump")
		return
	}

	i.markDone(path)
	i.queue.Enqueue(id)
	log.Info().Str("path", path).Str("uid", uid).Msg("Imported inbox file")
}

// markDone renames the source file so it is not re-imported. Renaming (rather
// than deleting) keeps the raw capture recoverable.
func (i *Importer) markDone(path string) {
	if err := os.Rename(path, path+".done"); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to rename imported file")
	}
}

func importable(name string) bool {
	if strings.HasSuffix(name, ".done") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	}
	return false
}
