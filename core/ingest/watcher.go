// Package ingest watches a local drop directory and publishes audio
// files appearing there into the archive: upload to object storage,
// then a catalog row. It exists so an admin can publish by copying
// files instead of driving the HTTP API.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"unframe/logger"
	"unframe/model"
	"unframe/repository"
	"unframe/storage"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

var audioExts = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
}

// Watcher publishes dropped audio files to the catalog.
type Watcher struct {
	dir         string
	tracks      repository.TrackRepository
	onPublished func(track *model.Track)

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a Watcher over dir. onPublished may be nil; when
// set it fires after each successful publish (the events hub uses it
// to push catalog updates).
func NewWatcher(dir string, tracks repository.TrackRepository, onPublished func(track *model.Track)) *Watcher {
	return &Watcher{
		dir:         dir,
		tracks:      tracks,
		onPublished: onPublished,
		done:        make(chan struct{}),
	}
}

// Start begins watching. Files already sitting in the directory are
// published first so a restart doesn't strand them.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create ingest dir %s: %w", w.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch ingest dir %s: %w", w.dir, err)
	}
	w.watcher = watcher

	go w.sweepExisting(ctx)
	go w.loop(ctx)

	logger.Info("[Ingest] Watching drop directory", logger.String("dir", w.dir))
	return nil
}

// Stop detaches the watcher.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		w.watcher.Close()
	}
	close(w.done)
}

func (w *Watcher) sweepExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Error("[Ingest] Failed to read drop directory", logger.ErrorField(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.publish(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				// Give the copier a moment to finish writing before
				// reading the file.
				go func(path string) {
					if err := waitForQuiescence(path, 10, 500*time.Millisecond); err != nil {
						logger.Warn("[Ingest] File never settled", logger.String("path", path), logger.ErrorField(err))
						return
					}
					w.publish(ctx, path)
				}(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("[Ingest] Watcher error", logger.ErrorField(err))
		}
	}
}

// waitForQuiescence waits until the file size stops changing.
func waitForQuiescence(path string, attempts int, interval time.Duration) error {
	var lastSize int64 = -1
	for i := 0; i < attempts; i++ {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == lastSize && info.Size() > 0 {
			return nil
		}
		lastSize = info.Size()
		time.Sleep(interval)
	}
	return fmt.Errorf("file %s still growing after %d checks", path, attempts)
}

func (w *Watcher) publish(ctx context.Context, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	contentType, ok := audioExts[ext]
	if !ok {
		return
	}

	title, artist := metadataFromFilename(path)
	// Deterministic object path so re-dropping the same file is a
	// no-op instead of a duplicate publish.
	objectPath := fmt.Sprintf("audio/%s%s", sanitizeName(title, artist), ext)

	existing, err := w.tracks.GetTrackByAudioPath(objectPath)
	if err != nil {
		logger.Error("[Ingest] Failed to check existing track", logger.ErrorField(err))
		return
	}
	if existing != nil {
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Error("[Ingest] Failed to open dropped file", logger.String("path", path), logger.ErrorField(err))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		logger.Error("[Ingest] Failed to stat dropped file", logger.String("path", path), logger.ErrorField(err))
		return
	}

	if _, err := storage.Upload(ctx, objectPath, contentType, file, info.Size()); err != nil {
		logger.Error("[Ingest] Upload failed", logger.String("path", path), logger.ErrorField(err))
		return
	}

	track := &model.Track{
		Title:     title,
		Artist:    artist,
		AudioPath: objectPath,
		Tag:       sql.NullString{String: "Ingest", Valid: true},
	}
	id, err := w.tracks.CreateTrack(track)
	if err != nil {
		logger.Error("[Ingest] Failed to create track row", logger.String("path", path), logger.ErrorField(err))
		return
	}
	track.ID = id

	// The original is no longer the source of truth once published.
	if err := os.Remove(path); err != nil {
		logger.Warn("[Ingest] Failed to remove published file", logger.String("path", path), logger.ErrorField(err))
	}

	logger.Info("[Ingest] Published track",
		logger.Int64("trackId", id),
		logger.String("title", title),
		logger.String("object", objectPath),
	)

	if w.onPublished != nil {
		w.onPublished(track)
	}
}

var nonObjectSafe = regexp.MustCompile(`[^a-zA-Z0-9_\-\.]+`)

// sanitizeName builds an object-key-safe base name from the track
// metadata.
func sanitizeName(title, artist string) string {
	base := title
	if artist != "" {
		base = artist + "_" + title
	}
	base = nonObjectSafe.ReplaceAllString(base, "_")
	if base == "" || base == "_" {
		base = uuid.New().String()
	}
	if len(base) > 150 {
		base = base[:150]
	}
	return base
}

// metadataFromFilename derives "artist - title" from the file name,
// falling back to the bare name as the title.
func metadataFromFilename(path string) (title, artist string) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if idx := strings.Index(base, " - "); idx > 0 {
		return strings.TrimSpace(base[idx+3:]), strings.TrimSpace(base[:idx])
	}
	return strings.TrimSpace(base), ""
}
