// Package storage provides the durable backends for the help-center state
// document: a JSON file driver and a postgres driver. Both implement
// helpcenter.Store.
package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"log/slog"

	"helpcenterbot/core/helpcenter"
	"helpcenterbot/core/logger"
)

// FileStore persists the state document as a single JSON file. Writes go
// through a temp file and rename so a crash mid-write never leaves a
// half-written document behind.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to path. The parent directory is
// created on the first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the document from disk. A missing file is a normal first run;
// an unreadable or corrupted file is logged and replaced with defaults so
// the bot always starts.
func (f *FileStore) Load() *helpcenter.State {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.ST.Warn("state file unreadable, starting fresh",
				slog.String("event", "store.load"),
				slog.String("path", f.path),
				slog.String("err", err.Error()),
			)
		} else {
			logger.ST.Info("no state file, starting fresh",
				slog.String("event", "store.load"),
				slog.String("path", f.path),
			)
		}
		return helpcenter.DefaultState()
	}

	st := helpcenter.DefaultState()
	if err := json.Unmarshal(data, st); err != nil {
		logger.ST.Warn("state file corrupted, starting fresh",
			slog.String("event", "store.load"),
			slog.String("path", f.path),
			slog.String("err", err.Error()),
		)
		return helpcenter.DefaultState()
	}

	logger.ST.Info("state loaded",
		slog.String("event", "store.load"),
		slog.String("path", f.path),
		slog.Int("bytes", len(data)),
	)
	return st
}

// Save writes the document atomically: marshal, write a sibling temp file,
// rename over the target.
func (f *FileStore) Save(st *helpcenter.State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return err
	}

	logger.ST.Debug("state saved",
		slog.String("event", "store.save"),
		slog.String("path", f.path),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// Close is a no-op for the file driver.
func (f *FileStore) Close() error { return nil }
