package storage

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// UploadStore legt hochgeladene Bilder ab, solange sie als Referenz gebraucht werden.
type UploadStore interface {
	// Save speichert data unter name und gibt die öffentliche URL zurück.
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Delete entfernt die Datei name.
	Delete(ctx context.Context, name string) error
	// Prune löscht alle Uploads, die vor olderThan geschrieben wurden.
	Prune(ctx context.Context, olderThan time.Time) (int, error)
}

// LocalStore speichert Uploads in einem Verzeichnis, das unter URLPrefix ausgeliefert wird.
type LocalStore struct {
	fs        afero.Fs
	dir       string
	urlPrefix string
}

// NewLocalStore legt dir bei Bedarf an.
func NewLocalStore(fs afero.Fs, dir, urlPrefix string) (*LocalStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &LocalStore{fs: fs, dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Save schreibt data unter dem Basisnamen von name ins Upload-Verzeichnis.
func (s *LocalStore) Save(_ context.Context, name string, data []byte, _ string) (string, error) {
	if err := afero.WriteFile(s.fs, filepath.Join(s.dir, filepath.Base(name)), data, 0o644); err != nil {
		return "", err
	}
	return path.Join(s.urlPrefix, filepath.Base(name)), nil
}

// Delete entfernt die Datei name aus dem Upload-Verzeichnis.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	return s.fs.Remove(filepath.Join(s.dir, filepath.Base(name)))
}

// Prune löscht Dateien, deren Änderungszeit vor olderThan liegt.
func (s *LocalStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if e.IsDir() || !e.ModTime().Before(olderThan) {
			continue
		}
		if err := s.fs.Remove(filepath.Join(s.dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// FileSystem liefert das Upload-Verzeichnis für die statische Auslieferung.
func (s *LocalStore) FileSystem() http.FileSystem {
	return afero.NewHttpFs(s.fs).Dir(s.dir)
}
