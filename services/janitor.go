package services

import (
	"context"
	"time"

	"medivize/metrics"
	"medivize/storage"

	"go.uber.org/zap"
)

// UploadJanitor entfernt Uploads, die älter als Retention sind.
type UploadJanitor struct {
	Store     storage.UploadStore
	Retention time.Duration
	Logger    *zap.Logger
	Metrics   *metrics.Metrics

	now func() time.Time
}

// NewUploadJanitor erstellt einen Janitor; Retention 0 schaltet ihn ab.
func NewUploadJanitor(store storage.UploadStore, retention time.Duration, logger *zap.Logger, m *metrics.Metrics) *UploadJanitor {
	return &UploadJanitor{Store: store, Retention: retention, Logger: logger, Metrics: m, now: time.Now}
}

// Enabled meldet, ob überhaupt aufgeräumt werden soll.
func (j *UploadJanitor) Enabled() bool {
	return j.Retention > 0
}

// Run löscht alle Uploads vor now-Retention und gibt deren Anzahl zurück.
func (j *UploadJanitor) Run(ctx context.Context) (int, error) {
	if !j.Enabled() {
		return 0, nil
	}
	cutoff := j.now().Add(-j.Retention)
	n, err := j.Store.Prune(ctx, cutoff)
	j.Metrics.UploadsPruned(n)
	if err != nil {
		j.Logger.Error("Upload cleanup failed", zap.Int("removed", n), zap.Error(err))
		return n, err
	}
	j.Logger.Info("Upload cleanup completed", zap.Int("removed", n), zap.Time("cutoff", cutoff))
	return n, nil
}
