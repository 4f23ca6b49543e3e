package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tropicaldog17/marketpulse/internal/models"
)

// AuditWriter persists rejected records to batch-partitioned JSON snapshots
// for root cause analysis. The pipeline never reads these back.
type AuditWriter struct {
	dir    string
	logger *zap.Logger
}

func NewAuditWriter(dir string, logger *zap.Logger) *AuditWriter {
	return &AuditWriter{dir: dir, logger: logger}
}

// WriteSnapshot serializes all rejected records for a batch into one file,
// overwriting any prior snapshot for the same batch id.
func (w *AuditWriter) WriteSnapshot(batchID string, rejected []models.RejectedRecord) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	name := "issues_unknown.json"
	if batchID != "" {
		name = fmt.Sprintf("issues_%s.json", batchID)
	}
	path := filepath.Join(w.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create audit snapshot: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(rejected); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode audit snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close audit snapshot: %w", err)
	}

	w.logger.Info("data quality report generated",
		zap.String("path", path),
		zap.Int("rejected", len(rejected)))
	return nil
}
