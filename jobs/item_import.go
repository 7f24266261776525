package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/ledgerline/ledgerline/internal/jobs"
	"github.com/ledgerline/ledgerline/internal/masterdata/items"
	"github.com/ledgerline/ledgerline/internal/shared"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// FileImporter imports a workbook from disk.
type FileImporter interface {
	ImportFile(ctx context.Context, path string) (items.ImportReport, error)
}

// ItemImportJob processes workbooks queued by the item import page.
type ItemImportJob struct {
	Importer  FileImporter
	UploadDir string
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewItemImportJob wires dependencies for the import handler.
func NewItemImportJob(importer FileImporter, uploadDir string, logger *slog.Logger, metrics *jobmetrics.Metrics) *ItemImportJob {
	return &ItemImportJob{Importer: importer, UploadDir: uploadDir, Logger: logger, Metrics: metrics}
}

// Handle imports the workbook named in the payload and removes it once done.
// Workbooks that can never import are dropped without retry.
func (j *ItemImportJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Importer == nil {
		return errors.New("item import: handler not configured")
	}
	var payload ItemImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("item import: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if !j.withinUploadDir(payload.Path) {
		return fmt.Errorf("item import: path %q outside upload dir: %w", payload.Path, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskItemImport)
	defer func() { resultErr = tracker.End(resultErr) }()

	logger := j.logger().With(slog.String("path", payload.Path), slog.Int64("actor_id", payload.ActorID))
	report, err := j.Importer.ImportFile(ctx, payload.Path)
	var userErr shared.UserError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("import workbook missing")
		return fmt.Errorf("item import: %v: %w", err, asynq.SkipRetry)
	case errors.As(err, &userErr):
		logger.Warn("import rejected", slog.String("reason", userErr.UserMessage()))
		j.remove(logger, payload.Path)
		return fmt.Errorf("item import: %v: %w", err, asynq.SkipRetry)
	case err != nil:
		logger.Error("import workbook", slog.Int("created", report.Created), slog.Any("error", err))
		return err
	}

	j.remove(logger, payload.Path)
	j.metrics().AddRows(TaskItemImport, int64(report.Created))
	logger.Info("import finished",
		slog.Int("created", report.Created),
		slog.Int("skipped", report.Skipped),
		slog.Int("errors", len(report.Errors)))
	for _, rowErr := range report.Errors {
		logger.Warn("import row rejected", slog.String("detail", rowErr))
	}
	return nil
}

func (j *ItemImportJob) withinUploadDir(path string) bool {
	if j.UploadDir == "" {
		return true
	}
	dir, err := filepath.Abs(j.UploadDir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return strings.HasPrefix(abs, dir+string(filepath.Separator))
}

func (j *ItemImportJob) remove(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("remove workbook", slog.Any("error", err))
	}
}

func (j *ItemImportJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ItemImportJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
