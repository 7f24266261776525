package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/ledgerline/ledgerline/internal/jobs"
	"github.com/ledgerline/ledgerline/internal/masterdata/items"
	_ "github.com/ledgerline/ledgerline/testing"
)

type fakeImporter struct {
	paths  []string
	report items.ImportReport
	err    error
}

func (f *fakeImporter) ImportFile(ctx context.Context, path string) (items.ImportReport, error) {
	f.paths = append(f.paths, path)
	return f.report, f.err
}

func importTask(t *testing.T, path string) *asynq.Task {
	t.Helper()
	task, err := NewItemImportTask(ItemImportPayload{Path: path, ActorID: 9})
	require.NoError(t, err)
	assert.Equal(t, TaskItemImport, task.Type())
	return task
}

func saveUpload(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "upload.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("xlsx"), 0o600))
	return path
}

func newImportJob(importer FileImporter, dir string) *ItemImportJob {
	return NewItemImportJob(importer, dir, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
}

func TestItemImportJobRemovesWorkbook(t *testing.T) {
	dir := t.TempDir()
	path := saveUpload(t, dir)
	importer := &fakeImporter{report: items.ImportReport{Created: 2, Skipped: 1, Errors: []string{"row 4: cp is not a number"}}}

	err := newImportJob(importer, dir).Handle(context.Background(), importTask(t, path))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, importer.paths)
	assert.NoFileExists(t, path)
}

func TestItemImportJobRetriesStoreFailures(t *testing.T) {
	dir := t.TempDir()
	path := saveUpload(t, dir)
	importer := &fakeImporter{err: errors.New("connection refused")}

	err := newImportJob(importer, dir).Handle(context.Background(), importTask(t, path))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	assert.FileExists(t, path)
}

func TestItemImportJobDropsUnusableWorkbooks(t *testing.T) {
	dir := t.TempDir()
	path := saveUpload(t, dir)
	importer := &fakeImporter{err: items.ErrMissingProductColumn}

	err := newImportJob(importer, dir).Handle(context.Background(), importTask(t, path))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.NoFileExists(t, path)

	missing := filepath.Join(dir, "gone.xlsx")
	importer.err = &os.PathError{Op: "open", Path: missing, Err: os.ErrNotExist}
	err = newImportJob(importer, dir).Handle(context.Background(), importTask(t, missing))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestItemImportJobRejectsForeignPaths(t *testing.T) {
	importer := &fakeImporter{}
	job := newImportJob(importer, t.TempDir())

	err := job.Handle(context.Background(), importTask(t, "/etc/passwd"))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, importer.paths)

	err = job.Handle(context.Background(), asynq.NewTask(TaskItemImport, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type fakeCleaner struct {
	olderThan time.Duration
	removed   int64
}

func (f *fakeCleaner) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return f.removed, nil
}

func TestIdempotencyCleanupJob(t *testing.T) {
	store := &fakeCleaner{removed: 3}
	job := NewIdempotencyCleanupJob(store, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewIdempotencyCleanupTask(24 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 24*time.Hour, store.olderThan)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, DefaultKeyRetention, store.olderThan)
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/jobs", NewHandler(nil, nil).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, QueueDefault, body.Queue)
	assert.Zero(t, body.Pending)
}
