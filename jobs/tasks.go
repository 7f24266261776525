package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskItemImport imports an uploaded item workbook.
	TaskItemImport = "items:import"
	// TaskIdempotencyCleanup drops expired form submission keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// ItemImportPayload points at a workbook saved under the upload directory.
type ItemImportPayload struct {
	Path    string `json:"path"`
	ActorID int64  `json:"actor_id"`
}

// NewItemImportTask constructs an Asynq task for an uploaded workbook.
func NewItemImportTask(payload ItemImportPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskItemImport, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3), asynq.Timeout(10*time.Minute)), nil
}

// IdempotencyCleanupPayload sets how long submission keys are kept.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the periodic cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention.Hours())})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
