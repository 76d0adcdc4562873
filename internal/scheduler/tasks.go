package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskAnalyticsSync = "analytics.sync"

const TaskMissingDocsDigest = "analytics.digest"

// SyncPayload bounds one sync run. From and To are RFC 3339 timestamps;
// empty values make the worker derive the configured window around now.
type SyncPayload struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

func NewSyncTask(payload SyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsSync, data), nil
}

func ParseSyncPayload(task *asynq.Task) (SyncPayload, error) {
	var payload SyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SyncPayload{}, err
	}
	return payload, nil
}

func NewDigestTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskMissingDocsDigest, nil), nil
}
