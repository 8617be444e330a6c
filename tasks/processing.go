package tasks

import (
	"context"

	"healthai.com/rider/redis"
	"healthai.com/rider/types"
)

const ProcessingDB redis.DB = 0

type TaskStatus string

const (
	TaskStatusProcessing       TaskStatus = "processing"
	TaskStatusSubmitted        TaskStatus = "submitted"
	TaskStatusStarted          TaskStatus = "started"
	TaskStatusFailed           TaskStatus = "failed"
	TaskStatusCompletedSuccess TaskStatus = "completed - success"
	TaskStatusCompletedFailure TaskStatus = "completed - failure"
	TaskStatusCanceled         TaskStatus = "canceled"
)

func (s TaskStatus) Complete() bool {
	return s == TaskStatusCompletedSuccess || s == TaskStatusCompletedFailure || s == TaskStatusCanceled
}

func (s TaskStatus) Submitted() bool {
	return s == TaskStatusSubmitted || s == TaskStatusStarted || s == TaskStatusProcessing
}

// ProcessingTask is the state of one queued report. DocumentKeys are object
// storage keys of the uploaded files.
type ProcessingTask struct {
	Tid            string         `json:"tid"`
	Form           types.FormData `json:"form"`
	DocumentKeys   []string       `json:"document_keys"`
	UserCanceled   bool           `json:"user_canceled"`
	Status         TaskStatus     `json:"status"`
	Attempts       int            `json:"attempts"`
	StartedAt      *string        `json:"started_at"`
	CompletedAt    *string        `json:"completed_at"`
	ResultsFileKey string         `json:"results_file_key"`
	ErrorMessages  []string       `json:"error_messages"`
}

type ProcessingTasks struct {
	client redis.Client
}

func (tasks ProcessingTasks) Get(ctx context.Context, redisKey string) (*ProcessingTask, error) {
	var task ProcessingTask
	err := tasks.client.GetDocument(ctx, redisKey, &task)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Submit stores a new task in the submitted state.
func (tasks ProcessingTasks) Submit(ctx context.Context, task ProcessingTask) error {
	task.Status = TaskStatusSubmitted
	return tasks.client.SaveDocument(ctx, task.Tid, task)
}

func (tasks ProcessingTasks) Update(ctx context.Context, redisKey string, updateFunc func(task *ProcessingTask)) error {
	var task ProcessingTask
	return tasks.client.UpdateDocument(ctx, redisKey, &task, func() { updateFunc(&task) })
}
