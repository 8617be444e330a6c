package worker

import (
	"context"
	"fmt"
	"time"

	"healthai.com/rider/tasks"
)

type redisTransactions interface {
	getTask(ctx context.Context, redisKey string) (*tasks.ProcessingTask, error)
	onTaskStarted(ctx context.Context, task *Task) error
	onTaskCancelled(ctx context.Context, task *Task, errorMessages ...string) error
	onTaskExceededRetries(ctx context.Context, task *Task, maxRetries int) error
	onTaskFailedWithError(ctx context.Context, task *Task, err error) error
	onTaskComplete(ctx context.Context, task *Task) error
	close()
}

const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

func getFormattedNow() *string {
	now := time.Now().UTC().Format(timestampLayout)
	return &now
}

type redisClientWrapper struct {
	tasksClient *tasks.Client
}

func (wrapper *redisClientWrapper) close() {
	wrapper.tasksClient.Close()
}

func (wrapper *redisClientWrapper) onTaskStarted(ctx context.Context, task *Task) error {
	return wrapper.tasksClient.Processing.Update(ctx, task.redisKey, func(processingTask *tasks.ProcessingTask) {
		processingTask.Status = tasks.TaskStatusStarted
		processingTask.Attempts += 1
		processingTask.StartedAt = getFormattedNow()
		processingTask.CompletedAt = nil
	})
}

func (wrapper *redisClientWrapper) onTaskCancelled(ctx context.Context, task *Task, errorMessages ...string) error {
	return wrapper.tasksClient.Processing.Update(ctx, task.redisKey, func(processingTask *tasks.ProcessingTask) {
		processingTask.Status = tasks.TaskStatusCanceled
		processingTask.CompletedAt = getFormattedNow()
		processingTask.ErrorMessages = append(processingTask.ErrorMessages, errorMessages...)
	})
}

func (wrapper *redisClientWrapper) onTaskExceededRetries(ctx context.Context, task *Task, maxRetries int) error {
	return wrapper.tasksClient.Processing.Update(ctx, task.redisKey, func(processingTask *tasks.ProcessingTask) {
		processingTask.Status = tasks.TaskStatusCompletedFailure
		processingTask.CompletedAt = getFormattedNow()
		processingTask.ErrorMessages = append(
			processingTask.ErrorMessages,
			fmt.Sprintf(
				"Task has exceeded retries. (Attempts: %d, max retries: %d )",
				processingTask.Attempts,
				maxRetries,
			),
		)
	})
}

func (wrapper *redisClientWrapper) onTaskFailedWithError(ctx context.Context, task *Task, err error) error {
	return wrapper.tasksClient.Processing.Update(ctx, task.redisKey, func(processingTask *tasks.ProcessingTask) {
		processingTask.Status = tasks.TaskStatusFailed
		processingTask.CompletedAt = getFormattedNow()
		processingTask.ErrorMessages = append(processingTask.ErrorMessages, err.Error())
	})
}

func (wrapper *redisClientWrapper) onTaskComplete(ctx context.Context, task *Task) error {
	return wrapper.tasksClient.Processing.Update(ctx, task.redisKey, func(processingTask *tasks.ProcessingTask) {
		if !processingTask.Status.Complete() {
			processingTask.Status = tasks.TaskStatusCompletedSuccess
		}
		processingTask.CompletedAt = getFormattedNow()
		processingTask.ResultsFileKey = getResultsFileKey(task)
	})
}

func (wrapper *redisClientWrapper) getTask(ctx context.Context, redisKey string) (*tasks.ProcessingTask, error) {
	return wrapper.tasksClient.Processing.Get(ctx, redisKey)
}
