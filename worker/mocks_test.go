package worker

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"healthai.com/rider/pipeline"
	"healthai.com/rider/tasks"
)

type failingMethod struct {
	fail bool
}

type withValue struct {
	fail          bool
	returnedValue interface{}
}

type pipelineMock struct {
	ppln    pipeline.Pipeline
	config  pipelineMockConfig
	calls   pipelineCall
	request pipeline.Request
}

type pipelineMockConfig struct {
	fail      bool
	closeOnly bool
	panics    bool
}

type pipelineCall struct {
	pipeline bool
}

type redisMock struct {
	config redisMockConfig
	calls  redisMockCalls
}

type redisMockConfig struct {
	getTask               withValue
	onTaskCancelled       failingMethod
	onTaskStarted         failingMethod
	onTaskExceededRetries failingMethod
	onTaskFailedWithError failingMethod
	onTaskComplete        failingMethod
}

type redisMockCalls struct {
	getTask               bool
	onTaskCancelled       bool
	onTaskStarted         bool
	onTaskExceededRetries bool
	onTaskFailedWithError bool
	onTaskComplete        bool
}

type rmqMock struct {
	config rmqMockConfig
	calls  rmqMockCalls
}

type rmqMockConfig struct {
	notifyResults       failingMethod
	acknowledgeDelivery failingMethod
}

type rmqMockCalls struct {
	notifyResults       bool
	acknowledgeDelivery bool
	rejectDelivery      bool
	requeueDelivery     bool
}

type s3Mock struct {
	config s3MockConfig
	calls  s3MockCalls
}

type s3MockConfig struct {
	fetchDocuments  withValue
	saveResultsFile failingMethod
}

type s3MockCalls struct {
	fetchDocuments  bool
	saveResultsFile bool
}

func (mock *s3Mock) close() {}

func (mock *rmqMock) close() {}

func (mock *redisMock) close() {}

func getPipelineMock(config pipelineMockConfig) *pipelineMock {
	mock := pipelineMock{config: config}
	mock.ppln = func(ctx context.Context, request pipeline.Request) <-chan pipeline.Result {
		mock.calls.pipeline = true
		mock.request = request
		if mock.config.panics {
			panic("pipeline exploded")
		}
		ch := make(chan pipeline.Result, 1)
		switch {
		case mock.config.closeOnly:
		case mock.config.fail:
			ch <- pipeline.Result{Tid: request.Tid, Err: errors.New("pipeline failed")}
		default:
			ch <- pipeline.Result{Tid: request.Tid}
		}
		close(ch)
		return ch
	}
	return &mock
}

func (mock *redisMock) getTask(ctx context.Context, redisKey string) (*tasks.ProcessingTask, error) {
	mock.calls.getTask = true
	if mock.config.getTask.fail {
		return nil, errors.New("failed to get processing task")
	}
	switch mock.config.getTask.returnedValue.(type) {
	case tasks.ProcessingTask:
		task := mock.config.getTask.returnedValue.(tasks.ProcessingTask)
		return &task, nil
	default:
		return &tasks.ProcessingTask{}, nil
	}
}

func (mock *redisMock) onTaskStarted(ctx context.Context, task *Task) error {
	mock.calls.onTaskStarted = true
	if mock.config.onTaskStarted.fail {
		return errors.New("failed to update task on start")
	}
	return nil
}

func (mock *redisMock) onTaskCancelled(ctx context.Context, task *Task, errorMessages ...string) error {
	mock.calls.onTaskCancelled = true
	if mock.config.onTaskCancelled.fail {
		return errors.New("failed to update task on cancel")
	}
	return nil
}

func (mock *redisMock) onTaskExceededRetries(ctx context.Context, task *Task, maxRetries int) error {
	mock.calls.onTaskExceededRetries = true
	if mock.config.onTaskExceededRetries.fail {
		return errors.New("failed to update task on exceeded retries")
	}
	return nil
}

func (mock *redisMock) onTaskFailedWithError(ctx context.Context, task *Task, err error) error {
	mock.calls.onTaskFailedWithError = true
	if mock.config.onTaskFailedWithError.fail {
		return errors.New("failed to update task on fail with error")
	}
	return nil
}

func (mock *redisMock) onTaskComplete(ctx context.Context, task *Task) error {
	mock.calls.onTaskComplete = true
	if mock.config.onTaskComplete.fail {
		return errors.New("failed to update task on complete")
	}
	return nil
}

func (mock *rmqMock) rejectDelivery(delivery *amqp.Delivery, taskLogger *zerolog.Logger) {
	mock.calls.rejectDelivery = true
}

func (mock *rmqMock) requeueDelivery(delivery *amqp.Delivery, taskLogger *zerolog.Logger) {
	mock.calls.requeueDelivery = true
}

func (mock *rmqMock) getDeliveriesCh() <-chan amqp.Delivery {
	return nil
}

func (mock *rmqMock) getReqChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) getRespChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) notifyResults(task *Task, message Message) error {
	mock.calls.notifyResults = true
	if mock.config.notifyResults.fail {
		return errors.New("failed to publish result")
	}
	return nil
}

func (mock *rmqMock) acknowledgeDelivery(delivery *amqp.Delivery) error {
	mock.calls.acknowledgeDelivery = true
	if mock.config.acknowledgeDelivery.fail {
		return errors.New("failed to acknowledge delivery")
	}
	return nil
}

func (mock *s3Mock) fetchDocuments(ctx context.Context, task *Task, dir string) ([]string, error) {
	mock.calls.fetchDocuments = true
	if mock.config.fetchDocuments.fail {
		return nil, errors.New("mock: failed to load from s3")
	}
	switch mock.config.fetchDocuments.returnedValue.(type) {
	case []string:
		return mock.config.fetchDocuments.returnedValue.([]string), nil
	default:
		return []string{}, nil
	}
}

func (mock *s3Mock) saveResultsFile(ctx context.Context, task *Task, response pipeline.Response) error {
	mock.calls.saveResultsFile = true
	if mock.config.saveResultsFile.fail {
		return errors.New("failed to upload results")
	}
	return nil
}
