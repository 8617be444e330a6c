package worker

import (
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"healthai.com/rider/rmq"
)

type rmqTransactions interface {
	notifyResults(task *Task, message Message) error
	acknowledgeDelivery(delivery *amqp.Delivery) error
	rejectDelivery(delivery *amqp.Delivery, taskLogger *zerolog.Logger)
	requeueDelivery(delivery *amqp.Delivery, taskLogger *zerolog.Logger)
	getDeliveriesCh() <-chan amqp.Delivery
	getReqChanErrorsCh() <-chan *amqp.Error
	getRespChanErrorsCh() <-chan *amqp.Error
	close()
}

type rmqClientWrapper struct {
	rmqClient *rmq.Client
}

func (wrapper *rmqClientWrapper) close() {
	wrapper.rmqClient.Close()
}

func (wrapper *rmqClientWrapper) getDeliveriesCh() <-chan amqp.Delivery {
	return wrapper.rmqClient.Deliveries
}

func (wrapper *rmqClientWrapper) getReqChanErrorsCh() <-chan *amqp.Error {
	return wrapper.rmqClient.ReqChanErrors
}

func (wrapper *rmqClientWrapper) getRespChanErrorsCh() <-chan *amqp.Error {
	return wrapper.rmqClient.RespChanErrors
}

func (wrapper *rmqClientWrapper) notifyResults(task *Task, message Message) error {
	message.Sender = senderName
	b, err := json.Marshal(message)
	if err != nil {
		return err
	}
	contentType := task.delivery.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	return wrapper.rmqClient.PublishResult(
		amqp.Publishing{
			ContentType:   contentType,
			CorrelationId: task.delivery.CorrelationId,
			Body:          b,
		},
	)
}

func (wrapper *rmqClientWrapper) acknowledgeDelivery(delivery *amqp.Delivery) error {
	return delivery.Ack(false)
}

func (wrapper *rmqClientWrapper) rejectDelivery(delivery *amqp.Delivery, taskLogger *zerolog.Logger) {
	if delivery.Redelivered {
		taskLogger.Info().Msg("Rejecting delivery as it already has been redelivered")
		err := delivery.Reject(false)
		if err != nil {
			taskLogger.Err(err).Msg("Failed to reject delivery")
		}
		return
	}
	wrapper.requeueDelivery(delivery, taskLogger)
}

// requeueDelivery puts the delivery back regardless of earlier redeliveries.
// The attempt counter of the task bounds how often this happens.
func (wrapper *rmqClientWrapper) requeueDelivery(delivery *amqp.Delivery, taskLogger *zerolog.Logger) {
	taskLogger.Info().Msg("Requeuing delivery")
	if err := delivery.Reject(true); err != nil {
		taskLogger.Err(err).Msg("Failed to requeue delivery")
	}
}
