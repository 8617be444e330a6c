package tasks

import (
	"healthai.com/rider/redis"
)

type Client struct {
	Processing ProcessingTasks
}

// NewClient is a preferred way for working with tasks
func NewClient() (Client, error) {
	redisClient, err := redis.NewClient(ProcessingDB)
	if err != nil {
		return Client{}, err
	}
	return WithRedis(redisClient), nil
}

func WithRedis(redisClient redis.Client) Client {
	return Client{Processing: ProcessingTasks{client: redisClient}}
}

func (client *Client) Close() {
	_ = client.Processing.client.Close()
}
