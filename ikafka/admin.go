package ikafka

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type AdminClient interface {
	CreateTopics(ctx context.Context, topics []kafka.TopicSpecification, options ...kafka.CreateTopicsAdminOption) ([]kafka.TopicResult, error)
	DeleteTopics(ctx context.Context, topics []string, options ...kafka.DeleteTopicsAdminOption) ([]kafka.TopicResult, error)
	Close()
}

type AdminClientFactory interface {
	NewAdminClient(conf *kafka.ConfigMap) (AdminClient, error)
}
