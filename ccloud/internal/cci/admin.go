package cci

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/zpiroux/ccloud-kafka-example/ikafka"
	"github.com/zpiroux/geist/entity"
	"github.com/zpiroux/geist/pkg/notify"
)

// DeleteStatus is the terminal status of a delete topic request.
type DeleteStatus int

const (
	DeleteStatusInvalid DeleteStatus = iota
	DeleteStatusCompleted
	DeleteStatusFaulted
	DeleteStatusTimedOut
)

func (s DeleteStatus) String() string {
	switch s {
	case DeleteStatusCompleted:
		return "Completed"
	case DeleteStatusFaulted:
		return "Faulted"
	case DeleteStatusTimedOut:
		return "TimedOut"
	}
	return "Invalid"
}

type DefaultAdminClient struct {
	ac *kafka.AdminClient
}

func (d DefaultAdminClient) CreateTopics(ctx context.Context, topics []kafka.TopicSpecification, options ...kafka.CreateTopicsAdminOption) ([]kafka.TopicResult, error) {
	return d.ac.CreateTopics(ctx, topics, options...)
}

func (d DefaultAdminClient) DeleteTopics(ctx context.Context, topics []string, options ...kafka.DeleteTopicsAdminOption) ([]kafka.TopicResult, error) {
	return d.ac.DeleteTopics(ctx, topics, options...)
}

func (d DefaultAdminClient) Close() {
	d.ac.Close()
}

type DefaultAdminClientFactory struct{}

func (d DefaultAdminClientFactory) NewAdminClient(conf *kafka.ConfigMap) (ikafka.AdminClient, error) {
	ac, err := kafka.NewAdminClient(conf)
	if err != nil {
		return nil, err
	}
	return DefaultAdminClient{ac: ac}, nil
}

// TopicAdmin performs topic create and delete operations. Each operation
// creates its own admin client and closes it before returning.
type TopicAdmin struct {
	config   *ClientConfig
	af       ikafka.AdminClientFactory
	timeout  time.Duration // zero means wait until settled or ctx is done
	notifier *notify.Notifier
}

func NewTopicAdmin(config *ClientConfig, af ikafka.AdminClientFactory, timeout time.Duration, notifier *notify.Notifier) *TopicAdmin {
	if IsNil(af) {
		af = DefaultAdminClientFactory{}
	}
	if notifier == nil {
		notifier = DefaultNotifier("ccloud.admin")
	}
	return &TopicAdmin{
		config:   config,
		af:       af,
		timeout:  timeout,
		notifier: notifier,
	}
}

// CreateTopic creates the topic. A topic that already exists is not regarded
// as an error.
func (a *TopicAdmin) CreateTopic(ctx context.Context, topicSpec TopicSpecification) error {

	ac, err := a.af.NewAdminClient(a.config.ConfigMap())
	if err != nil {
		a.notifier.Notify(entity.NotifyLevelError, "Could not create admin client, err: %v", err)
		return fmt.Errorf("couldn't create admin client: %w", err)
	}
	defer ac.Close()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := ac.CreateTopics(ctx, []kafka.TopicSpecification{topicSpec.kafkaSpec()})
	if err == nil {
		err = topicResultError(topicSpec.Name, res)
	}

	if err == nil {
		a.notifier.Notify(entity.NotifyLevelInfo, "Created topic %s with %d partitions", topicSpec.Name, topicSpec.NumPartitions)
		return nil
	}

	var kerr kafka.Error
	if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTopicAlreadyExists {
		a.notifier.Notify(entity.NotifyLevelInfo, "Topic %s already exists", topicSpec.Name)
		return nil
	}

	a.notifier.Notify(entity.NotifyLevelError, "An error occurred creating topic %s: %v", topicSpec.Name, err)
	return fmt.Errorf("could not create topic %s: %w", topicSpec.Name, err)
}

// DeleteTopic deletes the topic and blocks until the request has settled.
// The returned error is non-nil for all statuses except DeleteStatusCompleted.
func (a *TopicAdmin) DeleteTopic(ctx context.Context, name string) (DeleteStatus, error) {

	ac, err := a.af.NewAdminClient(a.config.ConfigMap())
	if err != nil {
		a.notifier.Notify(entity.NotifyLevelError, "Could not create admin client, err: %v", err)
		return DeleteStatusFaulted, fmt.Errorf("couldn't create admin client: %w", err)
	}
	defer ac.Close()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	res, err := ac.DeleteTopics(ctx, []string{name})
	if err == nil {
		err = topicResultError(name, res)
	}

	switch {
	case err == nil:
		a.notifier.Notify(entity.NotifyLevelInfo, "Delete of topic %s completed successfully", name)
		return DeleteStatusCompleted, nil
	case errors.Is(err, context.DeadlineExceeded) || isTimedOut(err):
		a.notifier.Notify(entity.NotifyLevelWarn, "Delete of topic %s did not settle in time, status: %s, err: %v", name, DeleteStatusTimedOut, err)
		return DeleteStatusTimedOut, fmt.Errorf("delete of topic %s timed out: %w", name, err)
	default:
		a.notifier.Notify(entity.NotifyLevelError, "Delete of topic %s faulted: %v", name, err)
		return DeleteStatusFaulted, fmt.Errorf("could not delete topic %s: %w", name, err)
	}
}

func (a *TopicAdmin) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout > 0 {
		return context.WithTimeout(ctx, a.timeout)
	}
	return context.WithCancel(ctx)
}

// topicResultError returns the error of the result for the given topic, if any.
func topicResultError(topic string, results []kafka.TopicResult) error {
	for _, r := range results {
		if r.Topic == topic && r.Error.Code() != kafka.ErrNoError {
			return r.Error
		}
	}
	return nil
}

func isTimedOut(err error) bool {
	var kerr kafka.Error
	return errors.As(err, &kerr) && (kerr.Code() == kafka.ErrTimedOut || kerr.Code() == kafka.ErrRequestTimedOut)
}
