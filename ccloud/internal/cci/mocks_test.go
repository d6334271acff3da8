package cci

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/zpiroux/ccloud-kafka-example/ikafka"
	"github.com/zpiroux/geist/entity"
	"github.com/zpiroux/geist/pkg/notify"
)

//
// Producer
//

type MockProducerFactory struct {
	producer  *MockProducer
	conf      *kafka.ConfigMap
	createErr error
	closed    bool
}

func (mpf *MockProducerFactory) NewProducer(conf *kafka.ConfigMap) (ikafka.Producer, error) {
	mpf.conf = conf
	if mpf.createErr != nil {
		return nil, mpf.createErr
	}
	if mpf.producer == nil {
		mpf.producer = NewMockProducer()
	}
	return mpf.producer, nil
}

func (mpf *MockProducerFactory) CloseProducer(p ikafka.Producer) {
	mpf.closed = true
	p.Close()
}

type MockProducer struct {
	events     chan kafka.Event
	ops        []string
	msgs       []*kafka.Message
	failEvery  int   // every n:th record gets a delivery error
	dropAfter  int   // records with seq >= dropAfter never get a report (if > 0)
	produceErr error // returned by Produce for seq == failOnSeq
	failOnSeq  int
	closed     bool
}

func NewMockProducer() *MockProducer {
	return &MockProducer{
		events:    make(chan kafka.Event, 10),
		failOnSeq: -1,
	}
}

func (p *MockProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	seq := msg.Opaque.(int)
	if seq == p.failOnSeq {
		return p.produceErr
	}
	p.ops = append(p.ops, fmt.Sprintf("produce:%d", seq))
	p.msgs = append(p.msgs, msg)

	if p.dropAfter > 0 && seq >= p.dropAfter {
		return nil
	}

	report := *msg
	report.TopicPartition.Partition = int32(seq % 6)
	report.TopicPartition.Offset = kafka.Offset(seq)
	if p.failEvery > 0 && seq%p.failEvery == 0 {
		report.TopicPartition.Error = kafka.NewError(kafka.ErrMsgTimedOut, "Local: Message timed out", false)
	}

	dChan := p.events
	if deliveryChan != nil {
		dChan = deliveryChan
	}
	dChan <- &report
	return nil
}

func (p *MockProducer) Events() chan kafka.Event {
	return p.events
}

func (p *MockProducer) Flush(timeoutMs int) int {
	p.ops = append(p.ops, "flush")
	return 0
}

func (p *MockProducer) Len() int {
	return 0
}

func (p *MockProducer) Close() {
	p.closed = true
}

//
// Admin client
//

type MockAdminClientFactory struct {
	client    *MockAdminClient
	createErr error
	created   int
}

func (maf *MockAdminClientFactory) NewAdminClient(conf *kafka.ConfigMap) (ikafka.AdminClient, error) {
	maf.created++
	if maf.createErr != nil {
		return nil, maf.createErr
	}
	if maf.client == nil {
		maf.client = NewMockAdminClient()
	}
	maf.client.conf = conf
	return maf.client, nil
}

type MockAdminClient struct {
	conf          *kafka.ConfigMap
	topics        map[string]int
	requestErr    error
	blockForever  bool
	createdSpecs  []kafka.TopicSpecification
	deletedTopics []string
	closed        int
}

func NewMockAdminClient() *MockAdminClient {
	return &MockAdminClient{topics: make(map[string]int)}
}

func (m *MockAdminClient) CreateTopics(ctx context.Context, topics []kafka.TopicSpecification, options ...kafka.CreateTopicsAdminOption) ([]kafka.TopicResult, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	var res []kafka.TopicResult
	for _, t := range topics {
		m.createdSpecs = append(m.createdSpecs, t)
		r := kafka.TopicResult{Topic: t.Topic, Error: kafka.NewError(kafka.ErrNoError, "Success", false)}
		if _, exists := m.topics[t.Topic]; exists {
			r.Error = kafka.NewError(kafka.ErrTopicAlreadyExists, fmt.Sprintf("Topic '%s' already exists.", t.Topic), false)
		} else {
			m.topics[t.Topic] = t.NumPartitions
		}
		res = append(res, r)
	}
	return res, nil
}

func (m *MockAdminClient) DeleteTopics(ctx context.Context, topics []string, options ...kafka.DeleteTopicsAdminOption) ([]kafka.TopicResult, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	var res []kafka.TopicResult
	for _, t := range topics {
		m.deletedTopics = append(m.deletedTopics, t)
		r := kafka.TopicResult{Topic: t, Error: kafka.NewError(kafka.ErrNoError, "Success", false)}
		if _, exists := m.topics[t]; exists {
			delete(m.topics, t)
		} else {
			r.Error = kafka.NewError(kafka.ErrUnknownTopicOrPart, "Broker: Unknown topic or partition", false)
		}
		res = append(res, r)
	}
	return res, nil
}

func (m *MockAdminClient) wait(ctx context.Context) error {
	if m.requestErr != nil {
		return m.requestErr
	}
	if m.blockForever {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (m *MockAdminClient) Close() {
	m.closed++
}

//
// Helpers
//

var errMock = errors.New("mock failure")

func newTestNotifier() (*notify.Notifier, entity.NotifyChan) {
	ch := make(entity.NotifyChan, 1024)
	n := notify.New(ch, nil, 2, "cci.test", "test", "")
	n.SetNotifyLevel(entity.NotifyLevelDebug)
	return n, ch
}

func messages(ch entity.NotifyChan) []string {
	var msgs []string
	for {
		select {
		case e := <-ch:
			msgs = append(msgs, e.Level+" "+e.Message)
		default:
			return msgs
		}
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "confluent.config")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
