package cci

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/teltech/logger"
	"github.com/tidwall/sjson"
	"github.com/zpiroux/ccloud-kafka-example/ikafka"
	"github.com/zpiroux/geist/entity"
	"github.com/zpiroux/geist/pkg/notify"
)

// Default batch options if omitted
const (
	DefaultNumMessages  = 100
	DefaultFlushTimeout = 10 * time.Second
)

const (
	partitionerRandom = "random"
	recordCountField  = "count"
)

type DefaultProducerFactory struct{}

func (d DefaultProducerFactory) NewProducer(conf *kafka.ConfigMap) (ikafka.Producer, error) {
	return kafka.NewProducer(conf)
}

func (d DefaultProducerFactory) CloseProducer(p ikafka.Producer) {
	if !IsNil(p) {
		p.Close()
	}
}

type ProducerOptions struct {
	NumMessages  int
	FlushTimeout time.Duration
}

// Delivery is the outcome of a single published record.
type Delivery struct {
	Seq       int
	Topic     string
	Partition int32
	Offset    kafka.Offset
	Err       error
}

func (d Delivery) String() string {
	return fmt.Sprintf("%s[%d]@%v", d.Topic, d.Partition, d.Offset)
}

// ProduceResult summarizes a batch. Unaccounted records are those submitted
// but without a delivery report when the batch wait ended.
type ProduceResult struct {
	Submitted   int
	Delivered   int
	Failed      int
	Unaccounted int
}

// BatchProducer publishes a batch of synthetic {"count": i} records to a topic,
// flushing after each record.
type BatchProducer struct {
	config   *ClientConfig
	pf       ikafka.ProducerFactory
	opts     ProducerOptions
	notifier *notify.Notifier
}

func NewBatchProducer(config *ClientConfig, pf ikafka.ProducerFactory, opts ProducerOptions, notifier *notify.Notifier) *BatchProducer {
	if IsNil(pf) {
		pf = DefaultProducerFactory{}
	}
	if notifier == nil {
		notifier = DefaultNotifier("ccloud.producer")
	}
	if opts.NumMessages <= 0 {
		opts.NumMessages = DefaultNumMessages
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = DefaultFlushTimeout
	}
	return &BatchProducer{
		config:   config,
		pf:       pf,
		opts:     opts,
		notifier: notifier,
	}
}

// ProducerConfig returns the Kafka config used for the producer, which always
// uses the random partitioner regardless of what the client config says.
func (p *BatchProducer) ProducerConfig() *kafka.ConfigMap {
	conf := p.config.ConfigMap()
	(*conf)[PropPartitioner] = partitionerRandom
	return conf
}

// Run publishes the batch. Record i+1 is not submitted until the flush following
// record i has returned. Delivery reports are collected on a single channel and
// the batch is awaited as a whole, bounded by the flush timeout after the last
// submission.
func (p *BatchProducer) Run(ctx context.Context, topic string) (result ProduceResult, err error) {

	producer, err := p.pf.NewProducer(p.ProducerConfig())
	if err != nil {
		p.notifier.Notify(entity.NotifyLevelError, "Failed to create producer: %v", err)
		return result, fmt.Errorf("failed to create producer: %w", err)
	}
	defer p.pf.CloseProducer(producer)

	deliveryChan := make(chan kafka.Event, p.opts.NumMessages)
	flushTimeoutMs := int(p.opts.FlushTimeout / time.Millisecond)

	for i := 0; i < p.opts.NumMessages; i++ {

		if ctx.Err() != nil {
			err = fmt.Errorf("produce interrupted after %d records: %w", result.Submitted, ctx.Err())
			break
		}

		var value string
		value, err = recordValue(i)
		if err != nil {
			err = fmt.Errorf("could not create record %d: %w", i, err)
			break
		}

		p.notifier.Notify(entity.NotifyLevelInfo, "Producing record: %s", value)

		msg := &kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
			Key:            nil,
			Value:          []byte(value),
			Opaque:         i,
		}
		if err = producer.Produce(msg, deliveryChan); err != nil {
			p.notifier.Notify(entity.NotifyLevelError, "Produce() failed for record %d with err: %v", i, err)
			err = fmt.Errorf("failed to produce record %d: %w", i, err)
			break
		}
		result.Submitted++

		if unflushed := producer.Flush(flushTimeoutMs); unflushed > 0 {
			p.notifier.Notify(entity.NotifyLevelWarn, "%d messages not flushed within %v", unflushed, p.opts.FlushTimeout)
		}

		p.drainDeliveries(deliveryChan, &result)
	}

	p.awaitDeliveries(ctx, deliveryChan, &result)

	if result.Unaccounted > 0 {
		p.notifier.Notify(entity.NotifyLevelWarn, "%d messages had no delivery report within %v", result.Unaccounted, p.opts.FlushTimeout)
	}
	p.notifier.Notify(entity.NotifyLevelInfo, "%d messages were produced to topic %s", result.Delivered, topic)
	return result, err
}

// drainDeliveries handles all delivery reports currently available without blocking.
func (p *BatchProducer) drainDeliveries(deliveryChan chan kafka.Event, result *ProduceResult) {
	for {
		select {
		case e := <-deliveryChan:
			p.handleEvent(e, result)
		default:
			return
		}
	}
}

// awaitDeliveries waits for the remaining delivery reports of the batch.
func (p *BatchProducer) awaitDeliveries(ctx context.Context, deliveryChan chan kafka.Event, result *ProduceResult) {
	timer := time.NewTimer(p.opts.FlushTimeout)
	defer timer.Stop()

	for p.pending(result) > 0 {
		select {
		case e := <-deliveryChan:
			p.handleEvent(e, result)
		case <-timer.C:
			result.Unaccounted = p.pending(result)
			return
		case <-ctx.Done():
			result.Unaccounted = p.pending(result)
			return
		}
	}
}

func (p *BatchProducer) pending(result *ProduceResult) int {
	return result.Submitted - result.Delivered - result.Failed
}

func (p *BatchProducer) handleEvent(e kafka.Event, result *ProduceResult) {
	m, ok := e.(*kafka.Message)
	if !ok {
		p.notifier.Notify(entity.NotifyLevelInfo, "Ignored event: %v", e)
		return
	}

	d := deliveryFromMessage(m)
	if d.Err != nil {
		result.Failed++
		p.notifier.Notify(entity.NotifyLevelError, "Failed to deliver message %d: %v", d.Seq, d.Err)
		return
	}
	result.Delivered++
	p.notifier.Notify(entity.NotifyLevelInfo, "Produced message to: %s", d)
	p.notifier.Notify(entity.NotifyLevelInfo, "Partition: %d", d.Partition)
}

func deliveryFromMessage(m *kafka.Message) Delivery {
	d := Delivery{
		Partition: m.TopicPartition.Partition,
		Offset:    m.TopicPartition.Offset,
		Err:       m.TopicPartition.Error,
	}
	if m.TopicPartition.Topic != nil {
		d.Topic = *m.TopicPartition.Topic
	}
	if seq, ok := m.Opaque.(int); ok {
		d.Seq = seq
	}
	return d
}

// recordValue creates the JSON payload for record i.
func recordValue(i int) (string, error) {
	return sjson.Set("", recordCountField, i)
}

// DefaultNotifier logs through a new logger, with the process ID as instance.
func DefaultNotifier(sender string) *notify.Notifier {
	return notify.New(nil, logger.New(), 2, sender, strconv.Itoa(os.Getpid()), "")
}

func IsNil(v any) bool {
	return v == nil || (reflect.ValueOf(v).Kind() == reflect.Ptr && reflect.ValueOf(v).IsNil())
}
