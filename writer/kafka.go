package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafka "github.com/segmentio/kafka-go"

	appconfig "krakenflow/config"
	"krakenflow/logger"
	"krakenflow/models"
)

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriter publishes each normalized batch as one JSON message keyed by
// pair, so a pair's batches stay ordered within a partition.
type KafkaWriter struct {
	config  *appconfig.Config
	in      <-chan models.BatchMessage
	writer  messageWriter
	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log
}

func NewKafkaWriter(cfg *appconfig.Config, in <-chan models.BatchMessage) (*KafkaWriter, error) {
	kc := cfg.Storage.Kafka
	if len(kc.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	batchTimeout := kc.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}
	kw := newKafkaWriter(cfg, in, &kafka.Writer{
		Addr:         kafka.TCP(kc.Brokers...),
		Topic:        kc.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireOne,
	})
	kw.log.WithComponent("kafka_writer").WithFields(logger.Fields{
		"brokers": kc.Brokers,
		"topic":   kc.Topic,
	}).Info("kafka writer initialized")
	return kw, nil
}

func newKafkaWriter(cfg *appconfig.Config, in <-chan models.BatchMessage, w messageWriter) *KafkaWriter {
	return &KafkaWriter{
		config: cfg,
		in:     in,
		writer: w,
		wg:     &sync.WaitGroup{},
		log:    logger.GetLogger(),
	}
}

func (kw *KafkaWriter) Start(ctx context.Context) error {
	kw.mu.Lock()
	if kw.running {
		kw.mu.Unlock()
		return fmt.Errorf("kafka writer already running")
	}
	kw.running = true
	kw.ctx = ctx
	kw.mu.Unlock()

	kw.log.WithComponent("kafka_writer").Info("starting kafka writer")
	kw.wg.Add(1)
	go kw.run()
	return nil
}

func (kw *KafkaWriter) run() {
	defer kw.wg.Done()
	for {
		select {
		case <-kw.ctx.Done():
			return
		case batch, ok := <-kw.in:
			if !ok {
				return
			}
			kw.publish(batch)
		}
	}
}

func (kw *KafkaWriter) publish(batch models.BatchMessage) {
	log := kw.log.WithComponent("kafka_writer").WithFields(logger.Fields{
		"batch_id": batch.BatchID,
		"channel":  batch.Channel,
		"pair":     batch.Pair,
	})

	data, err := json.Marshal(batch)
	if err != nil {
		log.WithError(err).Warn("failed to marshal batch")
		return
	}
	msg := kafka.Message{
		Key:   []byte(batch.Pair),
		Value: data,
		Headers: []kafka.Header{
			{Key: "exchange", Value: []byte(batch.Exchange)},
			{Key: "channel", Value: []byte(batch.Channel)},
		},
		Time: batch.Timestamp,
	}

	ctx := context.Background()
	if kw.ctx != nil {
		ctx = context.WithoutCancel(kw.ctx)
	}
	start := time.Now()
	if err := kw.writer.WriteMessages(ctx, msg); err != nil {
		log.WithError(err).Warn("failed to write message")
		return
	}
	logger.RecordChannelMessage("kafka_"+batch.Channel, len(data))
	logger.LogPerformanceEntry(log, "kafka_writer", "write", time.Since(start), logger.Fields{"records": batch.RecordCount})
}

// Stop publishes what is still queued, then closes the Kafka writer.
func (kw *KafkaWriter) Stop() {
	kw.mu.Lock()
	kw.running = false
	kw.mu.Unlock()

	kw.log.WithComponent("kafka_writer").Info("stopping kafka writer")
	kw.wg.Wait()
	for {
		select {
		case batch, ok := <-kw.in:
			if !ok {
				kw.close()
				return
			}
			kw.publish(batch)
		default:
			kw.close()
			return
		}
	}
}

func (kw *KafkaWriter) close() {
	if err := kw.writer.Close(); err != nil {
		kw.log.WithComponent("kafka_writer").WithError(err).Warn("failed to close kafka writer")
	}
	kw.log.WithComponent("kafka_writer").Info("kafka writer stopped")
}
