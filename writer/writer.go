package writer

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appconfig "krakenflow/config"
	"krakenflow/internal/symbols"
	"krakenflow/logger"
	"krakenflow/models"
)

// Writer buffers normalized batches per (channel, pair) and uploads them as
// parquet files on every flush interval.
type Writer struct {
	config      *appconfig.Config
	in          <-chan models.BatchMessage
	uploader    Uploader
	ctx         context.Context
	wg          *sync.WaitGroup
	mu          sync.RWMutex
	running     bool
	log         *logger.Log
	buffer      map[bufferKey][]models.NormMessage
	flushTicker *time.Ticker
}

type bufferKey struct {
	exchange string
	channel  string
	pair     string
}

// NewWriter uploads to the configured S3 bucket.
func NewWriter(cfg *appconfig.Config, in <-chan models.BatchMessage) (*Writer, error) {
	up, err := NewS3Uploader(context.Background(), cfg.Storage.S3)
	if err != nil {
		logger.GetLogger().WithComponent("s3_writer").WithError(err).Warn("failed to create S3 uploader")
		return nil, err
	}
	w := NewWriterWithUploader(cfg, in, up)
	w.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("s3 writer initialized")
	return w, nil
}

func NewWriterWithUploader(cfg *appconfig.Config, in <-chan models.BatchMessage, up Uploader) *Writer {
	return &Writer{
		config:   cfg,
		in:       in,
		uploader: up,
		wg:       &sync.WaitGroup{},
		log:      logger.GetLogger(),
		buffer:   make(map[bufferKey][]models.NormMessage),
	}
}

func (w *Writer) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("s3 writer already running")
	}
	w.running = true
	w.ctx = ctx
	w.flushTicker = time.NewTicker(w.config.Writer.FlushInterval)
	w.mu.Unlock()

	numWorkers := w.config.Writer.MaxWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	w.log.WithComponent("s3_writer").WithFields(logger.Fields{"workers": numWorkers}).Info("starting s3 writer")

	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}

	w.wg.Add(1)
	go w.flushWorker()

	return nil
}

func (w *Writer) Stop() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	w.log.WithComponent("s3_writer").Info("stopping s3 writer")
	w.wg.Wait()
	w.drain()
	w.log.WithComponent("s3_writer").Info("s3 writer stopped")
}

// drain buffers whatever is still queued and flushes it once more.
func (w *Writer) drain() {
	for {
		select {
		case batch, ok := <-w.in:
			if !ok {
				w.flushBuffers("drain")
				return
			}
			w.addBatch(batch)
		default:
			w.flushBuffers("drain")
			return
		}
	}
}

func (w *Writer) worker(workerID int) {
	defer w.wg.Done()

	log := w.log.WithComponent("s3_writer").WithFields(logger.Fields{"worker_id": workerID})

	for {
		select {
		case <-w.ctx.Done():
			return
		case batch, ok := <-w.in:
			if !ok {
				log.Info("norm channel closed, worker stopping")
				return
			}
			w.addBatch(batch)
		}
	}
}

func (w *Writer) addBatch(batch models.BatchMessage) {
	key := bufferKey{exchange: batch.Exchange, channel: batch.Channel, pair: batch.Pair}
	w.mu.Lock()
	w.buffer[key] = append(w.buffer[key], batch.Entries...)
	w.mu.Unlock()
}

func (w *Writer) flushWorker() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.flushBuffers("shutdown")
			return
		case <-w.flushTicker.C:
			w.flushBuffers("interval")
		}
	}
}

func (w *Writer) flushBuffers(reason string) {
	w.mu.Lock()
	buffers := w.buffer
	w.buffer = make(map[bufferKey][]models.NormMessage)
	w.mu.Unlock()

	if len(buffers) == 0 {
		return
	}

	w.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"flushed_buffers": len(buffers),
		"reason":          reason,
	}).Info("flushing buffers")

	now := time.Now().UTC()
	for key, entries := range buffers {
		if len(entries) == 0 {
			continue
		}
		w.processBatch(models.BatchMessage{
			BatchID:     uuid.New().String(),
			Exchange:    key.exchange,
			Channel:     key.channel,
			Pair:        key.pair,
			Entries:     entries,
			RecordCount: len(entries),
			Timestamp:   now,
		})
	}
}

func (w *Writer) processBatch(batch models.BatchMessage) {
	log := w.log.WithComponent("s3_writer").WithFields(logger.Fields{
		"batch_id":     batch.BatchID,
		"channel":      batch.Channel,
		"pair":         batch.Pair,
		"record_count": batch.RecordCount,
	})

	start := time.Now()
	pc := w.config.Writer.Parquet
	data, rows, err := encodeParquet(batch.Exchange, batch.Entries, pc.Compression, pc.RowGroupSize, pc.PageSize)
	if err != nil {
		log.WithError(err).Error("failed to create parquet file")
		return
	}
	if rows == 0 {
		log.Debug("batch has no valid rows, skipping")
		return
	}

	key := w.objectKey(batch)
	ctx := context.Background()
	if w.ctx != nil {
		ctx = context.WithoutCancel(w.ctx)
	}
	err = w.uploader.Upload(ctx, key, data, map[string]string{
		"content-type":       "parquet",
		"compression":        pc.Compression,
		"krakenflow-version": w.config.Krakenflow.Version,
		"record-count":       fmt.Sprint(rows),
	})
	if err != nil {
		log.WithError(err).
			WithEnv("S3_BUCKET").
			WithFields(logger.Fields{"bucket": w.config.Storage.S3.Bucket, "s3_key": key}).
			Error("failed to upload to S3")
		return
	}

	logger.IncrementS3Write(batch.Channel, int64(len(data)))
	logger.LogPerformanceEntry(log, "s3_writer", "upload", time.Since(start), logger.Fields{
		"s3_key":    key,
		"file_size": len(data),
		"rows":      rows,
	})
}

// objectKey renders {prefix}/channel={c}/pair={p}/{time path}/{exchange}_{c}_{p}_{ts}_{id}.parquet.
func (w *Writer) objectKey(batch models.BatchMessage) string {
	ts := batch.Timestamp.UTC()
	pair := symbols.PathSegment(batch.Pair)

	timePath := w.config.Writer.Partitioning.TimeFormat
	timePath = strings.ReplaceAll(timePath, "{year}", fmt.Sprintf("%04d", ts.Year()))
	timePath = strings.ReplaceAll(timePath, "{month}", fmt.Sprintf("%02d", ts.Month()))
	timePath = strings.ReplaceAll(timePath, "{day}", fmt.Sprintf("%02d", ts.Day()))
	timePath = strings.ReplaceAll(timePath, "{hour}", fmt.Sprintf("%02d", ts.Hour()))

	id := batch.BatchID
	if len(id) > 8 {
		id = id[:8]
	}
	filename := fmt.Sprintf("%s_%s_%s_%s_%s.parquet", batch.Exchange, batch.Channel, pair, ts.Format("20060102150405"), id)

	return path.Join(
		w.config.Writer.Partitioning.Prefix,
		"channel="+batch.Channel,
		"pair="+pair,
		timePath,
		filename,
	)
}
