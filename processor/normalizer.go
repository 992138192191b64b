package processor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appconfig "krakenflow/config"
	"krakenflow/internal/book"
	"krakenflow/internal/channel"
	"krakenflow/logger"
	"krakenflow/models"
	"krakenflow/models/publication"
	"krakenflow/models/rest"
)

const exchange = "kraken"

// Normalizer flattens book and trade publications into rows, batches them
// per (channel, pair) and keeps a local book per pair.
type Normalizer struct {
	config  *appconfig.Config
	ch      *channel.Channels
	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log

	batches   map[string]*models.BatchMessage
	lastFlush map[string]time.Time

	booksMu sync.Mutex
	books   map[models.CurrencyPair]*book.Book

	messagesProcessed int64
	messagesSkipped   int64
	batchesProcessed  int64
	batchesDropped    int64
	entriesProcessed  int64
}

func NewNormalizer(cfg *appconfig.Config, ch *channel.Channels) *Normalizer {
	return &Normalizer{
		config:    cfg,
		ch:        ch,
		wg:        &sync.WaitGroup{},
		log:       logger.GetLogger(),
		batches:   make(map[string]*models.BatchMessage),
		lastFlush: make(map[string]time.Time),
		books:     make(map[models.CurrencyPair]*book.Book),
	}
}

func (n *Normalizer) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return fmt.Errorf("normalizer already running")
	}
	n.running = true
	n.ctx = ctx
	n.mu.Unlock()

	log := n.log.WithComponent("normalizer").WithFields(logger.Fields{"operation": "start"})

	numWorkers := n.config.Processor.MaxWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}
	log.WithFields(logger.Fields{"workers": numWorkers}).Info("starting normalizer workers")

	for i := 0; i < numWorkers; i++ {
		n.wg.Add(1)
		go n.worker(i)
	}

	n.wg.Add(1)
	go n.batchFlusher()

	go n.metricsReporter(ctx)

	return nil
}

// Stop waits for the workers and flushes what is left. Cancel the start
// context (or close the publication channel) first.
func (n *Normalizer) Stop() {
	n.mu.Lock()
	n.running = false
	n.mu.Unlock()

	n.log.WithComponent("normalizer").Info("stopping normalizer")
	n.wg.Wait()
	n.flushAllBatches()
	n.log.WithComponent("normalizer").Info("normalizer stopped")
}

func (n *Normalizer) worker(workerID int) {
	defer n.wg.Done()

	log := n.log.WithComponent("normalizer").WithFields(logger.Fields{"worker_id": workerID})
	log.Debug("starting normalizer worker")

	for {
		select {
		case <-n.ctx.Done():
			return
		case raw, ok := <-n.ch.Pub:
			if !ok {
				log.Info("publication channel closed, worker stopping")
				return
			}
			n.processPublication(raw)
		}
	}
}

func (n *Normalizer) processPublication(raw channel.RawPublication) int {
	var entries []models.NormMessage
	var channelName string
	var pair models.CurrencyPair

	switch p := raw.Publication.(type) {
	case publication.BookSnapshot:
		n.Book(p.Pair).ApplySnapshot(p)
		channelName, pair = p.ChannelName, p.Pair
		entries = flattenSnapshot(p, raw.ReceivedAt)
	case publication.BookUpdate:
		if !n.Book(p.Pair).ApplyUpdate(p) {
			n.log.WithComponent("normalizer").WithFields(logger.Fields{
				"pair":    p.Pair.String(),
				"channel": p.ChannelName,
			}).Debug("book update before snapshot")
		}
		channelName, pair = p.ChannelName, p.Pair
		entries = flattenUpdate(p, raw.ReceivedAt)
	case publication.Trade:
		channelName, pair = p.ChannelName, p.Pair
		entries = flattenTrade(p, raw.ReceivedAt)
	default:
		atomic.AddInt64(&n.messagesSkipped, 1)
		return 0
	}

	atomic.AddInt64(&n.messagesProcessed, 1)
	if len(entries) == 0 {
		return 0
	}
	atomic.AddInt64(&n.entriesProcessed, int64(len(entries)))
	n.addToBatch(baseChannel(channelName), pair.String(), raw.ReceivedAt, entries)
	return len(entries)
}

// AddTradeHistory batches REST trades the same way as streamed trades.
func (n *Normalizer) AddTradeHistory(pair models.CurrencyPair, trades []rest.TradeData, receivedAt time.Time) int {
	if len(trades) == 0 {
		return 0
	}
	entries := make([]models.NormMessage, 0, len(trades))
	for _, t := range trades {
		entries = append(entries, models.NormMessage{
			Kind:         models.KindTrade,
			Channel:      "trade",
			ChannelID:    -1,
			Pair:         pair.String(),
			Side:         t.Side.String(),
			Price:        t.Price.Float64(),
			Volume:       t.Volume.Float64(),
			Timestamp:    decimal.NewFromFloat(t.Time).Shift(6).IntPart(),
			OrderType:    t.OrderType.String(),
			Misc:         t.Misc,
			ReceivedTime: receivedAt.UnixMicro(),
		})
	}
	atomic.AddInt64(&n.entriesProcessed, int64(len(entries)))
	n.addToBatch("trade", pair.String(), receivedAt, entries)
	return len(entries)
}

// Book returns the local book of pair, creating it on first use.
func (n *Normalizer) Book(pair models.CurrencyPair) *book.Book {
	n.booksMu.Lock()
	defer n.booksMu.Unlock()
	b, ok := n.books[pair]
	if !ok {
		b = book.New(pair, n.config.Processor.BookDepth)
		n.books[pair] = b
	}
	return b
}

// Pairs lists the pairs that have a local book, sorted.
func (n *Normalizer) Pairs() []models.CurrencyPair {
	n.booksMu.Lock()
	out := make([]models.CurrencyPair, 0, len(n.books))
	for p := range n.books {
		out = append(out, p)
	}
	n.booksMu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// baseChannel strips the depth suffix of book channels, "book-10" -> "book".
func baseChannel(name string) string {
	base, _, _ := strings.Cut(name, "-")
	return base
}

func flattenSnapshot(p publication.BookSnapshot, receivedAt time.Time) []models.NormMessage {
	entries := make([]models.NormMessage, 0, len(p.Data.Asks)+len(p.Data.Bids))
	add := func(side string, levels []publication.BookLevel) {
		for i, l := range levels {
			entries = append(entries, models.NormMessage{
				Kind:         models.KindSnapshot,
				Channel:      p.ChannelName,
				ChannelID:    p.ChannelID,
				Pair:         p.Pair.String(),
				Side:         side,
				Price:        l.Price.Float64(),
				Volume:       l.Volume.Float64(),
				Timestamp:    models.MicrosFromFloat(l.Timestamp),
				Level:        i + 1,
				ReceivedTime: receivedAt.UnixMicro(),
			})
		}
	}
	add(models.SideBid, p.Data.Bids)
	add(models.SideAsk, p.Data.Asks)
	return entries
}

func flattenUpdate(p publication.BookUpdate, receivedAt time.Time) []models.NormMessage {
	checksum, _ := p.Checksum()
	var entries []models.NormMessage
	add := func(side string, s *publication.BookSide) {
		if s == nil {
			return
		}
		for _, l := range s.Levels {
			row := models.NormMessage{
				Kind:         models.KindUpdate,
				Channel:      p.ChannelName,
				ChannelID:    p.ChannelID,
				Pair:         p.Pair.String(),
				Side:         side,
				Price:        l.Price.Float64(),
				Volume:       l.Volume.Float64(),
				Timestamp:    models.MicrosFromFloat(l.Timestamp),
				Checksum:     checksum,
				ReceivedTime: receivedAt.UnixMicro(),
			}
			if l.UpdateType != nil {
				row.UpdateType = *l.UpdateType
			}
			entries = append(entries, row)
		}
	}
	add(models.SideAsk, p.Ask)
	add(models.SideBid, p.Bid)
	return entries
}

func flattenTrade(p publication.Trade, receivedAt time.Time) []models.NormMessage {
	entries := make([]models.NormMessage, 0, len(p.Data))
	for _, t := range p.Data {
		entries = append(entries, models.NormMessage{
			Kind:         models.KindTrade,
			Channel:      p.ChannelName,
			ChannelID:    p.ChannelID,
			Pair:         p.Pair.String(),
			Side:         t.Side.String(),
			Price:        t.Price.Float64(),
			Volume:       t.Volume.Float64(),
			Timestamp:    models.MicrosFromFloat(t.Time),
			OrderType:    t.OrderType.String(),
			Misc:         t.Misc,
			ReceivedTime: receivedAt.UnixMicro(),
		})
	}
	return entries
}

func (n *Normalizer) addToBatch(channelName, pair string, receivedAt time.Time, entries []models.NormMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()

	batchKey := channelName + "_" + pair

	batch, exists := n.batches[batchKey]
	if !exists {
		batch = &models.BatchMessage{
			BatchID:     uuid.New().String(),
			Exchange:    exchange,
			Channel:     channelName,
			Pair:        pair,
			Entries:     make([]models.NormMessage, 0, n.config.Processor.BatchSize),
			Timestamp:   receivedAt,
			ProcessedAt: time.Now(),
		}
		n.batches[batchKey] = batch
		n.lastFlush[batchKey] = time.Now()
	}

	batch.Entries = append(batch.Entries, entries...)
	batch.RecordCount = len(batch.Entries)
	if receivedAt.After(batch.Timestamp) {
		batch.Timestamp = receivedAt
	}

	if batch.RecordCount >= n.config.Processor.BatchSize {
		n.flushBatch(batchKey)
	}
}

func (n *Normalizer) batchFlusher() {
	defer n.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.flushTimedOutBatches()
		}
	}
}

func (n *Normalizer) flushTimedOutBatches() {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now()
	for batchKey, lastFlush := range n.lastFlush {
		if now.Sub(lastFlush) >= n.config.Processor.BatchTimeout {
			n.flushBatch(batchKey)
		}
	}
}

// flushBatch must be called with n.mu held. A batch the writer cannot take
// is dropped.
func (n *Normalizer) flushBatch(batchKey string) {
	batch, exists := n.batches[batchKey]
	if !exists {
		return
	}
	delete(n.batches, batchKey)
	delete(n.lastFlush, batchKey)
	if batch.RecordCount == 0 {
		return
	}

	batch.ProcessedAt = time.Now()
	log := n.log.WithComponent("normalizer").WithFields(logger.Fields{
		"batch_id":     batch.BatchID,
		"channel":      batch.Channel,
		"pair":         batch.Pair,
		"record_count": batch.RecordCount,
	})

	ctx := n.ctx
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}
	if !n.ch.SendNorm(ctx, *batch) {
		atomic.AddInt64(&n.batchesDropped, 1)
		log.Warn("norm channel is full, batch dropped")
		return
	}
	atomic.AddInt64(&n.batchesProcessed, 1)
	logger.LogDataFlowEntry(log, "normalizer", "norm_channel", batch.RecordCount, batch.Channel)
}

func (n *Normalizer) flushAllBatches() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for batchKey := range n.batches {
		n.flushBatch(batchKey)
	}
}

func (n *Normalizer) metricsReporter(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.reportMetrics()
		}
	}
}

func (n *Normalizer) reportMetrics() {
	n.mu.RLock()
	activeBatches := len(n.batches)
	n.mu.RUnlock()

	gauges := map[string]int64{
		"messages_processed": atomic.LoadInt64(&n.messagesProcessed),
		"messages_skipped":   atomic.LoadInt64(&n.messagesSkipped),
		"batches_processed":  atomic.LoadInt64(&n.batchesProcessed),
		"batches_dropped":    atomic.LoadInt64(&n.batchesDropped),
		"entries_processed":  atomic.LoadInt64(&n.entriesProcessed),
		"active_batches":     int64(activeBatches),
	}
	fields := make(logger.Fields, len(gauges))
	for k, v := range gauges {
		n.log.WithComponent("normalizer").Metric(k, float64(v), nil)
		fields[k] = v
	}
	n.log.WithComponent("normalizer").WithFields(fields).Info("normalizer metrics")

	n.booksMu.Lock()
	books := make([]*book.Book, 0, len(n.books))
	for _, b := range n.books {
		books = append(books, b)
	}
	n.booksMu.Unlock()

	for _, b := range books {
		bid, ask, ok := b.Best()
		if !ok {
			continue
		}
		n.log.WithComponent("normalizer").WithFields(logger.Fields{
			"pair":     b.Pair().String(),
			"best_bid": bid.Price.String(),
			"bid_vol":  bid.Volume.String(),
			"best_ask": ask.Price.String(),
			"ask_vol":  ask.Volume.String(),
			"checksum": b.Checksum(),
		}).Info("top of book")
	}
}
