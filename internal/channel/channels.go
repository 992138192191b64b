package channel

import (
	"context"
	"sync"
	"time"

	"krakenflow/logger"
	"krakenflow/models"
	"krakenflow/models/publication"
)

// RawPublication is a decoded publication as it left the websocket reader.
type RawPublication struct {
	Publication publication.Publication
	ReceivedAt  time.Time
	Shard       string
}

type ChannelStats struct {
	PubSent     int64 `json:"pub_sent"`
	NormSent    int64 `json:"norm_sent"`
	PubDropped  int64 `json:"pub_dropped"`
	NormDropped int64 `json:"norm_dropped"`
}

// Channels carries publications from the readers to the processor (Pub) and
// normalized batches from the processor to the writer (Norm).
type Channels struct {
	Pub  chan RawPublication
	Norm chan models.BatchMessage

	stats      ChannelStats
	statsMutex sync.RWMutex
	log        *logger.Log
	closeOnce  sync.Once
}

func NewChannels(pubBufferSize, normBufferSize int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Pub:  make(chan RawPublication, pubBufferSize),
		Norm: make(chan models.BatchMessage, normBufferSize),
		log:  log,
	}

	log.WithComponent("channels").WithFields(logger.Fields{
		"pub_buffer_size":  pubBufferSize,
		"norm_buffer_size": normBufferSize,
	}).Info("channels initialized")

	return c
}

// SendPub enqueues msg without blocking. A full buffer drops the message.
func (c *Channels) SendPub(ctx context.Context, msg RawPublication) bool {
	select {
	case c.Pub <- msg:
		c.incr(&c.stats.PubSent)
		return true
	case <-ctx.Done():
		return false
	default:
		c.incr(&c.stats.PubDropped)
		return false
	}
}

// SendNorm enqueues batch without blocking. A full buffer drops the batch.
func (c *Channels) SendNorm(ctx context.Context, batch models.BatchMessage) bool {
	select {
	case c.Norm <- batch:
		c.incr(&c.stats.NormSent)
		return true
	case <-ctx.Done():
		return false
	default:
		c.incr(&c.stats.NormDropped)
		return false
	}
}

func (c *Channels) incr(counter *int64) {
	c.statsMutex.Lock()
	*counter++
	c.statsMutex.Unlock()
}

func (c *Channels) GetStats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}

// StartMetricsReporting logs channel statistics every interval until ctx is
// done.
func (c *Channels) StartMetricsReporting(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.logChannelStats()
			}
		}
	}()
}

func (c *Channels) logChannelStats() {
	stats := c.GetStats()
	c.log.WithComponent("channels").WithFields(logger.Fields{
		"pub_sent":         stats.PubSent,
		"pub_dropped":      stats.PubDropped,
		"norm_sent":        stats.NormSent,
		"norm_dropped":     stats.NormDropped,
		"pub_channel_len":  len(c.Pub),
		"pub_channel_cap":  cap(c.Pub),
		"norm_channel_len": len(c.Norm),
		"norm_channel_cap": cap(c.Norm),
	}).Info("channel statistics")
}

// Close closes both channels. Senders must have stopped.
func (c *Channels) Close() {
	c.closeOnce.Do(func() {
		close(c.Pub)
		close(c.Norm)
		c.log.WithComponent("channels").Info("all channels closed")
	})
}

// FanOut copies every batch read from Norm to each of n outputs. A full
// output drops its copy. Outputs are closed once Norm is closed and drained;
// done is closed after that.
func (c *Channels) FanOut(n, buffer int) (outs []chan models.BatchMessage, done <-chan struct{}) {
	outs = make([]chan models.BatchMessage, n)
	for i := range outs {
		outs[i] = make(chan models.BatchMessage, buffer)
	}
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for batch := range c.Norm {
			for i, out := range outs {
				select {
				case out <- batch:
				default:
					c.incr(&c.stats.NormDropped)
					c.log.WithComponent("channels").WithFields(logger.Fields{
						"output":   i,
						"batch_id": batch.BatchID,
					}).Warn("sink channel full, batch dropped")
				}
			}
		}
		for _, out := range outs {
			close(out)
		}
	}()
	return outs, finished
}
