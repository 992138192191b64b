package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"krakenflow/internal/channel"
	"krakenflow/logger"
)

// ring keeps the newest limit items.
type ring[T any] struct {
	mu    sync.RWMutex
	items []T
	limit int
}

func newRing[T any](limit int) *ring[T] {
	if limit <= 0 {
		limit = 200
	}
	return &ring[T]{limit: limit}
}

func (r *ring[T]) push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, v)
	if len(r.items) > r.limit {
		r.items = append([]T(nil), r.items[len(r.items)-r.limit:]...)
	}
}

func (r *ring[T]) snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

type logRecord struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// logStore is a logrus hook holding the most recent entries.
type logStore struct {
	records *ring[logRecord]
	enabled atomic.Bool
}

func newLogStore(limit int) *logStore {
	ls := &logStore{records: newRing[logRecord](limit)}
	ls.enabled.Store(true)
	return ls
}

func (s *logStore) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel}
}

func (s *logStore) Fire(entry *logrus.Entry) error {
	if !s.enabled.Load() {
		return nil
	}

	record := logRecord{
		Timestamp: entry.Time,
		Level:     entry.Level.String(),
		Message:   entry.Message,
	}
	if component, ok := entry.Data["component"].(string); ok {
		record.Component = component
	}
	if len(entry.Data) > 0 {
		record.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if k == "component" {
				continue
			}
			switch val := v.(type) {
			case error:
				record.Fields[k] = val.Error()
			case fmt.Stringer:
				record.Fields[k] = val.String()
			default:
				record.Fields[k] = val
			}
		}
	}

	s.records.push(record)
	return nil
}

func (s *logStore) snapshot() []logRecord { return s.records.snapshot() }

func (s *logStore) close() { s.enabled.Store(false) }

type counterSample struct {
	Timestamp time.Time            `json:"timestamp"`
	Counters  map[string]int64     `json:"counters"`
	Channels  channel.ChannelStats `json:"channels"`
}

// counterSampler records the pipeline counters and channel stats on every
// tick.
type counterSampler struct {
	samples  *ring[counterSample]
	interval time.Duration
	channels *channel.Channels
}

var countersFn = logger.Counters

func newCounterSampler(limit int, interval time.Duration, ch *channel.Channels) *counterSampler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &counterSampler{samples: newRing[counterSample](limit), interval: interval, channels: ch}
}

func (s *counterSampler) sample() {
	cs := counterSample{Timestamp: time.Now(), Counters: countersFn()}
	if s.channels != nil {
		cs.Channels = s.channels.GetStats()
	}
	s.samples.push(cs)
}

func (s *counterSampler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.sample()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *counterSampler) snapshot() []counterSample { return s.samples.snapshot() }
