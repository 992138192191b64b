package monitor

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"krakenflow/internal/channel"
)

var (
	pipelineDesc = prometheus.NewDesc("krakenflow_pipeline_total",
		"Pipeline counters: publications, responses, decode failures, REST calls, S3 writes.",
		[]string{"counter"}, nil)
	componentDesc = prometheus.NewDesc("krakenflow_component_log_total",
		"Warnings and errors logged per component.",
		[]string{"component", "level"}, nil)
	channelDesc = prometheus.NewDesc("krakenflow_channel_messages_total",
		"Messages sent to and dropped from the internal channels.",
		[]string{"channel", "result"}, nil)
)

// pipelineCollector exports the logger counters and channel stats on scrape.
type pipelineCollector struct {
	channels *channel.Channels
}

func (c pipelineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- pipelineDesc
	ch <- componentDesc
	ch <- channelDesc
}

func (c pipelineCollector) Collect(ch chan<- prometheus.Metric) {
	counters := countersFn()
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := float64(counters[k])
		switch {
		case strings.HasPrefix(k, "warns_"):
			ch <- prometheus.MustNewConstMetric(componentDesc, prometheus.CounterValue, v, strings.TrimPrefix(k, "warns_"), "warning")
		case strings.HasPrefix(k, "errors_"):
			ch <- prometheus.MustNewConstMetric(componentDesc, prometheus.CounterValue, v, strings.TrimPrefix(k, "errors_"), "error")
		default:
			ch <- prometheus.MustNewConstMetric(pipelineDesc, prometheus.CounterValue, v, k)
		}
	}

	if c.channels == nil {
		return
	}
	stats := c.channels.GetStats()
	ch <- prometheus.MustNewConstMetric(channelDesc, prometheus.CounterValue, float64(stats.PubSent), "pub", "sent")
	ch <- prometheus.MustNewConstMetric(channelDesc, prometheus.CounterValue, float64(stats.PubDropped), "pub", "dropped")
	ch <- prometheus.MustNewConstMetric(channelDesc, prometheus.CounterValue, float64(stats.NormSent), "norm", "sent")
	ch <- prometheus.MustNewConstMetric(channelDesc, prometheus.CounterValue, float64(stats.NormDropped), "norm", "dropped")
}

// newRegistry builds a private registry so several servers can coexist.
func newRegistry(ch *channel.Channels) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		pipelineCollector{channels: ch},
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
