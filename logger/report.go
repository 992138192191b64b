package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const metricPrefix = "KrakenFlow-"

type channelStat struct {
	messages int64
	bytes    int64
}

type levelStat struct {
	warns  int64
	errors int64
}

var (
	publications   int64
	responses      int64
	decodeFailures int64
	restCalls      int64
	s3Writes       int64
	channels       sync.Map // map[string]*channelStat
	components     sync.Map // map[string]*levelStat
)

func componentStat(component string) *levelStat {
	v, _ := components.LoadOrStore(component, &levelStat{})
	return v.(*levelStat)
}

func recordWarn(component string) {
	atomic.AddInt64(&componentStat(component).warns, 1)
}

func recordError(component string) {
	atomic.AddInt64(&componentStat(component).errors, 1)
}

// IncrementPublication counts a decoded publication of the named variant.
func IncrementPublication(variant string, size int) {
	atomic.AddInt64(&publications, 1)
	recordChannel("ws_"+variant, size)
}

// IncrementResponse counts a decoded response to a client request.
func IncrementResponse(variant string, size int) {
	atomic.AddInt64(&responses, 1)
	recordChannel("ws_"+variant, size)
}

// IncrementDecodeFailure counts a frame that matched no known shape.
func IncrementDecodeFailure(size int) {
	atomic.AddInt64(&decodeFailures, 1)
	recordChannel("ws_unclassified", size)
}

func IncrementRestCall(endpoint string, size int) {
	atomic.AddInt64(&restCalls, 1)
	recordChannel("rest_"+endpoint, size)
}

func IncrementS3Write(channel string, size int64) {
	atomic.AddInt64(&s3Writes, 1)
	recordChannel("s3_"+channel, int(size))
}

func RecordChannelMessage(name string, size int) {
	recordChannel(name, size)
}

func recordChannel(name string, size int) {
	v, _ := channels.LoadOrStore(name, &channelStat{})
	cs := v.(*channelStat)
	atomic.AddInt64(&cs.messages, 1)
	atomic.AddInt64(&cs.bytes, int64(size))
}

// Counters returns the current totals of the pipeline counters.
func Counters() map[string]int64 {
	out := map[string]int64{
		"publications":    atomic.LoadInt64(&publications),
		"responses":       atomic.LoadInt64(&responses),
		"decode_failures": atomic.LoadInt64(&decodeFailures),
		"rest_calls":      atomic.LoadInt64(&restCalls),
		"s3_writes":       atomic.LoadInt64(&s3Writes),
	}
	components.Range(func(k, v any) bool {
		ls := v.(*levelStat)
		out["warns_"+k.(string)] = atomic.LoadInt64(&ls.warns)
		out["errors_"+k.(string)] = atomic.LoadInt64(&ls.errors)
		return true
	})
	return out
}

func channelCounters() map[string]map[string]int64 {
	data := map[string]map[string]int64{}
	channels.Range(func(k, v any) bool {
		cs := v.(*channelStat)
		data[k.(string)] = map[string]int64{
			"messages": atomic.LoadInt64(&cs.messages),
			"bytes":    atomic.LoadInt64(&cs.bytes),
		}
		return true
	})
	return data
}

// StartReport logs system and channel statistics every interval until ctx is
// cancelled.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func datum(name string, unit cwtypes.StandardUnit, v float64, dims ...cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(metricPrefix + name),
		Unit:       unit,
		Dimensions: dims,
		Value:      aws.Float64(v),
	}
}

func logReport(ctx context.Context, log *Log) {
	cpuPct := 0.0
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		cpuPct = pct[0]
	}
	var memUsed, diskUsed uint64
	if m, err := mem.VirtualMemory(); err == nil {
		memUsed = m.Used
	}
	if d, err := disk.Usage("/"); err == nil {
		diskUsed = d.Used
	}
	var bytesSent, bytesRecv uint64
	if n, err := gnet.IOCounters(false); err == nil && len(n) > 0 {
		bytesSent = n[0].BytesSent
		bytesRecv = n[0].BytesRecv
	}

	counters := Counters()
	channelData := channelCounters()

	fields := Fields{
		"goroutines":     runtime.NumGoroutine(),
		"cpu_percent":    cpuPct,
		"memory_mb":      int64(memUsed) / 1024 / 1024,
		"disk_mb":        int64(diskUsed) / 1024 / 1024,
		"net_bytes_sent": int64(bytesSent),
		"net_bytes_recv": int64(bytesRecv),
		"channels":       channelData,
	}
	for k, v := range counters {
		fields[k] = v
	}
	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		datum("CPUPercent", cwtypes.StandardUnitPercent, cpuPct),
		datum("MemoryMB", cwtypes.StandardUnitMegabytes, float64(memUsed)/1024/1024),
		datum("DiskMB", cwtypes.StandardUnitMegabytes, float64(diskUsed)/1024/1024),
		datum("NetBytesSent", cwtypes.StandardUnitBytes, float64(bytesSent)),
		datum("NetBytesRecv", cwtypes.StandardUnitBytes, float64(bytesRecv)),
		datum("Publications", cwtypes.StandardUnitCount, float64(counters["publications"])),
		datum("Responses", cwtypes.StandardUnitCount, float64(counters["responses"])),
		datum("DecodeFailures", cwtypes.StandardUnitCount, float64(counters["decode_failures"])),
		datum("RestCalls", cwtypes.StandardUnitCount, float64(counters["rest_calls"])),
		datum("S3Writes", cwtypes.StandardUnitCount, float64(counters["s3_writes"])),
	}

	components.Range(func(k, v any) bool {
		ls := v.(*levelStat)
		dim := cwtypes.Dimension{Name: aws.String("Component"), Value: aws.String(k.(string))}
		data = append(data,
			datum("Warnings", cwtypes.StandardUnitCount, float64(atomic.LoadInt64(&ls.warns)), dim),
			datum("Errors", cwtypes.StandardUnitCount, float64(atomic.LoadInt64(&ls.errors)), dim),
		)
		return true
	})

	for name, stats := range channelData {
		dim := cwtypes.Dimension{Name: aws.String("Channel"), Value: aws.String(name)}
		data = append(data,
			datum("ChannelMessages", cwtypes.StandardUnitCount, float64(stats["messages"]), dim),
			datum("ChannelBytes", cwtypes.StandardUnitBytes, float64(stats["bytes"]), dim),
		)
	}

	publishMetrics(ctx, data)
}
