package monitor

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"krakenflow/logger"
)

// hostSample is one reading of the host the service runs on. A probe that
// failed leaves its fields zero and is named in Failed.
type hostSample struct {
	Timestamp   time.Time `json:"timestamp"`
	Goroutines  int       `json:"goroutines"`
	CPUPercent  float64   `json:"cpu_percent"`
	MemoryUsed  uint64    `json:"memory_used"`
	MemoryTotal uint64    `json:"memory_total"`
	MemoryPct   float64   `json:"memory_percent"`
	DiskUsed    uint64    `json:"disk_used"`
	DiskTotal   uint64    `json:"disk_total"`
	DiskPct     float64   `json:"disk_percent"`
	NetSent     uint64    `json:"net_bytes_sent"`
	NetRecv     uint64    `json:"net_bytes_recv"`
	Failed      []string  `json:"failed,omitempty"`
}

// hostProbe reads the host counters. Tests swap in fixed values.
type hostProbe struct {
	cpu    func(ctx context.Context) (float64, error)
	memory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	disk   func(ctx context.Context, path string) (*disk.UsageStat, error)
	net    func(ctx context.Context) (sent, recv uint64, err error)
}

// systemProbe measures cpu usage since its previous call, so the first
// reading after start is an average since boot.
var systemProbe = hostProbe{
	cpu: func(ctx context.Context) (float64, error) {
		pct, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil || len(pct) == 0 {
			return 0, err
		}
		return pct[0], nil
	},
	memory: mem.VirtualMemoryWithContext,
	disk:   disk.UsageWithContext,
	net: func(ctx context.Context) (uint64, uint64, error) {
		counters, err := gnet.IOCountersWithContext(ctx, false)
		if err != nil || len(counters) == 0 {
			return 0, 0, err
		}
		return counters[0].BytesSent, counters[0].BytesRecv, nil
	},
}

type resourceSampler struct {
	samples  *ring[hostSample]
	interval time.Duration
	diskPath string
	probe    hostProbe
	log      *logger.Log
}

func newResourceSampler(limit int, interval time.Duration, diskPath string, log *logger.Log) *resourceSampler {
	if interval <= 0 {
		interval = time.Second
	}
	if diskPath == "" {
		diskPath = "/"
	}
	return &resourceSampler{
		samples:  newRing[hostSample](limit),
		interval: interval,
		diskPath: diskPath,
		probe:    systemProbe,
		log:      log,
	}
}

func (s *resourceSampler) snapshot() []hostSample { return s.samples.snapshot() }

func (s *resourceSampler) sample(ctx context.Context) hostSample {
	hs := hostSample{Timestamp: time.Now(), Goroutines: runtime.NumGoroutine()}
	fail := func(probe string, err error) {
		hs.Failed = append(hs.Failed, probe)
		s.log.WithComponent("resource_sampler").WithError(err).Debug("failed to sample " + probe)
	}

	if pct, err := s.probe.cpu(ctx); err != nil {
		fail("cpu", err)
	} else {
		hs.CPUPercent = pct
	}
	if m, err := s.probe.memory(ctx); err != nil {
		fail("memory", err)
	} else {
		hs.MemoryUsed, hs.MemoryTotal, hs.MemoryPct = m.Used, m.Total, m.UsedPercent
	}
	if d, err := s.probe.disk(ctx, s.diskPath); err != nil {
		fail("disk", err)
	} else {
		hs.DiskUsed, hs.DiskTotal, hs.DiskPct = d.Used, d.Total, d.UsedPercent
	}
	if sent, recv, err := s.probe.net(ctx); err != nil {
		fail("net", err)
	} else {
		hs.NetSent, hs.NetRecv = sent, recv
	}
	return hs
}

// run takes one sample per interval until ctx is done.
func (s *resourceSampler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.samples.push(s.sample(ctx))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
