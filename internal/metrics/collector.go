package metrics

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Snapshot holds one sample of process and system usage
type Snapshot struct {
	CPUPercent        float64 // system wide, 0-100
	ProcessCPUPercent float64 // per core, can exceed 100
	ProcessRSSMB      float64
	MemoryUsedGB      float64
	MemoryPercent     float64
	Timestamp         time.Time
}

// ProgressFunc reports pipeline counters to log next to each sample
type ProgressFunc func() []zap.Field

// Collector periodically samples resource usage and logs it together with
// the progress of the running pipeline stage.
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process

	mu       sync.RWMutex
	progress ProgressFunc
	last     *Snapshot
}

// NewCollector creates a collector; intervals under a second become 30s
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	if interval < time.Second {
		interval = 30 * time.Second
	}

	proc, _ := process.NewProcess(int32(os.Getpid()))

	return &Collector{
		interval: interval,
		logger:   logger,
		proc:     proc,
	}
}

// SetProgress replaces the progress reporter; nil disables it
func (c *Collector) SetProgress(fn ProgressFunc) {
	c.mu.Lock()
	c.progress = fn
	c.mu.Unlock()
}

// Start samples until the context is cancelled
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("Metrics collection stopped")
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// Last returns the most recent sample, nil before the first one
func (c *Collector) Last() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

func (c *Collector) sample() *Snapshot {
	s := &Snapshot{Timestamp: time.Now()}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}

	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcessCPUPercent = pct
		}
		if info, err := c.proc.MemoryInfo(); err == nil {
			s.ProcessRSSMB = float64(info.RSS) / (1024 * 1024)
		}
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		s.MemoryPercent = vmem.UsedPercent
		s.MemoryUsedGB = float64(vmem.Used) / (1024 * 1024 * 1024)
	}

	return s
}

func (c *Collector) collect() {
	s := c.sample()

	c.mu.Lock()
	c.last = s
	progress := c.progress
	c.mu.Unlock()

	fields := []zap.Field{
		zap.Float64("sys_cpu", s.CPUPercent),
		zap.Float64("proc_cpu", s.ProcessCPUPercent),
		zap.String("rss", formatFloat(s.ProcessRSSMB)+" MB"),
		zap.Float64("mem_pct", s.MemoryPercent),
		zap.String("mem_used", formatFloat(s.MemoryUsedGB)+" GB"),
	}
	if progress != nil {
		fields = append(fields, progress()...)
	}

	c.logger.Info("System metrics", fields...)
}

// formatFloat formats with one decimal place, clamping tiny values to 0.0
func formatFloat(f float64) string {
	if f < 0.1 {
		return "0.0"
	}
	return strconv.FormatFloat(f, 'f', 1, 64)
}
