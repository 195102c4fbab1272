package pipeline

import (
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// relationProgress counts finished relations of one reconstruction stage
type relationProgress struct {
	total int64
	start time.Time
	done  atomic.Int64
}

func newRelationProgress(total int) *relationProgress {
	return &relationProgress{total: int64(total), start: time.Now()}
}

func (p *relationProgress) finish() {
	p.done.Add(1)
}

// fields reports done/total, rate and remaining time
func (p *relationProgress) fields() []zap.Field {
	return p.fieldsAt(p.done.Load(), time.Since(p.start))
}

func (p *relationProgress) fieldsAt(done int64, elapsed time.Duration) []zap.Field {
	var rate float64
	if elapsed > 0 {
		rate = float64(done) / elapsed.Seconds()
	}

	pct := 100.0
	if p.total > 0 {
		pct = float64(done) / float64(p.total) * 100
	}

	eta := "unknown"
	switch {
	case done >= p.total:
		eta = "0s"
	case rate > 0:
		remaining := time.Duration(float64(p.total-done) / rate * float64(time.Second))
		eta = remaining.Round(time.Second).String()
	}

	return []zap.Field{
		zap.Int64("relations_done", done),
		zap.Int64("relations_total", p.total),
		zap.String("pct", strconv.FormatFloat(pct, 'f', 1, 64)),
		zap.String("rate", formatRate(rate)),
		zap.String("eta", eta),
	}
}

// formatRate formats relations per second
func formatRate(perSec float64) string {
	if perSec >= 1_000 {
		return strconv.FormatFloat(perSec/1_000, 'f', 1, 64) + "K/s"
	}
	return strconv.FormatFloat(perSec, 'f', 0, 64) + "/s"
}
