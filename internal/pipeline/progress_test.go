package pipeline

import (
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
)

func TestRelationProgressFields(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		done    int64
		elapsed time.Duration
		want    map[string]string
	}{
		{
			name: "half way", total: 200, done: 100, elapsed: 10 * time.Second,
			want: map[string]string{"pct": "50.0", "rate": "10/s", "eta": "10s"},
		},
		{
			name: "fast", total: 10_000, done: 5_000, elapsed: 2 * time.Second,
			want: map[string]string{"pct": "50.0", "rate": "2.5K/s", "eta": "2s"},
		},
		{
			name: "not started", total: 27, done: 0, elapsed: time.Second,
			want: map[string]string{"pct": "0.0", "rate": "0/s", "eta": "unknown"},
		},
		{
			name: "finished", total: 27, done: 27, elapsed: time.Minute,
			want: map[string]string{"pct": "100.0", "eta": "0s"},
		},
		{
			name: "no relations", total: 0, done: 0, elapsed: 0,
			want: map[string]string{"pct": "100.0", "rate": "0/s", "eta": "0s"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newRelationProgress(tt.total)
			enc := zapcore.NewMapObjectEncoder()
			for _, f := range p.fieldsAt(tt.done, tt.elapsed) {
				f.AddTo(enc)
			}
			for key, want := range tt.want {
				if got := enc.Fields[key]; got != want {
					t.Errorf("%s = %v, want %s", key, got, want)
				}
			}
			if got := enc.Fields["relations_done"]; got != tt.done {
				t.Errorf("relations_done = %v, want %d", got, tt.done)
			}
		})
	}
}

func TestRelationProgressFinish(t *testing.T) {
	p := newRelationProgress(3)
	p.finish()
	p.finish()
	if got := p.done.Load(); got != 2 {
		t.Errorf("done = %d, want 2", got)
	}
}
