package core

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// SpanRecord is one finished operation span written by JSONTracer.
type SpanRecord struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTracer writes spans as JSON lines and keeps the most recent ones in memory.
type JSONTracer struct {
	mu    sync.Mutex
	enc   *json.Encoder
	spans []SpanRecord
	limit int
}

// NewJSONTracer returns a tracer writing to w (which may be nil). At most limit
// spans are retained; limit <= 0 keeps 256.
func NewJSONTracer(w io.Writer, limit int) *JSONTracer {
	if limit <= 0 {
		limit = 256
	}
	t := &JSONTracer{limit: limit}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Spans returns a copy of the retained spans, oldest first.
func (t *JSONTracer) Spans() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanRecord(nil), t.spans...)
}

// Start implements Tracer.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

type jsonSpan struct {
	tracer    *JSONTracer
	operation string
	started   time.Time
	once      sync.Once
}

func (s *jsonSpan) End(err error) {
	s.once.Do(func() {
		ended := time.Now().UTC()
		rec := SpanRecord{
			Operation:  s.operation,
			Status:     "success",
			DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
			StartedAt:  s.started,
			EndedAt:    ended,
		}
		if err != nil {
			rec.Status = "error"
			rec.Error = err.Error()
		}
		s.tracer.record(rec)
	})
}

func (t *JSONTracer) record(rec SpanRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = append(t.spans, rec)
	if over := len(t.spans) - t.limit; over > 0 {
		t.spans = append(t.spans[:0:0], t.spans[over:]...)
	}
	if t.enc != nil {
		_ = t.enc.Encode(rec)
	}
}
