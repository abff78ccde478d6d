// otel.go implements the [EXPANSION] OpenTelemetry-shaped span/attribute
// recorder named in SPEC_FULL.md: an in-process, no-network stub that
// records span timing and attributes into this package's own registry,
// consistent with spec.md's Non-goal excluding a full OTLP exporter.
//
// Grounded on original_source/selenia_core/src/otel.rs.
package metrics

import (
	"sync"
	"time"
)

// Span is a minimal recorded span: a name, start/end timestamps, and a set
// of string attributes. There is no network export path; spans are kept for
// in-process inspection only (e.g. by a /debug endpoint or tests).
type Span struct {
	Name       string
	Start, End time.Time
	Attributes map[string]string
}

// Duration returns End.Sub(Start).
func (s Span) Duration() time.Duration { return s.End.Sub(s.Start) }

// SpanRecorder buffers recently completed spans, bounded so a long-running
// worker does not grow this unboundedly.
type SpanRecorder struct {
	mu      sync.Mutex
	spans   []Span
	maxKept int
}

// NewSpanRecorder creates a recorder retaining at most maxKept spans.
func NewSpanRecorder(maxKept int) *SpanRecorder {
	if maxKept <= 0 {
		maxKept = 1024
	}
	return &SpanRecorder{maxKept: maxKept}
}

// ActiveSpan is returned by Start; call End to finish and record it.
type ActiveSpan struct {
	rec        *SpanRecorder
	name       string
	start      time.Time
	attributes map[string]string
}

// Start begins a span named name.
func (r *SpanRecorder) Start(name string) *ActiveSpan {
	return &ActiveSpan{rec: r, name: name, start: time.Now(), attributes: make(map[string]string)}
}

// SetAttribute records a key/value pair on the active span.
func (a *ActiveSpan) SetAttribute(key, value string) {
	a.attributes[key] = value
}

// End completes the span and stores it in the recorder, evicting the oldest
// entry once maxKept is exceeded (simple FIFO, not a sampling strategy —
// this is diagnostic buffering, not a production exporter).
func (a *ActiveSpan) End() {
	span := Span{Name: a.name, Start: a.start, End: time.Now(), Attributes: a.attributes}
	a.rec.mu.Lock()
	defer a.rec.mu.Unlock()
	a.rec.spans = append(a.rec.spans, span)
	if len(a.rec.spans) > a.rec.maxKept {
		a.rec.spans = a.rec.spans[len(a.rec.spans)-a.rec.maxKept:]
	}
}

// Spans returns a snapshot of the currently retained spans.
func (r *SpanRecorder) Spans() []Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Span, len(r.spans))
	copy(out, r.spans)
	return out
}

var (
	defaultSpansOnce sync.Once
	defaultSpans     *SpanRecorder
)

// DefaultSpanRecorder returns the process-wide recorder, created lazily.
func DefaultSpanRecorder() *SpanRecorder {
	defaultSpansOnce.Do(func() { defaultSpans = NewSpanRecorder(1024) })
	return defaultSpans
}
