package render

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/county-choropleth/internal/domain"
)

// Sink receives every payload a Session produces, e.g. a browser push
// channel or a message topic.
type Sink interface {
	Push(ctx context.Context, p Payload) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, p Payload) error

// Push calls f.
func (f SinkFunc) Push(ctx context.Context, p Payload) error { return f(ctx, p) }

// Session tracks the current (day, metric) selection of one UI and re-renders
// on every change. It is the only stateful piece between the UI and Renderer.
type Session struct {
	mu       sync.Mutex
	renderer *Renderer
	sink     Sink
	day      int
	metric   domain.MetricDescriptor
}

// NewSession starts a session at day with the given metric key. A nil sink
// discards payloads.
func NewSession(r *Renderer, sink Sink, day int, metricKey string) (*Session, error) {
	desc, err := r.Catalog().Describe(metricKey)
	if err != nil {
		return nil, err
	}
	return &Session{renderer: r, sink: sink, day: day, metric: desc}, nil
}

// Selection returns the current day and metric.
func (s *Session) Selection() (int, domain.MetricDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day, s.metric
}

// Current renders the current selection without pushing it.
func (s *Session) Current() Payload {
	day, desc := s.Selection()
	return s.renderer.render(day, desc)
}

// OnDayChanged handles a slider move.
func (s *Session) OnDayChanged(ctx context.Context, day int) (Payload, error) {
	s.mu.Lock()
	s.day = day
	p := s.renderer.render(s.day, s.metric)
	s.mu.Unlock()

	return p, s.push(ctx, p)
}

// OnMetricChanged handles a dropdown change. An unknown label leaves the
// selection untouched.
func (s *Session) OnMetricChanged(ctx context.Context, label string) (Payload, error) {
	desc, err := s.renderer.Catalog().DescribeByLabel(label)
	if err != nil {
		return Payload{}, err
	}

	s.mu.Lock()
	s.metric = desc
	p := s.renderer.render(s.day, s.metric)
	s.mu.Unlock()

	return p, s.push(ctx, p)
}

func (s *Session) push(ctx context.Context, p Payload) error {
	if s.sink == nil {
		return nil
	}
	if err := s.sink.Push(ctx, p); err != nil {
		return fmt.Errorf("push payload (%s): %w", p, err)
	}
	return nil
}
