package render

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/county-choropleth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	pushed []Payload
	err    error
}

func (s *recordingSink) Push(_ context.Context, p Payload) error {
	s.pushed = append(s.pushed, p)
	return s.err
}

func TestSession_OnDayChanged(t *testing.T) {
	r := newTestRenderer(t, Options{SliderStart: -1})
	sink := &recordingSink{}

	s, err := NewSession(r, sink, r.MostRecentDay(), "Confirmed")
	require.NoError(t, err)

	p, err := s.OnDayChanged(context.Background(), 19)
	require.NoError(t, err)
	assert.Equal(t, 19, p.Day)
	assert.Equal(t, "Confirmed", p.Metric.Key)

	require.Len(t, sink.pushed, 1)
	assert.Equal(t, 19, sink.pushed[0].Day)

	day, desc := s.Selection()
	assert.Equal(t, 19, day)
	assert.Equal(t, "Confirmed", desc.Key)
}

func TestSession_OnMetricChanged(t *testing.T) {
	r := newTestRenderer(t, Options{SliderStart: -1})
	sink := &recordingSink{}

	s, err := NewSession(r, sink, 20, "Confirmed")
	require.NoError(t, err)

	p, err := s.OnMetricChanged(context.Background(), "Number of Confirmed Coronavirus Deaths")
	require.NoError(t, err)
	assert.Equal(t, 20, p.Day, "day is kept across metric changes")
	assert.Equal(t, "Deaths", p.Metric.Key)
	assert.Len(t, sink.pushed, 1)
}

func TestSession_OnMetricChanged_UnknownLabel(t *testing.T) {
	r := newTestRenderer(t, Options{SliderStart: -1})
	sink := &recordingSink{}

	s, err := NewSession(r, sink, 20, "Deaths")
	require.NoError(t, err)

	_, err = s.OnMetricChanged(context.Background(), "Hospitalizations")
	require.ErrorIs(t, err, domain.ErrUnknownLabel)
	assert.Empty(t, sink.pushed)

	_, desc := s.Selection()
	assert.Equal(t, "Deaths", desc.Key)
}

func TestSession_SinkError(t *testing.T) {
	r := newTestRenderer(t, Options{SliderStart: -1})
	sink := &recordingSink{err: errors.New("broker down")}

	s, err := NewSession(r, sink, 20, "Confirmed")
	require.NoError(t, err)

	p, err := s.OnDayChanged(context.Background(), 19)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Equal(t, 19, p.Day, "payload is still returned")

	day, _ := s.Selection()
	assert.Equal(t, 19, day)
}

func TestSession_NilSinkAndSinkFunc(t *testing.T) {
	r := newTestRenderer(t, Options{SliderStart: -1})

	s, err := NewSession(r, nil, 20, "Confirmed")
	require.NoError(t, err)
	_, err = s.OnDayChanged(context.Background(), 19)
	require.NoError(t, err)

	var calls int
	s, err = NewSession(r, SinkFunc(func(context.Context, Payload) error {
		calls++
		return nil
	}), 20, "Confirmed")
	require.NoError(t, err)
	_, err = s.OnMetricChanged(context.Background(), "Daily Increase in Cases")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	assert.Equal(t, "nConfirmed_Change", s.Current().Metric.Key)
}

func TestNewSession_UnknownMetric(t *testing.T) {
	r := newTestRenderer(t, Options{SliderStart: -1})

	_, err := NewSession(r, nil, 20, "Hospitalized")
	assert.ErrorIs(t, err, domain.ErrUnknownMetric)
}
