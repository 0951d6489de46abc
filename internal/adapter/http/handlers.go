package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/county-choropleth/internal/domain"
	"github.com/couchcryptid/county-choropleth/internal/render"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
)

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

type daysResponse struct {
	First      int `json:"first"`
	Last       int `json:"last"`
	MostRecent int `json:"most_recent"`
}

type dayEvent struct {
	Day *int `json:"day"`
}

type metricEvent struct {
	Label string `json:"label"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.renderer.Catalog().Descriptors())
}

func (s *Server) handleDays(w http.ResponseWriter, _ *http.Request) {
	first, last := s.renderer.DayRange()
	sharedobs.WriteJSON(w, http.StatusOK, daysResponse{
		First:      first,
		Last:       last,
		MostRecent: s.renderer.MostRecentDay(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid day %q", chi.URLParam(r, "day")))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	writeRaw(w, http.StatusOK, s.renderer.Snapshot(day))
}

// handleRender renders ?day= with ?metric= (key) or ?label=. Missing
// parameters fall back to the session selection.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day, desc := s.session.Selection()

	if v := q.Get("day"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid day %q", v))
			return
		}
		day = d
	}

	var (
		p   render.Payload
		err error
	)
	switch {
	case q.Get("label") != "":
		p, err = s.renderer.RenderByLabel(day, q.Get("label"))
	case q.Get("metric") != "":
		p, err = s.renderer.Render(day, q.Get("metric"))
	default:
		p, err = s.renderer.Render(day, desc.Key)
	}
	if err != nil {
		s.metrics.RenderRequests.WithLabelValues("unknown", outcomeError).Inc()
		writeError(w, statusFor(err), err)
		return
	}
	s.metrics.RenderRequests.WithLabelValues(p.Metric.Key, outcomeSuccess).Inc()
	sharedobs.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.session.Current())
}

func (s *Server) handleDayEvent(w http.ResponseWriter, r *http.Request) {
	var ev dayEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.Day == nil {
		writeError(w, http.StatusBadRequest, errors.New(`body must be {"day": <int>}`))
		return
	}
	s.metrics.SessionEvents.WithLabelValues("day").Inc()

	p, err := s.session.OnDayChanged(r.Context(), *ev.Day)
	if err != nil {
		// The selection changed; only the sink failed.
		s.logger.Warn("session push failed", "event", "day", "error", err)
	}
	sharedobs.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleMetricEvent(w http.ResponseWriter, r *http.Request) {
	var ev metricEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil || ev.Label == "" {
		writeError(w, http.StatusBadRequest, errors.New(`body must be {"label": <string>}`))
		return
	}
	s.metrics.SessionEvents.WithLabelValues("metric").Inc()

	p, err := s.session.OnMetricChanged(r.Context(), ev.Label)
	switch {
	case errors.Is(err, domain.ErrUnknownLabel):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.logger.Warn("session push failed", "event", "metric", "error", err)
	}
	sharedobs.WriteJSON(w, http.StatusOK, p)
}

func statusFor(err error) int {
	if errors.Is(err, domain.ErrUnknownMetric) || errors.Is(err, domain.ErrUnknownLabel) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

// writeRaw encodes v without touching Content-Type, for media types other
// than application/json.
func writeRaw(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
