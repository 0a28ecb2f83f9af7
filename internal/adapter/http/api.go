package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/couchcryptid/weather-stream-listener/internal/domain"
	"github.com/couchcryptid/weather-stream-listener/internal/location"
	"github.com/couchcryptid/weather-stream-listener/internal/projection"
	"github.com/couchcryptid/weather-stream-listener/internal/stream"
)

const maxRequestBody = 4 << 10

type eventView struct {
	domain.Record
	Badges []projection.Badge `json:"badges,omitempty"`
}

type eventsResponse struct {
	Order   string      `json:"order"`
	Count   int         `json:"count"`
	Records []eventView `json:"records"`
}

type telemetryResponse struct {
	Kind    string             `json:"kind"`
	Count   int                `json:"count"`
	Entries []projection.Entry `json:"entries"`
	Latest  *projection.Entry  `json:"latest"`
}

type segmentsResponse struct {
	Kind     string               `json:"kind"`
	Timezone string               `json:"timezone"`
	Segments []projection.Segment `json:"segments"`
}

type subscribeRequest struct {
	Location string `json:"location"`
	Endpoint string `json:"endpoint"`
}

type subscribeResponse struct {
	stream.Subscription
	Location *domain.Location `json:"location,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.hub.Status())
}

// handleEvents lists the window newest first unless order=asc is given.
// limit caps the number of records returned.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	order := q.Get("order")
	if order == "" {
		order = "desc"
	}
	if order != "desc" && order != "asc" {
		writeError(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records := s.hub.Snapshot()
	if order == "desc" {
		records = projection.NewestFirst(records)
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	views := make([]eventView, len(records))
	for i, rec := range records {
		views[i] = eventView{Record: rec, Badges: projection.Badges(rec)}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Order: order, Count: len(views), Records: views})
}

func (s *Server) handleTelemetry(w http.ResponseWriter, _ *http.Request) {
	entries := s.builder.Project(s.hub.Snapshot())
	resp := telemetryResponse{
		Kind:    s.builder.Kind(),
		Count:   len(entries),
		Entries: entries,
	}
	if latest, ok := projection.Latest(entries); ok {
		resp.Latest = &latest
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSegments(w http.ResponseWriter, _ *http.Request) {
	segments := s.builder.Segments(s.builder.Project(s.hub.Snapshot()))
	if segments == nil {
		segments = []projection.Segment{}
	}
	writeJSON(w, http.StatusOK, segmentsResponse{
		Kind:     s.builder.Kind(),
		Timezone: s.builder.Location().String(),
		Segments: segments,
	})
}

func (s *Server) handleLocations(w http.ResponseWriter, _ *http.Request) {
	if s.locator == nil {
		writeJSON(w, http.StatusOK, []domain.Location{})
		return
	}
	writeJSON(w, http.StatusOK, s.locator.List())
}

// handleSubscribe re-targets the hub at a named location or a raw endpoint.
// Exactly one of the two must be given.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if (req.Location == "") == (req.Endpoint == "") {
		writeError(w, http.StatusBadRequest, "exactly one of location or endpoint is required")
		return
	}

	endpoint, label := req.Endpoint, ""
	var loc *domain.Location
	if req.Location != "" {
		if s.locator == nil {
			writeError(w, http.StatusNotImplemented, "location subscriptions are not configured")
			return
		}
		ep, resolved, err := s.locator.Endpoint(r.Context(), req.Location)
		switch {
		case errors.Is(err, location.ErrUnknownLocation):
			writeError(w, http.StatusNotFound, err.Error())
			return
		case err != nil:
			s.logger.Error("resolve location", "location", req.Location, "error", err)
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		endpoint, label, loc = ep, resolved.Name, &resolved
	} else if err := validateEndpoint(endpoint); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sub, err := s.hub.Subscribe(endpoint, label)
	switch {
	case errors.Is(err, stream.ErrHubClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("subscription updated via api", "session_id", sub.SessionID, "endpoint", endpoint)
	writeJSON(w, http.StatusOK, subscribeResponse{Subscription: sub, Location: loc})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("endpoint must be an absolute http(s) URL")
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes v before touching the response so an encoding failure
// still yields a well-formed 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n')) //nolint:errcheck // best-effort API response
}
