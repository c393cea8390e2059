// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the pipeline over HTTP: a JSON endpoint to start a
// run, the current state, a server-sent events stream of state changes and
// the generated image.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/veriviz/internal/pipeline"
	"github.com/pdiddy/veriviz/pkg/types"
)

// Runner is the part of the orchestrator the server drives.
type Runner interface {
	Start(ctx context.Context, topic string, audience types.Audience) (string, <-chan pipeline.Result, error)
	Snapshot() types.Snapshot
	Subscribe(ctx context.Context) <-chan types.Snapshot
}

// Server serves the HTTP API for one orchestrator.
type Server struct {
	runner    Runner
	logger    logrus.FieldLogger
	heartbeat time.Duration

	// runCtx outlives requests so background runs survive the response.
	// Event streams end when it is done, so cancel it before Shutdown.
	runCtx context.Context
	runs   sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRunContext sets the parent context of background runs. Open event
// streams close when ctx is done.
func WithRunContext(ctx context.Context) Option {
	return func(s *Server) {
		s.runCtx = ctx
	}
}

// WithHeartbeat sets the keep-alive interval of the event stream.
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// New creates a Server.
func New(runner Runner, opts ...Option) *Server {
	s := &Server{
		runner:    runner,
		logger:    logrus.StandardLogger(),
		heartbeat: 15 * time.Second,
		runCtx:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/research", s.startResearch)
		r.Get("/state", s.state)
		r.Get("/events", s.streamEvents)
		r.Get("/image", s.image)
		r.Get("/audiences", s.audiences)
	})
	r.Get("/health", s.health)

	return r
}

// Wait blocks until every background run started by the server ended.
func (s *Server) Wait() {
	s.runs.Wait()
}

// requestLogger logs each request except the long-lived event stream.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/events") {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).Round(time.Microsecond),
		}).Debug("http request")
	})
}

// maxRequestBytes bounds the body of a research request.
const maxRequestBytes = 64 << 10

type researchRequest struct {
	Topic    string `json:"topic"`
	Audience string `json:"audience"`
}

func (s *Server) startResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	audience := types.AudienceGeneral
	if strings.TrimSpace(req.Audience) != "" {
		a, err := types.ParseAudience(req.Audience)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		audience = a
	}

	runID, done, err := s.runner.Start(s.runCtx, req.Topic, audience)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrEmptyTopic) || errors.Is(err, pipeline.ErrInvalidAudience) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		res := <-done
		if res.Err != nil && !errors.Is(res.Err, pipeline.ErrSuperseded) {
			s.logger.WithField("run_id", runID).WithError(res.Err).Debug("background run ended with error")
		}
	}()

	writeJSONStatus(w, map[string]string{"run_id": runID}, http.StatusAccepted)
}

// stateResponse is the wire form of a snapshot. The image payload is
// served separately by /api/image.
type stateResponse struct {
	RunID     string              `json:"run_id,omitempty"`
	Epoch     uint64              `json:"epoch"`
	State     types.PipelineState `json:"state"`
	Progress  int                 `json:"progress"`
	Message   string              `json:"message,omitempty"`
	Topic     string              `json:"topic,omitempty"`
	Audience  types.Audience      `json:"audience,omitempty"`
	Error     string              `json:"error,omitempty"`
	Report    *types.ReportResult `json:"report,omitempty"`
	HasImage  bool                `json:"has_image"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func toStateResponse(snap types.Snapshot) stateResponse {
	return stateResponse{
		RunID:     snap.RunID,
		Epoch:     snap.Epoch,
		State:     snap.State,
		Progress:  snap.State.Progress(),
		Message:   snap.State.Message(),
		Topic:     snap.Topic,
		Audience:  snap.Audience,
		Error:     snap.Error,
		Report:    snap.Report,
		HasImage:  snap.Image != nil,
		UpdatedAt: snap.UpdatedAt,
	}
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, toStateResponse(s.runner.Snapshot()))
}

func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	snapshots := s.runner.Subscribe(ctx)

	sendSSE(w, toStateResponse(s.runner.Snapshot()))
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			sendSSE(w, toStateResponse(snap))
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-ctx.Done():
			return
		case <-s.runCtx.Done():
			return
		}
	}
}

func sendSSE(w http.ResponseWriter, state stateResponse) {
	payload, _ := json.Marshal(state)
	fmt.Fprintf(w, "id: %d:%s\n", state.Epoch, state.State)
	fmt.Fprint(w, "event: state\n")
	fmt.Fprintf(w, "data: %s\n\n", payload)
}

func (s *Server) image(w http.ResponseWriter, r *http.Request) {
	snap := s.runner.Snapshot()
	if snap.Image == nil {
		writeError(w, http.StatusNotFound, "no image available")
		return
	}
	data, err := snap.Image.Bytes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", snap.Image.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

type audienceResponse struct {
	Key   string         `json:"key"`
	Label string         `json:"label"`
	Value types.Audience `json:"value"`
}

func (s *Server) audiences(w http.ResponseWriter, r *http.Request) {
	all := types.Audiences()
	out := make([]audienceResponse, len(all))
	for i, a := range all {
		out[i] = audienceResponse{Key: a.Key(), Label: a.Label(), Value: a}
	}
	writeJSON(w, out)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

func writeJSONStatus(w http.ResponseWriter, value any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, statusCode int, msg string) {
	writeJSONStatus(w, map[string]string{"error": msg}, statusCode)
}
