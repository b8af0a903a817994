// SPDX-License-Identifier: MIT
/*
Package server exposes the simulator over HTTP.

Routes:

	GET  /presets       age presets as JSON
	POST /process       body: WAV or MP3 bytes; query: preset= or cutoff=
	                    reply: WAV attachment of the simulated audio
	POST /spectrogram   body: WAV or MP3 bytes; optional preset= or cutoff= to
	                    analyze the simulated audio instead of the input
	                    reply: display frame JSON, also broadcast to sinks
	GET  /healthz       liveness
	GET  /metrics       Prometheus scrape endpoint
	GET  <ws path>      spectrogram broadcast (WebSocket)

The server holds no per-request state; every result comes from the shared
pipeline cache.
*/
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hearsim/internal/analysis"
	"hearsim/internal/audio"
	"hearsim/internal/config"
	"hearsim/internal/display"
	"hearsim/internal/dsp"
	applog "hearsim/internal/log"
	"hearsim/internal/observe"
	"hearsim/internal/pipeline"
	"hearsim/internal/presets"
	"hearsim/internal/transport"
)

const shutdownTimeout = 5 * time.Second

// Server wires the pipeline, the analyzer and the spectrogram sinks to HTTP.
type Server struct {
	cfg      *config.Config
	pipe     *pipeline.Pipeline
	metrics  *observe.Metrics
	sink     transport.Transport
	ws       http.Handler
	mux      *http.ServeMux
	httpSrv  *http.Server
	metricsH http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request counts and analysis latency.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSink sends every spectrogram frame served by /spectrogram to t.
func WithSink(t transport.Transport) Option {
	return func(s *Server) { s.sink = t }
}

// WithWebSocket mounts h at the configured WebSocket path.
func WithWebSocket(h http.Handler) Option {
	return func(s *Server) { s.ws = h }
}

// New builds the route table. The pipeline is shared with any other caller in
// the process.
func New(cfg *config.Config, pipe *pipeline.Pipeline, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		pipe:     pipe,
		mux:      http.NewServeMux(),
		metricsH: promhttp.Handler(),
	}
	for _, o := range opts {
		o(s)
	}

	s.handle("GET /presets", s.handlePresets)
	s.handle("POST /process", s.handleProcess)
	s.handle("POST /spectrogram", s.handleSpectrogram)
	s.handle("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metricsH)
	if s.ws != nil {
		s.mux.Handle("GET "+cfg.Server.WebSocketPath, s.ws)
	}
	return s
}

// Handler returns the route table, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		applog.Infof("Server: listening on %s", s.cfg.Server.Addr)
		errc <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	applog.Infof("Server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// handle registers fn and counts each request by route and status.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		applog.Debugf("Server: %s %s -> %d", r.Method, r.URL.Path, rec.status)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Context(), pattern, rec.status)
		}
	})
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, presets.All())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	st := s.pipe.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"cache_entries": st.Entries,
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	p, ok, err := presetFromQuery(r)
	if err == nil && !ok {
		err = errors.New("one of preset or cutoff is required")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	buf, rate, err := s.readAudio(w, r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	res, err := s.pipe.Run(buf, rate, p.Cutoff)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if err := dsp.CheckFinite(res.Samples); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	wav, err := audio.Encode(res.Samples, res.SampleRate)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(s.cfg.Assets.OutputFile)))
	w.Header().Set("Content-Length", strconv.Itoa(len(wav)))
	w.Header().Set("X-Hearsim-Preset", p.Key)
	w.Header().Set("X-Hearsim-Cutoff", strconv.FormatFloat(p.Cutoff, 'f', -1, 64))
	w.Header().Set("X-Hearsim-Clamped", strconv.FormatBool(res.Clamped))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(wav); err != nil {
		applog.Warnf("Server: writing response: %v", err)
	}
}

func (s *Server) handleSpectrogram(w http.ResponseWriter, r *http.Request) {
	p, simulate, err := presetFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	buf, rate, err := s.readAudio(w, r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	if simulate {
		res, err := s.pipe.Run(buf, rate, p.Cutoff)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		buf = res.Samples
	}

	start := time.Now()
	spec, err := analysis.Analyze(buf, rate)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordAnalysis(r.Context(), time.Since(start))
	}

	d := s.cfg.Display
	frame := display.Prepare(spec, display.Range{MinDB: d.MinDB, MaxDB: d.MaxDB}, d.MaxFrequency)
	if s.sink != nil {
		if err := s.sink.Send(frame); err != nil {
			applog.Warnf("Server: spectrogram sink: %v", err)
		}
	}
	writeJSON(w, http.StatusOK, frame)
}

// readAudio decodes the request body, bounded by the configured upload size.
func (s *Server) readAudio(w http.ResponseWriter, r *http.Request) ([]float64, int, error) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, 0, err
	}
	return audio.Decode(raw)
}

// presetFromQuery resolves preset= or cutoff=. ok is false when neither is
// present.
func presetFromQuery(r *http.Request) (p presets.Preset, ok bool, err error) {
	q := r.URL.Query()
	name, cutoff := q.Get("preset"), q.Get("cutoff")
	switch {
	case name != "" && cutoff != "":
		return p, false, errors.New("preset and cutoff are mutually exclusive")
	case name != "":
		p, err = presets.Resolve(name)
	case cutoff != "":
		var hz float64
		if hz, err = strconv.ParseFloat(cutoff, 64); err != nil {
			return p, false, fmt.Errorf("cutoff %q: not a number", cutoff)
		}
		p, err = presets.Custom(hz)
	default:
		return p, false, nil
	}
	return p, err == nil, err
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		maxBytes *http.MaxBytesError
		decode   *audio.DecodeError
		param    *dsp.InvalidParameterError
		anomaly  *dsp.NumericAnomalyError
	)
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &decode):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &param):
		return http.StatusBadRequest
	case errors.As(err, &anomaly):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		applog.Errorf("Server: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Warnf("Server: encoding response: %v", err)
	}
}
