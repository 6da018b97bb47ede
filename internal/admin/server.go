package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dcmetrics-sim/internal/logging"
	"dcmetrics-sim/internal/sim"
)

const defaultOutage = 15 * time.Second

// Server exposes simulator health and fault injection over HTTP.
type Server struct {
	Sim      *sim.Simulator
	gatherer prometheus.Gatherer
	tpl      *template.Template
}

//go:embed templates/index.html
var content embed.FS

// NewServer creates a server. A nil gatherer disables /metrics.
func NewServer(sim *sim.Simulator, gatherer prometheus.Gatherer) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{Sim: sim, gatherer: gatherer, tpl: tpl}
}

// Router returns the admin routes.
func (s *Server) Router(ctx context.Context) *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(logging.FromContext(ctx)))

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/zones/{zone}/hosts", s.handleHosts).Methods(http.MethodGet)
	r.HandleFunc("/zones/{zone}/hosts/{host}/outage", s.handleOutage).Methods(http.MethodPost)
	r.HandleFunc("/zones/{zone}/hosts/{host}/overload", s.handleOverload).Methods(http.MethodPost)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// Start serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logging.FromContext(ctx).Info("admin server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cfg := s.Sim.GetConfig()
	data := struct {
		Zones          int
		ServersPerZone int
		Interval       time.Duration
		Health         []sim.ZoneHealth
	}{
		Zones:          cfg.Zones,
		ServersPerZone: cfg.ServersPerZone,
		Interval:       cfg.Interval.Duration,
		Health:         s.Sim.Health(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("render index", "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.Sim.Health())
}

func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.Sim.Hosts(mux.Vars(r)["zone"])
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, hosts)
}

func (s *Server) handleOutage(w http.ResponseWriter, r *http.Request) {
	zone := mux.Vars(r)["zone"]
	idx, err := s.resolveHost(zone, mux.Vars(r)["host"])
	if err != nil {
		respondWithError(w, err)
		return
	}
	d := defaultOutage
	if v := r.URL.Query().Get("duration"); v != "" {
		d, err = time.ParseDuration(v)
		if err != nil || d <= 0 {
			respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "duration must be a positive Go duration such as 15s"})
			return
		}
	}
	if err := s.Sim.InjectOutage(zone, idx, d); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"zone": zone, "host": idx, "outage": d.String()})
}

func (s *Server) handleOverload(w http.ResponseWriter, r *http.Request) {
	zone := mux.Vars(r)["zone"]
	idx, err := s.resolveHost(zone, mux.Vars(r)["host"])
	if err != nil {
		respondWithError(w, err)
		return
	}
	if err := s.Sim.ForceOverload(zone, idx); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"zone": zone, "host": idx, "status": "overloaded"})
}

// resolveHost accepts either a host index or a host id.
func (s *Server) resolveHost(zone, host string) (int, error) {
	hosts, err := s.Sim.Hosts(zone)
	if err != nil {
		return 0, err
	}
	if idx, err := strconv.Atoi(host); err == nil {
		if idx < 0 || idx >= len(hosts) {
			return 0, sim.ErrUnknownHost
		}
		return idx, nil
	}
	for _, h := range hosts {
		if h.HostID == host {
			return h.Index, nil
		}
	}
	return 0, sim.ErrUnknownHost
}

func respondWithError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, sim.ErrUnknownZone) || errors.Is(err, sim.ErrUnknownHost) {
		code = http.StatusNotFound
	}
	respondWithJSON(w, code, map[string]string{"error": err.Error()})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
