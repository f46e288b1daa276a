// Package api exposes the read-only operations surface: liveness, the
// latest cycle summary, on-disk dataset stats, and a websocket stream of
// pipeline events.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/gorilla/mux"

	"nemscan/internal/collector"
	"nemscan/internal/config"
	"nemscan/internal/eventbus"
	"nemscan/internal/store"
)

var allDatasets = []string{
	store.Prices5, store.Prices30,
	store.Scada5, store.Scada30,
	store.Transmission5, store.Transmission30,
	store.Rooftop30, store.Rooftop5,
	store.Demand30,
	store.Curtailment5, store.CurtailmentRegional,
}

// Server is the ops HTTP server.
type Server struct {
	cfg     *config.Config
	svc     *collector.Service
	bus     *eventbus.Bus
	hub     *hub
	httpSrv *http.Server
	started time.Time
}

func NewServer(cfg *config.Config, svc *collector.Service, bus *eventbus.Bus) *Server {
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		bus:     bus,
		hub:     newHub(),
		started: time.Now(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/datasets", s.handleDatasets).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket)

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.APIPort),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves until the context is cancelled, forwarding bus events to
// websocket clients.
func (s *Server) Start(ctx context.Context) {
	go s.hub.run(ctx)
	go s.forwardEvents(ctx)

	go func() {
		log.Printf("[api] listening on %s", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[api] serve: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.httpSrv.Shutdown(shutdownCtx)
	log.Println("[api] stopped")
}

func (s *Server) forwardEvents(ctx context.Context) {
	events := s.bus.Subscribe(eventbus.TypeCycleSummary, eventbus.TypeNewDUIDs)

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			msg, err := json.Marshal(wsMessage{
				Type:      evt.Type,
				Dataset:   evt.Dataset,
				Timestamp: evt.Timestamp,
				Payload:   evt.Data,
			})
			if err != nil {
				continue
			}
			s.hub.broadcast <- msg
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Status    string                  `json:"status"`
	UptimeSec int64                   `json:"uptime_seconds"`
	LastCycle *collector.CycleSummary `json:"last_cycle"`
	Datasets  []datasetStatus         `json:"datasets"`
}

type datasetStatus struct {
	Dataset   string    `json:"dataset"`
	Exists    bool      `json:"exists"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	Modified  time.Time `json:"modified,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statusResponse{
		Status:    "ok",
		UptimeSec: int64(time.Since(s.started).Seconds()),
		LastCycle: s.svc.LastSummary(),
		Datasets:  s.datasetStats(),
	})
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.datasetStats())
}

func (s *Server) datasetStats() []datasetStatus {
	out := make([]datasetStatus, 0, len(allDatasets))
	for _, name := range allDatasets {
		st := datasetStatus{Dataset: name}
		if info, err := os.Stat(store.Path(s.cfg.DataPath, name)); err == nil {
			st.Exists = true
			st.SizeBytes = info.Size()
			st.Modified = info.ModTime()
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Dataset < out[j].Dataset })
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}
