package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/psyphy-data/gripmmi/internal/config"
	"github.com/psyphy-data/gripmmi/internal/epm"
	"github.com/psyphy-data/gripmmi/internal/grip"
	"github.com/psyphy-data/gripmmi/internal/gripdb"
	"github.com/psyphy-data/gripmmi/internal/monitor"
)

// Server owns one reconstruction session: the assembler, its persistence,
// and the HTTP surface over both. The assembler is not concurrency-safe,
// so every access goes through mu.
type Server struct {
	cfg       *config.TuningConfig
	store     *gripdb.SampleStore
	session   *gripdb.Session
	cacheRoot string

	mu            sync.Mutex
	assembler     *grip.Assembler
	persisted     int // samples already written to the store
	rtRecordsRead int // realtime cache records consumed so far
	lastPacket    *epm.RealtimeData
	latestHK      *epm.HousekeepingRecord
}

func NewServer(cfg *config.TuningConfig, store *gripdb.SampleStore, session *gripdb.Session, assembler *grip.Assembler, cacheRoot string) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		session:   session,
		cacheRoot: cacheRoot,
		assembler: assembler,
	}
}

// Poll reads newly appended cache records, feeds them through the
// assembler, and persists the new samples and housekeeping status. Cache
// files that do not exist yet are not an error; the relay may not have
// created them.
func (s *Server) Poll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.pollRealtime(); err != nil {
		return err
	}
	return s.pollHousekeeping()
}

func (s *Server) pollRealtime() error {
	f, err := os.Open(grip.RealtimeCachePath(s.cacheRoot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open realtime cache: %w", err)
	}
	defer f.Close()

	packets, err := grip.ReadRealtimeCache(f, s.rtRecordsRead)
	if err != nil {
		return err
	}
	s.rtRecordsRead += len(packets)

	for _, rt := range packets {
		appended, newData := s.assembler.Ingest(rt)
		if newData {
			s.lastPacket = rt
		}
		if appended == 0 && s.assembler.Full() && newData {
			log.Printf("sample buffer full; dropping packet TM=%d", rt.Header.TMCounter)
		}
	}

	samples := s.assembler.Samples()
	if len(samples) > s.persisted {
		if err := s.store.InsertSamples(s.session.SessionID, s.persisted, samples[s.persisted:]); err != nil {
			return err
		}
		s.persisted = len(samples)
	}
	return nil
}

func (s *Server) pollHousekeeping() error {
	f, err := os.Open(grip.HousekeepingCachePath(s.cacheRoot))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open housekeeping cache: %w", err)
	}
	defer f.Close()

	latest, _, err := grip.ReadLatestHousekeeping(f)
	if err != nil {
		return err
	}
	if latest == nil {
		return nil
	}
	if s.latestHK != nil && s.latestHK.Header.TMCounter == latest.Header.TMCounter {
		return nil
	}
	if err := s.store.UpsertHousekeeping(s.session.SessionID, latest); err != nil {
		return err
	}
	s.latestHK = latest
	return nil
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.homeHandler)
	mux.HandleFunc("/api/grip/samples", s.listSamples)
	mux.HandleFunc("/api/grip/latest", s.latestSample)
	mux.HandleFunc("/api/grip/hk", s.housekeepingStatus)
	mux.HandleFunc("/api/grip/markers", s.markerVisibility)
	mux.HandleFunc("/api/grip/params", s.params)
	mux.HandleFunc("/charts/strip.png", s.forceStrip)
	mux.HandleFunc("/charts/position.png", s.positionStrip)
	mux.HandleFunc("/charts/forces", s.forcesPage)
	mux.HandleFunc("/charts/visibility", s.visibilityPage)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("GRIP telemetry monitor\n"))
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) listSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	from, err := queryFloat(r, "from", 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := queryFloat(r, "to", grip.MissingDouble)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", 10000)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	samples, err := s.store.SamplesInRange(s.session.SessionID, from, to, limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve samples: %v", err), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, samples)
}

func (s *Server) latestSample(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	latest, err := s.store.LatestSample(s.session.SessionID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve sample: %v", err), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	full := s.assembler.Full()
	count := s.assembler.Len()
	s.mu.Unlock()

	s.writeJSON(w, map[string]interface{}{
		"session_id":  s.session.SessionID,
		"sample":      latest,
		"samples":     count,
		"buffer_full": full,
	})
}

func (s *Server) housekeepingStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hk, err := s.store.LatestHousekeeping(s.session.SessionID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve housekeeping: %v", err), http.StatusInternalServerError)
		return
	}
	if hk == nil {
		http.Error(w, "No housekeeping received yet", http.StatusNotFound)
		return
	}

	horizontal, vertical := hk.TargetFeedbackStrings()
	s.writeJSON(w, map[string]interface{}{
		"record":              hk,
		"horizontal_targets":  horizontal,
		"vertical_targets":    vertical,
		"cradles":             hk.CradleStates(),
		"acquisition":         hk.AcquisitionFlags(),
		"script_engine_error": hk.ScriptEngineError(),
	})
}

func (s *Server) markerVisibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	last := s.lastPacket
	s.mu.Unlock()
	if last == nil {
		http.Error(w, "No realtime packets received yet", http.StatusNotFound)
		return
	}

	// Visibility strings come from the newest slice of the newest packet.
	slice := &last.Slices[epm.RTSlicesPerPacket-1]
	s.writeJSON(w, map[string]interface{}{
		"time":   slice.BestGuessPoseTime,
		"coda_1": grip.MarkerVisibilityString(slice.MarkerVisibility[0]),
		"coda_2": grip.MarkerVisibilityString(slice.MarkerVisibility[1]),
	})
}

func (s *Server) params(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"filter_constant":     s.cfg.GetFilterConstant(),
		"cop_force_threshold": s.cfg.GetCoPForceThreshold(),
		"max_samples":         s.cfg.GetMaxSamples(),
		"poll_interval":       s.cfg.GetPollInterval().String(),
		"chart_span_seconds":  s.cfg.GetChartSpanSeconds(),
	})
}

// recentSamples copies the tail of the sample sequence covering the
// configured chart span.
func (s *Server) recentSamples() []grip.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	samples := s.assembler.Samples()
	n := int(s.cfg.GetChartSpanSeconds() / epm.RTDefaultSecondsPerSlice)
	if n <= 0 || n > len(samples) {
		n = len(samples)
	}
	tail := samples[len(samples)-n:]
	out := make([]grip.Sample, len(tail))
	copy(out, tail)
	return out
}

func (s *Server) forceStrip(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	if err := monitor.RenderForceStrip(w, s.recentSamples()); err != nil {
		log.Printf("failed to render force strip: %v", err)
	}
}

func (s *Server) positionStrip(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	if err := monitor.RenderPositionStrip(w, s.recentSamples()); err != nil {
		log.Printf("failed to render position strip: %v", err)
	}
}

func (s *Server) forcesPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := monitor.RenderForcesPage(w, s.recentSamples()); err != nil {
		log.Printf("failed to render forces page: %v", err)
	}
}

func (s *Server) visibilityPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := monitor.RenderVisibilityPage(w, s.recentSamples()); err != nil {
		log.Printf("failed to render visibility page: %v", err)
	}
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}
