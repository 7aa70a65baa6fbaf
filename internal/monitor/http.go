package monitor

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// httpServer exposes the engine's read-only query surface as JSON over
// plain net/http — the original's axum router minus the HTML dashboard,
// which SPEC_FULL.md leaves out of scope; only the REST data surface is
// supplemented here.
type httpServer struct {
	eng *engine
	srv *http.Server
}

func newHTTPServer(addr string, eng *engine) *httpServer {
	mux := http.NewServeMux()
	h := &httpServer{eng: eng}
	mux.HandleFunc("/histograms", h.handleSnapshot)
	mux.HandleFunc("/histograms/", h.handleOne)
	mux.HandleFunc("/clear", h.handleClear)
	mux.HandleFunc("/projectors/", h.handleProjector)
	h.srv = &http.Server{Addr: addr, Handler: mux}
	return h
}

func (h *httpServer) start() error {
	return h.srv.ListenAndServe()
}

func (h *httpServer) close() error {
	return h.srv.Close()
}

func (h *httpServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.eng.Snapshot())
}

// handleOne serves GET /histograms/{module}/{channel}.
func (h *httpServer) handleOne(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	module, channel, ok := parseChannelPath(r.URL.Path)
	if !ok {
		http.Error(w, "expected /histograms/{module}/{channel}", http.StatusBadRequest)
		return
	}
	hist := h.eng.Histogram(ChannelKey{ModuleID: module, ChannelID: channel})
	if hist == nil {
		http.Error(w, "no data for that channel yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (h *httpServer) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.eng.submitClear()
	w.WriteHeader(http.StatusNoContent)
}

// handleProjector configures (POST) or reads back (GET) a channel's
// waveform projection basis. POST bodies carry a base64-encoded
// mat.Dense; GET returns the most recent projection coefficients as JSON.
func (h *httpServer) handleProjector(w http.ResponseWriter, r *http.Request) {
	module, channel, ok := parseChannelPathWithPrefix(r.URL.Path, "/projectors/")
	if !ok {
		http.Error(w, "expected /projectors/{module}/{channel}", http.StatusBadRequest)
		return
	}
	key := ChannelKey{ModuleID: module, ChannelID: channel}

	switch r.Method {
	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body)))
		if err != nil {
			http.Error(w, "body must be base64-encoded mat.Dense bytes", http.StatusBadRequest)
			return
		}
		var projectors mat.Dense
		if err := projectors.UnmarshalBinary(raw); err != nil {
			http.Error(w, "failed to decode projector matrix: "+err.Error(), http.StatusBadRequest)
			return
		}
		h.eng.configureProjector(key, &projectors)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		coeffs := h.eng.lastProjection(key)
		if coeffs == nil {
			http.Error(w, "no projection available for that channel", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, coeffs)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func parseChannelPath(path string) (module, channel uint32, ok bool) {
	return parseChannelPathWithPrefix(path, "/histograms/")
}

func parseChannelPathWithPrefix(path, prefix string) (module, channel uint32, ok bool) {
	if len(path) <= len(prefix) {
		return 0, 0, false
	}
	rest := path[len(prefix):]
	slash := -1
	for i, c := range rest {
		if c == '/' {
			slash = i
			break
		}
	}
	if slash < 0 {
		return 0, 0, false
	}
	m, err := strconv.ParseUint(rest[:slash], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	c, err := strconv.ParseUint(rest[slash+1:], 10, 32)
	if err != nil {
		return 0, 0, false
	}
	return uint32(m), uint32(c), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
