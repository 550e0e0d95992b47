package fakerouter

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annakv/routerclient"
)

// Handler returns the admin HTTP API:
//
//	GET /nodes    members of every storage tier ring
//	GET /healthz  ok once the memory tier has members
//	GET /metrics  Prometheus metrics, if the server has a registry
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/nodes", s.nodes).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	if s.registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return router
}

func (s *Server) nodes(resp http.ResponseWriter, req *http.Request) {
	writeJSON(resp, http.StatusOK, s.router.Nodes())
}

func (s *Server) healthz(resp http.ResponseWriter, req *http.Request) {
	// Force it render as an array, not null
	good := []string{}
	bad := []string{}
	memory := s.router.Ring(routerclient.TierMemory).Len()
	if memory > 0 {
		good = append(good, strconv.Itoa(memory)+" memory tier nodes")
	} else {
		bad = append(bad, "memory tier is empty")
	}

	status := http.StatusOK
	if len(bad) > 0 {
		status = http.StatusServiceUnavailable
	}
	writeJSON(resp, status, map[string][]string{
		"ok":     good,
		"failed": bad,
	})
}

func writeJSON(resp http.ResponseWriter, status int, v interface{}) {
	resp.Header().Set("content-type", "application/json")
	resp.WriteHeader(status)
	enc := jsoniter.NewEncoder(resp)
	_ = enc.Encode(v)
}
