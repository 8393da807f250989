package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"PerpIndexer/internal/query"
)

// NewGatewayHandler builds the HTTP surface:
//
//	GET /v1/{kind}/{id}
//	GET /v1/funding/{symbol}/{timestamp}
//	GET /healthz, /readyz, /metrics
func NewGatewayHandler(deps *ServerDeps) (http.Handler, error) {
	h := &gateway{qs: deps.QueryService, logger: deps.Logger}

	mux := runtime.NewServeMux()
	if err := mux.HandlePath(http.MethodGet, "/v1/funding/{symbol}/{timestamp}", h.getFunding); err != nil {
		return nil, fmt.Errorf("register funding route: %w", err)
	}
	if err := mux.HandlePath(http.MethodGet, "/v1/{kind}/{id}", h.getEntity); err != nil {
		return nil, fmt.Errorf("register entity route: %w", err)
	}

	httpMux := http.NewServeMux()
	if deps.HealthChecker != nil {
		httpMux.HandleFunc("/healthz", deps.HealthChecker.LivenessHandler)
		httpMux.HandleFunc("/readyz", deps.HealthChecker.ReadinessHandler)
	} else {
		httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	httpMux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	httpMux.Handle("/", mux)
	return httpMux, nil
}

type gateway struct {
	qs     *query.Service
	logger zerolog.Logger
}

func (g *gateway) getEntity(w http.ResponseWriter, r *http.Request, params map[string]string) {
	resp, err := g.qs.GetEntity(r.Context(), params["kind"], params["id"])
	if err != nil {
		g.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *gateway) getFunding(w http.ResponseWriter, r *http.Request, params map[string]string) {
	ts, err := strconv.ParseInt(params["timestamp"], 10, 64)
	if err != nil {
		g.writeError(w, fmt.Errorf("%w: timestamp %q", query.ErrInvalidArgument, params["timestamp"]))
		return
	}
	resp, err := g.qs.GetFunding(r.Context(), params["symbol"], ts)
	if err != nil {
		g.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *gateway) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch query.Status(err) {
	case "not_found":
		code = http.StatusNotFound
	case "invalid":
		code = http.StatusBadRequest
	}
	if code == http.StatusInternalServerError {
		g.logger.Error().Err(err).Msg("query failed")
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
