package main

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jpillora/requestlog"
	gut "github.com/panyam/goutils/utils"
	gohttp "github.com/panyam/rtproxy/http"
	"github.com/panyam/rtproxy/metrics"
	"github.com/panyam/rtproxy/proxy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newRouter(cfg Config, m *metrics.Metrics, reg *prometheus.Registry, sessions *proxy.Registry, logger *slog.Logger) http.Handler {
	r := mux.NewRouter()

	wsConfig := gohttp.DefaultWSConnConfig()
	wsConfig.SessionConfig = cfg.SessionConfig()
	wsConfig.Logger = logger

	opts := []proxy.Option{
		proxy.WithLogger(logger),
		proxy.WithMetrics(m),
		proxy.WithRegistry(sessions),
		proxy.WithUpstreamConfig(cfg.UpstreamConfig()),
	}

	// A fresh proxy per connection.
	r.HandleFunc(cfg.WSPath, func(w http.ResponseWriter, req *http.Request) {
		gohttp.WSServe(proxy.New(cfg.APIKey, opts...), wsConfig)(w, req)
	})

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		gohttp.SendJsonResponse(w, gut.StrMap{
			"status":   "ok",
			"upstream": cfg.UpstreamURL,
			"model":    cfg.UpstreamModel,
		}, nil)
	}).Methods(http.MethodGet)

	r.HandleFunc("/debug/sessions", func(w http.ResponseWriter, req *http.Request) {
		gohttp.SendJsonResponse(w, gut.StrMap{"sessions": sessions.List()}, nil)
	}).Methods(http.MethodGet)

	r.HandleFunc("/debug/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
		info, err := sessions.Get(mux.Vars(req)["id"])
		gohttp.SendJsonResponse(w, info, err)
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	var h http.Handler = r
	if cfg.AccessLog {
		h = requestlog.Wrap(h)
	}
	return h
}
