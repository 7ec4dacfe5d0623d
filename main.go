// Package main is the entry point for the admission demo server.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"admission.ratelimiter/api"
	"admission.ratelimiter/config"
	"admission.ratelimiter/middleware"
)

// main parses flags, builds the admission gate, wires the middleware in
// front of the demo routes, and starts the HTTP server.
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	port := flag.Int("p", 8080, "Port to run the HTTP server on")
	configPath := flag.String("config", "", "Path to the configuration file (empty uses built-in defaults)")
	logLevelStr := flag.String("log-level", "info", "Logging level (trace, debug, info, warn, error, fatal, panic)")
	flag.Parse()

	logLevel, err := zerolog.ParseLevel(*logLevelStr)
	if err != nil {
		log.Fatal().Err(err).Str("log_level", *logLevelStr).Msg("Invalid log level provided")
	}
	zerolog.SetGlobalLevel(logLevel)

	var gate *api.Gate
	if *configPath != "" {
		log.Info().Str("config_path", *configPath).Msg("Building admission gate from config file")
		gate, err = api.NewGateFromConfigPath(*configPath)
	} else {
		log.Info().Msg("Building admission gate from built-in defaults")
		gate, err = api.NewGate(config.Default(), prometheus.DefaultRegisterer)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Application startup failed: Error building admission gate")
	}

	admission := middleware.NewAdmissionMiddleware(gate)

	http.HandleFunc("/api/auth/login", admission.Handle(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "Login attempt processed!")
	}))

	http.HandleFunc("/api/users", admission.Handle(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "Here are your users.")
	}))

	http.HandleFunc("/unlimited", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "Unlimited! Let's Go!")
	})

	http.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", *port)
	log.Info().Str("address", addr).Msg("Starting HTTP server")
	log.Fatal().Err(http.ListenAndServe(addr, nil)).Str("address", addr).Msg("HTTP server stopped")
}
