// Fakehealth is a stand-in service for trying the health panel locally.
// It serves /healthz/ with a report covering a database and a cache, and
// lets you flip readiness or slow the endpoint down while the panel runs.
//
// Usage:
//
//	go run ./scripts -port 8081
//	curl -X POST localhost:8081/toggle        # flip the cache check
//	curl -X POST 'localhost:8081/delay?d=8s'  # outlast the panel timeout
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

type state struct {
	mutex   sync.Mutex
	cacheUp bool
	delay   time.Duration
}

type report struct {
	Service string             `json:"service"`
	Env     string             `json:"env"`
	Version string             `json:"version"`
	Time    string             `json:"time"`
	Checks  map[string]bool    `json:"checks"`
	Timings map[string]float64 `json:"timings_ms"`
	Errors  map[string]string  `json:"errors,omitempty"`
}

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	st := &state{cacheUp: true}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz/", func(w http.ResponseWriter, r *http.Request) {
		st.mutex.Lock()
		cacheUp, delay := st.cacheUp, st.delay
		st.mutex.Unlock()

		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}

		rep := report{
			Service: "fakehealth",
			Env:     "dev",
			Version: "0.1.0",
			Time:    time.Now().UTC().Format(time.RFC3339),
			Checks:  map[string]bool{"db": true, "cache": cacheUp},
			Timings: map[string]float64{"db": 3},
		}
		status := http.StatusOK
		if !cacheUp {
			rep.Errors = map[string]string{"cache": "connection refused"}
			status = http.StatusServiceUnavailable
		} else {
			rep.Timings["cache"] = 1.5
		}

		requestID := uuid.NewString()
		log.Info("health request",
			slog.String("request_id", requestID),
			slog.String("from", r.RemoteAddr),
			slog.Int("status", status))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", requestID)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(rep)
	})

	mux.HandleFunc("POST /toggle", func(w http.ResponseWriter, r *http.Request) {
		st.mutex.Lock()
		st.cacheUp = !st.cacheUp
		up := st.cacheUp
		st.mutex.Unlock()

		log.Info("cache toggled", slog.Bool("up", up))
		fmt.Fprintf(w, "cache up: %t\n", up)
	})

	mux.HandleFunc("POST /delay", func(w http.ResponseWriter, r *http.Request) {
		d, err := time.ParseDuration(r.URL.Query().Get("d"))
		if err != nil {
			http.Error(w, "d must be a duration", http.StatusBadRequest)
			return
		}
		st.mutex.Lock()
		st.delay = d
		st.mutex.Unlock()

		log.Info("delay set", slog.Duration("delay", d))
		fmt.Fprintf(w, "delay: %s\n", d)
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Info("starting fake health service", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("server failed", slog.Any("err", err))
		os.Exit(1)
	}
}
