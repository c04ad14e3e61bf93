package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gluk-w/cqlcontrol/internal/config"
	"github.com/gluk-w/cqlcontrol/internal/controlconn"
	"github.com/gluk-w/cqlcontrol/internal/housekeeping"
	"github.com/gluk-w/cqlcontrol/internal/policy"
	"github.com/gluk-w/cqlcontrol/internal/reactor"
	"github.com/gluk-w/cqlcontrol/internal/registry"
	"github.com/gluk-w/cqlcontrol/internal/schema"
	"github.com/gluk-w/cqlcontrol/internal/seeds"
	"github.com/gluk-w/cqlcontrol/internal/transport"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func main() {
	config.Load()

	schemaStore, err := schema.Open(config.Cfg.SchemaDBPath)
	if err != nil {
		log.Fatalf("schema store init: %v", err)
	}
	defer schemaStore.Close()

	reg := registry.New()

	var seedProvider policy.SeedSource
	switch config.Cfg.SeedSource {
	case "kubernetes":
		seedProvider = &seeds.Kubernetes{
			Namespace: config.Cfg.K8sNamespace,
			Service:   config.Cfg.K8sService,
			Port:      config.Cfg.Port,
		}
	default:
		seedProvider = seeds.StaticYAML{Path: config.Cfg.ContactPointsFile}
	}

	reconnBase := mustParseDuration(config.Cfg.ReconnectBaseDelay, time.Second)
	reconnMax := mustParseDuration(config.Cfg.ReconnectMaxDelay, time.Minute)
	connectTimeout := mustParseDuration(config.Cfg.ConnectTimeout, 5*time.Second)
	requestTimeout := mustParseDuration(config.Cfg.RequestTimeout, 10*time.Second)

	cc := controlconn.New(controlconn.Config{
		Reactor:         reactor.New(),
		Connector:       &transport.WSConnector{},
		Runner:          transport.StreamRunner{},
		LoadBalancing:   policy.NewRoundRobin(reg, seedProvider),
		Reconnection:    policy.ExponentialBackoff{Base: reconnBase, Max: reconnMax},
		Registry:        reg,
		Schema:          schemaStore,
		ProtocolVersion: config.Cfg.ProtocolVersion,
		AuthUsername:    config.Cfg.AuthUsername,
		AuthPassword:    config.Cfg.AuthPassword,
		ConnectTimeout:  connectTimeout,
		RequestTimeout:  requestTimeout,
	})

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cc.Connect(sigCtx); err != nil {
		log.Printf("WARNING: initial connect failed, reconnection loop will keep retrying if applicable: %v", err)
	}

	hk, err := housekeeping.New(cc, config.Cfg.HousekeepingCron)
	if err != nil {
		log.Fatalf("housekeeping scheduler init: %v", err)
	}
	hk.Start()

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": cc.Status().String()})
	})
	r.Get("/hosts", func(w http.ResponseWriter, r *http.Request) {
		var hosts []registry.Host
		reg.EachHost(func(h registry.Host) { hosts = append(hosts, h) })
		writeJSON(w, hosts)
	})

	srv := &http.Server{Addr: config.Cfg.DebugAddr, Handler: r}
	go func() {
		log.Printf("[controlconnd] debug server listening on %s", config.Cfg.DebugAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("debug server error: %v", err)
		}
	}()

	<-sigCtx.Done()
	log.Println("[controlconnd] shutting down")

	hk.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := cc.Close(shutdownCtx); err != nil {
		log.Printf("control connection close error: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("debug server shutdown error: %v", err)
	}

	log.Println("[controlconnd] stopped")
}

func mustParseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("invalid duration %q, using %s", s, fallback)
		return fallback
	}
	return d
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json response: %v", err)
	}
}
