package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ngoyal88/msgproxy/pkg/aggregator"
	"github.com/ngoyal88/msgproxy/pkg/api"
	"github.com/ngoyal88/msgproxy/pkg/cache"
	"github.com/ngoyal88/msgproxy/pkg/config"
	"github.com/ngoyal88/msgproxy/pkg/proxy"
	"github.com/ngoyal88/msgproxy/pkg/recorder"
	"github.com/ngoyal88/msgproxy/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	store, err := storage.OpenSQLite(cfg.Storage.ConnectionString)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer store.Close()
	fmt.Println("✅ Storage ready:", cfg.Storage.ConnectionString)

	var rdb *cache.Client
	if cfg.Redis.Enabled {
		rdb, err = cache.NewRedis(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("could not connect to redis: %v", err)
		}
		defer rdb.Close()
		fmt.Println("✅ Analytics cache connected")
	}

	rec := recorder.New(store, "relayd-storage")

	upstreamClient := &http.Client{
		Timeout: time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		Transport: &http.Transport{
			DisableCompression: true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	forwarder := proxy.NewForwarder(upstreamClient, cfg.Upstream.BaseURL, cfg.Upstream.MaxStoredBodyBytes, rec)
	fmt.Println("✅ Forwarder targeting:", cfg.Upstream.BaseURL)

	agg := aggregator.New(store, rdb)
	statsHandler := api.New(agg)

	mux := http.NewServeMux()
	statsHandler.Register(mux)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	// Registered last: the catch-all forwarder yields to every route above
	// it, satisfying the "analytics API matched before the forwarder" rule.
	mux.Handle("/", proxy.AccessLog(forwarder))

	addr := ":" + cfg.Server.Port
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		fmt.Printf("🚀 relayd listening on %s\n", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	rec.Wait()
}
