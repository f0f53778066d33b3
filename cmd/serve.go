package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kostichs/company-enricher/internal/model"
	"github.com/kostichs/company-enricher/internal/orchestrator"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server for enrichment requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		w, err := orchestrator.NewWriter(cfg.Output.CSVPath, cfg.Output.JSONLPath)
		if err != nil {
			return err
		}
		defer w.Close() //nolint:errcheck

		o := orchestrator.New(w, orchestrator.Deps{
			Resolver:  e.resolver,
			Prober:    e.prober,
			Describer: e.describer,
			Gateway:   e.gateway,
			Store:     e.store,
		}, orchestrator.Config{Concurrency: cfg.Batch.Concurrency, CacheTTL: e.cacheTTL})

		// Single writer queue: handlers never touch the output files.
		results := make(chan *model.CompanyRecord, 64)
		writerDone := make(chan struct{})
		var emitted atomic.Int64
		go func() {
			defer close(writerDone)
			for rec := range results {
				if err := w.Emit(rec); err != nil {
					zap.L().Error("serve: emit failed", zap.Int("index", rec.Index), zap.Error(err))
					continue
				}
				emitted.Add(1)
			}
		}()

		var nextIndex atomic.Int64
		var inflight sync.WaitGroup
		mux := newServeMux(ctx, o, results, &inflight, &nextIndex, &emitted)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		zap.L().Info("starting server", zap.Int("port", port))
		err = runServer(ctx, srv, &inflight, results)
		<-writerDone
		return err
	},
}

const shutdownGrace = 10 * time.Second

// runServer serves until ctx is cancelled, then drains gracefully. Shutdown
// waits out active handlers, so every inflight.Add has happened before
// inflight.Wait, and the results queue closes only after both: completed
// work is never dropped and nothing sends on a closed channel.
func runServer(ctx context.Context, srv *http.Server, inflight *sync.WaitGroup, results chan<- *model.CompanyRecord) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		zap.L().Info("shutting down server")
		sctx, scancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer scancel()
		srv.Shutdown(sctx) //nolint:errcheck
	}()

	err := srv.ListenAndServe()
	cancel()
	<-shutdownDone
	inflight.Wait()
	close(results)

	if err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

// newServeMux builds the HTTP surface: health, progress, and async
// single-company enrichment.
func newServeMux(ctx context.Context, o *orchestrator.Orchestrator, results chan<- *model.CompanyRecord, inflight *sync.WaitGroup, nextIndex, emitted *atomic.Int64) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"}) //nolint:errcheck
	})

	mux.HandleFunc("GET /progress", func(w http.ResponseWriter, r *http.Request) {
		p := o.Progress()
		p.Emitted = int(emitted.Load())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(p) //nolint:errcheck
	})

	mux.HandleFunc("POST /enrich", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name    string `json:"name"`
			SeedURL string `json:"seed_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
			return
		}

		rec := &model.CompanyRecord{
			Index:   int(nextIndex.Add(1)),
			Name:    req.Name,
			SeedURL: req.SeedURL,
			Status:  model.StatusPending,
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			o.Process(ctx, rec)
			results <- rec
			zap.L().Info("webhook enrichment complete",
				zap.String("company", rec.Name),
				zap.String("status", string(rec.Status)),
				zap.String("url", rec.ResolvedURL),
			)
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{ //nolint:errcheck
			"status":  "accepted",
			"company": req.Name,
		})
	})

	return mux
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
