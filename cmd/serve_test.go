package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kostichs/company-enricher/internal/model"
	"github.com/kostichs/company-enricher/internal/orchestrator"
	"github.com/kostichs/company-enricher/internal/resolve"
)

type muxResolver struct{}

func (muxResolver) ResolveHomepage(_ context.Context, rec *model.CompanyRecord) resolve.Homepage {
	return resolve.Homepage{URL: "https://" + strings.ToLower(rec.Name) + ".example", Method: model.MethodSearchRank, Verified: true}
}

func (muxResolver) ResolveProfile(context.Context, string) (string, bool) { return "", false }

type muxProber struct{}

func (muxProber) Probe(context.Context, string) model.LivenessResult {
	return model.LivenessResult{IsLive: true}
}

func newMuxHarness(t *testing.T) (*http.ServeMux, *orchestrator.Writer, *atomic.Int64) {
	t.Helper()
	w, err := orchestrator.NewWriter(filepath.Join(t.TempDir(), "out.csv"), "")
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() }) //nolint:errcheck

	o := orchestrator.New(w, orchestrator.Deps{Resolver: muxResolver{}, Prober: muxProber{}},
		orchestrator.Config{Concurrency: 2})

	results := make(chan *model.CompanyRecord, 8)
	var emitted atomic.Int64
	go func() {
		for rec := range results {
			if err := w.Emit(rec); err == nil {
				emitted.Add(1)
			}
		}
	}()

	var nextIndex atomic.Int64
	var inflight sync.WaitGroup
	return newServeMux(context.Background(), o, results, &inflight, &nextIndex, &emitted), w, &emitted
}

func TestServeHealth(t *testing.T) {
	mux, _, _ := newMuxHarness(t)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestServeEnrichValidation(t *testing.T) {
	mux, _, _ := newMuxHarness(t)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/enrich", strings.NewReader(`{"seed_url":"https://x.example"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/enrich", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServeEnrichAccepted(t *testing.T) {
	mux, _, emitted := newMuxHarness(t)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/enrich", strings.NewReader(`{"name":"Acme"}`)))

	require.Equal(t, http.StatusAccepted, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp["status"])
	assert.Equal(t, "Acme", resp["company"])

	assert.Eventually(t, func() bool { return emitted.Load() == 1 },
		2*time.Second, 10*time.Millisecond, "accepted record reaches the writer")
}

func TestRunServerDrainsInFlightBeforeClosingQueue(t *testing.T) {
	results := make(chan *model.CompanyRecord, 4)
	var inflight sync.WaitGroup

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// An accepted enrichment still running when shutdown starts must hand
	// its record to the queue before the queue closes.
	rec := &model.CompanyRecord{Index: 1, Name: "Acme", Status: model.StatusValid}
	inflight.Add(1)
	go func() {
		defer inflight.Done()
		time.Sleep(50 * time.Millisecond)
		results <- rec
	}()

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, srv, &inflight, results) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	got, ok := <-results
	require.True(t, ok)
	assert.Equal(t, rec, got)
	_, ok = <-results
	assert.False(t, ok, "queue closes only after the drain")
}

func TestServeProgress(t *testing.T) {
	mux, _, _ := newMuxHarness(t)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/progress", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var p orchestrator.Progress
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	assert.Zero(t, p.Emitted)
}
