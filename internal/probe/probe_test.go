package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kostichs/company-enricher/pkg/scrapingbee"
)

type stubBrowser struct {
	result *scrapingbee.FetchResult
	err    error
	calls  int
}

func (s *stubBrowser) Fetch(_ context.Context, _ string, _ ...scrapingbee.FetchOption) (*scrapingbee.FetchResult, error) {
	s.calls++
	return s.result, s.err
}

func TestProbe_LiveDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(WithTimeouts(2*time.Second, 4*time.Second))
	res := p.Probe(context.Background(), srv.URL)

	assert.True(t, res.IsLive)
	assert.NotEmpty(t, res.FinalURL)
	assert.Empty(t, res.Error)
}

func TestProbe_FollowsRedirects(t *testing.T) {
	var final string
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	final = srv.URL + "/home"

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/home" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, final, http.StatusMovedPermanently)
	})

	p := New(WithTimeouts(2*time.Second, 4*time.Second))
	res := p.Probe(context.Background(), srv.URL)

	require.True(t, res.IsLive)
	assert.Equal(t, final, res.FinalURL)
}

func TestProbe_403IsLive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := New(WithTimeouts(2*time.Second, 4*time.Second))
	res := p.Probe(context.Background(), srv.URL)

	assert.True(t, res.IsLive, "403 means the server answered, not that the site is absent")
}

func TestProbe_404BothSchemesAndBareDomainIsDead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := New(WithTimeouts(1*time.Second, 2*time.Second))
	res := p.Probe(context.Background(), srv.URL+"/deep/path")

	assert.False(t, res.IsLive)
	assert.Empty(t, res.FinalURL)
	assert.NotEmpty(t, res.Error)
}

func TestProbe_BareDomainRecovers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(WithTimeouts(1*time.Second, 2*time.Second))
	res := p.Probe(context.Background(), srv.URL+"/deep/path")

	assert.True(t, res.IsLive, "root should be probed after deep path 404s")
}

func TestProbe_HeadTimeoutRetriesWithGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			time.Sleep(500 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(WithTimeouts(100*time.Millisecond, 3*time.Second))
	res := p.Probe(context.Background(), srv.URL)

	assert.True(t, res.IsLive)
}

func TestProbe_BrowserEscalation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	browser := &stubBrowser{result: &scrapingbee.FetchResult{
		HTML:        "<html>rendered</html>",
		StatusCode:  200,
		ResolvedURL: "https://rendered.example.com/",
	}}

	p := New(WithTimeouts(1*time.Second, 2*time.Second), WithBrowser(browser))
	res := p.Probe(context.Background(), srv.URL)

	assert.True(t, res.IsLive)
	assert.Equal(t, "https://rendered.example.com/", res.FinalURL)
	assert.Equal(t, 1, browser.calls)
}

func TestProbe_BrowserFailureKeepsConcreteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	browser := &stubBrowser{err: errors.New("scrapingbee: status 500")}

	p := New(WithTimeouts(1*time.Second, 2*time.Second), WithBrowser(browser))
	res := p.Probe(context.Background(), srv.URL)

	assert.False(t, res.IsLive)
	assert.NotEmpty(t, res.Error)
}

func TestProbe_SchemePrepended(t *testing.T) {
	p := New(WithTimeouts(200*time.Millisecond, 300*time.Millisecond))
	res := p.Probe(context.Background(), "definitely-not-a-real-host-zzz.invalid")
	assert.False(t, res.IsLive)
	assert.NotEmpty(t, res.Error)
}

func TestProbe_EmptyURL(t *testing.T) {
	p := New()
	res := p.Probe(context.Background(), "")
	assert.False(t, res.IsLive)
	assert.Contains(t, res.Error, "empty url")
}

func TestSwapScheme(t *testing.T) {
	assert.Equal(t, "http://a.com", swapScheme("https://a.com"))
	assert.Equal(t, "https://a.com", swapScheme("http://a.com"))
}

func TestBareDomainURL(t *testing.T) {
	assert.Equal(t, "https://a.com", bareDomainURL("https://a.com/x/y?z=1"))
	assert.Empty(t, bareDomainURL("not a url"))
}
